package fsbackend

import (
	"context"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memFS is an in-memory FileSystem recording every write.
type memFS struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes []memWrite

	writeErr error
	// beforeWrite runs outside the lock before a write is stored.
	beforeWrite func(name string)
}

type memWrite struct {
	Path string
	Data string
}

func newMemFS(files map[string]string) *memFS {
	m := &memFS{files: map[string][]byte{}}
	for k, v := range files {
		m.files[k] = []byte(v)
	}
	return m
}

func (m *memFS) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *memFS) WriteFile(name string, data []byte, _ fs.FileMode) error {
	if m.beforeWrite != nil {
		m.beforeWrite(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[name] = append([]byte(nil), data...)
	m.writes = append(m.writes, memWrite{Path: name, Data: string(data)})
	return nil
}

func (m *memFS) MkdirAll(string, fs.FileMode) error { return nil }

func (m *memFS) Writes() []memWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]memWrite(nil), m.writes...)
}

func (m *memFS) WritesTo(path string) []string {
	var out []string
	for _, w := range m.Writes() {
		if w.Path == path {
			out = append(out, w.Data)
		}
	}
	return out
}

func newTestBackend(t *testing.T, fsys FileSystem, opts ...Option) *Backend {
	t.Helper()
	base := []Option{
		WithLoadPath("/locales/{{lng}}/{{ns}}.json"),
		WithFileSystem(fsys),
		WithDebounce(20 * time.Millisecond),
	}
	b, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = b.Close(context.Background())
	})
	return b
}

// callbackRecorder collects create results on a channel.
type callbackRecorder chan error

func newRecorder() callbackRecorder {
	return make(callbackRecorder, 16)
}

func (r callbackRecorder) Func() CreateFunc {
	return func(err error) { r <- err }
}

func (r callbackRecorder) Wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("create callback was not invoked")
		return nil
	}
}

func (r callbackRecorder) AssertNoMore(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case err := <-r:
		t.Fatalf("unexpected extra callback invocation (err=%v)", err)
	case <-time.After(within):
	}
}
