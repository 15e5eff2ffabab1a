package fsbackend

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundle_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	enDir := filepath.Join(dir, "en")
	require.NoError(t, os.MkdirAll(enDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(enDir, "translation.json"), []byte(`{"hello": "Hello"}`), 0o644))

	b, err := New(ctx,
		WithLoadPath(filepath.Join(dir, "{{lng}}", "{{ns}}.json")),
		WithDebounce(10*time.Millisecond),
	)
	require.NoError(t, err)
	defer b.Close(context.Background())

	bundle := NewBundle(b, Config{})
	require.NoError(t, bundle.Load(ctx, "en"))

	var (
		mu       sync.Mutex
		reloaded []ResourceKey
	)
	watchErr := make(chan error, 1)
	go func() {
		// a reload may observe a half-written file, so errors are not asserted
		watchErr <- bundle.Watch(ctx, func(key ResourceKey, _ error) {
			mu.Lock()
			reloaded = append(reloaded, key)
			mu.Unlock()
		})
	}()

	loc := bundle.Locale("en")

	t.Run("Bundle_Watch_ExternalEdit", func(t *testing.T) {
		require.Eventually(t, func() bool {
			// rewrite until the watcher is registered and sees it
			_ = os.WriteFile(filepath.Join(enDir, "translation.json"), []byte(`{"hello": "Hi"}`), 0o644)
			return loc.T(ctx, "hello") == "Hi"
		}, 5*time.Second, 50*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		require.NotEmpty(t, reloaded)
		assert.Equal(t, ResourceKey{Language: "en", Namespace: "translation"}, reloaded[0])
	})

	t.Run("Bundle_Watch_MissingKeyWrite", func(t *testing.T) {
		rec := newRecorder()
		b.Create(ctx, []string{"en"}, "translation", "farewell", "Bye", rec.Func())
		require.NoError(t, rec.Wait(t))

		require.Eventually(t, func() bool {
			_, ok := loc.Lookup("farewell")
			return ok
		}, 5*time.Second, 20*time.Millisecond)
		assert.Equal(t, "Bye", loc.T(ctx, "farewell"))
	})

	t.Run("Bundle_Watch_KeepsMessagesWhileEmpty", func(t *testing.T) {
		path := filepath.Join(enDir, "translation.json")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, "Hi", loc.T(ctx, "hello"))

		require.NoError(t, os.Remove(path))
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, "Hi", loc.T(ctx, "hello"))
		assert.Equal(t, "Bye", loc.T(ctx, "farewell"))

		require.Eventually(t, func() bool {
			_ = os.WriteFile(path, []byte(`{"hello": "Hey"}`), 0o644)
			return loc.T(ctx, "hello") == "Hey"
		}, 5*time.Second, 50*time.Millisecond)
	})

	cancel()
	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestHasContent(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	full := filepath.Join(dir, "full.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.NoError(t, os.WriteFile(full, []byte(`{}`), 0o644))

	assert.False(t, hasContent(filepath.Join(dir, "missing.json")))
	assert.False(t, hasContent(empty))
	assert.True(t, hasContent(full))
}

func TestBundle_WatchWithoutBackend(t *testing.T) {
	assert.Error(t, NewBundle(nil, Config{}).Watch(context.Background(), nil))
}
