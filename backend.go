package fsbackend

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/util"
)

// Backend reads translation resources from files and writes missing keys back
// through a debounced queue.
type Backend struct {
	opts  Options
	store *Store
	queue *WriteQueue
}

// New builds a Backend. ctx supplies the logger used for background writes.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	store, err := NewStore(o)
	if err != nil {
		return nil, err
	}
	queue, err := NewWriteQueue(ctx, store, o)
	if err != nil {
		return nil, err
	}

	util.Log(ctx).
		WithField("load_path", o.LoadPath).
		WithField("add_path", store.addPath).
		WithField("debounce", o.Debounce.String()).
		Debug("translation backend ready")

	return &Backend{
		opts:  o,
		store: store,
		queue: queue,
	}, nil
}

// Store exposes the path resolution and file codec layer.
func (b *Backend) Store() *Store {
	return b.store
}

// Options returns the effective options.
func (b *Backend) Options() Options {
	return b.opts
}

// Read loads the resource for lng/ns. A missing file is not an error and
// yields an empty Resource; a file that cannot be evaluated yields a nil
// Resource and a *ResourceEvaluationError.
func (b *Backend) Read(ctx context.Context, lng, ns string) (Resource, error) {
	path, err := b.store.ResolvePath(lng, ns)
	if err != nil {
		return nil, err
	}

	res, err := b.store.Read(ctx, path, ResourceKey{Language: lng, Namespace: ns})
	if err != nil {
		util.Log(ctx).WithError(err).
			WithField("lng", lng).
			WithField("ns", ns).
			WithField("path", path).
			Warn("could not read translation resource")
		return nil, err
	}
	return res, nil
}

// CreateFunc is invoked when a create request settled. err is nil when the
// key reached the file.
type CreateFunc func(err error)

// Create queues key=value for every language in lngs. Languages that resolve
// to the same file are written once. callback may be nil; how often it runs
// depends on the CompletionPolicy. Create never blocks on I/O and never
// invokes callback before returning.
func (b *Backend) Create(ctx context.Context, lngs []string, ns, key string, value any, callback CreateFunc) {
	if value == nil {
		value = ""
	}

	type target struct {
		path string
		rk   ResourceKey
	}
	var targets []target
	var resolveErrs []error
	seen := make(map[string]bool, len(lngs))

	for _, lng := range lngs {
		path, err := b.store.ResolveAddPath(lng, ns)
		if err != nil {
			resolveErrs = append(resolveErrs, err)
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		targets = append(targets, target{path: path, rk: ResourceKey{Language: lng, Namespace: ns}})
	}

	util.Log(ctx).
		WithField("ns", ns).
		WithField("key", key).
		WithField("files", len(targets)).
		Debug("queueing missing key")

	if len(resolveErrs) > 0 || len(targets) == 0 {
		err := errors.Join(resolveErrs...)
		if err == nil {
			err = &ConfigError{Field: "lngs", Reason: "no language given"}
		}
		if callback != nil {
			go callback(err)
		}
		if len(targets) == 0 {
			return
		}
		// the resolvable languages still get their keys, the callback has already failed
		callback = nil
	}

	cb := b.completion(callback, len(targets))
	for _, t := range targets {
		b.queue.Enqueue(t.path, t.rk, key, value, cb)
	}
}

// completion adapts callback to the configured policy for n target files.
func (b *Backend) completion(callback CreateFunc, n int) func(error) {
	if callback == nil {
		return nil
	}
	if b.opts.Completion == CompletionPerPath || n == 1 {
		return callback
	}

	var (
		mu   sync.Mutex
		left = n
		errs []error
	)
	return func(err error) {
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		}
		left--
		done := left == 0
		mu.Unlock()
		if done {
			callback(errors.Join(errs...))
		}
	}
}

// Flush writes all queued keys now and waits for the writes.
func (b *Backend) Flush(ctx context.Context) error {
	return b.queue.Flush(ctx)
}

// Pending reports how many files have keys waiting to be written.
func (b *Backend) Pending() int {
	return b.queue.Pending()
}

// Discard drops queued keys without writing them.
func (b *Backend) Discard() {
	b.queue.Discard()
}

// Close writes all queued keys, waits for them, and stops the backend.
func (b *Backend) Close(ctx context.Context) error {
	return b.queue.Close(ctx)
}
