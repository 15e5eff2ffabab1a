package fsbackend

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
)

// pendingEntry is one queued "create key" request.
type pendingEntry struct {
	key      string
	value    any
	callback func(error)
}

// pendingWrite accumulates requests for one file until its debounce timer fires.
type pendingWrite struct {
	key     ResourceKey
	entries []pendingEntry
	timer   *time.Timer
	// gen identifies the live timer; a fire carrying an older gen is stale.
	gen uint64
	// due is set when the timer fired while a flush of the same file was running.
	due bool
	// prev is closed once the callbacks of the previous batch for the same file
	// returned; done is closed once this batch's callbacks returned.
	prev <-chan struct{}
	done chan struct{}
}

// WriteQueue coalesces bursts of missing-key requests into one read-merge-write
// per file. State is owned by the queue instance; no package-level state exists.
type WriteQueue struct {
	ctx      context.Context
	store    *Store
	sep      string
	debounce time.Duration
	pool     *ants.Pool

	mu       sync.Mutex
	pending  map[string]*pendingWrite
	inflight map[string]bool
	// lastDone holds the done channel of the newest detached batch per file.
	lastDone map[string]chan struct{}
	closed   bool
	// running counts detached batches; idle is closed when it drops to zero.
	running int
	idle    chan struct{}
}

// NewWriteQueue creates an empty queue. ctx carries the logger used by flushes;
// its cancellation does not stop the queue, Close does.
func NewWriteQueue(ctx context.Context, store *Store, opts Options) (*WriteQueue, error) {
	log := util.Log(ctx)
	pool, err := ants.NewPool(opts.FlushWorkers,
		ants.WithLogger(log),
		ants.WithPanicHandler(func(p any) {
			log.WithField("panic", p).Error("flush worker panicked")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &WriteQueue{
		ctx:      context.WithoutCancel(ctx),
		store:    store,
		sep:      opts.keySeparator(),
		debounce: opts.Debounce,
		pool:     pool,
		pending:  make(map[string]*pendingWrite),
		inflight: make(map[string]bool),
		lastDone: make(map[string]chan struct{}),
	}, nil
}

// Enqueue records key=value for the file at path and re-arms its debounce
// timer. callback, when non-nil, runs once after the flush that includes this
// request finished, with that flush's error.
func (q *WriteQueue) Enqueue(path string, rk ResourceKey, key string, value any, callback func(error)) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		go complete([]pendingEntry{{callback: callback}}, ErrClosed)
		return
	}

	pw, ok := q.pending[path]
	if !ok {
		pw = &pendingWrite{key: rk}
		q.pending[path] = pw
	}
	pw.entries = append(pw.entries, pendingEntry{key: key, value: value, callback: callback})
	q.arm(path, pw, q.debounce)
	q.mu.Unlock()
}

// arm cancels any running timer of pw and schedules a new one. Caller holds q.mu.
func (q *WriteQueue) arm(path string, pw *pendingWrite, d time.Duration) {
	if pw.timer != nil {
		pw.timer.Stop()
	}
	// a new request restarts the quiet period, even after an earlier fire
	pw.due = false
	pw.gen++
	gen := pw.gen
	pw.timer = time.AfterFunc(d, func() {
		q.fire(path, gen)
	})
}

func (q *WriteQueue) fire(path string, gen uint64) {
	q.mu.Lock()
	pw, ok := q.pending[path]
	if !ok || pw.gen != gen {
		q.mu.Unlock()
		return
	}
	if q.inflight[path] {
		pw.due = true
		q.mu.Unlock()
		return
	}
	batch := q.detach(path, pw)
	q.mu.Unlock()

	q.submit(path, batch)
}

// detach moves pw out of the pending set and marks path in flight. Caller holds q.mu.
func (q *WriteQueue) detach(path string, pw *pendingWrite) *pendingWrite {
	if pw.timer != nil {
		pw.timer.Stop()
	}
	delete(q.pending, path)
	q.inflight[path] = true
	pw.prev = q.lastDone[path]
	pw.done = make(chan struct{})
	q.lastDone[path] = pw.done
	if q.running == 0 {
		q.idle = make(chan struct{})
	}
	q.running++
	return pw
}

func (q *WriteQueue) submit(path string, batch *pendingWrite) {
	err := q.pool.Submit(func() {
		q.run(path, batch)
	})
	if err != nil {
		util.Log(q.ctx).WithError(err).WithField("path", path).Error("could not schedule flush")
		q.finish(path, batch, err)
	}
}

func (q *WriteQueue) run(path string, batch *pendingWrite) {
	err := q.flush(path, batch)
	q.finish(path, batch, err)
}

// flush merges the batch into the current file content and writes it back.
func (q *WriteQueue) flush(path string, batch *pendingWrite) error {
	log := util.Log(q.ctx).WithField("path", path).WithField("keys", len(batch.entries))

	res, err := q.store.Read(q.ctx, path, batch.key)
	if err != nil {
		log.WithError(err).Error("could not read resource before merge, file left untouched")
		return err
	}
	for _, e := range batch.entries {
		res.Set(e.key, e.value, q.sep)
	}
	if err := q.store.Write(q.ctx, path, res); err != nil {
		log.WithError(err).Error("could not write missing keys")
		return err
	}

	log.Debug("missing keys written")
	return nil
}

// finish clears the in-flight mark and starts a follow-up flush if one became
// due meanwhile. The batch counts as finished before its callbacks run, so a
// callback may call Flush or Close. Callbacks of one file still run in
// registration order across batches.
func (q *WriteQueue) finish(path string, batch *pendingWrite, err error) {
	q.mu.Lock()
	delete(q.inflight, path)
	var next *pendingWrite
	if pw, ok := q.pending[path]; ok && (pw.due || q.closed) {
		next = q.detach(path, pw)
	}
	q.running--
	if q.running == 0 {
		close(q.idle)
	}
	q.mu.Unlock()

	if next != nil {
		// not from this worker: a blocking Submit could wait on itself
		go q.submit(path, next)
	}

	if batch.prev != nil {
		<-batch.prev
	}
	complete(batch.entries, err)
	close(batch.done)

	q.mu.Lock()
	if q.lastDone[path] == batch.done {
		delete(q.lastDone, path)
	}
	q.mu.Unlock()
}

func complete(entries []pendingEntry, err error) {
	for _, e := range entries {
		if e.callback != nil {
			e.callback(err)
		}
	}
}

// Flush writes every pending file now, without waiting for debounce timers,
// and waits until all writes finished or ctx is done. Callbacks may still be
// running when Flush returns.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.flushAll()
	return q.wait(ctx)
}

func (q *WriteQueue) flushAll() {
	type job struct {
		path  string
		batch *pendingWrite
	}
	var jobs []job

	q.mu.Lock()
	for path, pw := range q.pending {
		if q.inflight[path] {
			pw.due = true
			if pw.timer != nil {
				pw.timer.Stop()
			}
			continue
		}
		jobs = append(jobs, job{path: path, batch: q.detach(path, pw)})
	}
	q.mu.Unlock()

	for _, j := range jobs {
		q.submit(j.path, j.batch)
	}
}

func (q *WriteQueue) wait(ctx context.Context) error {
	q.mu.Lock()
	if q.running == 0 {
		q.mu.Unlock()
		return nil
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many files have requests waiting for a flush.
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Discard drops every pending request; their callbacks receive ErrDiscarded.
// Flushes already running are not affected.
func (q *WriteQueue) Discard() {
	q.mu.Lock()
	var dropped []pendingEntry
	for path, pw := range q.pending {
		if pw.timer != nil {
			pw.timer.Stop()
		}
		dropped = append(dropped, pw.entries...)
		delete(q.pending, path)
	}
	q.mu.Unlock()

	complete(dropped, ErrDiscarded)
}

// Close flushes all pending requests, waits for them and releases the worker
// pool. Requests made after Close complete with ErrClosed.
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return q.wait(ctx)
	}
	q.closed = true
	q.mu.Unlock()

	q.flushAll()
	err := q.wait(ctx)
	q.pool.Release()
	return err
}
