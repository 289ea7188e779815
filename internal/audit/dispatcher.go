package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Options configure a Dispatcher.
type Options struct {
	// Buffer is the queue capacity; values below 1 mean 1.
	Buffer int
	// DropIfFull drops a record instead of waiting for queue space.
	DropIfFull bool
	// MaxWait caps the wait for queue space when DropIfFull is false. Zero
	// waits until the Submit context is done.
	MaxWait time.Duration
	// OnError is called from the worker for every failed Write.
	OnError func(Record, error)
}

// Dispatcher writes records to a sink from a single background worker, in
// submission order. A nil *Dispatcher discards everything.
type Dispatcher struct {
	sink    Sink
	opts    Options
	queue   chan Record
	stopped chan struct{}

	// mu guards closed and sends on queue, so Close never races a Submit.
	mu     sync.RWMutex
	closed bool

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func NewDispatcher(sink Sink, opts Options) *Dispatcher {
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	d := &Dispatcher{
		sink:    sink,
		opts:    opts,
		queue:   make(chan Record, opts.Buffer),
		stopped: make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.stopped)
	for r := range d.queue {
		if d.sink == nil {
			d.delivered.Add(1)
			continue
		}
		if err := d.sink.Write(context.Background(), r); err != nil {
			d.failed.Add(1)
			if d.opts.OnError != nil {
				d.opts.OnError(r, err)
			}
			continue
		}
		d.delivered.Add(1)
	}
}

// Submit queues r. When the queue is full it either drops r or waits for
// space until ctx is done or Options.MaxWait elapses, depending on
// Options.DropIfFull. Records submitted after Close are ignored.
func (d *Dispatcher) Submit(ctx context.Context, r Record) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- r:
		return
	default:
	}
	if d.opts.DropIfFull {
		d.dropped.Add(1)
		return
	}

	var expired <-chan time.Time
	if d.opts.MaxWait > 0 {
		timer := time.NewTimer(d.opts.MaxWait)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case d.queue <- r:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-expired:
		d.dropped.Add(1)
	}
}

// Close stops intake and waits for the queue to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Failed counts records the sink returned an error for.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
