package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards issuance audit events to a sink.
// Events are stamped with the emission time before they enter the buffer,
// so a slow sink never skews the recorded issuance timeline.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	now       func() time.Time
	events    chan Event
	quit      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the forwarding goroutine. A disabled Config returns
// nil; every Dispatcher method tolerates a nil receiver so callers need no
// enabled-check of their own.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		now:    time.Now,
		events: make(chan Event, cfg.BufferSize),
		quit:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

// drain delivers whatever the buffer still holds at shutdown. Events an
// Emit call is racing in concurrently may be lost; events accepted before
// Close returned are not.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit enqueues one event, stamping a zero Timestamp with the current
// time. With DropIfFull set a full buffer increments the drop counter
// instead of blocking; otherwise Emit blocks until the buffer accepts the
// event, ctx is done, or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	if d.cfg.DropIfFull {
		select {
		case d.events <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops intake, drains the buffer through the sink, and waits for
// the forwarding goroutine to exit. Close is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.quit)
		d.wg.Wait()
	})
}

// Dropped reports how many events the full buffer discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
