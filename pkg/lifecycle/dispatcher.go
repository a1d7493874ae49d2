package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/bft-labs/keystone/pkg/log"
)

// DefaultQueueSize bounds each subscriber's pending events when no size is
// configured.
const DefaultQueueSize = 1024

// DispatcherConfig tunes per-subscriber delivery.
type DispatcherConfig struct {
	// QueueSize bounds each subscriber's pending events.
	QueueSize uint64
}

// DispatchObserver is told about events that were not delivered normally.
type DispatchObserver interface {
	OnDropped(subscriber string, ev Event)
	OnHandlerError(subscriber string, ev Event, err error)
}

// Dispatcher fans lifecycle events out to subscribers. Every subscriber has
// its own queue and goroutine, so a slow or failing subscriber delays only
// itself. Publish never blocks: when a subscriber's queue is full the event
// is dropped for that subscriber.
type Dispatcher struct {
	cfg      DispatcherConfig
	logger   log.Logger
	observer DispatchObserver

	mu     sync.RWMutex
	subs   []*subscription
	closed bool
}

// endOfStream is queued behind the last event of a stopped subscription.
type endOfStream struct{}

type subscription struct {
	name    string
	handler Handler

	// putMu makes the bound check and Put atomic across publishers.
	putMu    sync.Mutex
	queue    *queue.Queue
	done     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher. A nil logger discards output.
func NewDispatcher(cfg DispatcherConfig, logger log.Logger) *Dispatcher {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Dispatcher{
		cfg:    cfg,
		logger: log.OrNoop(logger),
	}
}

// SetObserver installs an observer for drops and handler failures. It must
// be called before the first Publish.
func (d *Dispatcher) SetObserver(o DispatchObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer = o
}

// Subscribe registers handler under name and starts its delivery goroutine.
// The returned function unsubscribes; events already queued are still
// delivered before it returns.
func (d *Dispatcher) Subscribe(name string, handler Handler) (func(), error) {
	if handler == nil {
		return nil, errors.New("lifecycle: nil handler")
	}

	s := &subscription{
		name:    name,
		handler: handler,
		queue:   queue.New(int64(d.cfg.QueueSize)),
		done:    make(chan struct{}),
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDispatcherClosed
	}
	d.subs = append(d.subs, s)
	d.mu.Unlock()

	go d.run(s)

	d.logger.Debug("subscriber added", log.String("subscriber", name))

	return func() {
		d.remove(s)
		s.stop()
		<-s.done
	}, nil
}

// Publish enqueues ev for every subscriber without blocking.
func (d *Dispatcher) Publish(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	for _, s := range d.subs {
		ok, err := s.offer(ev, d.cfg.QueueSize)
		if err != nil {
			// Disposed by a timed-out Close.
			continue
		}
		if !ok {
			d.logger.Warn("subscriber queue full, event dropped",
				log.String("subscriber", s.name),
				log.Stringer("identity", ev.Identity),
				log.Stringer("status", ev.Current),
				log.Uint64("sequence", ev.Sequence),
			)
			if d.observer != nil {
				d.observer.OnDropped(s.name, ev)
			}
		}
	}
}

// Pending returns the number of queued events per subscriber.
func (d *Dispatcher) Pending() map[string]uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]uint64, len(d.subs))
	for _, s := range d.subs {
		out[s.name] += uint64(s.queue.Len())
	}
	return out
}

// Close stops accepting events and waits for subscribers to drain their
// queues. If ctx expires first the remaining events are discarded and
// ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}

	for i, s := range subs {
		select {
		case <-s.done:
		case <-ctx.Done():
			for _, rest := range subs[i:] {
				rest.queue.Dispose()
			}
			d.logger.Warn("dispatcher close timed out, pending events discarded")
			return ctx.Err()
		}
	}
	return nil
}

func (d *Dispatcher) remove(target *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.subs {
		if s == target {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}

// offer queues ev unless the subscription already holds limit events.
func (s *subscription) offer(ev Event, limit uint64) (bool, error) {
	s.putMu.Lock()
	defer s.putMu.Unlock()
	if uint64(s.queue.Len()) >= limit {
		return false, nil
	}
	return true, s.queue.Put(ev)
}

// stop must only be called once the subscription receives no more events.
func (s *subscription) stop() {
	s.stopOnce.Do(func() {
		// An error means the queue is already disposed.
		_ = s.queue.Put(endOfStream{})
	})
}

// run delivers queued events in FIFO order. It parks in Get until an event
// arrives, and returns after the end-of-stream marker or once the queue is
// disposed.
func (d *Dispatcher) run(s *subscription) {
	defer close(s.done)

	for {
		items, err := s.queue.Get(1)
		if err != nil {
			// queue.ErrDisposed
			return
		}
		for _, item := range items {
			switch v := item.(type) {
			case Event:
				d.deliver(s, v)
			case endOfStream:
				s.queue.Dispose()
				return
			}
		}
	}
}

func (d *Dispatcher) deliver(s *subscription, ev Event) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return s.handler.HandleEvent(ev)
	}()
	if err == nil {
		return
	}

	d.logger.Error("subscriber failed to handle event",
		log.String("subscriber", s.name),
		log.Stringer("identity", ev.Identity),
		log.Stringer("status", ev.Current),
		log.Err(err),
	)

	d.mu.RLock()
	observer := d.observer
	d.mu.RUnlock()
	if observer != nil {
		observer.OnHandlerError(s.name, ev, err)
	}
}
