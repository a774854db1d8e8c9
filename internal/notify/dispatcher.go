package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Dispatcher decouples publishing from request handling. Enqueue never
// blocks: when the buffer is full the event is dropped and logged. A single
// worker publishes in enqueue order. Each transport of a Multi is retried
// on its own, up to maxAttempts times, so a transport that already took an
// event never sees it twice.
type Dispatcher struct {
	notifier    Notifier
	queue       chan Event
	maxAttempts int
	timeout     time.Duration
	backoff     time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the worker. size is the buffer length.
func NewDispatcher(n Notifier, size, maxAttempts int) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	d := &Dispatcher{
		notifier:    n,
		queue:       make(chan Event, size),
		maxAttempts: maxAttempts,
		timeout:     3 * time.Second,
		backoff:     200 * time.Millisecond,
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue hands ev to the worker. It reports false when the event was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(ev Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("notify: dispatcher closed, dropping %s on %s", ev.Type, ev.Topic())
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		log.Printf("notify: queue full, dropping %s on %s", ev.Type, ev.Topic())
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	for _, n := range members(d.notifier) {
		d.deliverTo(n, ev)
	}
}

// members flattens a Multi into its transports.
func members(n Notifier) []Notifier {
	if n == nil {
		return nil
	}
	m, ok := n.(Multi)
	if !ok {
		return []Notifier{n}
	}
	out := make([]Notifier, 0, len(m))
	for _, x := range m {
		if x != nil {
			out = append(out, members(x)...)
		}
	}
	return out
}

func (d *Dispatcher) deliverTo(n Notifier, ev Event) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err = n.Publish(ctx, ev)
		cancel()
		if err == nil {
			return
		}
		if attempt < d.maxAttempts {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
	}
	log.Printf("notify: giving up on %s for %s after %d attempts: %v", ev.Type, ev.Topic(), d.maxAttempts, err)
}

// Close stops accepting events and waits for the queue to drain or ctx to
// expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
