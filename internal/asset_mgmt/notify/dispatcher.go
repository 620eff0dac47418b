// Package notify fans committed borrowing transitions out to subscribers
// (websocket clients, the log) without ever blocking the writer.
package notify

import (
	"context"
	"log"
	"sync"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
)

type Subscriber interface {
	Notify(ev lifecycle.Event)
}

type SubscriberFunc func(ev lifecycle.Event)

func (f SubscriberFunc) Notify(ev lifecycle.Event) { f(ev) }

const DefaultQueueSize = 256

// Dispatcher queues events and delivers them from a single worker goroutine.
type Dispatcher struct {
	queue chan lifecycle.Event
	stop  chan struct{}
	once  sync.Once

	mu   sync.RWMutex
	subs []Subscriber
}

func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		queue: make(chan lifecycle.Event, size),
		stop:  make(chan struct{}),
	}
}

func (d *Dispatcher) Subscribe(s Subscriber) {
	d.mu.Lock()
	d.subs = append(d.subs, s)
	d.mu.Unlock()
}

// Publish never blocks. When the queue is full the event is dropped.
func (d *Dispatcher) Publish(ev lifecycle.Event) {
	select {
	case <-d.stop:
		return
	default:
	}
	select {
	case d.queue <- ev:
	default:
		log.Printf("[WARN] notify queue full, dropped event %s %s -> %s", ev.BorrowingID, ev.From, ev.To)
	}
}

// Run delivers queued events until ctx is done or Close is called.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case ev := <-d.queue:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev lifecycle.Event) {
	d.mu.RLock()
	subs := append([]Subscriber(nil), d.subs...)
	d.mu.RUnlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[ERROR] notify subscriber panicked: %v", r)
				}
			}()
			s.Notify(ev)
		}()
	}
}

func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.stop) })
}

// LogSubscriber writes every transition to the standard logger.
func LogSubscriber() Subscriber {
	return SubscriberFunc(func(ev lifecycle.Event) {
		from := ev.From
		if from == "" {
			from = "-"
		}
		log.Printf("[INFO] event borrowing=%s asset=%d %s -> %s actor=%s", ev.BorrowingID, ev.AssetID, from, ev.To, ev.ActorID)
	})
}
