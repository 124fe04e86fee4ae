package mqtt

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/laser-interlock/internal/logic"
)

// DefaultQueueSize bounds the number of events held while the broker is slow.
const DefaultQueueSize = 256

// DefaultCloseTimeout bounds how long Close keeps delivering queued events.
const DefaultCloseTimeout = 2 * time.Second

// Async queues events and forwards them to an inner Publisher from a single
// goroutine. Publish and PublishSystem never block, so the control loop is
// never held up by the broker. When the queue is full the oldest event is
// dropped.
type Async struct {
	inner Publisher

	mu       sync.Mutex
	buf      *ringBuffer
	deadline time.Time // set by Close; zero while running

	closeTimeout time.Duration

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewAsync starts forwarding to inner.
func NewAsync(inner Publisher, capacity int) *Async {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	a := &Async{
		inner:        inner,
		buf:          newRingBuffer(capacity),
		closeTimeout: DefaultCloseTimeout,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish queues an interlock event. It always returns nil.
func (a *Async) Publish(event logic.Event) error {
	a.enqueue(bufferedMsg{event: &event})
	return nil
}

// PublishSystem queues a system event. It always returns nil.
func (a *Async) PublishSystem(event SystemEvent) error {
	a.enqueue(bufferedMsg{system: &event})
	return nil
}

func (a *Async) enqueue(msg bufferedMsg) {
	a.mu.Lock()
	a.buf.push(msg)
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *Async) run() {
	defer close(a.stopped)
	for {
		select {
		case <-a.wake:
			a.flush()
		case <-a.done:
			a.flush()
			return
		}
	}
}

func (a *Async) flush() {
	a.mu.Lock()
	msgs := a.buf.drainAll()
	a.mu.Unlock()

	for i, m := range msgs {
		if a.pastDeadline() {
			a.mu.Lock()
			a.buf.dropped += len(msgs) - i
			a.mu.Unlock()
			log.Printf("close deadline passed, dropped %d queued events", len(msgs)-i)
			return
		}
		if m.event != nil {
			if err := a.inner.Publish(*m.event); err != nil {
				log.Printf("publish error: %v", err)
			}
			continue
		}
		if err := a.inner.PublishSystem(*m.system); err != nil {
			log.Printf("publish system error: %v", err)
		}
	}
}

func (a *Async) pastDeadline() bool {
	a.mu.Lock()
	d := a.deadline
	a.mu.Unlock()
	return !d.IsZero() && time.Now().After(d)
}

// Dropped returns how many events were discarded because the queue was full.
func (a *Async) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.dropped
}

// IsConnected reports the inner publisher's connection state, if it has one.
func (a *Async) IsConnected() bool {
	if cs, ok := a.inner.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close delivers what is still queued until the close timeout passes, stops
// the forwarding goroutine and closes the inner publisher. Events left when
// the timeout passes are counted as dropped. A publish already in flight is
// allowed to finish.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.deadline = time.Now().Add(a.closeTimeout)
		a.mu.Unlock()
		close(a.done)
	})
	<-a.stopped
	return a.inner.Close()
}
