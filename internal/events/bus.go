package events

import (
	"fmt"
	"sync"
)

// Handler processes a single event payload
type Handler func(data []byte)

// Subscription is a live subscription; Unsubscribe must be called exactly
// once per Subscribe
type Subscription interface {
	Unsubscribe() error
}

// Bus is the transport for engagement events. Delivery is at-least-once
// and may be reordered relative to the triggering write, so consumers must
// treat events as refetch triggers, never as the payload of truth.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler Handler) (Subscription, error)
	Close()
}

const inprocBuffer = 256

// InprocBus is an in-process Bus: each subscription is a bounded queue
// drained by a single goroutine. Used in tests and single-node deployments.
type InprocBus struct {
	mu     sync.RWMutex
	subs   map[string][]*inprocSub
	closed bool
}

// NewInprocBus creates a new in-process bus
func NewInprocBus() *InprocBus {
	return &InprocBus{subs: make(map[string][]*inprocSub)}
}

type inprocSub struct {
	bus     *InprocBus
	subject string
	ch      chan []byte
	done    chan struct{}
	once    sync.Once
}

// Publish delivers data to every subscriber of subject. A subscriber whose
// queue is full drops the event; consumers refetch, so a dropped trigger is
// recovered by the next one.
func (b *InprocBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	for _, sub := range b.subs[subject] {
		select {
		case sub.ch <- data:
		default:
		}
	}
	return nil
}

// Subscribe registers a handler for subject
func (b *InprocBus) Subscribe(subject string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	sub := &inprocSub{
		bus:     b,
		subject: subject,
		ch:      make(chan []byte, inprocBuffer),
		done:    make(chan struct{}),
	}
	b.subs[subject] = append(b.subs[subject], sub)

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case data := <-sub.ch:
				handler(data)
			}
		}
	}()

	return sub, nil
}

// Close tears down all subscriptions
func (b *InprocBus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string][]*inprocSub)
	b.closed = true
	b.mu.Unlock()

	for _, list := range subs {
		for _, sub := range list {
			sub.stop()
		}
	}
}

func (s *inprocSub) Unsubscribe() error {
	s.bus.mu.Lock()
	list := s.bus.subs[s.subject]
	for i, sub := range list {
		if sub == s {
			s.bus.subs[s.subject] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.bus.mu.Unlock()

	s.stop()
	return nil
}

func (s *inprocSub) stop() {
	s.once.Do(func() { close(s.done) })
}
