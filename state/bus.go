// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package state

import "sync"

// Subscription is one independent sink on the registry's change
// stream. Every event published after Subscribe returns is delivered
// on Events(), losslessly and in publish order, regardless of how many
// other subscriptions exist or how slowly they consume.
//
// The pending queue is unbounded: the delivery contract is that no
// subscriber ever misses an event, so backpressure is not an option
// here. The producers are a handful of field writes per client action;
// a subscriber that falls behind holds memory, not correctness.
type Subscription struct {
	registry *Registry

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Change
	closed  bool

	events chan Change
	done   chan struct{}
}

// Subscribe registers a new independent event sink. The caller must
// call Close when done, or the subscription pins its pump goroutine
// and queue for the registry's lifetime.
func (r *Registry) Subscribe() *Subscription {
	sub := &Subscription{
		registry: r,
		events:   make(chan Change),
		done:     make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	r.mu.Lock()
	r.subscribers = append(r.subscribers, sub)
	r.mu.Unlock()

	go sub.pump()
	return sub
}

// publishLocked appends the change to every subscriber's queue. Called
// with the registry write lock held: enqueueing is pure slice work, so
// holding the lock keeps per-session event order identical to the
// mutation order without adding another synchronization layer.
func (r *Registry) publishLocked(change Change) {
	for _, sub := range r.subscribers {
		sub.enqueue(change)
	}
}

// unsubscribe removes the subscription from the fan-out list.
func (r *Registry) unsubscribe(target *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subscribers {
		if sub == target {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			return
		}
	}
}

// Events returns the delivery channel. It is closed after Close once
// the queue has drained.
func (s *Subscription) Events() <-chan Change {
	return s.events
}

// Close deregisters the subscription and releases its pump goroutine.
// Events queued but undelivered at Close time are discarded. Safe to
// call more than once.
func (s *Subscription) Close() {
	s.registry.unsubscribe(s)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Subscription) enqueue(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append(s.pending, change)
	s.cond.Signal()
}

// pump moves changes from the pending queue to the events channel.
// One goroutine per subscription; exits when Close fires.
func (s *Subscription) pump() {
	defer close(s.events)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, change := range batch {
			select {
			case s.events <- change:
			case <-s.done:
				return
			}
		}
	}
}
