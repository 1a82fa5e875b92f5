// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package confsync

import (
	"sync"
	"time"

	"github.com/gecko-audio/geckoctl/lib/clock"
)

// debouncer coalesces bursts of raw filesystem events per path. An
// editor save is typically several events in quick succession (write,
// chmod, rename); the debouncer emits one settled path once the quiet
// period passes with no further activity on it. Distinct paths settle
// independently.
type debouncer struct {
	clock   clock.Clock
	quiet   time.Duration
	settled chan string
	done    chan struct{}

	mu     sync.Mutex
	timers map[string]*clock.Timer
	closed bool
}

func newDebouncer(clk clock.Clock, quiet time.Duration) *debouncer {
	return &debouncer{
		clock:   clk,
		quiet:   quiet,
		settled: make(chan string),
		done:    make(chan struct{}),
		timers:  make(map[string]*clock.Timer),
	}
}

// observe records raw activity on path, starting or resetting its
// quiet-period timer.
func (d *debouncer) observe(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if timer, ok := d.timers[path]; ok {
		timer.Reset(d.quiet)
		return
	}
	d.timers[path] = d.clock.AfterFunc(d.quiet, func() {
		d.fire(path)
	})
}

// fire delivers one settled path. Delivery blocks until the consumer
// takes it; a raw event arriving meanwhile re-arms the path via
// observe, which sees the timer entry already removed.
func (d *debouncer) fire(path string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.timers, path)
	d.mu.Unlock()

	select {
	case d.settled <- path:
	case <-d.done:
	}
}

// events delivers settled paths.
func (d *debouncer) events() <-chan string {
	return d.settled
}

// close stops all pending timers. Paths already past their timer but
// blocked on delivery are dropped.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
