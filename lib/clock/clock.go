// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations this codebase schedules with.
// Production code injects Real(); tests inject Fake() and drive time
// explicitly with Advance.
//
// Anything that calls time.Now, time.After, time.AfterFunc, or
// time.Sleep should take a Clock instead, so that debounce windows and
// poll intervals are testable without real sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc waits for d, then calls f. The returned Timer cancels
	// the pending call via Stop or reschedules it via Reset. The
	// Timer's C field is nil, matching time.AfterFunc.
	AfterFunc(d time.Duration, f func()) *Timer

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Timer is a scheduled one-shot event. Timers created by AfterFunc
// have a nil C field.
type Timer struct {
	// C delivers the fire time. Nil for AfterFunc timers.
	C <-chan time.Time

	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop prevents the timer from firing. It returns true if the call
// stopped the timer, false if the timer already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset reschedules the timer to fire after d. It returns true if the
// timer was still active before the reset.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }
