// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects [Real]; tests inject [Fake] and drive time deterministically
// with Advance, so debounce windows and timeouts are tested without
// real sleeps.
//
// Key exports:
//
//   - [Clock] -- the injected interface (Now, After, AfterFunc, Sleep)
//   - [Real] -- Clock backed by the time package
//   - [Fake] -- deterministic Clock with Advance and WaitForTimers
//
// This package depends on no other geckoctl packages.
package clock
