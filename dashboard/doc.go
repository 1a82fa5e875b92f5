// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard renders a read-only terminal view of the connected
// fleet: one table row per client with its name, battery, mute and
// transmit flags, and negotiated ports. The view polls the registry
// snapshot on a fixed interval rather than subscribing to the change
// bus; a dashboard that misses an event just shows it on the next
// poll.
//
// Key exports:
//
//   - [Run] -- take over the terminal until quit
//   - [Model] -- the bubbletea model, for embedding
package dashboard
