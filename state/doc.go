// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package state owns the live state of every connected client and
// distributes state-change events to the rest of the server.
//
// The [Registry] maps each session (one TCP connection, identified by
// its remote endpoint) to a sparse [ClientState]. Mutations arrive
// from two directions: field-by-field from the protocol reader
// ([Registry.SetField]) and in bulk from the config-sync engine
// ([Registry.Merge]). Every mutation, connect, and disconnect is
// published as a [Change] to every live [Subscription].
//
// Event distribution is a fan-out, not a work queue: each subscriber
// owns an independent unbounded sink and observes every event in
// publish order. Publishing never blocks registry mutation and a slow
// subscriber cannot steal or delay events from the others.
//
// Key exports:
//
//   - [ClientState] -- sparse per-client record, every field optional
//   - [Registry] -- Connect, Disconnect, SetField, Merge, State,
//     SessionByName, AllStates, Subscribe
//   - [Change], [ChangeKind], [Field] -- the event vocabulary
//
// This package depends on no other geckoctl packages.
package state
