// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the TCP control channel between the
// server and its audio clients: a stream of concatenated JSON
// documents, each carrying a "type" discriminator. One reader
// goroutine per connection translates inbound messages into state
// registry mutations; a single broadcaster goroutine consumes the
// registry's change feed and pushes the resulting outbound messages to
// the affected session.
//
// Key exports:
//
//   - [Server] -- accept loop, per-connection readers, broadcaster
//   - [Config] -- listen address and I/O timeouts
//   - [DecodeInbound], [EncodeOutbound] -- the server's wire codec
//   - [EncodeInbound], [DecodeOutbound] -- the client side, for mock
//     clients and tests
//
// Sessions are keyed by remote address. A connection's session exists
// in the registry from accept until the reader loop ends for any
// reason; there is no reconnect or session resumption.
package control
