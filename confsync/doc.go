// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package confsync synchronizes per-client JSON config files with the
// live session registry, in both directions. Editing
// <dir>/<client_name>.json pushes the change onto the connected
// session named by the file; session state changes write back to the
// same file. A client connecting and announcing its name is
// provisioned from its stored file.
//
// Filesystem events are debounced per path, so an editor's burst of
// writes applies once. The engine never exits on a bad file; it logs
// and waits for the next change.
//
// Key exports:
//
//   - [Engine] -- the bidirectional sync loop ([Engine.Watch], [Engine.Run])
//   - [Config] -- directory and debounce quiet period
package confsync
