// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package state

import "errors"

// ErrSessionNotFound is returned by operations against a session that
// is not currently connected. Recoverable: the caller decides whether
// to drop the work (config sync) or tear down a connection (protocol
// reader racing a disconnect).
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidValue is returned by SetField when the supplied value's
// type does not match the field, or the field name is unknown.
var ErrInvalidValue = errors.New("invalid value for field")

// ErrUnsupportedChange is returned by SetField when the caller tries
// to drive session lifecycle (added/removed) through the
// field-mutation API. Lifecycle is Connect and Disconnect only.
var ErrUnsupportedChange = errors.New("unsupported state change")
