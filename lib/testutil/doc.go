// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for geckoctl packages.
//
// [RequireReceive], [RequireSend], [RequireNoReceive], and
// [RequireClosed] encapsulate the timeout safety valve pattern (select
// with a time.After fallback) so that individual tests do not need
// direct time.After calls. These are the only places in the test suite
// where real wall-clock timeouts appear; everything time-sensitive in
// production code runs on an injected clock.Clock.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package depends on no other geckoctl packages.
package testutil
