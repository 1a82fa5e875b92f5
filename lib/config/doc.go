// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the geckoctl
// server.
//
// Configuration comes from a single file named by the GECKOCTL_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There are no fallbacks and no ~/.config discovery;
// when no file is named, the built-in development defaults apply.
// Environment variables never override file values, so a deployment's
// effective configuration is always auditable from one place.
//
// Key exports:
//
//   - [Config] -- master struct with Control, ConfSync, Discovery,
//     Dashboard, and Log sections
//   - [Default] -- development defaults (listen [::]:9000, 1s debounce)
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other geckoctl packages.
package config
