// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery announces the control channel over DNS-SD
// (multicast DNS), default instance "Gecko Audio Streaming" on service
// type "_geckoaudio._tcp". Audio endpoints browse for that type
// instead of being configured with a server address.
//
// Key exports:
//
//   - [Announce] -- register the service, fatal on failure
//   - [Announcer.Shutdown] -- withdraw the registration
package discovery
