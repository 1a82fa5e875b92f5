// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// Announcer holds a live DNS-SD registration.
type Announcer struct {
	server *zeroconf.Server
	logger *slog.Logger
}

// Announce registers the control channel as a DNS-SD service on the
// local network, so clients find the server without configuration.
// Registration failure is a startup error; there is no retry, a fleet
// that cannot discover the server is not worth running degraded.
func Announce(instance, service string, port int, logger *slog.Logger) (*Announcer, error) {
	server, err := zeroconf.Register(instance, service, "local.", port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("registering %s as %s: %w", instance, service, err)
	}
	logger.Info("announcing service", "instance", instance, "service", service, "port", port)
	return &Announcer{server: server, logger: logger}, nil
}

// Shutdown withdraws the registration. Safe to call once.
func (a *Announcer) Shutdown() {
	a.server.Shutdown()
	a.logger.Info("service announcement withdrawn")
}
