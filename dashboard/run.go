// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gecko-audio/geckoctl/state"
)

// Run takes over the terminal with the fleet dashboard and blocks
// until the user quits or ctx is cancelled.
func Run(ctx context.Context, registry *state.Registry, pollInterval time.Duration) error {
	program := tea.NewProgram(
		New(registry, pollInterval),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
