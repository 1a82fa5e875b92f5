// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import "github.com/charmbracelet/lipgloss"

// Theme defines the dashboard's color palette. All colors use lipgloss
// ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Status accents for the battery and audio columns.
	Charging   lipgloss.Color
	LowBattery lipgloss.Color
	Muted      lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	Charging:   lipgloss.Color("114"), // green
	LowBattery: lipgloss.Color("196"), // red
	Muted:      lipgloss.Color("220"), // amber
}
