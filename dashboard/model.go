// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gecko-audio/geckoctl/state"
)

// pollMsg triggers a fleet snapshot refresh.
type pollMsg time.Time

type keyMap struct {
	Quit key.Binding
}

var defaultKeys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the fleet dashboard: a read-only table of every connected
// client, refreshed from the registry on a fixed poll interval. It
// never mutates state; all control flows through config files and the
// protocol.
type Model struct {
	registry     *state.Registry
	pollInterval time.Duration
	theme        Theme
	keys         keyMap

	table  table.Model
	width  int
	height int
}

// New creates a dashboard model polling the registry at the given
// interval.
func New(registry *state.Registry, pollInterval time.Duration) Model {
	theme := DefaultTheme

	columns := []table.Column{
		{Title: "Client", Width: 14},
		{Title: "Display Name", Width: 18},
		{Title: "Battery", Width: 9},
		{Title: "Mute S/R", Width: 9},
		{Title: "Xmit S/R", Width: 9},
		{Title: "Recv Ports", Width: 12},
		{Title: "Send Ports", Width: 12},
	}

	fleet := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(theme.HeaderForeground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.BorderColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.SelectedForeground).
		Background(theme.SelectedBackground)
	fleet.SetStyles(styles)

	model := Model{
		registry:     registry,
		pollInterval: pollInterval,
		theme:        theme,
		keys:         defaultKeys,
		table:        fleet,
	}
	model.refresh()
	return model
}

func (m Model) Init() tea.Cmd {
	return m.pollTick()
}

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if key.Matches(message, m.keys.Quit) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		// Title and help line take three rows.
		m.table.SetHeight(max(3, m.height-3))

	case pollMsg:
		m.refresh()
		return m, m.pollTick()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(message)
	return m, cmd
}

func (m Model) View() string {
	title := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Render(fmt.Sprintf("Gecko Audio fleet (%d connected)", len(m.table.Rows())))
	help := lipgloss.NewStyle().
		Foreground(m.theme.HelpText).
		Render("q quit")
	return title + "\n" + m.table.View() + "\n" + help
}

// refresh rebuilds the table rows from a fresh registry snapshot.
func (m *Model) refresh() {
	m.table.SetRows(fleetRows(m.registry.AllStates()))
}

// fleetRows renders the snapshots into display rows, sorted by client
// name so the table is stable across polls.
func fleetRows(states []state.ClientState) []table.Row {
	sort.Slice(states, func(i, j int) bool {
		return orEmpty(states[i].ClientName) < orEmpty(states[j].ClientName)
	})

	rows := make([]table.Row, 0, len(states))
	for _, s := range states {
		rows = append(rows, table.Row{
			orDash(s.ClientName),
			orDash(s.DisplayName),
			formatBattery(s.BatteryLevel, s.IsCharging),
			formatFlagPair(s.SendMute, s.RecvMute),
			formatFlagPair(s.SendAudio, s.RecvAudio),
			formatPortPair(s.RecvAudioPort, s.RecvRepairPort),
			formatPortPair(s.SendAudioPort, s.SendRepairPort),
		})
	}
	return rows
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// formatBattery renders "87%" with a trailing "+" while charging.
func formatBattery(level *float64, charging *bool) string {
	if level == nil {
		return "-"
	}
	suffix := ""
	if charging != nil && *charging {
		suffix = "+"
	}
	return fmt.Sprintf("%.0f%%%s", *level*100, suffix)
}

// formatFlagPair renders a send/receive boolean pair as "on/off".
func formatFlagPair(send, recv *bool) string {
	return formatFlag(send) + "/" + formatFlag(recv)
}

func formatFlag(flag *bool) string {
	switch {
	case flag == nil:
		return "-"
	case *flag:
		return "on"
	default:
		return "off"
	}
}

// formatPortPair renders an audio/repair port pair as "5000:5001".
func formatPortPair(audio, repair *uint16) string {
	if audio == nil || repair == nil {
		return "-"
	}
	return fmt.Sprintf("%d:%d", *audio, *repair)
}
