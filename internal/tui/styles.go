// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the view.
type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Normal    lipgloss.Style
	Muted     lipgloss.Style
	Cursor    lipgloss.Style
	Rank      lipgloss.Style
	Score     lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	var (
		primary = lipgloss.Color("#7C3AED")
		accent  = lipgloss.Color("#06B6D4")
		fg      = lipgloss.Color("#CDD6F4")
		muted   = lipgloss.Color("#6C7086")
		warn    = lipgloss.Color("#F9E2AF")
		bad     = lipgloss.Color("#F38BA8")
	)
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(primary),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		Normal:  lipgloss.NewStyle().Foreground(fg),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Cursor:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Rank:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Score:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(bad),
		Warning: lipgloss.NewStyle().Foreground(warn),
		StatusBar: lipgloss.NewStyle().
			Foreground(fg).
			Background(lipgloss.Color("#313244")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(muted),
	}
}
