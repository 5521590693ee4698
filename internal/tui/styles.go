// Package tui provides the terminal dashboard for medtrack.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the dashboard.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorActive    = lipgloss.Color("#3B82F6") // Blue
	ColorBorder    = lipgloss.Color("#4B5563") // Dark gray
)

// Base styles.
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleMedication = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleDosage = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleDue = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleOverdue = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWarning)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// StyleMuted is an alias for StyleSubtitle.
var StyleMuted = StyleSubtitle

// Box styles.
var (
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			MarginBottom(1)

	// StyleDueBox frames the next dose when it is due now.
	StyleDueBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(1, 2).
			MarginBottom(1)

	// StyleAlertBox frames a notification that just fired.
	StyleAlertBox = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorWarning).
			Padding(0, 2).
			MarginBottom(1)
)

// ProgressBar creates a progress bar string.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", empty))
}

// FormatMedication formats "name (dosage)" with styles.
func FormatMedication(name, dosage string) string {
	if dosage == "" {
		return StyleMedication.Render(name)
	}
	return StyleMedication.Render(name) + " " + StyleDosage.Render(dosage)
}
