package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/parser"
	"github.com/manav03panchal/medtrack/internal/storage"
)

// Styles for CLI output.
var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#10B981") // Green
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorWarning   = lipgloss.Color("#F59E0B") // Yellow
	colorError     = lipgloss.Color("#EF4444") // Red
	colorSuccess   = lipgloss.Color("#10B981") // Green

	// Styles
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleMedication = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleDosage = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleOverdue = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
	// Now is the reference time for relative due dates.
	Now func() time.Time
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f, Now: time.Now}
}

func (c *CLIFormatter) render(style lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// MedicationName formats a medication name.
func (c *CLIFormatter) MedicationName(name string) string {
	return c.render(styleMedication, name)
}

// Dosage formats a dosage.
func (c *CLIFormatter) Dosage(dosage string) string {
	return c.render(styleDosage, dosage)
}

// Due formats a reminder's pending occurrence relative to now.
func (c *CLIFormatter) Due(r *model.Reminder) string {
	at, err := r.Occurrence()
	if err != nil {
		return r.DateTime()
	}
	now := c.Now()
	text := fmt.Sprintf("%s (%s)", parser.FormatDue(at, now), parser.FormatTimeUntil(at, now))
	if at.Before(now) {
		return c.render(styleOverdue, text)
	}
	return text
}

// =============================================================================
// Medications
// =============================================================================

// PrintMedicationAdded prints the outcome of adding a medication.
func (c *CLIFormatter) PrintMedicationAdded(med *model.Medication, rem *model.Reminder) {
	c.Success(fmt.Sprintf("Added %s", c.MedicationName(med.Name)))
	c.Printf("  Dosage: %s\n", c.Dosage(med.Dosage))
	c.Printf("  Reminder #%d: %s\n", rem.PrimaryKey, c.Due(rem))
	if interval, ok := rem.Interval(); ok {
		c.Printf("  Repeats: %s\n", interval.Name)
	}
}

// PrintMedications prints the medication list.
func (c *CLIFormatter) PrintMedications(meds []*model.Medication) {
	if len(meds) == 0 {
		c.Muted("No medications.")
		c.Muted("Use 'medtrack med add <name> --dosage <dosage> --first <date>' to add one.")
		return
	}

	rows := make([]TableRow, len(meds))
	for i, m := range meds {
		rows[i] = TableRow{Columns: []string{
			fmt.Sprint(m.PrimaryKey),
			m.Name,
			m.Dosage,
			m.FirstDate,
			fmt.Sprint(len(m.ReminderIDs)),
		}}
	}
	c.PrintTable([]string{"ID", "NAME", "DOSAGE", "FIRST DATE", "REMINDERS"}, rows)
}

// PrintMedication prints one medication with its reminders and log.
func (c *CLIFormatter) PrintMedication(med *model.Medication, reminders []*model.Reminder, log model.AcknowledgementLog) {
	c.Title(med.Name)
	c.Printf("  ID: %d\n", med.PrimaryKey)
	c.Printf("  Dosage: %s\n", c.Dosage(med.Dosage))
	c.Printf("  First date: %s\n", med.FirstDate)
	c.Printf("  Added: %s\n", FormatTime(med.CreatedAt))

	if len(reminders) > 0 {
		c.Println("")
		c.Println(c.render(styleBold, "Reminders"))
		for _, r := range reminders {
			c.Printf("  #%d  %s\n", r.PrimaryKey, c.Due(r))
		}
	}

	c.Println("")
	c.Printf("%s: %d acknowledged, %d dismissed\n", c.render(styleBold, "History"),
		log.Count(model.AckAcknowledged), log.Count(model.AckDismissed))
	for _, entry := range log {
		c.Printf("  %s  %-12s  %s\n", entry.Occurrence, entry.Status, c.render(styleMuted, FormatTimeShort(entry.RecordedAt)))
	}
}

// =============================================================================
// Reminders
// =============================================================================

// PrintReminders prints upcoming reminders. names maps owner keys to
// medication names.
func (c *CLIFormatter) PrintReminders(reminders []*model.Reminder, names map[int64]string) {
	if len(reminders) == 0 {
		c.Muted("No reminders.")
		return
	}

	rows := make([]TableRow, len(reminders))
	for i, r := range reminders {
		owner := names[r.OwnerKey]
		if owner == "" {
			owner = "-"
		}
		interval := "?"
		if iv, ok := r.Interval(); ok {
			interval = iv.Name
		}
		rows[i] = TableRow{Columns: []string{
			fmt.Sprint(r.PrimaryKey),
			string(r.Classification),
			owner,
			r.DateTime(),
			interval,
		}}
	}
	c.PrintTable([]string{"ID", "KIND", "MEDICATION", "DUE", "REPEATS"}, rows)
}

// PrintAcknowledged prints a reminder advanced by an acknowledgement.
func (c *CLIFormatter) PrintAcknowledged(rem *model.Reminder, dismissed bool) {
	verb := "Acknowledged"
	if dismissed {
		verb = "Dismissed"
	}
	c.Success(fmt.Sprintf("%s reminder #%d", verb, rem.PrimaryKey))
	c.Printf("  Next: %s\n", c.Due(rem))
}

// PrintDeleted prints the outcome of a delete request.
func (c *CLIFormatter) PrintDeleted(what string, deleted bool) {
	if deleted {
		c.Success("Deleted " + what)
		return
	}
	c.Warning("Nothing to delete: " + what + " not found")
}

// PrintCleared prints the number of rows removed by a clear request.
func (c *CLIFormatter) PrintCleared(what string, n int) {
	c.Success(fmt.Sprintf("Cleared %s (%d rows removed)", what, n))
}

// =============================================================================
// Maintenance
// =============================================================================

// PrintIntegrity prints a database integrity report.
func (c *CLIFormatter) PrintIntegrity(status *storage.RecoveryStatus) {
	if status.Healthy {
		c.Success(fmt.Sprintf("Database healthy: %d medications, %d reminders",
			status.Medications, status.Reminders))
	} else {
		c.Error(fmt.Sprintf("Database has %d issue(s)", status.ErrorCount))
		for _, issue := range status.Errors {
			c.Printf("  - %s\n", issue)
		}
	}
	if status.BackupPath != "" {
		c.Muted("Backup written to " + status.BackupPath)
	}
}

// TableRow is one row of PrintTable output.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	c.Println(c.render(styleBold, strings.TrimRight(headerLine.String(), " ")))

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], col))
			}
		}
		c.Println(strings.TrimRight(rowLine.String(), " "))
	}
}
