package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/parser"
)

// Entry is an upcoming reminder with its medication resolved.
type Entry struct {
	Reminder *model.Reminder
	// Medication is nil for appointments and for orphaned reminders.
	Medication *model.Medication
	DueAt      time.Time
}

// NewEntry resolves the due time of r.
func NewEntry(r *model.Reminder, med *model.Medication) Entry {
	at, _ := r.Occurrence()
	return Entry{Reminder: r, Medication: med, DueAt: at}
}

// Label names what the reminder is for.
func (e Entry) Label() string {
	switch {
	case e.Medication != nil:
		return FormatMedication(e.Medication.Name, e.Medication.Dosage)
	case e.Reminder.Classification == model.ClassAppointment:
		return StyleMedication.Render("Appointment")
	default:
		return StyleMuted.Render(fmt.Sprintf("Reminder #%d", e.Reminder.PrimaryKey))
	}
}

// Overdue reports whether the occurrence is already past.
func (e Entry) Overdue(now time.Time) bool {
	return e.DueAt.Before(now)
}

func (e Entry) due(now time.Time) string {
	text := fmt.Sprintf("%s (%s)", parser.FormatDue(e.DueAt, now), parser.FormatTimeUntil(e.DueAt, now))
	if e.Overdue(now) {
		return StyleOverdue.Render(text)
	}
	return StyleDue.Render(text)
}

// NextDoseComponent shows the earliest pending reminder.
type NextDoseComponent struct {
	Entry *Entry
	Width int
	Now   time.Time
}

// NewNextDoseComponent creates a new next dose component.
func NewNextDoseComponent(entry *Entry, width int, now time.Time) *NextDoseComponent {
	return &NextDoseComponent{Entry: entry, Width: width, Now: now}
}

// View renders the next dose component.
func (c *NextDoseComponent) View() string {
	var content strings.Builder

	if c.Entry == nil {
		content.WriteString(StyleMuted.Render("Nothing scheduled"))
		content.WriteString("\n\n")
		content.WriteString(StyleSubtitle.Render("Add one with 'medtrack med add'"))
		return StyleBox.Width(c.Width - 4).Render(content.String())
	}

	box := StyleBox
	if c.Entry.Overdue(c.Now) {
		content.WriteString(StyleOverdue.Render("● DUE NOW"))
		box = StyleDueBox
	} else {
		content.WriteString(StyleDue.Render("NEXT DOSE"))
	}
	content.WriteString("\n\n")
	content.WriteString(c.Entry.Label())
	content.WriteString("\n\n")
	content.WriteString(c.Entry.due(c.Now))

	if interval, ok := c.Entry.Reminder.Interval(); ok {
		content.WriteString("\n")
		content.WriteString(StyleSubtitle.Render("Repeats: " + interval.Name))
	}

	return box.Width(c.Width - 4).Render(content.String())
}

// RemindersComponent lists upcoming reminders with a cursor.
type RemindersComponent struct {
	Entries []Entry
	Cursor  int
	Width   int
	Now     time.Time
}

// NewRemindersComponent creates a new reminders component.
func NewRemindersComponent(entries []Entry, cursor, width int, now time.Time) *RemindersComponent {
	return &RemindersComponent{Entries: entries, Cursor: cursor, Width: width, Now: now}
}

// View renders the reminders component.
func (c *RemindersComponent) View() string {
	var content strings.Builder

	content.WriteString(StyleTitle.Render("Upcoming"))
	content.WriteString("\n")

	if len(c.Entries) == 0 {
		content.WriteString(StyleMuted.Render("No reminders"))
	}
	for i, e := range c.Entries {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(c.renderEntry(i, e))
	}

	return StyleBox.Width(c.Width - 4).Render(content.String())
}

func (c *RemindersComponent) renderEntry(i int, e Entry) string {
	marker := "  "
	id := fmt.Sprintf("#%d", e.Reminder.PrimaryKey)
	if i == c.Cursor {
		marker = StyleSelected.Render("> ")
		id = StyleSelected.Render(id)
	}
	return fmt.Sprintf("%s%s  %s  %s", marker, id, e.Label(), e.due(c.Now))
}

// AdherenceComponent summarises a medication's acknowledgement history.
type AdherenceComponent struct {
	Medication *model.Medication
	Log        model.AcknowledgementLog
	Width      int
}

// NewAdherenceComponent creates a new adherence component. An unreadable
// history is shown as empty.
func NewAdherenceComponent(med *model.Medication, width int) *AdherenceComponent {
	c := &AdherenceComponent{Medication: med, Width: width}
	if med != nil {
		c.Log, _ = model.ParseAcknowledgementLog(med.AcknowledgementList)
	}
	return c
}

// Percentage is the share of recorded doses that were taken.
func (c *AdherenceComponent) Percentage() float64 {
	taken := c.Log.Count(model.AckAcknowledged)
	total := taken + c.Log.Count(model.AckDismissed)
	if total == 0 {
		return 0
	}
	return float64(taken) * 100 / float64(total)
}

// View renders the adherence component.
func (c *AdherenceComponent) View() string {
	if c.Medication == nil {
		return ""
	}

	var content strings.Builder
	content.WriteString(StyleTitle.Render("Adherence: " + c.Medication.Name))
	content.WriteString("\n")

	taken := c.Log.Count(model.AckAcknowledged)
	skipped := c.Log.Count(model.AckDismissed)
	if taken+skipped == 0 {
		content.WriteString(StyleMuted.Render("No history yet"))
		return StyleBox.Width(c.Width - 4).Render(content.String())
	}

	barWidth := max(c.Width-12, 10)
	content.WriteString(ProgressBar(c.Percentage(), barWidth))
	content.WriteString("\n")

	summary := fmt.Sprintf("%d taken, %d skipped (%.0f%%)", taken, skipped, c.Percentage())
	if skipped == 0 {
		content.WriteString(StyleSuccess.Render(summary))
	} else {
		content.WriteString(StyleSubtitle.Render(summary))
	}

	return StyleBox.Width(c.Width - 4).Render(content.String())
}

// HelpBar renders the help bar at the bottom.
func HelpBar() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "select"},
		{"a", "take"},
		{"d", "skip"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}

	return StyleHelp.Render(strings.Join(parts, "  •  "))
}
