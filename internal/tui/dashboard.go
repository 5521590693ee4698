package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/repository"
	"github.com/manav03panchal/medtrack/internal/router"
	"github.com/manav03panchal/medtrack/internal/scheduler"
)

// tickMsg is sent when the clock ticks.
type tickMsg time.Time

// refreshMsg asks for a reload.
type refreshMsg struct{}

// changedMsg is sent when the medication table changed.
type changedMsg struct{}

// NotificationMsg carries a notification that fell due.
type NotificationMsg struct {
	Notification *model.Notification
}

// ackDoneMsg is sent when an acknowledgement was stored.
type ackDoneMsg struct {
	reminder  *model.Reminder
	dismissed bool
}

type errMsg struct {
	err error
}

// DashboardConfig holds configuration for the dashboard.
type DashboardConfig struct {
	Repo   *repository.Repository
	Router *router.Router

	RefreshInterval time.Duration
	MaxReminders    int

	// Now defaults to time.Now.
	Now func() time.Time
}

// DashboardModel is the bubbletea model for the dashboard.
type DashboardModel struct {
	repo   *repository.Repository
	router *router.Router

	entries []Entry
	cursor  int
	alert   *model.Notification

	width      int
	height     int
	err        error
	message    string
	messageExp time.Time

	now             func() time.Time
	refreshInterval time.Duration
	maxReminders    int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(config DashboardConfig) *DashboardModel {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = time.Second
	}
	if config.MaxReminders == 0 {
		config.MaxReminders = 8
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &DashboardModel{
		repo:            config.Repo,
		router:          config.Router,
		now:             config.Now,
		refreshInterval: config.RefreshInterval,
		maxReminders:    config.MaxReminders,
	}
}

// Init initializes the model.
func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.refreshCmd(),
		m.watchCmd(),
	)
}

// Update handles messages and updates the model.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if !m.messageExp.IsZero() && m.now().After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		return m, m.tickCmd()

	case refreshMsg:
		m.loadData()
		return m, nil

	case changedMsg:
		m.loadData()
		return m, m.watchCmd()

	case NotificationMsg:
		m.alert = msg.Notification
		m.loadData()
		return m, nil

	case ackDoneMsg:
		verb := "Taken"
		if msg.dismissed {
			verb = "Skipped"
		}
		m.setMessage(fmt.Sprintf("%s. Reminder #%d moved to %s", verb, msg.reminder.PrimaryKey, msg.reminder.DateTime()), 3*time.Second)
		if m.alert != nil && m.alert.ReminderID == msg.reminder.PrimaryKey {
			m.alert = nil
		}
		m.loadData()
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
		return m, nil

	case "a", "enter":
		return m, m.acknowledgeSelected(false)

	case "d", "x":
		return m, m.acknowledgeSelected(true)

	case "esc":
		m.alert = nil
		return m, nil

	case "r":
		m.loadData()
		m.setMessage("Refreshed", time.Second)
		return m, nil
	}

	return m, nil
}

// Selected returns the entry under the cursor.
func (m *DashboardModel) Selected() (Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m *DashboardModel) acknowledgeSelected(dismissed bool) tea.Cmd {
	e, ok := m.Selected()
	if !ok {
		m.setMessage("No reminder selected", 2*time.Second)
		return nil
	}
	if e.Reminder.Classification != model.ClassMedication {
		m.setMessage("Only medication reminders can be taken or skipped", 2*time.Second)
		return nil
	}
	return m.acknowledgeCmd(e.Reminder.PrimaryKey, dismissed)
}

// acknowledgeCmd stores the acknowledgement off the update loop.
func (m *DashboardModel) acknowledgeCmd(reminderID int64, dismissed bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		fut, err := m.router.ProcessAcknowledgementRequest(ctx, router.KindMedication, reminderID, dismissed)
		if err != nil {
			return errMsg{err}
		}
		rem, err := fut.Await(ctx)
		if err != nil {
			return errMsg{err}
		}
		return ackDoneMsg{reminder: rem, dismissed: dismissed}
	}
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	now := m.now()
	sections := []string{m.renderHeader(now)}

	if m.alert != nil {
		alert := StyleWarning.Render("⏰ "+m.alert.Title) + "\n" + m.alert.Message
		sections = append(sections, StyleAlertBox.Render(alert))
	}

	if m.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.message != "" {
		sections = append(sections, StyleWarning.Render(m.message))
	}

	var next *Entry
	if len(m.entries) > 0 {
		next = &m.entries[0]
	}
	sections = append(sections, NewNextDoseComponent(next, m.width, now).View())
	sections = append(sections, NewRemindersComponent(m.entries, m.cursor, m.width, now).View())

	if e, ok := m.Selected(); ok && e.Medication != nil {
		if view := NewAdherenceComponent(e.Medication, m.width).View(); view != "" {
			sections = append(sections, view)
		}
	}

	sections = append(sections, HelpBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader(now time.Time) string {
	title := StyleTitle.Render("medtrack")
	clock := StyleSubtitle.Render(now.Format("Mon Jan 2, 15:04:05"))
	meds := StyleSubtitle.Render(fmt.Sprintf("%d medication(s)", m.repo.GetAllMedications().Len()))

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", clock, "  ", meds) + "\n"
}

// loadData reloads the upcoming reminders and keeps the cursor in range.
func (m *DashboardModel) loadData() {
	reminders, err := m.repo.SelectNextReminders(m.maxReminders)
	if err != nil {
		m.err = err
		return
	}

	meds := m.repo.GetAllMedications()
	m.entries = m.entries[:0]
	for _, r := range reminders {
		var med *model.Medication
		if r.Classification == model.ClassMedication {
			med, _ = meds.Find(r.OwnerKey)
		}
		m.entries = append(m.entries, NewEntry(r, med))
	}

	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
	m.err = nil
}

func (m *DashboardModel) setMessage(msg string, duration time.Duration) {
	m.message = msg
	m.messageExp = m.now().Add(duration)
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *DashboardModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{}
	}
}

// watchCmd waits for the next medication change.
func (m *DashboardModel) watchCmd() tea.Cmd {
	changes := m.repo.GetAllMedications().Changes()
	return func() tea.Msg {
		<-changes
		return changedMsg{}
	}
}

// NewProgram creates the dashboard program.
func NewProgram(config DashboardConfig, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(NewDashboardModel(config), opts...)
}

// Deliverer forwards due notifications into a running program.
func Deliverer(p *tea.Program) scheduler.Deliverer {
	return scheduler.DelivererFunc(func(_ context.Context, n *model.Notification) error {
		p.Send(NotificationMsg{Notification: n})
		return nil
	})
}
