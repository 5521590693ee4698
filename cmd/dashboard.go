package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/runtime"
	"github.com/manav03panchal/medtrack/internal/tui"
)

// dashboardCmd opens the full-screen dashboard.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "ui"},
	Short:   "Full-screen view of upcoming reminders",
	Long: `Open a full-screen dashboard with the next dose, upcoming reminders and
the adherence of the selected medication. Reminders that fall due while the
dashboard is open are shown as alerts and sent to enabled webhooks.

Keys:
  ↑/↓ or k/j  select a reminder
  a or enter  take the selected dose
  d or x      skip the selected dose
  esc         close the current alert
  r           refresh
  q           quit`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	p := tui.NewProgram(tui.DashboardConfig{
		Repo:   ctx.Repo,
		Router: ctx.Router,
	}, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	ctx.Scheduler.SetDeliverer(runtime.Deliverer(tui.Deliverer(p), ctx.Notifier))
	if _, err := ctx.Scheduler.Resync(ctx.Config.Scheduler.ResyncCount); err != nil {
		return err
	}
	ctx.Scheduler.Start()
	defer ctx.Scheduler.Stop()

	_, err := p.Run()
	return err
}
