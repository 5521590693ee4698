package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/repository"
	"github.com/manav03panchal/medtrack/internal/router"
)

// Remind command flags.
var (
	remindNextFlagCount int
	remindClearFlagKind string
)

// remindCmd represents the remind command.
var remindCmd = &cobra.Command{
	Use:     "remind",
	Aliases: []string{"r", "rem", "reminders"},
	Short:   "Manage reminders",
	Long: `List upcoming reminders and acknowledge or dismiss them.

Acknowledging or dismissing a reminder records it in the medication's history
and moves the reminder to its next occurrence.

Examples:
  medtrack remind next
  medtrack remind next -n 3
  medtrack remind ack 2
  medtrack remind dismiss 2`,
	RunE: runRemindNext,
}

// remindNextCmd lists upcoming reminders.
var remindNextCmd = &cobra.Command{
	Use:     "next",
	Aliases: []string{"list", "ls"},
	Short:   "List upcoming reminders",
	Args:    cobra.NoArgs,
	RunE:    runRemindNext,
}

// remindAckCmd acknowledges a reminder.
var remindAckCmd = &cobra.Command{
	Use:     "ack ID",
	Aliases: []string{"take", "done"},
	Short:   "Acknowledge a reminder",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemindAcknowledge(cmd, args[0], false)
	},
}

// remindDismissCmd dismisses a reminder.
var remindDismissCmd = &cobra.Command{
	Use:     "dismiss ID",
	Aliases: []string{"skip"},
	Short:   "Dismiss a reminder",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemindAcknowledge(cmd, args[0], true)
	},
}

// remindDeleteCmd deletes a reminder.
var remindDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a reminder",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemindDelete,
}

// remindClearCmd deletes every reminder, or every reminder of one kind.
var remindClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every reminder, or every reminder of one kind",
	Long: `Delete reminders. Medications are kept.

Examples:
  medtrack remind clear
  medtrack remind clear --kind appointment`,
	Args: cobra.NoArgs,
	RunE: runRemindClear,
}

func init() {
	remindNextCmd.Flags().IntVarP(&remindNextFlagCount, "count", "n", 10, "Number of reminders to show")
	remindCmd.Flags().IntVarP(&remindNextFlagCount, "count", "n", 10, "Number of reminders to show")
	remindClearCmd.Flags().StringVarP(&remindClearFlagKind, "kind", "k", "", "Only clear reminders of this kind (medication, appointment)")

	remindCmd.AddCommand(remindNextCmd)
	remindCmd.AddCommand(remindAckCmd)
	remindCmd.AddCommand(remindDismissCmd)
	remindCmd.AddCommand(remindDeleteCmd)
	remindCmd.AddCommand(remindClearCmd)
	rootCmd.AddCommand(remindCmd)
}

func runRemindNext(cmd *cobra.Command, args []string) error {
	n := remindNextFlagCount
	if n <= 0 {
		n = 10
	}
	reminders, err := ctx.Repo.SelectNextReminders(n)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintReminders(reminders)
	}
	ctx.CLIFormatter().PrintReminders(reminders, medicationNames())
	return nil
}

// medicationNames maps medication keys to names for reminder listings.
func medicationNames() map[int64]string {
	meds := ctx.Repo.GetAllMedications().Snapshot()
	names := make(map[int64]string, len(meds))
	for _, m := range meds {
		names[m.PrimaryKey] = m.Name
	}
	return names
}

func parseReminderID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= model.UnsetKey {
		return 0, errors.NewInvalidField("reminder", arg, "invalid reminder id", errors.ErrInvalidField)
	}
	return id, nil
}

func runRemindAcknowledge(cmd *cobra.Command, arg string, dismissed bool) error {
	rem, err := acknowledgeReminder(cmd, arg, dismissed)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintAcknowledged(rem, dismissed)
	}
	ctx.CLIFormatter().PrintAcknowledged(rem, dismissed)
	return nil
}

func acknowledgeReminder(cmd *cobra.Command, arg string, dismissed bool) (*model.Reminder, error) {
	id, err := parseReminderID(arg)
	if err != nil {
		return nil, err
	}
	fut, err := ctx.Router.ProcessAcknowledgementRequest(cmd.Context(), router.KindMedication, id, dismissed)
	if err != nil {
		return nil, err
	}
	return fut.Await(cmd.Context())
}

func runRemindDelete(cmd *cobra.Command, args []string) error {
	id, err := parseReminderID(args[0])
	if err != nil {
		return err
	}
	fut, err := ctx.Router.ProcessReminderDeleteRequest(cmd.Context(), id)
	if err != nil {
		return err
	}
	deleted, err := fut.Await(cmd.Context())
	if err != nil {
		return err
	}

	what := "reminder #" + args[0]
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintDeleted(what, deleted)
	}
	ctx.CLIFormatter().PrintDeleted(what, deleted)
	return nil
}

func runRemindClear(cmd *cobra.Command, args []string) error {
	what := "reminders"
	var (
		fut *repository.Future[int]
		err error
	)
	if remindClearFlagKind == "" {
		fut, err = ctx.Router.ClearAllRemindersRequest(cmd.Context())
	} else {
		var kind router.Kind
		kind, err = router.ParseKind(remindClearFlagKind)
		if err != nil {
			return err
		}
		what = kind.String() + " reminders"
		fut, err = ctx.Router.ClearRemindersRequest(cmd.Context(), kind)
	}
	if err != nil {
		return err
	}
	n, err := fut.Await(cmd.Context())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintCleared(what, n)
	}
	ctx.CLIFormatter().PrintCleared(what, n)
	return nil
}
