package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/router"
)

var clearFlagYes bool

// clearCmd removes every row of one kind, or everything.
var clearCmd = &cobra.Command{
	Use:   "clear [KIND]",
	Short: "Delete every medication and reminder, or every row of one kind",
	Long: `Delete stored data. Without KIND everything is removed.

KIND is one of:
  medication   medications and their medication reminders
  appointment  appointment reminders
  doctor       not supported yet

Examples:
  medtrack clear --yes
  medtrack clear medication --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearFlagYes, "yes", "y", false, "Confirm the deletion")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	what := "everything"
	var kind router.Kind
	if len(args) > 0 {
		var err error
		kind, err = router.ParseKind(args[0])
		if err != nil {
			return err
		}
		what = kind.String()
	}

	if !clearFlagYes {
		ctx.CLIFormatter().Warning("This deletes " + what + ". Re-run with --yes to confirm.")
		return nil
	}

	n, err := clearTables(cmd, kind)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintCleared(what, n)
	}
	ctx.CLIFormatter().PrintCleared(what, n)
	return nil
}

// clearTables clears one kind, or every table for the zero Kind.
func clearTables(cmd *cobra.Command, kind router.Kind) (int, error) {
	if kind == 0 {
		return ctx.Router.ClearAllTables(cmd.Context()).Await(cmd.Context())
	}
	fut, err := ctx.Router.ClearTableRequest(cmd.Context(), kind)
	if err != nil {
		return 0, err
	}
	return fut.Await(cmd.Context())
}
