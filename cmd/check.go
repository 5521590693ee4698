package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/storage"
)

// Check command flags.
var (
	checkFlagBackup  bool
	checkFlagRestore string
)

// checkCmd verifies the database.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check database integrity",
	Long: `Decode every stored record and cross-check medications against their
reminders.

Examples:
  medtrack check
  medtrack check --backup
  medtrack check --restore ~/.local/share/medtrack/backups/db-backup-20240501-080000.bak`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlagBackup, "backup", false, "Write a backup after checking")
	checkCmd.Flags().StringVar(&checkFlagRestore, "restore", "", "Load a backup file before checking")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkFlagRestore != "" {
		if err := storage.RestoreBackup(ctx.DB(), checkFlagRestore); err != nil {
			return err
		}
	}

	status := storage.CheckDatabaseIntegrity(ctx.DB())
	if checkFlagBackup {
		path, err := storage.CreateBackup(ctx.DB())
		if err != nil {
			return err
		}
		status.BackupPath = path
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintIntegrity(status)
	}
	ctx.CLIFormatter().PrintIntegrity(status)
	return nil
}
