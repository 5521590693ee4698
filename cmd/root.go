// Package cmd provides the CLI commands for medtrack.
//
// This software is a derivative work based on Zeit (https://github.com/mrusme/zeit)
// Original work copyright (c) マリウス (mrusme)
// Modifications copyright (c) Manav Panchal
//
// Licensed under the SEGV License, Version 1.0
// See LICENSE file for full license text.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/output"
	"github.com/manav03panchal/medtrack/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat string
	flagColor  string
	flagDebug  bool
	flagDB     string
	flagConfig string
)

// ctx is the shared runtime context.
var ctx *runtime.Context

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "medtrack",
	Short: "Track medications and their reminders",
	Long: `medtrack keeps a list of medications and reminds you when the next dose
is due.

Examples:
  medtrack med add Aspirin --dosage 100mg --first "tomorrow 8am" --interval daily
  medtrack remind next
  medtrack remind ack 3
  medtrack shell`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for completion, help and version
		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}

		opts := runtime.DefaultOptions()
		opts.ConfigPath = flagConfig
		opts.DBPath = flagDB
		opts.Format = output.ParseFormat(flagFormat)
		opts.ColorMode = output.ParseColorMode(flagColor)
		opts.Debug = flagDebug
		opts.LogOutput = cmd.ErrOrStderr()

		var err error
		ctx, err = runtime.New(opts)
		if err != nil {
			return err
		}
		ctx.Formatter.Writer = cmd.OutOrStdout()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: show upcoming reminders
		return runRemindNext(cmd, args)
	},
}

// Execute runs the command line. Errors are reported before returning.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		report(err)
	}
	if ctx != nil {
		if closeErr := ctx.Close(); closeErr != nil && err == nil {
			err = closeErr
			report(err)
		}
		ctx = nil
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	return runtime.ExitCode(err)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "",
		"Database directory (\":memory:\" for a throwaway database)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default: $XDG_CONFIG_HOME/medtrack/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("medtrack %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
	},
}

// report prints an error in the selected output format.
func report(err error) {
	if ctx != nil && ctx.IsJSON() {
		ctx.JSONFormatter().PrintError(runtime.ErrorStatus(err), err.Error(), runtime.Suggestion(err))
		return
	}
	rootCmd.PrintErrln("Error: " + runtime.FormatError(err))
}
