package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/parser"
)

// completeMedications returns medication names for the first argument.
func completeMedications(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if ctx == nil || ctx.Repo == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, m := range ctx.Repo.GetAllMedications().Snapshot() {
		if strings.HasPrefix(m.Name, toComplete) {
			completions = append(completions, m.Name+"\t"+m.Dosage)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeReminders returns upcoming reminder IDs for the first argument.
func completeReminders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if ctx == nil || ctx.Repo == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	reminders, err := ctx.Repo.SelectNextReminders(50)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := medicationNames()

	var completions []string
	for _, r := range reminders {
		id := fmt.Sprint(r.PrimaryKey)
		if strings.HasPrefix(id, toComplete) {
			completions = append(completions, fmt.Sprintf("%s\t%s %s", id, names[r.OwnerKey], r.DateTime()))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeIntervals suggests interval names for --interval.
func completeIntervals(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, name := range parser.IntervalNames() {
		index, label, _ := strings.Cut(name, ": ")
		if strings.HasPrefix(label, toComplete) || strings.HasPrefix(index, toComplete) {
			completions = append(completions, label)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeKinds suggests entity kinds.
func completeKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"medication", "appointment", "doctor"}, cobra.ShellCompDirectiveNoFileComp
}

// completeReminderKinds suggests the kinds reminders can be cleared by.
func completeReminderKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"medication", "appointment"}, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	medShowCmd.ValidArgsFunction = completeMedications
	medDeleteCmd.ValidArgsFunction = completeMedications
	remindAckCmd.ValidArgsFunction = completeReminders
	remindDismissCmd.ValidArgsFunction = completeReminders
	remindDeleteCmd.ValidArgsFunction = completeReminders
	clearCmd.ValidArgsFunction = completeKinds
	medAddCmd.RegisterFlagCompletionFunc("interval", completeIntervals)
	remindClearCmd.RegisterFlagCompletionFunc("kind", completeReminderKinds)
}
