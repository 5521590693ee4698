package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/config"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/notify"
	"github.com/manav03panchal/medtrack/internal/output"
	"github.com/manav03panchal/medtrack/internal/runtime"
)

// notifyCmd groups webhook commands.
var notifyCmd = &cobra.Command{
	Use:     "notify",
	Aliases: []string{"webhook", "webhooks"},
	Short:   "Inspect and test reminder webhooks",
	Long: `Webhooks receive due reminders while 'medtrack shell' is running.
They are configured in the config file:

  notify:
    webhooks:
      - name: phone
        type: discord      # discord, slack, teams or generic
        url: https://discord.com/api/webhooks/...

Examples:
  medtrack notify list
  medtrack notify test phone`,
	RunE: runNotifyList,
}

var notifyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured webhooks",
	Args:    cobra.NoArgs,
	RunE:    runNotifyList,
}

var notifyTestCmd = &cobra.Command{
	Use:   "test [NAME]",
	Short: "Send a test notification",
	Long:  "Send a test notification to NAME, or to every enabled webhook.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNotifyTest,
}

func init() {
	notifyCmd.AddCommand(notifyListCmd)
	notifyCmd.AddCommand(notifyTestCmd)
	rootCmd.AddCommand(notifyCmd)
}

// webhookOutput is the JSON form of a configured webhook.
type webhookOutput struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

func newWebhookOutput(w config.WebhookConfig) webhookOutput {
	typ := w.Type
	if typ == "" {
		typ = config.WebhookGeneric
	}
	return webhookOutput{
		Name:    w.Name,
		Type:    typ,
		URL:     logging.MaskPartial(w.URL, 24),
		Enabled: !w.Disabled,
	}
}

func runNotifyList(cmd *cobra.Command, args []string) error {
	webhooks := ctx.Notifier.Webhooks()

	if ctx.IsJSON() {
		out := make([]webhookOutput, 0, len(webhooks))
		for _, w := range webhooks {
			out = append(out, newWebhookOutput(w))
		}
		return ctx.Formatter.PrintJSON(map[string]interface{}{"webhooks": out})
	}

	cli := ctx.CLIFormatter()
	if len(webhooks) == 0 {
		cli.Muted("No webhooks configured. See 'medtrack notify --help'.")
		return nil
	}

	rows := make([]output.TableRow, 0, len(webhooks))
	for _, w := range webhooks {
		o := newWebhookOutput(w)
		state := "enabled"
		if !o.Enabled {
			state = "disabled"
		}
		rows = append(rows, output.TableRow{Columns: []string{o.Name, o.Type, state, o.URL}})
	}
	cli.PrintTable([]string{"NAME", "TYPE", "STATE", "URL"}, rows)
	return nil
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	var results []notify.DispatchResult
	if len(args) == 1 {
		results = []notify.DispatchResult{ctx.Notifier.TestWebhook(cmd.Context(), args[0])}
	} else {
		for _, w := range ctx.Notifier.Enabled() {
			results = append(results, ctx.Notifier.TestWebhook(cmd.Context(), w.Name))
		}
	}
	if len(results) == 0 {
		return fmt.Errorf("no enabled webhooks configured")
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	if ctx.IsJSON() {
		type resultOutput struct {
			notify.DispatchResult
			Error string `json:"error,omitempty"`
		}
		out := make([]resultOutput, 0, len(results))
		for _, r := range results {
			ro := resultOutput{DispatchResult: r}
			if r.Error != nil {
				ro.Error = r.Error.Error()
			}
			out = append(out, ro)
		}
		if err := ctx.Formatter.PrintJSON(map[string]interface{}{"results": out}); err != nil {
			return err
		}
	} else {
		cli := ctx.CLIFormatter()
		for _, r := range results {
			if r.Error != nil {
				cli.Error(fmt.Sprintf("%s: %s", r.WebhookName, runtime.FirstLine(r.Error.Error())))
				continue
			}
			cli.Success(fmt.Sprintf("%s: delivered (HTTP %d, %d attempt(s))", r.WebhookName, r.StatusCode, r.Attempts))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d webhook(s) failed", failed, len(results))
	}
	return nil
}
