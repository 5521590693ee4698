package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/runtime"
	"github.com/manav03panchal/medtrack/internal/scheduler"
)

// shellCmd starts an interactive session that also delivers due reminders.
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with live reminders",
	Long: `Start an interactive session. Reminders that fall due while the session
is open are printed as they fire; overdue reminders are printed at start.

Type 'help' inside the session for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

const shellHelp = `Commands:
  add NAME DOSAGE FIRST [INTERVAL]  add a medication (quote values with spaces)
  list                              list medications
  show NAME|ID                      show a medication
  next [N]                          list upcoming reminders
  ack ID                            acknowledge a reminder
  dismiss ID                        dismiss a reminder
  delete NAME                       delete a medication
  help                              show this help
  quit                              leave the session`

func runShell(cmd *cobra.Command, args []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "medtrack> ",
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		AutoComplete:      shellCompleter,
	})
	if err != nil {
		return fmt.Errorf("failed to setup readline: %w", err)
	}
	defer rl.Close()

	ctx.Formatter.Writer = rl.Stdout()
	cli := ctx.CLIFormatter()
	ctx.Scheduler.SetDeliverer(runtime.Deliverer(notificationPrinter(rl.Stdout()), ctx.Notifier))

	n, err := ctx.Scheduler.Resync(ctx.Config.Scheduler.ResyncCount)
	if err != nil {
		return err
	}
	ctx.Scheduler.Start()
	defer ctx.Scheduler.Stop()

	cli.Title("medtrack shell")
	cli.Muted(fmt.Sprintf("%d reminder(s) scheduled. Type 'help' for commands.", n))

	sh := &shell{cmd: cmd}
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		quit, err := sh.exec(strings.TrimSpace(line))
		if err != nil {
			cli.Error(runtime.FormatError(err))
		}
		if quit {
			return nil
		}
	}
}

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("add"),
	readline.PcItem("list"),
	readline.PcItem("show"),
	readline.PcItem("next"),
	readline.PcItem("ack"),
	readline.PcItem("dismiss"),
	readline.PcItem("delete"),
	readline.PcItem("help"),
	readline.PcItem("quit"),
)

// notificationPrinter writes each due notification as a block of text.
func notificationPrinter(w io.Writer) scheduler.Deliverer {
	return scheduler.DelivererFunc(func(_ context.Context, n *model.Notification) error {
		_, err := fmt.Fprintf(w, "\n⏰ %s\n   %s (due %s)\n", n.Title, n.Message, n.DueAt.Format(model.DateTimeLayout))
		return err
	})
}

// shell executes one session line at a time.
type shell struct {
	cmd *cobra.Command
}

// exec runs one line. It reports whether the session should end.
func (sh *shell) exec(line string) (bool, error) {
	words, err := splitArgs(line)
	if err != nil {
		return false, err
	}
	if len(words) == 0 {
		return false, nil
	}

	command, args := strings.ToLower(words[0]), words[1:]
	cli := ctx.CLIFormatter()

	switch command {
	case "help", "?":
		cli.Println(shellHelp)

	case "quit", "exit", "q":
		return true, nil

	case "add":
		if len(args) < 3 || len(args) > 4 {
			return false, fmt.Errorf("usage: add NAME DOSAGE FIRST [INTERVAL]")
		}
		interval := ""
		if len(args) == 4 {
			interval = args[3]
		}
		med, rem, err := addMedication(sh.cmd, args[0], args[1], args[2], interval)
		if err != nil {
			return false, err
		}
		cli.PrintMedicationAdded(med, rem)

	case "list", "ls", "meds":
		cli.PrintMedications(ctx.Repo.GetAllMedications().Snapshot())

	case "show":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: show NAME|ID")
		}
		return false, runMedShow(sh.cmd, args)

	case "next":
		n := 10
		if len(args) > 0 {
			if n, err = strconv.Atoi(args[0]); err != nil || n <= 0 {
				return false, fmt.Errorf("usage: next [N]")
			}
		}
		reminders, err := ctx.Repo.SelectNextReminders(n)
		if err != nil {
			return false, err
		}
		cli.PrintReminders(reminders, medicationNames())

	case "ack", "dismiss":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s ID", command)
		}
		dismissed := command == "dismiss"
		rem, err := acknowledgeReminder(sh.cmd, args[0], dismissed)
		if err != nil {
			return false, err
		}
		cli.PrintAcknowledged(rem, dismissed)

	case "delete", "rm":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: delete NAME")
		}
		deleted, err := deleteMedication(sh.cmd, args[0])
		if err != nil {
			return false, err
		}
		cli.PrintDeleted(args[0], deleted)

	default:
		return false, fmt.Errorf("unknown command %q, type 'help' for commands", command)
	}
	return false, nil
}

// splitArgs splits a line into words, honouring single and double quotes.
func splitArgs(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
