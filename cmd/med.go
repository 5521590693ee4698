package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/parser"
	"github.com/manav03panchal/medtrack/internal/router"
)

// medCmd represents the med command.
var medCmd = &cobra.Command{
	Use:     "med",
	Aliases: []string{"meds", "medication", "medications", "m"},
	Short:   "Manage medications",
	Long: `List medications, show one in detail, or add and remove them.

Examples:
  medtrack med
  medtrack med add Aspirin --dosage 100mg --first "2024-05-01 08:00"
  medtrack med add Ibuprofen -d 200mg --first "tomorrow 9am" --interval "every 8 hours"
  medtrack med show Aspirin
  medtrack med delete Aspirin`,
	RunE: runMedList,
}

// Med subcommand flags.
var (
	medAddFlagDosage   string
	medAddFlagFirst    string
	medAddFlagInterval string
)

// medAddCmd adds a medication and its first reminder.
var medAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a medication",
	Long: `Add a medication together with the reminder for its first dose.

--first accepts an exact date (2024-05-01 08:00), a relative offset (+2h, +30m,
+1d) or a natural phrase (tomorrow 8am).

--interval accepts an index or a name:
  ` + intervalHelp(),
	Args: cobra.ExactArgs(1),
	RunE: runMedAdd,
}

// medListCmd lists medications.
var medListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List medications",
	Args:    cobra.NoArgs,
	RunE:    runMedList,
}

// medShowCmd shows one medication.
var medShowCmd = &cobra.Command{
	Use:   "show NAME|ID",
	Short: "Show a medication with its reminders and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runMedShow,
}

// medDeleteCmd deletes a medication.
var medDeleteCmd = &cobra.Command{
	Use:     "delete NAME",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a medication",
	Long: `Delete a medication by name. Its reminders are kept; remove them with
'medtrack remind delete' or 'medtrack remind clear'.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMedDelete,
}

func init() {
	medAddCmd.Flags().StringVarP(&medAddFlagDosage, "dosage", "d", "", "Dosage, e.g. 100mg (required)")
	medAddCmd.Flags().StringVar(&medAddFlagFirst, "first", "", "First dose date and time (required)")
	medAddCmd.Flags().StringVarP(&medAddFlagInterval, "interval", "i", "", "Repeat interval (default: daily)")
	medAddCmd.MarkFlagRequired("dosage")
	medAddCmd.MarkFlagRequired("first")

	medCmd.AddCommand(medAddCmd)
	medCmd.AddCommand(medListCmd)
	medCmd.AddCommand(medShowCmd)
	medCmd.AddCommand(medDeleteCmd)
	rootCmd.AddCommand(medCmd)
}

func intervalHelp() string {
	return strings.Join(parser.IntervalNames(), "\n  ")
}

func runMedAdd(cmd *cobra.Command, args []string) error {
	med, rem, err := addMedication(cmd, args[0], medAddFlagDosage, medAddFlagFirst, medAddFlagInterval)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintMedicationAdded(med, rem)
	}
	ctx.CLIFormatter().PrintMedicationAdded(med, rem)
	return nil
}

// addMedication parses the user's schedule and submits the medication through
// the router, waiting for the stored result.
func addMedication(cmd *cobra.Command, name, dosage, first, interval string) (*model.Medication, *model.Reminder, error) {
	firstDate, err := parser.ParseFirstDate(first, time.Now())
	if err != nil {
		return nil, nil, err
	}
	index, err := parser.ParseInterval(interval)
	if err != nil {
		return nil, nil, err
	}

	fut, err := ctx.Router.ProcessInput(cmd.Context(), router.KindMedication, map[string]string{
		router.FieldName:      name,
		router.FieldDosage:    dosage,
		router.FieldFirstDate: firstDate,
		router.FieldInterval:  strconv.Itoa(index),
	})
	if err != nil {
		return nil, nil, err
	}
	res, err := fut.Await(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	med, ok, err := ctx.Repo.GetMedicationByID(res.MedicationKey)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.NewInvalidField("name", name, "medication was removed", errors.ErrMedicationNotFound)
	}
	return med, res.Reminder, nil
}

func runMedList(cmd *cobra.Command, args []string) error {
	meds := ctx.Repo.GetAllMedications().Snapshot()

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintMedications(meds)
	}
	ctx.CLIFormatter().PrintMedications(meds)
	return nil
}

func runMedShow(cmd *cobra.Command, args []string) error {
	med, err := findMedication(args[0])
	if err != nil {
		return err
	}

	reminders, err := ctx.Repo.ListRemindersByOwner(med.PrimaryKey)
	if err != nil {
		return err
	}

	log, err := model.ParseAcknowledgementLog(med.AcknowledgementList)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintMedication(med, reminders, log)
	}
	ctx.CLIFormatter().PrintMedication(med, reminders, log)
	return nil
}

// findMedication looks a medication up by name, then by numeric ID.
func findMedication(ref string) (*model.Medication, error) {
	med, ok, err := ctx.Repo.GetMedicationByName(ref)
	if err != nil {
		return nil, err
	}
	if ok {
		return med, nil
	}

	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		med, ok, err = ctx.Repo.GetMedicationByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			return med, nil
		}
	}
	return nil, errors.NewInvalidField("name", ref, "medication not found", errors.ErrMedicationNotFound)
}

func runMedDelete(cmd *cobra.Command, args []string) error {
	deleted, err := deleteMedication(cmd, args[0])
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintDeleted(args[0], deleted)
	}
	ctx.CLIFormatter().PrintDeleted(args[0], deleted)
	return nil
}

func deleteMedication(cmd *cobra.Command, name string) (bool, error) {
	fut, err := ctx.Router.ProcessDeleteRequest(cmd.Context(), router.KindMedication, name)
	if err != nil {
		return false, err
	}
	return fut.Await(cmd.Context())
}
