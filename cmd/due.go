package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/repository"
)

var (
	flagUID      string
	flagDate     string
	flagCurrency string
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List a user's payments due on a date",
	Args:  cobra.NoArgs,
	RunE:  runDue,
}

func init() {
	dueCmd.Flags().StringVar(&flagUID, "uid", "", "User id (required)")
	dueCmd.Flags().StringVar(&flagDate, "date", "", "Date as YYYY-MM-DD (default today)")
	dueCmd.Flags().StringVar(&flagCurrency, "currency", string(models.DefaultCurrency), "Display currency")
	_ = dueCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(dueCmd)
}

func runDue(cmd *cobra.Command, _ []string) error {
	currency, err := models.ParseCurrency(flagCurrency)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eval := billing.Evaluator{Location: cfg.Location()}

	date := eval.Today()
	if flagDate != "" {
		date, err = time.ParseInLocation(time.DateOnly, flagDate, cfg.Location())
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", flagDate)
		}
	}

	pool, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	subs, err := repository.NewSubscriptionRepository(pool).ListByUser(cmd.Context(), flagUID)
	if err != nil {
		return err
	}

	due := eval.DueOn(subs, date)
	out := cmd.OutOrStdout()
	if len(due) == 0 {
		fmt.Fprintf(out, "Nothing due on %s.\n", date.Format(time.DateOnly))
		return nil
	}

	fmt.Fprintf(out, "Due on %s:\n", date.Format(time.DateOnly))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, sub := range due {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", sub.Name, sub.Frequency, billing.ToDisplay(sub.Price, currency))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Total: %s\n", billing.TotalDue(due, currency))
	return nil
}
