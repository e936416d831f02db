package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/repository"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send due-soon notices once and exit",
	Long:  "Runs the daily reminder scan immediately, for use from an external scheduler.",
	Args:  cobra.NoArgs,
	RunE:  runRemind,
}

func init() {
	rootCmd.AddCommand(remindCmd)
}

func runRemind(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	prefs := repository.NewPreferenceRepository(pool)
	dispatcher, closeDispatcher, err := newDispatcher(cfg, prefs)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	job, err := newJob(cfg, repository.NewSubscriptionRepository(pool), dispatcher, billing.Evaluator{Location: cfg.Location()})
	if err != nil {
		return err
	}

	sent, err := job.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("reminder scan failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d notices.\n", sent)
	return nil
}
