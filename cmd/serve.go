package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/config"
	"gitlab.com/yelinaung/subday/internal/gemini"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/notify"
	"gitlab.com/yelinaung/subday/internal/repository"
	"gitlab.com/yelinaung/subday/internal/telemetry"
	"gitlab.com/yelinaung/subday/internal/tracker"
	"gitlab.com/yelinaung/subday/internal/web"
)

// shutdownTimeout bounds the graceful stop of every component.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily reminder job",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg, build.Version)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	subs := repository.NewSubscriptionRepository(pool)
	prefs := repository.NewPreferenceRepository(pool)
	eval := billing.Evaluator{Location: cfg.Location()}

	dispatcher, closeDispatcher, err := newDispatcher(cfg, prefs)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	job, err := newJob(cfg, subs, dispatcher, eval)
	if err != nil {
		return err
	}

	opts := []tracker.Option{tracker.WithEvaluator(eval)}
	if cfg.ReminderEnabled {
		job.Start()
		defer func() {
			select {
			case <-job.Stop().Done():
			case <-time.After(shutdownTimeout):
				logger.Log.Warn().Msg("Reminder job did not stop in time")
			}
		}()
		opts = append(opts, tracker.WithDueSoonChecker(job))
	} else {
		logger.Log.Info().Msg("Reminders disabled")
	}
	ledgers := tracker.NewService(subs, opts...)
	defer ledgers.Wait()

	var assistant web.Assistant
	if cfg.AssistantEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		assistant = client
		logger.Log.Info().Str("model", client.Model()).Msg("Assistant enabled")
	} else {
		logger.Log.Warn().Msg("GEMINI_API_KEY is not set, assistant endpoints will answer 503")
	}

	handler := web.NewHandler(ledgers, prefs, assistant)
	auth := web.NewAuthenticator(web.AuthConfigFrom(cfg))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           web.NewRouter(handler, auth, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", cfg.HTTPAddr).Str("version", build.Version).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Log.Info().Msg("Server stopped")
	return nil
}

// newDispatcher fans notices out to the log and to every configured channel.
// The returned func releases broker connections.
func newDispatcher(cfg *config.Config, prefs notify.PreferenceSource) (notify.Dispatcher, func(), error) {
	dispatchers := notify.Multi{notify.LogDispatcher{}}
	closers := []func(){}

	if cfg.TelegramBotToken != "" {
		b, err := tgbot.New(cfg.TelegramBotToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		dispatchers = append(dispatchers, notify.NewTelegramDispatcher(b, prefs))
		logger.Log.Info().Msg("Telegram reminders enabled")
	}

	if cfg.AMQPURL != "" {
		d, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		dispatchers = append(dispatchers, d)
		closers = append(closers, func() {
			if err := d.Close(); err != nil {
				logger.Log.Warn().Err(err).Msg("Failed to close AMQP connection")
			}
		})
		logger.Log.Info().Str("exchange", cfg.AMQPExchange).Msg("AMQP reminders enabled")
	}

	return dispatchers, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func newJob(cfg *config.Config, source notify.Source, dispatcher notify.Dispatcher, eval billing.Evaluator) (*notify.Job, error) {
	job, err := notify.NewJob(source, dispatcher,
		notify.WithSchedule(cfg.ReminderSchedule),
		notify.WithLocation(cfg.Location()),
		notify.WithJobEvaluator(eval),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder job: %w", err)
	}
	return job, nil
}
