package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"webmbot/internal/bus"
	"webmbot/internal/channel"
	"webmbot/internal/config"
	"webmbot/internal/daily"
	"webmbot/internal/dispatch"
	"webmbot/internal/logging"
	"webmbot/internal/membership"
	"webmbot/internal/metrics"
	"webmbot/internal/relay"
	"webmbot/internal/subscriber"
	"webmbot/internal/transcode"
	"webmbot/internal/transfer"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 60 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (Telegram polling + dispatcher)",
		Long:  "Polls Telegram for updates, converts webm documents and announces new members. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

// loadRuntime loads the config, switches the package logger to the
// configured one and returns a closer for the log file.
func loadRuntime() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, closer, err := logging.Open(cfg.General.LogLevel, cfg.General.LogFormat, cfg.General.LogFile)
	if err != nil {
		return nil, nil, err
	}
	logger = log
	return cfg, closer, nil
}

func newTelegram(cfg *config.Config) (*channel.Telegram, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token not configured: set TELOXIDE_TOKEN or telegram.token")
	}
	return channel.NewTelegram(channel.TelegramConfig{
		Token:              cfg.Telegram.Token,
		AllowChats:         cfg.Telegram.AllowChats,
		PollTimeoutSeconds: cfg.Telegram.PollTimeoutSeconds,
		Logger:             logger,
	})
}

// openSubscribers returns the loaded subscriber service, or nil when
// subscriptions are disabled.
func openSubscribers(ctx context.Context, cfg *config.Config) (*subscriber.Service, io.Closer, error) {
	if !cfg.Subscribers.Enabled {
		return nil, io.NopCloser(nil), nil
	}

	var (
		store  subscriber.Store
		closer io.Closer = io.NopCloser(nil)
	)
	switch cfg.Subscribers.Backend {
	case "file":
		store = subscriber.NewFileStore(cfg.Subscribers.Path, logger)
	default:
		s, err := subscriber.NewSQLiteStore(cfg.Subscribers.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("subscriber store: %w", err)
		}
		store, closer = s, s
	}

	svc := subscriber.NewService(store, logger)
	if err := svc.Load(ctx); err != nil {
		closer.Close()
		return nil, nil, err
	}
	return svc, closer, nil
}

func dailySource(cfg *config.Config) daily.Source {
	if cfg.Daily.Source == "static" {
		return daily.StaticSource{Text: cfg.Daily.Message}
	}
	return daily.LeetCodeSource{HTTP: transfer.SharedHTTPClient(30 * time.Second)}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if err := os.MkdirAll(cfg.General.TempDir, 0o755); err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	var background sync.WaitGroup
	if cfg.Metrics.Enabled {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, cfg.Metrics.Path, collector, logger); err != nil {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	tg, err := newTelegram(cfg)
	if err != nil {
		return err
	}

	subs, subsCloser, err := openSubscribers(ctx, cfg)
	if err != nil {
		return err
	}
	defer subsCloser.Close()

	fetcher := transfer.New(transfer.Config{
		Locator:   tg,
		HTTP:      transfer.SharedHTTPClient(0),
		Dir:       cfg.General.TempDir,
		Extension: cfg.Relay.InputExtension,
		Logger:    logger,
	})
	pool := transcode.NewPool(transcode.NewFFmpeg(transcode.FFmpegConfig{
		Binary:         cfg.Transcoder.Binary,
		OutputSuffix:   cfg.Relay.OutputSuffix,
		TimeoutSeconds: cfg.Transcoder.TimeoutSeconds,
		Logger:         logger,
	}), cfg.Transcoder.Workers, logger)
	defer pool.Close()

	relayer := relay.New(relay.Config{
		Fetcher:    fetcher,
		Transcoder: pool,
		Platform:   tg,
		TargetType: cfg.Relay.TargetMimeType,
		Metrics:    collector,
		Logger:     logger,
	})
	members := membership.New(membership.Config{Platform: tg, Metrics: collector, Logger: logger})

	// A nil *subscriber.Service must not become a non-nil interface.
	var subscriptions dispatch.Subscriptions
	if subs != nil {
		subscriptions = subs
	}
	commands := dispatch.NewCommands(dispatch.CommandsConfig{
		Platform:    tg,
		Subscribers: subscriptions,
		Version:     version,
	})

	if cfg.Daily.Enabled {
		notifier := daily.NewNotifier(daily.NotifierConfig{
			Source:      dailySource(cfg),
			Subscribers: subs,
			Platform:    tg,
			Metrics:     collector,
			Logger:      logger,
		})
		sched, err := daily.NewScheduler(daily.SchedulerConfig{
			Schedule: cfg.Daily.Schedule,
			Timezone: cfg.Daily.Timezone,
			Target:   notifier,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		background.Add(1)
		go func() {
			defer background.Done()
			if err := sched.Start(ctx); err != nil {
				logger.Error("daily scheduler error", "err", err)
			}
		}()
	}

	messageBus := bus.New(cfg.Dispatch.BufferSize, logger)
	dispatcher := dispatch.New(dispatch.Config{
		Bus:           messageBus,
		Documents:     relayer,
		Membership:    members,
		Commands:      commands,
		MaxConcurrent: cfg.Dispatch.MaxConcurrent,
		Metrics:       collector,
		Logger:        logger,
	})
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		dispatcher.Run(ctx)
	}()

	background.Add(1)
	go func() {
		defer background.Done()
		if err := tg.Start(ctx, messageBus); err != nil {
			logger.Error("telegram channel error", "err", err)
		}
	}()

	logger.Info("webmbot started. Press Ctrl+C to stop.", "version", version)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down, waiting for in-flight events...")

	var shutdownErr error
	select {
	case <-dispatched:
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}
	tg.Stop()
	messageBus.Close()
	background.Wait()
	if shutdownErr == nil {
		logger.Info("shutdown complete")
	}
	return shutdownErr
}
