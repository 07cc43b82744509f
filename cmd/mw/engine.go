package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rvashist/mailwatch/internal/config"
	"github.com/rvashist/mailwatch/internal/logger"
	"github.com/rvashist/mailwatch/internal/monitor"
	"github.com/rvashist/mailwatch/internal/notify"
	"github.com/rvashist/mailwatch/internal/source"
	gmailsource "github.com/rvashist/mailwatch/internal/source/gmail"
	imapsource "github.com/rvashist/mailwatch/internal/source/imap"
)

// Flag overrides shared by watch and check.
var (
	flagKeyword  string
	flagInterval int
	flagLookback int
)

// loadConfig reads the config file (flag path or discovery) and applies
// command-line overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DiscoverPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flagKeyword != "" {
		cfg.Keyword = flagKeyword
	}
	if flagInterval > 0 {
		cfg.IntervalSeconds = flagInterval
	}
	if flagLookback >= 0 {
		cfg.LookbackDays = flagLookback
	}
	return cfg, nil
}

// buildSource constructs the configured mail source adapter.
func buildSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (source.Source, error) {
	switch cfg.Source {
	case config.SourceGmail:
		return gmailsource.New(ctx, cfg.Gmail.CredentialsFile, log)
	case config.SourceIMAP:
		return imapsource.New(
			cfg.IMAP.Host, cfg.IMAP.Port,
			cfg.IMAP.Username, cfg.IMAP.Password,
			cfg.IMAP.Mailbox, log,
		), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// buildNotifier combines the terminal sink with the optional webhook.
func buildNotifier(cfg *config.Config, log *zap.Logger) notify.Notifier {
	sinks := []notify.Notifier{notify.Terminal{}}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.WebhookURL))
	}
	return notify.NewMulti(log, sinks...)
}

// buildScheduler wires config, source, store, and sinks into a scheduler.
func buildScheduler(ctx context.Context, cfg *config.Config) (*monitor.Scheduler, *zap.Logger, error) {
	log := logger.New(cfg.LogLevel, quietFlag)

	src, err := buildSource(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	return monitor.New(cfg, src, watchStore, buildNotifier(cfg, log), log), log, nil
}
