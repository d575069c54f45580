// Package main is the entry point for the expense tracker Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/yelinaung/expense-client/internal/api"
	"gitlab.com/yelinaung/expense-client/internal/bot"
	"gitlab.com/yelinaung/expense-client/internal/config"
	"gitlab.com/yelinaung/expense-client/internal/gemini"
	"gitlab.com/yelinaung/expense-client/internal/logger"
	"gitlab.com/yelinaung/expense-client/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("expense-client %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.ValidateBot(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid bot config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.InitHashSalt()

	shutdown, err := telemetry.Setup(ctx, cfg, os.Stderr)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout)

	var suggester bot.CategorySuggester
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Category suggestions disabled")
		} else {
			suggester = geminiClient
		}
	}

	telegramBot, err := bot.New(cfg, client, suggester)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	logger.Log.Info().
		Str("api", cfg.APIBaseURL).
		Bool("whitelist", cfg.HasWhitelist()).
		Bool("suggestions", suggester != nil).
		Msg("Starting expense bot")

	telegramBot.Start(ctx)
	logger.Log.Info().Msg("Shutting down...")
}
