// Package main provides the Tunesmith CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tunesmith/internal/catalog"
	"tunesmith/internal/chat/telegram"
	"tunesmith/internal/core"
	httpserver "tunesmith/internal/http"
	"tunesmith/internal/llm"
	"tunesmith/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tunesmith",
	Short: "Tunesmith - mood-aware playlist builder",
	Long: `Tunesmith is a Telegram bot that turns free-text requests like "I'm tired
after work, something soothing" into curated playlists in your music library,
using an LLM for mood analysis and sequencing.`,
	RunE: runTunesmith,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("telegram-bot-token", "", "Telegram bot token")
	rootCmd.PersistentFlags().Int64("telegram-allowed-user-id", 0, "Telegram user ID allowed to use the bot (0 allows everyone)")
	rootCmd.PersistentFlags().String("catalog-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("catalog-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("catalog-redirect-url", "", "Spotify OAuth redirect URL")
	rootCmd.PersistentFlags().String("catalog-token-path", "", "path for the persisted OAuth token")
	rootCmd.PersistentFlags().String("lyrics-base-url", "", "lyrics provider base URL")
	rootCmd.PersistentFlags().String("llm-provider", "none", "LLM provider (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")
	rootCmd.PersistentFlags().String("llm-api-key", "", "LLM API key")
	rootCmd.PersistentFlags().String("llm-base-url", "", "LLM base URL override")
	rootCmd.PersistentFlags().Int("llm-search-rounds", 10, "maximum search agent rounds per request")
	rootCmd.PersistentFlags().String("store-path", "", "SQLite database path")
	rootCmd.PersistentFlags().Int("store-recent-days", 30, "recommendation repeat-avoidance window in days")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("target-songs", 15, "default playlist length")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("TUNESMITH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.AllowedUserID = viper.GetInt64("telegram-allowed-user-id")

	cfg.Catalog.ClientID = viper.GetString("catalog-client-id")
	cfg.Catalog.ClientSecret = viper.GetString("catalog-client-secret")
	if url := viper.GetString("catalog-redirect-url"); url != "" {
		cfg.Catalog.RedirectURL = url
	}
	if path := viper.GetString("catalog-token-path"); path != "" {
		cfg.Catalog.TokenPath = path
	}
	if url := viper.GetString("lyrics-base-url"); url != "" {
		cfg.Catalog.LyricsBaseURL = url
	}

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	if rounds := viper.GetInt("llm-search-rounds"); rounds > 0 {
		cfg.LLM.SearchRounds = rounds
	}

	if path := viper.GetString("store-path"); path != "" {
		cfg.Store.Path = path
	}
	if days := viper.GetInt("store-recent-days"); days > 0 {
		cfg.Store.RecentDays = days
	}

	if port := viper.GetInt("server-port"); port > 0 {
		cfg.Server.Port = port
	}

	cfg.Log.Level = viper.GetString("log-level")

	if target := viper.GetInt("target-songs"); target > 0 {
		cfg.App.DefaultTargetSongs = target
	}

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runTunesmith(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Tunesmith",
		zap.String("llm_provider", config.LLM.Provider),
		zap.String("store_path", config.Store.Path))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	db, err := store.Open(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	songCache := store.NewSongCache(db)
	profileStore := store.NewProfileStore(db)
	ledger := store.NewRecommendationLedger(db)

	catalogClient := catalog.NewClient(&config.Catalog, logger.Named("catalog"))
	if err := catalogClient.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with catalog: %w", err)
	}

	llmProvider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"))

	orchestrator := core.NewOrchestrator(
		config,
		catalogClient,
		llmProvider,
		songCache,
		profileStore,
		ledger,
		func() core.ExclusionSet { return store.NewExclusionSet(10000, 0.001) },
		httpServer,
		logger.Named("orchestrator"),
	)

	frontend := telegram.NewFrontend(&telegram.Config{
		BotToken:      config.Telegram.BotToken,
		AllowedUserID: config.Telegram.AllowedUserID,
	}, orchestrator, profileStore, logger.Named("telegram"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return frontend.Start(gCtx)
	})

	logger.Info("Tunesmith started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Tunesmith stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Tunesmith stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	if config.Catalog.ClientID == "" {
		return fmt.Errorf("catalog client ID is required")
	}

	if config.Catalog.ClientSecret == "" {
		return fmt.Errorf("catalog client secret is required")
	}

	if config.LLM.Provider != "none" && config.LLM.Provider != "" {
		if config.LLM.APIKey == "" && config.LLM.Provider != "ollama" {
			return fmt.Errorf("LLM API key is required for provider: %s", config.LLM.Provider)
		}
	}

	return nil
}
