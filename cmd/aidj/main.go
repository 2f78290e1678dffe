// Package main provides the aidj CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"aidj/internal/core"
	"aidj/internal/flood"
	httpserver "aidj/internal/http"
	"aidj/internal/i18n"
	"aidj/internal/llm"
	"aidj/internal/spotify"
	"aidj/internal/state"
)

const (
	envPrefix         = "AIDJ"
	defaultServerHost = "0.0.0.0"
	noneProvider      = "none"
	ollamaProvider    = "ollama"

	// shutdownGrace bounds how long closing waits for detached engine work.
	shutdownGrace = 5 * time.Second
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "aidj",
	Short: "aidj - schedule driven Spotify DJ",
	Long: `aidj turns a time-of-day schedule of musical intents into Spotify playback.
Describe what you want to hear, an LLM compiles it into a schedule, and the DJ
keeps the player in line with it: it resolves each slot into tracks, preloads
upcoming slots and keeps the queue topped up.`,
	RunE: runAIDJ,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-redirect-url", "", "Spotify OAuth redirect URL (default derived from server host and port)")
	flags.String("spotify-token-path", defaults.Spotify.TokenPath, "Path of the persisted Spotify token")
	flags.String("spotify-device-id", "", "Pin playback to this Spotify device ID")

	flags.String("llm-provider", defaults.LLM.Provider, "LLM provider (openai, anthropic, ollama, none)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("llm-api-key", "", "LLM API key")
	flags.String("llm-base-url", "", "LLM base URL (OpenAI compatible endpoints, Ollama host)")
	flags.String("llm-preference", "", "Personal music preferences passed with every schedule request")

	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")

	dj := defaults.DJ
	flags.Int("dj-preferred-popularity", dj.PreferredPopularity, "Minimum popularity of selected tracks")
	flags.Int("dj-relaxed-popularity", dj.RelaxedPopularity, "Popularity floor used when too few tracks pass")
	flags.Int("dj-min-viable-tracks", dj.MinViableTracks, "Tracks needed before the popularity floor is relaxed")
	flags.Int("dj-max-selected-tracks", dj.MaxSelectedTracks, "Maximum tracks started per slot")
	flags.Int("dj-track-search-limit", dj.TrackSearchLimit, "Tracks requested per search query")
	flags.Int("dj-playlist-search-limit", dj.PlaylistSearchLimit, "Playlists requested per search query")
	flags.Int("dj-playlist-track-limit", dj.PlaylistTrackLimit, "Tracks read from each playlist")
	flags.Bool("dj-only-official", dj.OnlyOfficial, "Log tracks whose artist does not appear in the query")
	flags.Duration("dj-preload-window", dj.PreloadWindow, "How long before a slot starts its tracks are preloaded")
	flags.Int("dj-refill-threshold", dj.RefillThreshold, "Queue length below which tracks are appended")
	flags.Int("dj-refill-batch-size", dj.RefillBatchSize, "Tracks appended per refill")
	flags.Duration("dj-tick-interval", dj.TickInterval, "Delay between reconciliation passes")
	flags.Duration("dj-fast-tick-interval", dj.FastTickInterval, "Delay between passes near the end of a track")
	flags.Int("dj-device-attempts", dj.DeviceAttempts, "Device discovery attempts before giving up")

	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Message language (%s)", supportedLangs))
	flags.String("state-path", defaults.App.StatePath, "Path of the persisted schedule and signature")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum schedule requests per client per minute")
	flags.Int("prompt-history-size", defaults.App.PromptHistorySize, "Number of past requests kept")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureSpotify(cfg)
	configureLLM(cfg)
	configureDJ(cfg)
	configureApp(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	cfg.Spotify.DeviceID = viper.GetString("spotify-device-id")
	if path := viper.GetString("spotify-token-path"); path != "" {
		cfg.Spotify.TokenPath = path
	}

	if cfg.Spotify.RedirectURL == "" {
		serverHost := cfg.Server.Host
		if serverHost == defaultServerHost {
			serverHost = "127.0.0.1"
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", serverHost, cfg.Server.Port)
	}
}

func configureLLM(cfg *core.Config) {
	cfg.LLM.Provider = strings.ToLower(viper.GetString("llm-provider"))
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	cfg.LLM.Preference = viper.GetString("llm-preference")
}

func configureDJ(cfg *core.Config) {
	dj := &cfg.DJ
	dj.PreferredPopularity = viper.GetInt("dj-preferred-popularity")
	dj.RelaxedPopularity = viper.GetInt("dj-relaxed-popularity")
	dj.MinViableTracks = positiveOr(viper.GetInt("dj-min-viable-tracks"), core.DefaultMinViableTracks)
	dj.MaxSelectedTracks = positiveOr(viper.GetInt("dj-max-selected-tracks"), core.DefaultMaxSelectedTracks)
	dj.TrackSearchLimit = positiveOr(viper.GetInt("dj-track-search-limit"), core.DefaultTrackSearchLimit)
	dj.PlaylistSearchLimit = positiveOr(viper.GetInt("dj-playlist-search-limit"), core.DefaultPlaylistSearchLimit)
	dj.PlaylistTrackLimit = positiveOr(viper.GetInt("dj-playlist-track-limit"), core.DefaultPlaylistTrackLimit)
	dj.OnlyOfficial = viper.GetBool("dj-only-official")
	dj.PreloadWindow = viper.GetDuration("dj-preload-window")
	dj.RefillThreshold = viper.GetInt("dj-refill-threshold")
	dj.RefillBatchSize = positiveOr(viper.GetInt("dj-refill-batch-size"), core.DefaultRefillBatchSize)
	dj.DeviceAttempts = positiveOr(viper.GetInt("dj-device-attempts"), core.DefaultDeviceAttempts)

	if interval := viper.GetDuration("dj-tick-interval"); interval > 0 {
		dj.TickInterval = interval
	}
	if interval := viper.GetDuration("dj-fast-tick-interval"); interval > 0 {
		dj.FastTickInterval = interval
	}
}

func configureApp(cfg *core.Config) {
	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	if path := viper.GetString("state-path"); path != "" {
		cfg.App.StatePath = path
	}
	cfg.App.FloodLimitPerMinute = positiveOr(viper.GetInt("flood-limit-per-minute"), core.DefaultFloodLimitPerMinute)
	cfg.App.PromptHistorySize = positiveOr(viper.GetInt("prompt-history-size"), core.DefaultPromptHistorySize)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func buildLogger(level, format string) *zap.Logger {
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
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runAIDJ(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting aidj",
		zap.String("llm_provider", config.LLM.Provider),
		zap.String("language", config.App.Language),
		zap.String("state_path", config.App.StatePath),
		zap.Bool("device_pinned", config.Spotify.DeviceID != ""))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

type services struct {
	engine     *core.Engine
	floodgate  *flood.Floodgate
	httpServer *httpserver.Server
}

func (s *services) close() {
	done := make(chan struct{})
	go func() {
		s.engine.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.Warn("Timed out waiting for background DJ work", zap.Duration("grace", shutdownGrace))
	}

	s.floodgate.Stop()
}

func initializeServices(ctx context.Context) (*services, error) {
	localizer := i18n.NewLocalizer(config.App.Language)

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	compiler, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	stateStore, err := state.Open(config.App.StatePath, config.App.PromptHistorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}

	metrics := httpserver.NewMetrics()

	engine := core.NewEngine(&config.DJ, core.EngineDeps{
		Catalog:    spotifyClient,
		Compiler:   compiler,
		Store:      stateStore,
		Metrics:    metrics,
		Localizer:  localizer,
		Preference: config.LLM.Preference,
	}, logger.Named("engine"))

	if err := engine.Restore(); err != nil {
		logger.Warn("Starting with an empty schedule", zap.Error(err))
	}
	if config.Spotify.DeviceID != "" {
		engine.SetActiveDevice(ctx, config.Spotify.DeviceID)
	}

	floodgate := flood.New(config.App.FloodLimitPerMinute)

	httpServer := httpserver.NewServer(&config.Server, httpserver.Deps{
		Controller: engine,
		Metrics:    metrics,
		Floodgate:  floodgate,
		Localizer:  localizer,
		Ready:      spotifyClient.Authenticated,
	}, logger.Named("http"))

	return &services{
		engine:     engine,
		floodgate:  floodgate,
		httpServer: httpServer,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.engine.Run(gCtx)
	})

	logger.Info("aidj started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
		zap.Duration("tick_interval", config.DJ.TickInterval))

	if err := g.Wait(); err != nil {
		logger.Error("aidj stopped with error", zap.Error(err))
		return err
	}

	logger.Info("aidj stopped gracefully")
	return nil
}

func validateConfig() error {
	if err := validateSpotifyConfig(); err != nil {
		return err
	}
	return validateLLMConfig()
}

func validateSpotifyConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}
	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}
	return nil
}

func validateLLMConfig() error {
	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		if config.LLM.APIKey == "" && config.LLM.Provider != ollamaProvider {
			return fmt.Errorf("LLM API key is required for provider: %s", config.LLM.Provider)
		}
	}
	return nil
}
