package core

import (
	"time"

	"aidj/internal/i18n"
)

// Configuration defaults.
const (
	DefaultServerPort          = 8080
	DefaultFloodLimitPerMinute = 6
	DefaultLLMProvider         = "none"

	DefaultPreferredPopularity = 15
	DefaultRelaxedPopularity   = 5
	DefaultMinViableTracks     = 5
	DefaultMaxSelectedTracks   = 40
	DefaultTrackSearchLimit    = 40
	DefaultPlaylistSearchLimit = 2
	DefaultPlaylistTrackLimit  = 20
	DefaultRefillThreshold     = 2
	DefaultRefillBatchSize     = 5
	DefaultDeviceAttempts      = 3
	DefaultProcessLogSize      = 100
	DefaultPromptHistorySize   = 50

	DefaultPreloadWindow       = 60 * time.Second
	DefaultRefillAppendDelay   = 300 * time.Millisecond
	DefaultTickInterval        = 5 * time.Second
	DefaultFastTickInterval    = time.Second
	DefaultFastTickThreshold   = 10 * time.Second
	DefaultDeviceRetryDelay    = time.Second
	DefaultRepeatOffDelay      = 500 * time.Millisecond
	DefaultTokenRefreshEarly   = 5 * time.Minute
	DefaultRequestReadTimeout  = 10 * time.Second
	DefaultRequestWriteTimeout = 60 * time.Second
)

type Config struct {
	Spotify SpotifyConfig
	LLM     LLMConfig
	Server  ServerConfig
	Log     LogConfig
	DJ      DJConfig
	App     AppConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
	// DeviceID pins playback to one device and skips device discovery.
	DeviceID string
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Preference is free text describing the listener's taste, passed to
	// every schedule generation request.
	Preference string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DJConfig holds the tuning of the search pipeline and the reconciliation loop.
type DJConfig struct {
	PreferredPopularity int  `json:"preferredPopularity"`
	RelaxedPopularity   int  `json:"relaxedPopularity"`
	MinViableTracks     int  `json:"minViableTracks"`
	MaxSelectedTracks   int  `json:"maxSelectedTracks"`
	TrackSearchLimit    int  `json:"trackSearchLimit"`
	PlaylistSearchLimit int  `json:"playlistSearchLimit"`
	PlaylistTrackLimit  int  `json:"playlistTrackLimit"`
	OnlyOfficial        bool `json:"onlyOfficial"`

	PreloadWindow     time.Duration `json:"preloadWindow"`
	RefillThreshold   int           `json:"refillThreshold"`
	RefillBatchSize   int           `json:"refillBatchSize"`
	RefillAppendDelay time.Duration `json:"refillAppendDelay"`

	TickInterval      time.Duration `json:"tickInterval"`
	FastTickInterval  time.Duration `json:"fastTickInterval"`
	FastTickThreshold time.Duration `json:"fastTickThreshold"`

	DeviceAttempts   int           `json:"deviceAttempts"`
	DeviceRetryDelay time.Duration `json:"deviceRetryDelay"`
	RepeatOffDelay   time.Duration `json:"repeatOffDelay"`

	ProcessLogSize int `json:"processLogSize"`
}

type AppConfig struct {
	Language            string
	StatePath           string
	FloodLimitPerMinute int
	PromptHistorySize   int
}

// DefaultDJConfig returns the tuning used when nothing is overridden.
func DefaultDJConfig() DJConfig {
	return DJConfig{
		PreferredPopularity: DefaultPreferredPopularity,
		RelaxedPopularity:   DefaultRelaxedPopularity,
		MinViableTracks:     DefaultMinViableTracks,
		MaxSelectedTracks:   DefaultMaxSelectedTracks,
		TrackSearchLimit:    DefaultTrackSearchLimit,
		PlaylistSearchLimit: DefaultPlaylistSearchLimit,
		PlaylistTrackLimit:  DefaultPlaylistTrackLimit,
		PreloadWindow:       DefaultPreloadWindow,
		RefillThreshold:     DefaultRefillThreshold,
		RefillBatchSize:     DefaultRefillBatchSize,
		RefillAppendDelay:   DefaultRefillAppendDelay,
		TickInterval:        DefaultTickInterval,
		FastTickInterval:    DefaultFastTickInterval,
		FastTickThreshold:   DefaultFastTickThreshold,
		DeviceAttempts:      DefaultDeviceAttempts,
		DeviceRetryDelay:    DefaultDeviceRetryDelay,
		RepeatOffDelay:      DefaultRepeatOffDelay,
		ProcessLogSize:      DefaultProcessLogSize,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8080/callback",
			TokenPath:   "./spotify_token.json",
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  DefaultRequestReadTimeout,
			WriteTimeout: DefaultRequestWriteTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		DJ: DefaultDJConfig(),
		App: AppConfig{
			Language:            i18n.DefaultLanguage,
			StatePath:           "./aidj_state.yaml",
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
			PromptHistorySize:   DefaultPromptHistorySize,
		},
	}
}

// NextTickDelay returns how long the loop waits before the next pass. The
// cadence tightens near the end of a playing track so slot boundaries are
// caught close to the moment the track changes.
func (c *DJConfig) NextTickDelay(state *PlaybackState) time.Duration {
	if state == nil || !state.IsPlaying || state.Track == nil {
		return c.TickInterval
	}

	remaining := state.Track.Duration - state.Progress
	if remaining < c.FastTickThreshold {
		return c.FastTickInterval
	}
	return c.TickInterval
}
