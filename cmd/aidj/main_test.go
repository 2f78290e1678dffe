package main

import (
	"strings"
	"testing"

	"aidj/internal/core"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"log-level", "AIDJ_LOG_LEVEL"},
		{"spotify-client-id", "AIDJ_SPOTIFY_CLIENT_ID"},
		{"dj-preload-window", "AIDJ_DJ_PRELOAD_WINDOW"},
		{"language", "AIDJ_LANGUAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if got := flagToEnvVar(tt.flag); got != tt.want {
				t.Errorf("flagToEnvVar(%q) = %q, expected %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestEnvSectionsReferenceRegisteredFlags(t *testing.T) {
	for _, section := range envSections {
		for _, name := range section.flags {
			if rootCmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("section %q lists unknown flag %q", section.title, name)
			}
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, want := range []string{
		"# aidj Configuration",
		"AIDJ_SPOTIFY_CLIENT_ID=",
		"AIDJ_LLM_PROVIDER=none",
		"AIDJ_DJ_PRELOAD_WINDOW=1m0s",
		"AIDJ_DJ_REFILL_THRESHOLD=2",
		"AIDJ_SERVER_PORT=8080",
		"AIDJ_LOG_LEVEL=info",
		"QUICK SETUP GUIDE",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("env example missing %q", want)
		}
	}
}

func TestPositiveOr(t *testing.T) {
	tests := []struct {
		value, fallback, want int
	}{
		{5, 1, 5},
		{0, 3, 3},
		{-2, 3, 3},
	}

	for _, tt := range tests {
		if got := positiveOr(tt.value, tt.fallback); got != tt.want {
			t.Errorf("positiveOr(%d, %d) = %d, expected %d", tt.value, tt.fallback, got, tt.want)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		level, format string
		debugEnabled  bool
	}{
		{"debug", "json", true},
		{"info", "json", false},
		{"warn", "console", false},
		{"bogus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger := buildLogger(tt.level, tt.format)
			if logger == nil {
				t.Fatal("buildLogger() returned nil")
			}
			if got := logger.Core().Enabled(-1); got != tt.debugEnabled {
				t.Errorf("debug enabled = %v, expected %v", got, tt.debugEnabled)
			}
		})
	}
}

func TestValidateLLMConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  bool
	}{
		{"none", "none", "", false},
		{"empty", "", "", false},
		{"ollama without key", "ollama", "", false},
		{"openai without key", "openai", "", true},
		{"anthropic with key", "anthropic", "sk-test", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config = core.DefaultConfig()
			config.LLM.Provider = tt.provider
			config.LLM.APIKey = tt.apiKey

			err := validateLLMConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLLMConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
