package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const envExampleFile = ".env.example"

type envSection struct {
	title string
	flags []string
}

var envSections = []envSection{
	{"Spotify (required)", []string{
		"spotify-client-id", "spotify-client-secret", "spotify-redirect-url",
		"spotify-token-path", "spotify-device-id",
	}},
	{"LLM schedule compiler", []string{
		"llm-provider", "llm-model", "llm-api-key", "llm-base-url", "llm-preference",
	}},
	{"DJ tuning", []string{
		"dj-preferred-popularity", "dj-relaxed-popularity", "dj-min-viable-tracks",
		"dj-max-selected-tracks", "dj-track-search-limit", "dj-playlist-search-limit",
		"dj-playlist-track-limit", "dj-only-official", "dj-preload-window",
		"dj-refill-threshold", "dj-refill-batch-size", "dj-tick-interval",
		"dj-fast-tick-interval", "dj-device-attempts",
	}},
	{"Application", []string{
		"language", "state-path", "flood-limit-per-minute", "prompt-history-size",
	}},
	{"HTTP server", []string{"server-host", "server-port"}},
	{"Logging", []string{"log-level", "log-format"}},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(envExampleFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envExampleFile, err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	writeRule(&content, "=")
	content.WriteString("# aidj Configuration\n")
	writeRule(&content, "=")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		writeEnvSection(&content, cmd, section)
	}

	writeSetupGuide(&content)
	return content.String()
}

func writeEnvSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	writeRule(content, "-")
	fmt.Fprintf(content, "# %s\n", section.title)
	writeRule(content, "-")

	for _, name := range section.flags {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			continue
		}
		fmt.Fprintf(content, "# %s\n", flag.Usage)
		fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(name), flag.DefValue)
	}
	content.WriteString("\n")
}

func writeRule(content *strings.Builder, char string) {
	content.WriteString("# " + strings.Repeat(char, 77) + "\n")
}

func writeSetupGuide(content *strings.Builder) {
	writeRule(content, "=")
	content.WriteString("# QUICK SETUP GUIDE\n")
	writeRule(content, "=")
	content.WriteString("#\n")
	content.WriteString("# 1. SPOTIFY: create an app at https://developer.spotify.com/dashboard, add the\n")
	content.WriteString("#    redirect URI http://127.0.0.1:8080/callback and copy the client ID and secret.\n")
	content.WriteString("#    Playback control requires Spotify Premium and an open Spotify client.\n")
	content.WriteString("# 2. LLM: pick openai, anthropic or ollama and set the API key (not needed for\n")
	content.WriteString("#    ollama). With provider none, schedules can only be set through PUT /api/schedule.\n")
	content.WriteString("# 3. RUN: go run ./cmd/aidj --log-level=debug --log-format=console\n")
	content.WriteString("# 4. ASK: curl -X POST localhost:8080/api/requests -d '{\"request\":\"jazz until noon\"}'\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
