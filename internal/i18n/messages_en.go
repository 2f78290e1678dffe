package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.generic":              "Something went wrong. Please try again.",
	"error.device.none":          "No active device found after retries. Please open Spotify.",
	"error.playback.failed":      "Playback failed: %s",
	"error.request.empty":        "Tell me what you want to listen to.",
	"error.request.rate_limited": "Too many requests. Please wait a moment and try again.",
	"error.compiler.none":        "Schedule generation is not configured.",
	"error.schedule.empty":       "I couldn't build a schedule from that. Please try rephrasing your request.",
	"error.schedule.index":       "There is no schedule entry at position %d.",
	"error.schedule.invalid":     "The schedule contains no usable entries.",
	"error.player.action":        "Unknown player action: %s",

	// Success messages
	"success.schedule.created": "Schedule ready with %d blocks.",
	"success.schedule.updated": "Schedule updated with %d blocks.",
	"success.schedule.removed": "Removed schedule entry %d.",
	"success.device.selected":  "Playback moved to device %s.",
	"success.player.action":    "Done: %s",

	// Format helpers
	"format.block": "%s-%s %s",
}
