package i18n

import (
	"regexp"
	"slices"
	"strings"
	"testing"
)

var verbPattern = regexp.MustCompile(`%[sdv]`)

func TestCatalogsShareKeys(t *testing.T) {
	for _, lang := range GetSupportedLanguages() {
		messages := getMessages(lang)
		for key := range englishMessages {
			if _, ok := messages[key]; !ok {
				t.Errorf("%s: missing %q", lang, key)
			}
		}
		for key := range messages {
			if _, ok := englishMessages[key]; !ok {
				t.Errorf("%s: %q has no English source", lang, key)
			}
		}
	}
}

// Translations may reword a message but must consume the same arguments in
// the same order, otherwise fmt renders %!d(string=...) into the process log.
func TestCatalogsKeepFormatVerbs(t *testing.T) {
	for key, english := range englishMessages {
		want := verbPattern.FindAllString(english, -1)
		got := verbPattern.FindAllString(japaneseMessages[key], -1)
		if !slices.Equal(got, want) {
			t.Errorf("%q: ja verbs %v, en verbs %v", key, got, want)
		}
	}
}

func TestLocalizer_T(t *testing.T) {
	tests := []struct {
		name     string
		language string
		key      string
		args     []interface{}
		want     string
	}{
		{
			name:     "schedule created",
			language: DefaultLanguage,
			key:      "success.schedule.created",
			args:     []interface{}{4},
			want:     "Schedule ready with 4 blocks.",
		},
		{
			name:     "schedule created in Japanese",
			language: JapaneseMessages,
			key:      "success.schedule.created",
			args:     []interface{}{4},
			want:     "4 件のブロックでスケジュールを作成しました。",
		},
		{
			name:     "index out of range",
			language: DefaultLanguage,
			key:      "error.schedule.index",
			args:     []interface{}{7},
			want:     "There is no schedule entry at position 7.",
		},
		{
			name:     "block line",
			language: JapaneseMessages,
			key:      "format.block",
			args:     []interface{}{"09:00", "12:00", "focus"},
			want:     "09:00-12:00 focus",
		},
		{
			name:     "playback failure keeps the cause",
			language: DefaultLanguage,
			key:      "error.playback.failed",
			args:     []interface{}{"device offline"},
			want:     "Playback failed: device offline",
		},
		{
			name:     "unknown language uses English",
			language: "de",
			key:      "error.request.empty",
			want:     "Tell me what you want to listen to.",
		},
		{
			name:     "unknown key is returned as is",
			language: JapaneseMessages,
			key:      "error.schedule.missing",
			want:     "error.schedule.missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLocalizer(tt.language).T(tt.key, tt.args...)
			if got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLocalizer_NoDeviceMessage(t *testing.T) {
	en := NewLocalizer(DefaultLanguage).T("error.device.none")
	ja := NewLocalizer(JapaneseMessages).T("error.device.none")

	if !strings.Contains(en, "Spotify") || !strings.Contains(ja, "Spotify") {
		t.Errorf("both messages should point at Spotify: en=%q ja=%q", en, ja)
	}
	if en == ja {
		t.Error("Japanese no-device message should be translated")
	}
}

func TestLocalizer_MissingTranslationFallsBackToEnglish(t *testing.T) {
	localizer := &Localizer{language: JapaneseMessages, messages: map[string]string{}}

	got := localizer.T("error.schedule.index", 2)
	if got != "There is no schedule entry at position 2." {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestLocalizer_Language(t *testing.T) {
	if got := NewLocalizer("de").Language(); got != "de" {
		t.Errorf("Language() = %q, want the requested code", got)
	}
}

func TestIsSupported(t *testing.T) {
	for _, lang := range []string{DefaultLanguage, JapaneseMessages} {
		if !IsSupported(lang) {
			t.Errorf("%s should be supported", lang)
		}
	}
	for _, lang := range []string{"", "de", "EN"} {
		if IsSupported(lang) {
			t.Errorf("%q should not be supported", lang)
		}
	}
}

func BenchmarkLocalizer_FormatBlock(b *testing.B) {
	localizer := NewLocalizer(JapaneseMessages)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = localizer.T("format.block", "09:00", "12:00", "morning jazz")
	}
}
