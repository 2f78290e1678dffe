package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNoDevice is returned when no playback device could be resolved.
	ErrNoDevice = errors.New("no playback device available")
	// ErrNoCompiler is returned when schedule generation is requested without an intent compiler.
	ErrNoCompiler = errors.New("no intent compiler configured")
	// ErrIndexOutOfRange is returned for schedule or queue positions that do not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
)

const (
	// TrackTypeTrack marks a music track; other catalog entries (episodes, local files) carry a different type.
	TrackTypeTrack = "track"

	// SourceSearch and SourcePreload label where a transition got its tracks from.
	SourceSearch  = "search"
	SourcePreload = "preload"
)

// Track is a catalog track. ContextName records provenance for display only
// and never takes part in identity.
type Track struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Artists     []string      `json:"artists"`
	Album       string        `json:"album,omitempty"`
	AlbumImages []string      `json:"albumImages,omitempty"`
	Popularity  int           `json:"popularity"`
	URI         string        `json:"uri"`
	Duration    time.Duration `json:"duration"`
	Type        string        `json:"type"`
	ContextName string        `json:"contextName,omitempty"`
}

// PrimaryArtist returns the first listed artist or an empty string.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// IsPlayable reports whether the entry is a music track that can be sent to the player.
func (t Track) IsPlayable() bool {
	return t.Type == TrackTypeTrack && t.ID != "" && t.URI != ""
}

type Playlist struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
}

type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"isActive"`
}

type PlaybackState struct {
	IsPlaying     bool          `json:"isPlaying"`
	Progress      time.Duration `json:"progress"`
	Track         *Track        `json:"track,omitempty"`
	Device        *Device       `json:"device,omitempty"`
	ShuffleState  bool          `json:"shuffleState"`
	RepeatState   string        `json:"repeatState"`
	ContextURI    string        `json:"contextUri,omitempty"`
	TimestampUnix int64         `json:"timestamp"`
}

// ScheduleItem is one time-ranged intent. Start and End are HH:MM local wall
// clock times bounding the half-open range [Start, End); Start after End
// denotes a range crossing midnight.
type ScheduleItem struct {
	Start         string   `json:"start" yaml:"start"`
	End           string   `json:"end" yaml:"end"`
	Queries       []string `json:"queries" yaml:"queries"`
	PriorityTrack string   `json:"priorityTrack,omitempty" yaml:"priority_track,omitempty"`
	Thought       string   `json:"thought,omitempty" yaml:"thought,omitempty"`
}

type signatureKey struct {
	Queries  []string `json:"q"`
	Priority string   `json:"p,omitempty"`
}

// Signature identifies the intent for change detection. It depends only on
// the queries and the priority track, and is empty when there are no queries.
func (s ScheduleItem) Signature() string {
	if len(s.Queries) == 0 {
		return ""
	}
	encoded, err := json.Marshal(signatureKey{Queries: s.Queries, Priority: s.PriorityTrack})
	if err != nil {
		return ""
	}
	return string(encoded)
}

// Status is the read-only snapshot exposed to operators.
type Status struct {
	CurrentItem   *ScheduleItem `json:"currentScheduleItem"`
	Signature     string        `json:"currentQuery"`
	Config        DJConfig      `json:"config"`
	ScheduleSize  int           `json:"scheduleSize"`
	PreloadedFor  string        `json:"preloadedFor,omitempty"`
	PlayedInSlot  int           `json:"playedInSession"`
	PinnedDevice  string        `json:"pinnedDevice,omitempty"`
	LastTickError string        `json:"lastTickError,omitempty"`
}

// StateSnapshot is what survives a restart.
type StateSnapshot struct {
	Schedule      []ScheduleItem
	LastSignature string
	History       []string
}

// CatalogClient is the remote catalog and playback service. Transport calls
// treat an empty success response as success.
type CatalogClient interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)
	SearchPlaylists(ctx context.Context, query string, limit int) ([]Playlist, error)
	// GetPlaylistTracks returns raw playlist entries; non-track entries keep
	// their own Type and null entries come back with an empty ID.
	GetPlaylistTracks(ctx context.Context, playlistID string, limit int) ([]Track, error)
	GetPlaybackState(ctx context.Context) (*PlaybackState, error)
	GetDevices(ctx context.Context) ([]Device, error)
	GetQueue(ctx context.Context) ([]Track, error)
	Play(ctx context.Context, deviceID string, uris []string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetShuffle(ctx context.Context, deviceID string, enabled bool) error
	SetRepeat(ctx context.Context, deviceID string, mode string) error
	TransferPlayback(ctx context.Context, deviceID string) error
	AddToQueue(ctx context.Context, uri string) error
}

// IntentCompiler turns a natural-language request into schedule items.
type IntentCompiler interface {
	GenerateSchedule(ctx context.Context, request string, current []ScheduleItem, preference string) ([]ScheduleItem, error)
}

// StateStore persists engine state between runs.
type StateStore interface {
	Load() (*StateSnapshot, error)
	SaveSchedule(items []ScheduleItem) error
	SaveSignature(signature string) error
	ClearSignature() error
	AppendHistory(request string) error
}

// PlayedSet remembers track URIs surfaced in the current session.
type PlayedSet interface {
	Has(uri string) bool
	Add(uri string)
	Clear()
	Size() int
}

// Metrics receives engine events.
type Metrics interface {
	RecordTick()
	RecordTransition(source string)
	RecordPlaybackFailure()
	RecordSearchFailure(kind string)
	RecordPreload(outcome string)
	RecordRefill(added int)
	SetScheduleSize(size int)
}

type noopMetrics struct{}

func (noopMetrics) RecordTick() {}
func (noopMetrics) RecordTransition(string) {}
func (noopMetrics) RecordPlaybackFailure() {}
func (noopMetrics) RecordSearchFailure(string) {}
func (noopMetrics) RecordPreload(string) {}
func (noopMetrics) RecordRefill(int) {}
func (noopMetrics) SetScheduleSize(int) {}
