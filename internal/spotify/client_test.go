package spotify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"aidj/internal/core"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(&core.SpotifyConfig{
		ClientID:    "id",
		RedirectURL: "http://127.0.0.1:8080/callback",
		TokenPath:   filepath.Join(t.TempDir(), "token.json"),
	}, zap.NewNop())
}

func TestClient_RequiresAuthentication(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if client.Authenticated() {
		t.Fatal("new client should not be authenticated")
	}

	calls := map[string]error{
		"search tracks": func() error { _, err := client.SearchTracks(ctx, "q", 1); return err }(),
		"devices":       func() error { _, err := client.GetDevices(ctx); return err }(),
		"queue":         func() error { _, err := client.GetQueue(ctx); return err }(),
		"play":          client.Play(ctx, "device", []string{"spotify:track:a"}),
		"add to queue":  client.AddToQueue(ctx, "spotify:track:a"),
		"pause":         client.Pause(ctx),
	}
	for name, err := range calls {
		if !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("%s: expected ErrNotAuthenticated, got %v", name, err)
		}
	}
}

func TestClient_UpdateTokenKeepsClient(t *testing.T) {
	client := newTestClient(t)

	client.UpdateToken(context.Background(), &oauth2.Token{
		AccessToken:  "first",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	})
	if !client.Authenticated() {
		t.Fatal("client should be authenticated after a token update")
	}
	first, _ := client.api()

	client.UpdateToken(context.Background(), &oauth2.Token{AccessToken: "second", Expiry: time.Now().Add(time.Hour)})
	second, _ := client.api()

	if first == second {
		t.Error("token update should install a new API client")
	}
}

func TestConvertTrack(t *testing.T) {
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:       "abc",
			Name:     "Blue in Green",
			URI:      "spotify:track:abc",
			Duration: 337000,
			Artists:  []spotify.SimpleArtist{{Name: "Miles Davis"}, {Name: "Bill Evans"}},
		},
		Album: spotify.SimpleAlbum{
			Name:   "Kind of Blue",
			Images: []spotify.Image{{URL: "https://img/1"}, {URL: ""}},
		},
		Popularity: 71,
	}

	track := convertTrack(full)

	if track.ID != "abc" || track.URI != "spotify:track:abc" || track.Type != core.TrackTypeTrack {
		t.Errorf("unexpected identity: %+v", track)
	}
	if track.PrimaryArtist() != "Miles Davis" || len(track.Artists) != 2 {
		t.Errorf("unexpected artists: %v", track.Artists)
	}
	if track.Popularity != 71 || track.Duration != 337*time.Second {
		t.Errorf("unexpected popularity/duration: %d %v", track.Popularity, track.Duration)
	}
	if len(track.AlbumImages) != 1 || track.Album != "Kind of Blue" {
		t.Errorf("unexpected album: %s %v", track.Album, track.AlbumImages)
	}
	if !track.IsPlayable() {
		t.Error("converted track should be playable")
	}
}

func TestConvertPlaylistItem(t *testing.T) {
	tests := []struct {
		name     string
		item     spotify.PlaylistItem
		playable bool
		kind     string
	}{
		{
			name: "track",
			item: spotify.PlaylistItem{Track: spotify.PlaylistItemTrack{Track: &spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{ID: "t1", URI: "spotify:track:t1"},
			}}},
			playable: true,
			kind:     core.TrackTypeTrack,
		},
		{
			name: "episode",
			item: spotify.PlaylistItem{Track: spotify.PlaylistItemTrack{Episode: &spotify.EpisodePage{
				ID: "e1", Name: "Show", URI: "spotify:episode:e1",
			}}},
			kind: "episode",
		},
		{
			name: "removed entry",
			item: spotify.PlaylistItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := convertPlaylistItem(&tt.item)
			if track.IsPlayable() != tt.playable {
				t.Errorf("IsPlayable() = %v, want %v", track.IsPlayable(), tt.playable)
			}
			if track.Type != tt.kind {
				t.Errorf("Type = %q, want %q", track.Type, tt.kind)
			}
		})
	}
}

func TestConvertPlayerState(t *testing.T) {
	if convertPlayerState(nil) != nil {
		t.Error("nil state should stay nil")
	}

	state := &spotify.PlayerState{
		CurrentlyPlaying: spotify.CurrentlyPlaying{
			Playing:  true,
			Progress: 1500,
			Item: &spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
				ID: "t1", URI: "spotify:track:t1", Duration: 3000,
			}},
		},
		Device:       spotify.PlayerDevice{ID: "d1", Name: "Speaker", Active: true},
		RepeatState:  RepeatStateOff,
		ShuffleState: false,
	}

	out := convertPlayerState(state)
	if !out.IsPlaying || out.Progress != 1500*time.Millisecond {
		t.Errorf("unexpected progress: %+v", out)
	}
	if out.Track == nil || out.Track.Duration != 3*time.Second {
		t.Errorf("unexpected track: %+v", out.Track)
	}
	if out.Device == nil || !out.Device.IsActive || out.Device.ID != "d1" {
		t.Errorf("unexpected device: %+v", out.Device)
	}
}

func TestURIHelpers(t *testing.T) {
	tests := []struct {
		uri     string
		kind    string
		trackID string
		isTrack bool
	}{
		{"spotify:track:abc", "track", "abc", true},
		{"spotify:episode:xyz", "episode", "", false},
		{"spotify:local:artist:album:title:120", "local", "", false},
		{"https://open.spotify.com/track/abc", "fallback", "", false},
		{"spotify:track:", "track", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := uriType(tt.uri, "fallback"); got != tt.kind {
				t.Errorf("uriType() = %q, want %q", got, tt.kind)
			}
			id, ok := trackIDFromURI(tt.uri)
			if ok != tt.isTrack || id != tt.trackID {
				t.Errorf("trackIDFromURI() = %q, %v", id, ok)
			}
		})
	}
}

func TestTokenSource_RefreshesAndSaves(t *testing.T) {
	original := &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "keep-me",
		Expiry:       time.Now().Add(2 * time.Minute),
	}

	var refreshedWith *oauth2.Token
	var saved []*oauth2.Token
	source := newTokenSource(context.Background(), original,
		func(_ context.Context, token *oauth2.Token) (*oauth2.Token, error) {
			refreshedWith = token
			return &oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)}, nil
		},
		func(token *oauth2.Token) { saved = append(saved, token) })

	token, err := source.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if refreshedWith.Valid() {
		t.Error("refresh should be forced even inside the early expiry window")
	}
	if token.AccessToken != "new" || token.RefreshToken != "keep-me" {
		t.Errorf("unexpected refreshed token: %+v", token)
	}
	if len(saved) != 1 || saved[0].AccessToken != "new" {
		t.Errorf("refreshed token should be saved once, got %d", len(saved))
	}
	if original.AccessToken != "old" {
		t.Error("the caller's token must not be modified")
	}
}

func TestTokenSource_RefreshFailure(t *testing.T) {
	source := newTokenSource(context.Background(), &oauth2.Token{AccessToken: "old"},
		func(context.Context, *oauth2.Token) (*oauth2.Token, error) { return nil, errors.New("revoked") },
		func(*oauth2.Token) { t.Error("a failed refresh must not be saved") })

	if _, err := source.Token(); err == nil {
		t.Error("expected refresh error")
	}
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	if _, err := loadToken(path); err == nil {
		t.Error("missing token file should fail")
	}

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := saveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	token, err := loadToken(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if token.AccessToken != "a" || token.RefreshToken != "r" || !token.Expiry.Equal(expiry) {
		t.Errorf("unexpected token: %+v", token)
	}
}
