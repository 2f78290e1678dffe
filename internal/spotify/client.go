// Package spotify adapts the Spotify Web API to the catalog and playback
// interface the DJ engine drives.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"

	"aidj/internal/core"
)

// ErrNotAuthenticated is returned by every call made before a token is installed.
var ErrNotAuthenticated = errors.New("spotify client not authenticated")

// Client implements core.CatalogClient. The underlying API client can be
// swapped at any time through UpdateToken; callers keep their reference.
type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	auth   *spotifyauth.Authenticator

	mu     sync.RWMutex
	client *spotify.Client
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopePlaylistReadPrivate,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

func (c *Client) api() (*spotify.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return nil, ErrNotAuthenticated
	}
	return c.client, nil
}

func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]core.Track, error) {
	client, err := c.api()
	if err != nil {
		return nil, err
	}

	results, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("track search failed: %w", err)
	}
	if results.Tracks == nil {
		return []core.Track{}, nil
	}

	tracks := make([]core.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, convertTrack(&results.Tracks.Tracks[i]))
	}
	return tracks, nil
}

func (c *Client) SearchPlaylists(ctx context.Context, query string, limit int) ([]core.Playlist, error) {
	client, err := c.api()
	if err != nil {
		return nil, err
	}

	results, err := client.Search(ctx, query, spotify.SearchTypePlaylist, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("playlist search failed: %w", err)
	}
	if results.Playlists == nil {
		return []core.Playlist{}, nil
	}

	playlists := make([]core.Playlist, 0, len(results.Playlists.Playlists))
	for i := range results.Playlists.Playlists {
		playlists = append(playlists, convertPlaylist(&results.Playlists.Playlists[i]))
	}
	return playlists, nil
}

// GetPlaylistTracks returns the first limit entries of a playlist. Episodes
// keep their own type and removed entries come back without an ID so the
// caller can filter them.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string, limit int) ([]core.Track, error) {
	client, err := c.api()
	if err != nil {
		return nil, err
	}

	page, err := client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	tracks := make([]core.Track, 0, len(page.Items))
	for i := range page.Items {
		tracks = append(tracks, convertPlaylistItem(&page.Items[i]))
	}

	c.logger.Debug("Retrieved playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(tracks)))
	return tracks, nil
}

func (c *Client) GetPlaybackState(ctx context.Context) (*core.PlaybackState, error) {
	client, err := c.api()
	if err != nil {
		return nil, err
	}

	state, err := client.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get player state: %w", err)
	}
	return convertPlayerState(state), nil
}

func (c *Client) GetDevices(ctx context.Context) ([]core.Device, error) {
	client, err := c.api()
	if err != nil {
		return nil, err
	}

	devices, err := client.PlayerDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get player devices: %w", err)
	}

	out := make([]core.Device, 0, len(devices))
	for i := range devices {
		out = append(out, convertDevice(&devices[i]))
	}
	return out, nil
}

func (c *Client) GetQueue(ctx context.Context) ([]core.Track, error) {
	client, err := c.api()
	if err != nil {
		return nil, err
	}

	queue, err := client.GetQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user queue: %w", err)
	}

	tracks := make([]core.Track, 0, len(queue.Items))
	for i := range queue.Items {
		tracks = append(tracks, convertTrack(&queue.Items[i]))
	}
	return tracks, nil
}

// Play replaces the player context with uris, in order, on deviceID.
func (c *Client) Play(ctx context.Context, deviceID string, uris []string) error {
	client, err := c.api()
	if err != nil {
		return err
	}

	opts := deviceOptions(deviceID)
	opts.URIs = make([]spotify.URI, 0, len(uris))
	for _, uri := range uris {
		opts.URIs = append(opts.URIs, spotify.URI(uri))
	}

	if err := client.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	c.logger.Info("Playback started",
		zap.String("deviceID", deviceID),
		zap.Int("tracks", len(uris)))
	return nil
}

func (c *Client) Pause(ctx context.Context) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if err := client.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

func (c *Client) Resume(ctx context.Context) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if err := client.Play(ctx); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

func (c *Client) Next(ctx context.Context) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if err := client.Next(ctx); err != nil {
		return fmt.Errorf("failed to skip to next track: %w", err)
	}
	return nil
}

func (c *Client) Previous(ctx context.Context) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if err := client.Previous(ctx); err != nil {
		return fmt.Errorf("failed to skip to previous track: %w", err)
	}
	return nil
}

func (c *Client) SetShuffle(ctx context.Context, deviceID string, enabled bool) error {
	client, err := c.api()
	if err != nil {
		return err
	}

	if err := client.ShuffleOpt(ctx, enabled, deviceOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to set shuffle to %t: %w", enabled, err)
	}

	c.logger.Debug("Set Spotify shuffle", zap.Bool("shuffle", enabled))
	return nil
}

// SetRepeat sets the repeat mode; mode is one of "track", "context" or "off".
func (c *Client) SetRepeat(ctx context.Context, deviceID, mode string) error {
	client, err := c.api()
	if err != nil {
		return err
	}

	switch mode {
	case RepeatStateTrack, RepeatStateContext, RepeatStateOff:
	default:
		return fmt.Errorf("invalid repeat state: %s (must be 'track', 'context', or 'off')", mode)
	}

	if err := client.RepeatOpt(ctx, mode, deviceOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to set repeat to %s: %w", mode, err)
	}

	c.logger.Debug("Set Spotify repeat", zap.String("state", mode))
	return nil
}

// TransferPlayback moves playback to deviceID and keeps it playing.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if err := client.TransferPlayback(ctx, spotify.ID(deviceID), true); err != nil {
		return fmt.Errorf("failed to transfer playback to %s: %w", deviceID, err)
	}
	return nil
}

func (c *Client) AddToQueue(ctx context.Context, uri string) error {
	client, err := c.api()
	if err != nil {
		return err
	}

	trackID, ok := trackIDFromURI(uri)
	if !ok {
		return fmt.Errorf("not a track uri: %s", uri)
	}

	if err := client.QueueSong(ctx, spotify.ID(trackID)); err != nil {
		return fmt.Errorf("failed to add track to queue: %w", err)
	}

	c.logger.Debug("Track added to queue", zap.String("uri", uri))
	return nil
}

func deviceOptions(deviceID string) *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opts.DeviceID = &id
	}
	return opts
}
