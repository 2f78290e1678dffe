package spotify

import (
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"

	"aidj/internal/core"
)

const (
	// RepeatStateTrack represents the "track" repeat state
	RepeatStateTrack = "track"
	// RepeatStateOff represents the "off" repeat state
	RepeatStateOff = "off"
	// RepeatStateContext represents the "context" repeat state
	RepeatStateContext = "context"

	uriPrefix = "spotify:"
)

func convertTrack(track *spotify.FullTrack) core.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	var images []string
	for _, image := range track.Album.Images {
		if image.URL != "" {
			images = append(images, image.URL)
		}
	}

	uri := string(track.URI)
	return core.Track{
		ID:          string(track.ID),
		Name:        track.Name,
		Artists:     artists,
		Album:       track.Album.Name,
		AlbumImages: images,
		Popularity:  int(track.Popularity),
		URI:         uri,
		Duration:    time.Duration(track.Duration) * time.Millisecond,
		Type:        uriType(uri, core.TrackTypeTrack),
	}
}

// convertPlaylistItem maps a playlist entry. Episodes keep the episode type;
// entries whose track was removed from the catalog come back empty.
func convertPlaylistItem(item *spotify.PlaylistItem) core.Track {
	switch {
	case item.Track.Track != nil:
		return convertTrack(item.Track.Track)
	case item.Track.Episode != nil:
		episode := item.Track.Episode
		uri := string(episode.URI)
		return core.Track{
			ID:   string(episode.ID),
			Name: episode.Name,
			URI:  uri,
			Type: uriType(uri, "episode"),
		}
	default:
		return core.Track{}
	}
}

func convertPlaylist(playlist *spotify.SimplePlaylist) core.Playlist {
	return core.Playlist{
		ID:         string(playlist.ID),
		Name:       playlist.Name,
		Owner:      playlist.Owner.DisplayName,
		TrackCount: int(playlist.Tracks.Total), //nolint:gosec // Spotify playlist counts are reasonable for int conversion
	}
}

func convertDevice(device *spotify.PlayerDevice) core.Device {
	return core.Device{
		ID:       string(device.ID),
		Name:     device.Name,
		Type:     device.Type,
		IsActive: device.Active,
	}
}

// convertPlayerState returns nil when nothing is loaded on any device.
func convertPlayerState(state *spotify.PlayerState) *core.PlaybackState {
	if state == nil {
		return nil
	}

	out := &core.PlaybackState{
		IsPlaying:     state.Playing,
		Progress:      time.Duration(state.Progress) * time.Millisecond,
		ShuffleState:  state.ShuffleState,
		RepeatState:   state.RepeatState,
		ContextURI:    string(state.PlaybackContext.URI),
		TimestampUnix: int64(state.Timestamp),
	}
	if state.Item != nil {
		track := convertTrack(state.Item)
		out.Track = &track
	}
	if state.Device.ID != "" {
		device := convertDevice(&state.Device)
		out.Device = &device
	}
	return out
}

// uriType returns the entity kind of a "spotify:<kind>:<id>" URI, or
// fallback when the URI does not have that shape.
func uriType(uri, fallback string) string {
	rest, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok {
		return fallback
	}
	kind, _, found := strings.Cut(rest, ":")
	if !found || kind == "" {
		return fallback
	}
	return kind
}

func trackIDFromURI(uri string) (string, bool) {
	id, ok := strings.CutPrefix(uri, uriPrefix+core.TrackTypeTrack+":")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
