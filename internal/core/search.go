package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aidj/internal/processlog"
)

const officialOwnerFilter = "owner:spotify "

// Search failure kinds reported to metrics.
const (
	failureTrackSearch    = "track"
	failurePlaylistSearch = "playlist"
	failurePlaylistTracks = "playlist_tracks"
	failurePriority       = "priority"
)

var quotedArtistRegex = regexp.MustCompile(`["']([^"']+)["']`)

// SearchResult is the raw pooled output of one aggregated search. Tracks is
// not deduplicated.
type SearchResult struct {
	Tracks   []Track
	Priority *Track
}

// Empty reports whether the search produced nothing usable.
func (r SearchResult) Empty() bool {
	return len(r.Tracks) == 0 && r.Priority == nil
}

// Aggregator fans a set of queries out to the catalog and pools the results.
type Aggregator struct {
	catalog CatalogClient
	config  *DJConfig
	trail   *processlog.Buffer
	metrics Metrics
	logger  *zap.Logger
	shuffle func(n int, swap func(i, j int))
}

func NewAggregator(catalog CatalogClient, config *DJConfig, trail *processlog.Buffer,
	metrics Metrics, logger *zap.Logger) *Aggregator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Aggregator{
		catalog: catalog,
		config:  config,
		trail:   trail,
		metrics: metrics,
		logger:  logger,
		shuffle: rand.Shuffle,
	}
}

// Search resolves the priority track (if any) and then runs every query
// concurrently. A failing query or sub-lookup only loses its own results.
func (a *Aggregator) Search(ctx context.Context, queries []string, priorityTrack string) SearchResult {
	var result SearchResult

	if priorityTrack != "" {
		result.Priority = a.lookupPriority(ctx, priorityTrack)
	}

	perQuery := make([][]Track, len(queries))
	var g errgroup.Group
	for i, query := range queries {
		g.Go(func() error {
			perQuery[i] = a.searchQuery(ctx, query)
			return nil
		})
	}
	_ = g.Wait()

	for _, tracks := range perQuery {
		result.Tracks = append(result.Tracks, tracks...)
	}

	a.shuffle(len(result.Tracks), func(i, j int) {
		result.Tracks[i], result.Tracks[j] = result.Tracks[j], result.Tracks[i]
	})

	return result
}

func (a *Aggregator) lookupPriority(ctx context.Context, priorityTrack string) *Track {
	tracks, err := a.catalog.SearchTracks(ctx, CleanQuery(priorityTrack), 1)
	if err != nil {
		a.metrics.RecordSearchFailure(failurePriority)
		a.logger.Warn("Priority track lookup failed",
			zap.String("priority_track", priorityTrack), zap.Error(err))
		a.trail.Addf("⚠️ Priority track lookup failed for %q", priorityTrack)
		return nil
	}

	for _, track := range tracks {
		if track.IsPlayable() {
			a.trail.Addf("⭐ Priority track: %s (%s)", track.Name, track.PrimaryArtist())
			return &track
		}
	}

	a.trail.Addf("⚠️ Priority track not found: %q", priorityTrack)
	return nil
}

func (a *Aggregator) searchQuery(ctx context.Context, query string) []Track {
	cleaned := CleanQuery(query)
	if cleaned == "" {
		return nil
	}
	searchQuery := cleaned
	if a.config.OnlyOfficial {
		searchQuery = officialOwnerFilter + cleaned
	}

	var fromSearch, fromPlaylist []Track
	var g errgroup.Group
	g.Go(func() error {
		fromSearch = a.searchTracks(ctx, searchQuery)
		return nil
	})
	g.Go(func() error {
		fromPlaylist = a.searchPlaylistTracks(ctx, searchQuery)
		return nil
	})
	_ = g.Wait()

	return append(fromSearch, fromPlaylist...)
}

func (a *Aggregator) searchTracks(ctx context.Context, query string) []Track {
	tracks, err := a.catalog.SearchTracks(ctx, query, a.config.TrackSearchLimit)
	if err != nil {
		a.metrics.RecordSearchFailure(failureTrackSearch)
		a.logger.Warn("Track search failed", zap.String("query", query), zap.Error(err))
		a.trail.Addf("⚠️ Track search failed for %q", query)
		return nil
	}

	playable := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		if track.IsPlayable() {
			playable = append(playable, track)
		}
	}
	return playable
}

func (a *Aggregator) searchPlaylistTracks(ctx context.Context, query string) []Track {
	playlists, err := a.catalog.SearchPlaylists(ctx, query, a.config.PlaylistSearchLimit)
	if err != nil {
		a.metrics.RecordSearchFailure(failurePlaylistSearch)
		a.logger.Warn("Playlist search failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	var best *Playlist
	for i := range playlists {
		if playlists[i].ID != "" {
			best = &playlists[i]
			break
		}
	}
	if best == nil {
		return nil
	}

	entries, err := a.catalog.GetPlaylistTracks(ctx, best.ID, a.config.PlaylistTrackLimit)
	if err != nil {
		a.metrics.RecordSearchFailure(failurePlaylistTracks)
		a.logger.Warn("Failed to load playlist tracks",
			zap.String("playlist", best.Name), zap.String("playlist_id", best.ID), zap.Error(err))
		return nil
	}

	contextName := "Playlist: " + best.Name
	tracks := make([]Track, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsPlayable() {
			continue
		}
		entry.ContextName = contextName
		tracks = append(tracks, entry)
	}

	a.trail.Addf("📜 Scanned playlist %q (%d tracks)", best.Name, len(tracks))
	return tracks
}

// CleanQuery strips quote characters the catalog search does not accept.
func CleanQuery(query string) string {
	query = strings.ReplaceAll(query, `"`, "")
	query = strings.ReplaceAll(query, "'", "")
	return strings.TrimSpace(query)
}

// ExtractTargetArtists returns the artist names named by artist: filters in
// queries. The names are informational and never used to filter results.
func ExtractTargetArtists(queries []string) []string {
	var artists []string
	for _, query := range queries {
		_, rest, found := strings.Cut(query, "artist:")
		if !found {
			continue
		}
		rest = strings.ToLower(strings.TrimSpace(rest))
		if match := quotedArtistRegex.FindStringSubmatch(rest); match != nil {
			artists = append(artists, match[1])
			continue
		}
		if fields := strings.Fields(rest); len(fields) > 0 {
			artists = append(artists, fields[0])
		}
	}
	return artists
}

func sampleTracks(tracks []Track) string {
	const sampleSize = 3

	samples := make([]string, 0, sampleSize)
	for i := 0; i < len(tracks) && i < sampleSize; i++ {
		samples = append(samples, fmt.Sprintf("%s (%s)", tracks[i].Name, tracks[i].PrimaryArtist()))
	}
	line := strings.Join(samples, ", ")
	if len(tracks) > sampleSize {
		line += fmt.Sprintf(" ...and %d more", len(tracks)-sampleSize)
	}
	return line
}
