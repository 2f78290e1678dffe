package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"aidj/internal/processlog"
)

// Resolver runs the full search pipeline for one intent: aggregate,
// deduplicate, filter by popularity, then select.
type Resolver struct {
	aggregator *Aggregator
	selector   *Selector
	config     *DJConfig
	trail      *processlog.Buffer
	logger     *zap.Logger
}

func NewResolver(aggregator *Aggregator, selector *Selector, config *DJConfig,
	trail *processlog.Buffer, logger *zap.Logger) *Resolver {
	return &Resolver{
		aggregator: aggregator,
		selector:   selector,
		config:     config,
		trail:      trail,
		logger:     logger,
	}
}

// Resolve returns the ordered track list for queries. An empty result means
// nothing could be found; callers treat that as a no-op.
func (r *Resolver) Resolve(ctx context.Context, queries []string, priorityTrack string) []Track {
	r.trail.Addf("🔍 Searching for: %s", strings.Join(queries, ", "))
	if artists := ExtractTargetArtists(queries); len(artists) > 0 {
		r.trail.Addf("🎯 Target artists: %s", strings.Join(artists, ", "))
	}

	result := r.aggregator.Search(ctx, queries, priorityTrack)
	if result.Empty() {
		r.trail.Add("❌ No tracks found from catalog search")
		return nil
	}

	unique := r.selector.Dedupe(result.Tracks)
	r.trail.Addf("📊 Found %d raw hits -> %d unique tracks", len(result.Tracks), len(unique))

	filtered, outcome := r.selector.FilterByPopularity(unique)
	switch outcome {
	case FilterRelaxed:
		r.trail.Addf("⚠️ Popularity >= %d too strict, relaxed to >= %d",
			r.config.PreferredPopularity, r.config.RelaxedPopularity)
	case FilterBypassed:
		if len(unique) > 0 {
			r.trail.Add("⚠️ No tracks matched popularity criteria, using all candidates")
		}
	}
	r.trail.Addf("🔍 Popularity check: %d / %d kept", len(filtered), len(unique))
	if len(filtered) > 0 {
		r.trail.Addf("   👉 Sample: %s", sampleTracks(filtered))
	}

	selected := r.selector.Select(filtered, result.Priority)
	r.trail.Addf("✅ Final playlist: %d tracks selected", len(selected))

	r.logger.Debug("Resolved tracks",
		zap.Strings("queries", queries),
		zap.Int("raw", len(result.Tracks)),
		zap.Int("unique", len(unique)),
		zap.Int("selected", len(selected)),
		zap.Bool("priority", result.Priority != nil))

	return selected
}
