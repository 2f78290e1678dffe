package core

import (
	"math/rand/v2"

	"aidj/pkg/fuzzy"
)

// FilterOutcome describes which popularity cutoff DJ selection ended up using.
type FilterOutcome int

const (
	// FilterPreferred means the preferred cutoff left enough tracks.
	FilterPreferred FilterOutcome = iota
	// FilterRelaxed means the relaxed cutoff was applied.
	FilterRelaxed
	// FilterBypassed means every cutoff emptied the pool and the pool was kept whole.
	FilterBypassed
)

// Selector turns a raw pool into the list that gets played.
type Selector struct {
	config     *DJConfig
	normalizer *fuzzy.Normalizer
	shuffle    func(n int, swap func(i, j int))
}

func NewSelector(config *DJConfig) *Selector {
	return &Selector{
		config:     config,
		normalizer: fuzzy.NewNormalizer(),
		shuffle:    rand.Shuffle,
	}
}

// Dedupe keeps the first track for every (title, primary artist) key and
// preserves input order.
func (s *Selector) Dedupe(tracks []Track) []Track {
	seen := make(map[string]struct{}, len(tracks))
	unique := make([]Track, 0, len(tracks))

	for _, track := range tracks {
		key := s.normalizer.TrackKey(track.Name, track.PrimaryArtist())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, track)
	}
	return unique
}

// FilterByPopularity applies the preferred cutoff, relaxes it when too few
// tracks survive, and returns the whole pool rather than an empty list.
func (s *Selector) FilterByPopularity(tracks []Track) ([]Track, FilterOutcome) {
	filtered := filterPopularity(tracks, s.config.PreferredPopularity)
	outcome := FilterPreferred

	if len(filtered) < s.config.MinViableTracks && len(tracks) >= s.config.MinViableTracks {
		filtered = filterPopularity(tracks, s.config.RelaxedPopularity)
		outcome = FilterRelaxed
	}

	if len(filtered) == 0 {
		return tracks, FilterBypassed
	}
	return filtered, outcome
}

// Select shuffles the pool and keeps at most MaxSelectedTracks. A resolved
// priority track is placed first and appears exactly once.
func (s *Selector) Select(tracks []Track, priority *Track) []Track {
	shuffled := append([]Track(nil), tracks...)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if priority != nil {
		priorityKey := s.normalizer.TrackKey(priority.Name, priority.PrimaryArtist())
		withPriority := make([]Track, 0, len(shuffled)+1)
		withPriority = append(withPriority, *priority)
		for _, track := range shuffled {
			if track.ID == priority.ID ||
				s.normalizer.TrackKey(track.Name, track.PrimaryArtist()) == priorityKey {
				continue
			}
			withPriority = append(withPriority, track)
		}
		shuffled = withPriority
	}

	if limit := s.config.MaxSelectedTracks; limit > 0 && len(shuffled) > limit {
		shuffled = shuffled[:limit]
	}
	return shuffled
}

func filterPopularity(tracks []Track, minimum int) []Track {
	filtered := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Popularity >= minimum {
			filtered = append(filtered, track)
		}
	}
	return filtered
}

// TrackURIs returns the URI of every track.
func TrackURIs(tracks []Track) []string {
	uris := make([]string, len(tracks))
	for i, track := range tracks {
		uris[i] = track.URI
	}
	return uris
}
