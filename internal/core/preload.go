package core

import (
	"time"

	"go.uber.org/zap"
)

// Preload outcomes reported to metrics.
const (
	preloadReady = "ready"
	preloadEmpty = "empty"
	preloadStale = "stale"
)

// maybePreload resolves the intent that will be active one preload window
// from now, in the background, so the boundary transition can skip the
// search. At most one preload runs at a time.
func (e *Engine) maybePreload(schedule Schedule, now time.Time) {
	if schedule.Len() <= 1 {
		return
	}

	next := schedule.MatchAt(now.Add(e.config.PreloadWindow))
	if next == nil {
		return
	}
	signature := next.Signature()
	if signature == "" {
		return
	}

	e.mu.Lock()
	if signature == e.lastSignature ||
		(e.preload != nil && e.preload.signature == signature) ||
		e.preloading {
		e.mu.Unlock()
		return
	}
	e.preloading = true
	e.mu.Unlock()

	e.logger.Info("Preloading upcoming schedule item", zap.String("signature", signature))
	e.trail.Addf("⏳ Preloading next slot: %s", signature)

	item := *next
	e.background.Add(1)
	go func() {
		defer e.background.Done()

		tracks := e.resolver.Resolve(e.lifetime, item.Queries, item.PriorityTrack)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.preloading = false

		switch {
		case e.lifetime.Err() != nil:
			return
		case len(tracks) == 0:
			e.metrics.RecordPreload(preloadEmpty)
			e.logger.Warn("Preload found no tracks", zap.String("signature", signature))
		case e.lastSignature == signature:
			// The boundary was crossed while searching; the transition already ran.
			e.metrics.RecordPreload(preloadStale)
		default:
			e.preload = &preloadSlot{signature: signature, tracks: tracks}
			e.metrics.RecordPreload(preloadReady)
			e.logger.Info("Preload ready",
				zap.String("signature", signature), zap.Int("tracks", len(tracks)))
		}
	}()
}

// takePreloadLocked consumes the preload slot when it matches signature.
// A mismatching slot is kept for a later boundary. Callers hold e.mu.
func (e *Engine) takePreloadLocked(signature string) []Track {
	if e.preload == nil || e.preload.signature != signature {
		return nil
	}
	tracks := e.preload.tracks
	e.preload = nil
	return tracks
}
