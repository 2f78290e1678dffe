package core

import (
	"context"

	"go.uber.org/zap"
)

// refill tops up a thinning queue with tracks for item that are neither queued
// nor already played this session. It never repeats tracks to fill the gap.
func (e *Engine) refill(ctx context.Context, item ScheduleItem) {
	if !e.acquireRefill() {
		return
	}
	defer e.releaseRefill()

	queue, err := e.catalog.GetQueue(ctx)
	if err != nil {
		e.logger.Warn("Failed to read queue, treating it as empty", zap.Error(err))
		queue = nil
	}
	if len(queue) > e.config.RefillThreshold {
		return
	}

	e.trail.Addf("🍚 Queue running low (%d left), topping up", len(queue))
	candidates := e.resolver.Resolve(ctx, item.Queries, "")

	picks := e.pickRefillTracks(candidates, queue)
	if len(picks) == 0 {
		e.trail.Add("⚠️ No new tracks available for refill")
		e.logger.Warn("Refill found no new tracks", zap.String("signature", item.Signature()))
		return
	}

	added := 0
	for i, track := range picks {
		if i > 0 {
			if err := e.sleep(ctx, e.config.RefillAppendDelay); err != nil {
				break
			}
		}
		if err := e.catalog.AddToQueue(ctx, track.URI); err != nil {
			e.logger.Warn("Failed to queue track",
				zap.String("uri", track.URI), zap.String("name", track.Name), zap.Error(err))
			continue
		}
		e.played.Add(track.URI)
		added++
		e.trail.Addf("➕ Queued %s (%s)", track.Name, track.PrimaryArtist())
	}

	e.metrics.RecordRefill(added)
	e.logger.Info("Queue refilled", zap.Int("added", added), zap.Int("queue_before", len(queue)))
}

func (e *Engine) pickRefillTracks(candidates, queue []Track) []Track {
	excluded := make(map[string]struct{}, len(queue)+len(candidates))
	for _, track := range queue {
		excluded[track.URI] = struct{}{}
	}

	picks := make([]Track, 0, e.config.RefillBatchSize)
	for _, track := range candidates {
		if len(picks) >= e.config.RefillBatchSize {
			break
		}
		if _, ok := excluded[track.URI]; ok {
			continue
		}
		if e.played.Has(track.URI) {
			continue
		}
		excluded[track.URI] = struct{}{}
		picks = append(picks, track)
	}
	return picks
}

func (e *Engine) acquireRefill() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refilling {
		e.logger.Debug("Refill already in progress")
		return false
	}
	e.refilling = true
	return true
}

func (e *Engine) releaseRefill() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refilling = false
}
