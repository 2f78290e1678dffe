package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Schedule returns a copy of the current schedule.
func (e *Engine) Schedule() []ScheduleItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schedule.Items()
}

// SetSchedule replaces the schedule. Unusable items are dropped; the
// normalized schedule is returned.
func (e *Engine) SetSchedule(items []ScheduleItem) []ScheduleItem {
	normalized := make([]ScheduleItem, 0, len(items))
	for _, item := range items {
		if clean, ok := NormalizeItem(item); ok {
			normalized = append(normalized, clean)
		} else {
			e.logger.Warn("Dropping invalid schedule item",
				zap.String("start", item.Start), zap.String("end", item.End))
		}
	}

	e.mu.Lock()
	e.schedule = NewSchedule(normalized)
	e.mu.Unlock()

	e.afterScheduleChange(normalized)
	return normalized
}

// RemoveScheduleItem deletes the item at index. An out of range index leaves
// the schedule untouched and returns ErrIndexOutOfRange with the unchanged
// schedule.
func (e *Engine) RemoveScheduleItem(index int) ([]ScheduleItem, error) {
	e.mu.Lock()
	updated, err := e.schedule.Without(index)
	if err != nil {
		items := e.schedule.Items()
		e.mu.Unlock()
		return items, err
	}
	e.schedule = updated
	items := updated.Items()
	e.mu.Unlock()

	e.afterScheduleChange(items)
	return items, nil
}

func (e *Engine) afterScheduleChange(items []ScheduleItem) {
	e.metrics.SetScheduleSize(len(items))
	e.logger.Info("Schedule updated", zap.Int("items", len(items)))

	if e.store == nil {
		return
	}
	if err := e.store.SaveSchedule(items); err != nil {
		e.logger.Warn("Failed to persist schedule", zap.Error(err))
	}
}

// CreateSchedule asks the intent compiler for a schedule matching request and
// installs it. An empty result leaves the existing schedule in place and is
// returned as an empty slice; callers report it as "zero blocks".
func (e *Engine) CreateSchedule(ctx context.Context, request string) ([]ScheduleItem, error) {
	if e.compiler == nil {
		return nil, ErrNoCompiler
	}

	request = strings.TrimSpace(request)
	if e.store != nil {
		if err := e.store.AppendHistory(request); err != nil {
			e.logger.Warn("Failed to record request history", zap.Error(err))
		}
	}

	items, err := e.compiler.GenerateSchedule(ctx, request, e.Schedule(), e.preference)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule: %w", err)
	}

	if len(items) == 0 {
		e.logger.Warn("Intent compiler returned no schedule items", zap.String("request", request))
		return []ScheduleItem{}, nil
	}

	installed := e.SetSchedule(items)
	for _, item := range installed {
		e.trail.Add("🗓️ " + e.localizer.T("format.block", item.Start, item.End, strings.Join(item.Queries, ", ")))
	}
	return installed, nil
}

// Devices lists playback devices; a failure yields an empty list.
func (e *Engine) Devices(ctx context.Context) []Device {
	devices, err := e.catalog.GetDevices(ctx)
	if err != nil {
		e.logger.Warn("Failed to fetch devices", zap.Error(err))
		return []Device{}
	}
	return devices
}

// SetActiveDevice pins playback to deviceID and transfers playback there.
func (e *Engine) SetActiveDevice(ctx context.Context, deviceID string) {
	e.player.PinDevice(ctx, deviceID)
}

// Queue returns the upcoming tracks; non-track entries and failures are dropped.
func (e *Engine) Queue(ctx context.Context) []Track {
	queue, err := e.catalog.GetQueue(ctx)
	if err != nil {
		e.logger.Warn("Failed to fetch queue", zap.Error(err))
		return []Track{}
	}

	tracks := make([]Track, 0, len(queue))
	for _, track := range queue {
		if track.Type == TrackTypeTrack {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// PlaybackState returns the player state or nil when it cannot be read.
func (e *Engine) PlaybackState(ctx context.Context) *PlaybackState {
	state, err := e.catalog.GetPlaybackState(ctx)
	if err != nil {
		e.logger.Warn("Failed to fetch playback state", zap.Error(err))
		return nil
	}
	return state
}

func (e *Engine) Next(ctx context.Context) error {
	return e.control("next", e.catalog.Next(ctx))
}

func (e *Engine) Previous(ctx context.Context) error {
	return e.control("previous", e.catalog.Previous(ctx))
}

func (e *Engine) Pause(ctx context.Context) error {
	return e.control("pause", e.catalog.Pause(ctx))
}

func (e *Engine) Resume(ctx context.Context) error {
	return e.control("resume", e.catalog.Resume(ctx))
}

func (e *Engine) control(action string, err error) error {
	if err != nil {
		e.logger.Warn("Player control failed", zap.String("action", action), zap.Error(err))
		return fmt.Errorf("player %s failed: %w", action, err)
	}
	return nil
}
