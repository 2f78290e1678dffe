package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"aidj/internal/i18n"
	"aidj/internal/processlog"
	"aidj/internal/store"
)

// EngineDeps are the collaborators of an Engine. Catalog is required; the
// rest fall back to in-memory or no-op implementations.
type EngineDeps struct {
	Catalog    CatalogClient
	Compiler   IntentCompiler
	Store      StateStore
	Played     PlayedSet
	Metrics    Metrics
	Localizer  *i18n.Localizer
	Preference string

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

type preloadSlot struct {
	signature string
	tracks    []Track
}

// Engine reconciles the remote player with the schedule. It owns the
// schedule, the last applied signature, the preload slot, the played set and
// the process log.
type Engine struct {
	config     *DJConfig
	catalog    CatalogClient
	compiler   IntentCompiler
	store      StateStore
	played     PlayedSet
	metrics    Metrics
	localizer  *i18n.Localizer
	preference string
	logger     *zap.Logger

	trail    *processlog.Buffer
	resolver *Resolver
	player   *Player

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// tickMu serializes reconciliation passes.
	tickMu sync.Mutex

	mu            sync.RWMutex
	schedule      Schedule
	lastSignature string
	preload       *preloadSlot
	preloading    bool
	refilling     bool
	lastTickError string

	lifetime   context.Context
	cancel     context.CancelFunc
	background sync.WaitGroup
}

func NewEngine(config *DJConfig, deps EngineDeps, logger *zap.Logger) *Engine {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Played == nil {
		deps.Played = store.NewSessionSet(store.DefaultSessionCapacity, store.DefaultSessionFalsePositiveRate)
	}
	if deps.Localizer == nil {
		deps.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}

	trail := processlog.New(config.ProcessLogSize, logger.Named("trail"))
	trail.SetClock(deps.Now)

	aggregator := NewAggregator(deps.Catalog, config, trail, deps.Metrics, logger.Named("search"))
	resolver := NewResolver(aggregator, NewSelector(config), config, trail, logger.Named("resolver"))
	player := NewPlayer(deps.Catalog, config, trail, deps.Localizer, logger.Named("player"))
	player.sleep = deps.Sleep

	lifetime, cancel := context.WithCancel(context.Background())

	return &Engine{
		config:     config,
		catalog:    deps.Catalog,
		compiler:   deps.Compiler,
		store:      deps.Store,
		played:     deps.Played,
		metrics:    deps.Metrics,
		localizer:  deps.Localizer,
		preference: deps.Preference,
		logger:     logger,
		trail:      trail,
		resolver:   resolver,
		player:     player,
		now:        deps.Now,
		sleep:      deps.Sleep,
		lifetime:   lifetime,
		cancel:     cancel,
	}
}

// Restore loads the schedule and last applied signature persisted by a
// previous run.
func (e *Engine) Restore() error {
	if e.store == nil {
		return nil
	}

	snapshot, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load engine state: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	e.mu.Lock()
	e.schedule = NewSchedule(snapshot.Schedule)
	e.lastSignature = snapshot.LastSignature
	size := e.schedule.Len()
	e.mu.Unlock()

	e.metrics.SetScheduleSize(size)
	e.logger.Info("Engine state restored",
		zap.Int("schedule_items", size),
		zap.String("last_signature", snapshot.LastSignature))
	return nil
}

// Run drives Tick on a self-rescheduling timer until ctx is done. The delay
// before the next pass depends on how much of the current track is left.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Starting DJ loop", zap.Duration("interval", e.config.TickInterval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("DJ loop stopped")
			return nil
		case <-timer.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("DJ tick failed", zap.Error(err))
			}
			timer.Reset(e.nextDelay(ctx))
		}
	}
}

func (e *Engine) nextDelay(ctx context.Context) time.Duration {
	state, err := e.catalog.GetPlaybackState(ctx)
	if err != nil {
		e.logger.Debug("Failed to read playback state", zap.Error(err))
		return e.config.TickInterval
	}
	return e.config.NextTickDelay(state)
}

// Close stops detached preload and player work and waits for it.
func (e *Engine) Close() {
	e.cancel()
	e.background.Wait()
	e.player.Close()
}

// WaitBackground blocks until in-flight preloads and delayed player commands
// have completed.
func (e *Engine) WaitBackground() {
	e.background.Wait()
	e.player.Wait()
}

// Tick runs one reconciliation pass at the engine's current time.
func (e *Engine) Tick(ctx context.Context) error {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	now := e.now()
	e.metrics.RecordTick()

	e.mu.RLock()
	schedule := e.schedule
	e.mu.RUnlock()

	e.maybePreload(schedule, now)

	current := schedule.MatchAt(now)
	if current == nil {
		return nil
	}

	signature := current.Signature()
	if signature == "" {
		return nil
	}

	e.mu.Lock()
	if signature == e.lastSignature {
		e.mu.Unlock()
		e.refill(ctx, *current)
		return nil
	}
	e.lastSignature = signature
	preloaded := e.takePreloadLocked(signature)
	e.mu.Unlock()

	err := e.transition(ctx, *current, signature, preloaded)

	e.mu.Lock()
	e.lastTickError = ""
	if err != nil {
		e.lastTickError = err.Error()
	}
	e.mu.Unlock()

	return err
}

func (e *Engine) transition(ctx context.Context, item ScheduleItem, signature string, preloaded []Track) error {
	e.persistSignature(signature)

	e.trail.Reset()
	e.played.Clear()
	e.trail.Addf("▶️ DJ change: %s", strings.Join(item.Queries, ", "))
	if item.Thought != "" {
		e.trail.Addf("💭 %s", item.Thought)
	}

	tracks := preloaded
	source := SourcePreload
	if len(tracks) > 0 {
		e.trail.Addf("🚀 Using %d preloaded tracks", len(tracks))
	} else {
		source = SourceSearch
		tracks = e.resolver.Resolve(ctx, item.Queries, item.PriorityTrack)
	}

	if len(tracks) == 0 {
		e.logger.Warn("No tracks resolved for schedule item", zap.String("signature", signature))
		return nil
	}

	if err := e.player.Play(ctx, tracks); err != nil {
		e.metrics.RecordPlaybackFailure()
		e.rollback(signature)
		e.trail.Add("❌ " + e.localizer.T("error.playback.failed", err.Error()))
		return fmt.Errorf("playback for %q failed: %w", signature, err)
	}

	for _, track := range tracks {
		e.played.Add(track.URI)
	}
	e.metrics.RecordTransition(source)
	e.logger.Info("DJ transition applied",
		zap.String("signature", signature),
		zap.String("source", source),
		zap.Int("tracks", len(tracks)))
	return nil
}

// rollback forgets signature so that the next tick retries the transition.
func (e *Engine) rollback(signature string) {
	e.mu.Lock()
	if e.lastSignature == signature {
		e.lastSignature = ""
	}
	e.mu.Unlock()

	if e.store == nil {
		return
	}
	if err := e.store.ClearSignature(); err != nil {
		e.logger.Warn("Failed to clear persisted signature", zap.Error(err))
	}
}

func (e *Engine) persistSignature(signature string) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveSignature(signature); err != nil {
		e.logger.Warn("Failed to persist signature", zap.String("signature", signature), zap.Error(err))
	}
}

// LastSignature returns the signature of the intent currently applied to the
// player, or an empty string.
func (e *Engine) LastSignature() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSignature
}

// Status returns the operator snapshot for the current time.
func (e *Engine) Status() Status {
	now := e.now()

	e.mu.RLock()
	status := Status{
		CurrentItem:   e.schedule.MatchAt(now),
		Signature:     e.lastSignature,
		Config:        *e.config,
		ScheduleSize:  e.schedule.Len(),
		LastTickError: e.lastTickError,
	}
	if e.preload != nil {
		status.PreloadedFor = e.preload.signature
	}
	e.mu.RUnlock()

	status.PlayedInSlot = e.played.Size()
	status.PinnedDevice = e.player.PinnedDevice()
	return status
}

// ProcessLog returns the rendered process log, newest first.
func (e *Engine) ProcessLog() []string {
	return e.trail.Lines()
}
