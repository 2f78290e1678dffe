package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Mock implementations for testing

type mockCatalog struct {
	mu sync.Mutex

	tracks         map[string][]Track
	playlists      map[string][]Playlist
	playlistTracks map[string][]Track
	queue          []Track
	devices        []Device
	state          *PlaybackState

	trackSearchErr    map[string]error
	playlistSearchErr error
	devicesErr        error
	playErr           error
	shuffleErr        error
	repeatErr         error
	queueErr          error
	controlErr        error

	trackSearches    []string
	playlistSearches []string
	playCalls        [][]string
	playDevices      []string
	queued           []string
	shuffleCalls     []bool
	repeatCalls      []string
	transfers        []string
	deviceCalls      int
	controls         []string
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		tracks:         make(map[string][]Track),
		playlists:      make(map[string][]Playlist),
		playlistTracks: make(map[string][]Track),
		trackSearchErr: make(map[string]error),
		devices:        []Device{{ID: "device-1", Name: "Laptop", IsActive: true}},
	}
}

func (m *mockCatalog) SearchTracks(_ context.Context, query string, limit int) ([]Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trackSearches = append(m.trackSearches, query)
	if err := m.trackSearchErr[query]; err != nil {
		return nil, err
	}
	results := m.tracks[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]Track(nil), results...), nil
}

func (m *mockCatalog) SearchPlaylists(_ context.Context, query string, limit int) ([]Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playlistSearches = append(m.playlistSearches, query)
	if m.playlistSearchErr != nil {
		return nil, m.playlistSearchErr
	}
	results := m.playlists[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]Playlist(nil), results...), nil
}

func (m *mockCatalog) GetPlaylistTracks(_ context.Context, playlistID string, limit int) ([]Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results, ok := m.playlistTracks[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s not found", playlistID)
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]Track(nil), results...), nil
}

func (m *mockCatalog) GetPlaybackState(_ context.Context) (*PlaybackState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *mockCatalog) GetDevices(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deviceCalls++
	if m.devicesErr != nil {
		return nil, m.devicesErr
	}
	return append([]Device(nil), m.devices...), nil
}

func (m *mockCatalog) GetQueue(_ context.Context) ([]Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queueErr != nil {
		return nil, m.queueErr
	}
	return append([]Track(nil), m.queue...), nil
}

func (m *mockCatalog) Play(_ context.Context, deviceID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playCalls = append(m.playCalls, append([]string(nil), uris...))
	m.playDevices = append(m.playDevices, deviceID)
	return m.playErr
}

func (m *mockCatalog) Pause(_ context.Context) error { return m.control("pause") }
func (m *mockCatalog) Resume(_ context.Context) error { return m.control("resume") }
func (m *mockCatalog) Next(_ context.Context) error { return m.control("next") }
func (m *mockCatalog) Previous(_ context.Context) error { return m.control("previous") }

func (m *mockCatalog) control(action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls = append(m.controls, action)
	return m.controlErr
}

func (m *mockCatalog) SetShuffle(_ context.Context, _ string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffleCalls = append(m.shuffleCalls, enabled)
	return m.shuffleErr
}

func (m *mockCatalog) SetRepeat(_ context.Context, _ string, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeatCalls = append(m.repeatCalls, mode)
	return m.repeatErr
}

func (m *mockCatalog) TransferPlayback(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, deviceID)
	return nil
}

func (m *mockCatalog) AddToQueue(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, uri)
	return nil
}

func (m *mockCatalog) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trackSearches) + len(m.playlistSearches)
}

func (m *mockCatalog) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.playCalls)
}

func (m *mockCatalog) lastPlay() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.playCalls) == 0 {
		return nil
	}
	return m.playCalls[len(m.playCalls)-1]
}

func (m *mockCatalog) queuedURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queued...)
}

func (m *mockCatalog) setPlayErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

type mockCompiler struct {
	items    []ScheduleItem
	err      error
	requests []string
	current  [][]ScheduleItem
}

func (m *mockCompiler) GenerateSchedule(_ context.Context, request string, current []ScheduleItem,
	_ string) ([]ScheduleItem, error) {
	m.requests = append(m.requests, request)
	m.current = append(m.current, current)
	return m.items, m.err
}

type mockStateStore struct {
	mu        sync.Mutex
	snapshot  *StateSnapshot
	schedule  []ScheduleItem
	signature string
	history   []string
	clears    int
}

func (m *mockStateStore) Load() (*StateSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *mockStateStore) SaveSchedule(items []ScheduleItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedule = items
	return nil
}

func (m *mockStateStore) SaveSignature(signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signature = signature
	return nil
}

func (m *mockStateStore) ClearSignature() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signature = ""
	m.clears++
	return nil
}

func (m *mockStateStore) AppendHistory(request string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, request)
	return nil
}

type mockMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	failures    int
	preloads    map[string]int
	refilled    int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{transitions: make(map[string]int), preloads: make(map[string]int)}
}

func (m *mockMetrics) RecordTick() {}

func (m *mockMetrics) RecordTransition(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[source]++
}

func (m *mockMetrics) RecordPlaybackFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *mockMetrics) RecordSearchFailure(string) {}

func (m *mockMetrics) RecordPreload(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preloads[outcome]++
}

func (m *mockMetrics) RecordRefill(added int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refilled += added
}

func (m *mockMetrics) SetScheduleSize(int) {}

// testClock is a settable clock shared by the engine and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(hour, minute, second int) *testClock {
	return &testClock{now: time.Date(2024, 5, 1, hour, minute, second, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(hour, minute, second int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(c.now.Year(), c.now.Month(), c.now.Day(), hour, minute, second, 0, time.Local)
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

var errMock = errors.New("mock failure")

func makeTrack(id, name, artist string, popularity int) Track {
	return Track{
		ID:         id,
		Name:       name,
		Artists:    []string{artist},
		Popularity: popularity,
		URI:        "spotify:track:" + id,
		Type:       TrackTypeTrack,
	}
}

// makeTracks returns n distinct tracks with the given id prefix and popularity.
func makeTracks(prefix string, n, popularity int) []Track {
	tracks := make([]Track, n)
	for i := range tracks {
		id := fmt.Sprintf("%s%d", prefix, i)
		tracks[i] = makeTrack(id, "Song "+id, "Artist "+id, popularity)
	}
	return tracks
}

func signatureOf(priority string, queries ...string) string {
	return ScheduleItem{Queries: queries, PriorityTrack: priority}.Signature()
}

func identityShuffle(int, func(i, j int)) {}

func reverseShuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}
