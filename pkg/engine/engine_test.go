package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoguidego/pkg/geo"
	"geoguidego/pkg/geofence"
	"geoguidego/pkg/model"
	"geoguidego/pkg/overpass"
	"geoguidego/pkg/request"
)

// --- fakes ---

type fakeFixes struct {
	mu  sync.Mutex
	fix *model.Fix
}

func (f *fakeFixes) set(lat, lon float64) {
	f.mu.Lock()
	f.fix = &model.Fix{Lat: lat, Lon: lon, Timestamp: time.Now()}
	f.mu.Unlock()
}

func (f *fakeFixes) Latest() (model.Fix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fix == nil {
		return model.Fix{}, assert.AnError
	}
	return *f.fix, nil
}

type fakeSettings struct {
	mu  sync.Mutex
	s   model.Settings
	sub chan model.Settings
}

func newFakeSettings(s model.Settings) *fakeSettings {
	return &fakeSettings{s: s, sub: make(chan model.Settings, 1)}
}

func (f *fakeSettings) Get() model.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSettings) Subscribe() <-chan model.Settings { return f.sub }

// update replaces the settings and signals subscribers like the real
// service does.
func (f *fakeSettings) update(s model.Settings) {
	f.mu.Lock()
	f.s = s
	f.mu.Unlock()
	select {
	case f.sub <- s:
	default:
	}
}

type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	result []*model.POI
	err    error
	store  *memStore
}

func (f *fakeFetcher) FetchAround(ctx context.Context, center geo.Point, radiusM float64, enabled []string, lang string) ([]*model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.store != nil && len(f.result) > 0 {
		_ = f.store.UpsertPOIs(ctx, f.result)
	}
	return f.result, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory POI store preserving insertion order.
type memStore struct {
	mu    sync.Mutex
	order []string
	pois  map[string]*model.POI
	sub   chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		pois: make(map[string]*model.POI),
		sub:  make(chan struct{}, 1),
	}
}

func (m *memStore) GetPOI(_ context.Context, key string) (*model.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pois[key], nil
}

func (m *memStore) AllPOIs(context.Context) ([]*model.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.POI, 0, len(m.order))
	for _, k := range m.order {
		cp := *m.pois[k]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpsertPOIs(_ context.Context, pois []*model.POI) error {
	m.mu.Lock()
	for _, p := range pois {
		if _, ok := m.pois[p.Key()]; !ok {
			m.order = append(m.order, p.Key())
		}
		cp := *p
		m.pois[p.Key()] = &cp
	}
	m.mu.Unlock()

	select {
	case m.sub <- struct{}{}:
	default:
	}
	return nil
}

func (m *memStore) SubscribePOIs() <-chan struct{} { return m.sub }

type fakeQueue struct {
	mu    sync.Mutex
	items []*model.SpeechItem
}

func (q *fakeQueue) Enqueue(item *model.SpeechItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

func (q *fakeQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *fakeQueue) keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.items))
	for i, it := range q.items {
		out[i] = it.POIKey
	}
	return out
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*model.HistoryEntry
}

func (h *fakeHistory) Append(e *model.HistoryEntry) {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
}

func (h *fakeHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// testClock is an adjustable now().
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine   *Engine
	fixes    *fakeFixes
	settings *fakeSettings
	fetcher  *fakeFetcher
	store    *memStore
	queue    *fakeQueue
	history  *fakeHistory
	clock    *testClock
}

func newHarness() *harness {
	h := &harness{
		fixes:    &fakeFixes{},
		settings: newFakeSettings(model.DefaultSettings()),
		store:    newMemStore(),
		queue:    &fakeQueue{},
		history:  &fakeHistory{},
		clock:    &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.fetcher = &fakeFetcher{store: h.store}
	h.engine = New(h.fixes, h.settings, h.fetcher, h.store, h.history, h.queue, nil,
		Config{Tick: time.Second, Now: h.clock.now})
	return h
}

func poi(id int64, title string, lat, lon float64, category string) *model.POI {
	return &model.POI{OSMID: id, OSMType: "node", Title: title, Lat: lat, Lon: lon, Category: category}
}

// --- tests ---

func TestNoFixNoWork(t *testing.T) {
	h := newHarness()
	h.engine.Cycle(context.Background())

	assert.Equal(t, 0, h.fetcher.callCount())
	assert.Equal(t, "waiting for location", h.engine.Status().StatusText)
}

func TestFetchAndAnnounceSingleMonument(t *testing.T) {
	h := newHarness()
	h.fixes.set(55.7520, 37.6175)
	h.fetcher.result = []*model.POI{
		poi(101, "Test Monument", 55.7525, 37.6180, "historical"),
	}

	h.engine.Cycle(context.Background())

	require.Equal(t, 1, h.fetcher.callCount())
	require.Equal(t, []string{"node/101"}, h.queue.keys())
	assert.Equal(t, 1, h.history.count())

	st := h.engine.Status()
	assert.Equal(t, 1, st.AnnouncedCount)
	assert.Equal(t, 55.7520, st.AnchorLat)
}

func TestDisplacementGate(t *testing.T) {
	h := newHarness()
	// min displacement 50 m (default); second fix ~10 m away
	h.fixes.set(55.7520, 37.6175)
	h.engine.Cycle(context.Background())
	require.Equal(t, 1, h.fetcher.callCount())

	h.fixes.set(55.75209, 37.6175) // ~10 m north
	h.engine.Cycle(context.Background())
	assert.Equal(t, 1, h.fetcher.callCount(), "second cycle within displacement must not fetch")

	h.fixes.set(55.7530, 37.6175) // ~110 m north of anchor
	h.engine.Cycle(context.Background())
	assert.Equal(t, 2, h.fetcher.callCount(), "movement beyond threshold must fetch")
}

func TestAnchorNotAdvancedOnFailure(t *testing.T) {
	h := newHarness()
	h.fixes.set(55.7520, 37.6175)
	h.fetcher.err = &overpass.Error{Kind: overpass.KindTimeout}

	h.engine.Cycle(context.Background())
	require.Equal(t, 1, h.fetcher.callCount())

	st := h.engine.Status()
	assert.Zero(t, st.AnchorLat, "anchor must not advance on fetch failure")
	assert.NotEmpty(t, st.LastFetchError)

	// After cooldown, the same position retries (no anchor, gate open)
	h.clock.advance(31 * time.Second)
	h.fetcher.err = nil
	h.engine.Cycle(context.Background())
	assert.Equal(t, 2, h.fetcher.callCount())
	assert.Equal(t, 55.7520, h.engine.Status().AnchorLat)
}

func TestRateLimitedCooldownTiming(t *testing.T) {
	h := newHarness()
	h.fixes.set(55.7520, 37.6175)
	h.fetcher.err = overpass.ClassifyError(&request.HTTPError{Status: 429})

	h.engine.Cycle(context.Background())
	require.Equal(t, 1, h.fetcher.callCount())

	// 30s in: still cooling down, movement must not trigger a fetch
	h.clock.advance(30 * time.Second)
	h.fixes.set(55.7540, 37.6175)
	h.engine.Cycle(context.Background())
	assert.Equal(t, 1, h.fetcher.callCount(), "fetch during cooldown")

	// 61s in: cooldown expired
	h.clock.advance(31 * time.Second)
	h.engine.Cycle(context.Background())
	assert.Equal(t, 2, h.fetcher.callCount(), "fetch after cooldown expiry")
}

func TestCooldownDurations(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"rate limited", overpass.ClassifyError(&request.HTTPError{Status: 429}), 60 * time.Second},
		{"timeout", overpass.ClassifyError(&request.HTTPError{Status: 504}), 30 * time.Second},
		{"no connectivity", &overpass.Error{Kind: overpass.KindNoConnectivity}, 30 * time.Second},
		{"server error", overpass.ClassifyError(&request.HTTPError{Status: 500}), 60 * time.Second},
		{"http error", overpass.ClassifyError(&request.HTTPError{Status: 404}), 60 * time.Second},
		{"unknown", assert.AnError, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cooldownFor(tt.err))
		})
	}
}

func TestRankingDuringCooldown(t *testing.T) {
	// Ranking and announcement continue from store contents while the
	// fetch step is suspended.
	h := newHarness()
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(1, "Cached Monument", 55.7521, 37.6175, "historical"),
	})
	h.fixes.set(55.7520, 37.6175)
	h.fetcher.err = &overpass.Error{Kind: overpass.KindRateLimited}

	h.engine.Cycle(context.Background())

	assert.Equal(t, []string{"node/1"}, h.queue.keys(), "store contents must announce during cooldown")
}

func TestAnnouncedSetExcludesReFetched(t *testing.T) {
	h := newHarness()
	h.fixes.set(55.7520, 37.6175)
	h.fetcher.result = []*model.POI{poi(7, "Chapel", 55.7522, 37.6176, "religious_buildings")}

	h.engine.Cycle(context.Background())
	require.Equal(t, []string{"node/7"}, h.queue.keys())

	// Same POI re-fetched after movement: ranking must still exclude it
	h.fixes.set(55.7530, 37.6175)
	h.engine.Cycle(context.Background())
	assert.Equal(t, []string{"node/7"}, h.queue.keys(), "announced POI re-announced")
	assert.Equal(t, 1, h.history.count())
}

func TestRankingOrderAndTruncation(t *testing.T) {
	h := newHarness()
	here := geo.Point{Lat: 55.7520, Lon: 37.6175}
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(1, "Far", geo.DestinationPoint(here, 400, 0).Lat, here.Lon, "historical"),
		poi(2, "Near", geo.DestinationPoint(here, 50, 0).Lat, here.Lon, "historical"),
		poi(3, "Mid", geo.DestinationPoint(here, 200, 0).Lat, here.Lon, "historical"),
		poi(4, "Nearest", geo.DestinationPoint(here, 10, 0).Lat, here.Lon, "historical"),
	})
	h.settings.s.MaxObjects = 3
	h.fixes.set(here.Lat, here.Lon)

	h.engine.Cycle(context.Background())

	assert.Equal(t, []string{"node/4", "node/2", "node/3"}, h.queue.keys(),
		"closest first, truncated to max objects")
}

func TestRankingDoesNotFilterByRadius(t *testing.T) {
	// Ranking filters by category and announced-set only; distance
	// bounding happens at fetch time. A stored far-away POI still ranks.
	h := newHarness()
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(1, "Another City", 59.93, 30.33, "historical"), // ~630 km away
	})
	h.fixes.set(55.7520, 37.6175)

	h.engine.Cycle(context.Background())

	assert.Equal(t, []string{"node/1"}, h.queue.keys())
}

func TestCategoryFilter(t *testing.T) {
	h := newHarness()
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(1, "Church", 55.7521, 37.6175, "religious_buildings"),
		poi(2, "Hotel", 55.7522, 37.6175, "tourism"),
	})
	h.settings.s.EnabledCategories = []string{"tourism"}
	h.fixes.set(55.7520, 37.6175)

	h.engine.Cycle(context.Background())

	assert.Equal(t, []string{"node/2"}, h.queue.keys())
}

func TestSpeechItemCarriesSettings(t *testing.T) {
	h := newHarness()
	h.settings.s.Speed = 1.2
	h.settings.s.Pitch = 0.8
	h.settings.s.PauseMS = 1500
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		{OSMID: 1, OSMType: "node", Title: "Собор", Description: "Православный собор", Lat: 55.7521, Lon: 37.6175, Category: "religious_buildings"},
	})
	h.fixes.set(55.7520, 37.6175)

	h.engine.Cycle(context.Background())

	require.Equal(t, 1, h.queue.Depth())
	h.queue.mu.Lock()
	item := h.queue.items[0]
	h.queue.mu.Unlock()
	assert.Equal(t, 1.2, item.Speed)
	assert.Equal(t, 0.8, item.Pitch)
	assert.Equal(t, 1500*time.Millisecond, item.Pause)
	assert.Equal(t, "Собор. Православный собор", item.Text)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness()
	h.engine.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.engine.Status().Running)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.False(t, h.engine.Status().Running)
}

type suffixEnricher struct{}

func (suffixEnricher) EnrichDescription(_ context.Context, title, current, _ string) string {
	if current == "" {
		return title + " is a notable place."
	}
	return current
}

func TestEnricherFillsEmptyDescription(t *testing.T) {
	h := newHarness()
	h.engine.enricher = suffixEnricher{}
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(1, "Bare Monument", 55.7521, 37.6175, "historical"),
	})
	h.fixes.set(55.7520, 37.6175)

	h.engine.Cycle(context.Background())

	require.Equal(t, 1, h.queue.Depth())
	h.queue.mu.Lock()
	text := h.queue.items[0].Text
	h.queue.mu.Unlock()
	assert.Equal(t, "Bare Monument. Bare Monument is a notable place.", text)
}

type fakeRegions struct {
	mu        sync.Mutex
	refreshes [][]geofence.Region
}

func (f *fakeRegions) Refresh(regions []geofence.Region) error {
	f.mu.Lock()
	f.refreshes = append(f.refreshes, regions)
	f.mu.Unlock()
	return nil
}

// Query answers containment from the last refreshed set with an exact
// distance check, like the real index.
func (f *fakeRegions) Query(lat, lon float64) []geofence.Region {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.refreshes) == 0 {
		return nil
	}
	pt := geo.Point{Lat: lat, Lon: lon}
	var hits []geofence.Region
	for _, r := range f.refreshes[len(f.refreshes)-1] {
		if geo.Distance(pt, geo.Point{Lat: r.Lat, Lon: r.Lon}) <= r.RadiusM {
			hits = append(hits, r)
		}
	}
	return hits
}

func (f *fakeRegions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshes)
}

func TestGeofenceRefreshOnlyOnStoreChange(t *testing.T) {
	h := newHarness()
	regions := &fakeRegions{}
	h.engine.regions = regions
	h.fixes.set(55.7520, 37.6175)

	// First cycle always rebuilds, picking up persisted contents
	h.engine.Cycle(context.Background())
	require.Equal(t, 1, regions.count())

	// No store mutation since: index untouched
	h.engine.Cycle(context.Background())
	assert.Equal(t, 1, regions.count())

	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(9, "New Chapel", 55.7522, 37.6175, "religious_buildings"),
	})
	h.engine.Cycle(context.Background())
	require.Equal(t, 2, regions.count())

	regions.mu.Lock()
	last := regions.refreshes[len(regions.refreshes)-1]
	regions.mu.Unlock()
	require.Len(t, last, 1)
	assert.Equal(t, "node/9", last[0].ID)
	assert.Equal(t, h.settings.Get().RadiusM, last[0].RadiusM)
}

func TestGeofenceRefreshOnSettingsUpdate(t *testing.T) {
	h := newHarness()
	regions := &fakeRegions{}
	h.engine.regions = regions
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(3, "Gate", 55.7522, 37.6175, "historical"),
	})
	h.fixes.set(55.7520, 37.6175)

	h.engine.Cycle(context.Background())
	require.Equal(t, 1, regions.count())

	next := h.settings.Get()
	next.RadiusM = 1200
	h.settings.update(next)

	h.engine.Cycle(context.Background())
	require.Equal(t, 2, regions.count(), "settings update must rebuild the index")

	regions.mu.Lock()
	last := regions.refreshes[len(regions.refreshes)-1]
	regions.mu.Unlock()
	require.Len(t, last, 1)
	assert.Equal(t, 1200.0, last[0].RadiusM)
}

func TestStatusReportsActiveRegions(t *testing.T) {
	h := newHarness()
	regions := &fakeRegions{}
	h.engine.regions = regions
	// The first POI is ~22 m from the fix, the second far outside any radius
	_ = h.store.UpsertPOIs(context.Background(), []*model.POI{
		poi(5, "Kremlin", 55.7522, 37.6175, "historical"),
		poi(6, "Another City", 59.93, 30.33, "religious_buildings"),
	})
	h.fixes.set(55.7520, 37.6175)

	h.engine.Cycle(context.Background())

	assert.Equal(t, []string{"Kremlin"}, h.engine.Status().ActiveRegions)
}
