// Package engine implements the proximity announcement engine: it joins
// the location stream with settings, decides when to fetch POIs, ranks
// and deduplicates candidates, and hands winners to the speech queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"geoguidego/pkg/geo"
	"geoguidego/pkg/geofence"
	"geoguidego/pkg/model"
	"geoguidego/pkg/overpass"
	"geoguidego/pkg/store"
)

// Fetcher issues one POI query around a point.
type Fetcher interface {
	FetchAround(ctx context.Context, center geo.Point, radiusM float64, enabled []string, lang string) ([]*model.POI, error)
}

// FixSource exposes the latest location fix.
type FixSource interface {
	Latest() (model.Fix, error)
}

// SettingsSource exposes the current settings snapshot and a change
// stream that replays the current value on subscribe.
type SettingsSource interface {
	Get() model.Settings
	Subscribe() <-chan model.Settings
}

// Announcer accepts speech items without blocking.
type Announcer interface {
	Enqueue(item *model.SpeechItem)
	Depth() int
}

// HistorySink records announcements fire-and-forget.
type HistorySink interface {
	Append(e *model.HistoryEntry)
}

// RegionIndex is the best-effort geofence collaborator.
type RegionIndex interface {
	Refresh(regions []geofence.Region) error
	Query(lat, lon float64) []geofence.Region
}

// Enricher upgrades a POI description before it is spoken. Best effort:
// implementations return the current description when nothing better is
// available.
type Enricher interface {
	EnrichDescription(ctx context.Context, title, current, lang string) string
}

// Cooldowns applied per classified fetch error kind.
const (
	cooldownRateLimited    = 60 * time.Second
	cooldownTimeout        = 30 * time.Second
	cooldownNoConnectivity = 30 * time.Second
	cooldownDefault        = 60 * time.Second
)

// Engine is the announcement state machine. All state is owned by the
// single Run goroutine; Status reads a mutex-guarded snapshot.
type Engine struct {
	fixes    FixSource
	settings SettingsSource
	fetcher  Fetcher
	pois     store.POIStore
	history  HistorySink
	queue    Announcer
	regions  RegionIndex // may be nil
	enricher Enricher    // may be nil

	tick time.Duration
	now  func() time.Time

	// Loop-owned state
	announced         map[string]struct{}
	anchor            *geo.Point
	fetchBlockedUntil time.Time
	poisChanged       <-chan struct{}
	settingsChanged   <-chan model.Settings
	regionsDirty      bool

	status statusCell
}

// Config carries engine construction parameters.
type Config struct {
	Tick time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// Enricher upgrades descriptions before announcement; nil disables.
	Enricher Enricher
}

// New creates an engine. regions may be nil.
func New(fixes FixSource, settings SettingsSource, fetcher Fetcher, pois store.POIStore,
	history HistorySink, queue Announcer, regions RegionIndex, cfg Config) *Engine {

	tick := cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		fixes:           fixes,
		settings:        settings,
		fetcher:         fetcher,
		pois:            pois,
		history:         history,
		queue:           queue,
		regions:         regions,
		enricher:        cfg.Enricher,
		tick:            tick,
		now:             now,
		announced:       make(map[string]struct{}),
		poisChanged:     pois.SubscribePOIs(),
		settingsChanged: settings.Subscribe(),
		// Pick up persisted store contents on the first cycle
		regionsDirty: true,
	}
}

// Run drives the engine until the context is cancelled. A cycle error
// never terminates the loop.
func (e *Engine) Run(ctx context.Context) {
	e.status.setRunning(true)
	defer e.status.setRunning(false)

	slog.Info("Engine started", "tick", e.tick)
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine stopped")
			return
		case <-ticker.C:
			e.Cycle(ctx)
		}
	}
}

// Cycle runs one engine evaluation. Exported for deterministic tests.
func (e *Engine) Cycle(ctx context.Context) {
	fix, err := e.fixes.Latest()
	if err != nil {
		e.status.setText("waiting for location")
		return
	}
	st := e.settings.Get()
	here := geo.Point{Lat: fix.Lat, Lon: fix.Lon}

	e.maybeFetch(ctx, here, st)
	e.refreshRegions(ctx, st)
	winners := e.rank(ctx, here, st)
	e.announce(ctx, winners, st)

	var active []string
	if e.regions != nil {
		for _, r := range e.regions.Query(fix.Lat, fix.Lon) {
			active = append(active, r.Name)
		}
	}

	e.status.update(func(s *model.EngineStatus) {
		s.LastFix = &fix
		if e.anchor != nil {
			s.AnchorLat = e.anchor.Lat
			s.AnchorLon = e.anchor.Lon
		}
		s.ActiveRegions = active
		s.AnnouncedCount = len(e.announced)
		s.QueueDepth = e.queue.Depth()
		s.LastCycleAt = e.now()
	})
}

// maybeFetch applies the displacement gate and error cooldown, and on a
// successful fetch advances the anchor.
func (e *Engine) maybeFetch(ctx context.Context, here geo.Point, st model.Settings) {
	if e.anchor != nil && geo.Distance(*e.anchor, here) < st.MinDisplacementM {
		return
	}
	if e.now().Before(e.fetchBlockedUntil) {
		e.status.setText(fmt.Sprintf("network cooldown until %s", e.fetchBlockedUntil.Format("15:04:05")))
		return
	}

	_, err := e.fetcher.FetchAround(ctx, here, st.RadiusM, st.EnabledCategories, st.Language)
	if err != nil {
		d := cooldownFor(err)
		e.fetchBlockedUntil = e.now().Add(d)
		e.status.update(func(s *model.EngineStatus) {
			s.LastFetchError = err.Error()
			s.CooldownUntil = e.fetchBlockedUntil
			s.StatusText = fmt.Sprintf("fetch failed, retrying in %s", d)
		})
		slog.Warn("POI fetch failed, cooldown engaged", "cooldown", d, "error", err)
		return
	}

	// Anchor advances only on success: a failed fetch keeps the next
	// equal-or-larger movement retrying.
	anchor := here
	e.anchor = &anchor
	e.status.update(func(s *model.EngineStatus) {
		s.LastFetchError = ""
		s.CooldownUntil = time.Time{}
	})
}

// cooldownFor maps a classified adapter error to its cooldown.
func cooldownFor(err error) time.Duration {
	var oerr *overpass.Error
	if !errors.As(err, &oerr) {
		return cooldownDefault
	}
	switch oerr.Kind {
	case overpass.KindRateLimited:
		return cooldownRateLimited
	case overpass.KindTimeout:
		return cooldownTimeout
	case overpass.KindNoConnectivity:
		return cooldownNoConnectivity
	default:
		return cooldownDefault
	}
}

// refreshRegions rebuilds the geofence index from enabled-category store
// contents after a store mutation or a settings update. Best effort: all
// errors are swallowed.
func (e *Engine) refreshRegions(ctx context.Context, st model.Settings) {
	if e.regions == nil {
		return
	}
	select {
	case <-e.poisChanged:
		e.regionsDirty = true
	default:
	}
	select {
	case <-e.settingsChanged:
		e.regionsDirty = true
	default:
	}
	if !e.regionsDirty {
		return
	}
	all, err := e.pois.AllPOIs(ctx)
	if err != nil {
		return
	}
	var regions []geofence.Region
	for _, p := range all {
		if !st.CategoryEnabled(p.Category) {
			continue
		}
		regions = append(regions, geofence.Region{
			ID:      p.Key(),
			Name:    p.Title,
			Lat:     p.Lat,
			Lon:     p.Lon,
			RadiusM: st.RadiusM,
		})
	}
	if err := e.regions.Refresh(regions); err != nil {
		slog.Debug("Geofence refresh failed", "error", err)
		return
	}
	e.regionsDirty = false
}

// rank selects this cycle's winners from full store contents: category
// filter, announced-set filter, ascending distance (stable), truncate.
func (e *Engine) rank(ctx context.Context, here geo.Point, st model.Settings) []*model.POI {
	all, err := e.pois.AllPOIs(ctx)
	if err != nil {
		slog.Error("Failed to read POI store", "error", err)
		return nil
	}

	var candidates []*model.POI
	for _, p := range all {
		if !st.CategoryEnabled(p.Category) {
			continue
		}
		if _, done := e.announced[p.Key()]; done {
			continue
		}
		p.Distance = geo.Distance(here, geo.Point{Lat: p.Lat, Lon: p.Lon})
		candidates = append(candidates, p)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if st.MaxObjects > 0 && len(candidates) > st.MaxObjects {
		candidates = candidates[:st.MaxObjects]
	}
	return candidates
}

// announce marks each winner announced, records history, and enqueues
// speech — all before anything is actually rendered.
func (e *Engine) announce(ctx context.Context, winners []*model.POI, st model.Settings) {
	for _, p := range winners {
		key := p.Key()
		e.announced[key] = struct{}{}

		e.history.Append(&model.HistoryEntry{
			ID:                uuid.New().String(),
			POIKey:            key,
			Name:              p.Title,
			Lat:               p.Lat,
			Lon:               p.Lon,
			Distance:          p.Distance,
			Category:          p.Category,
			MatchedCategories: p.MatchedCategories,
			AnnouncedAt:       e.now(),
		})

		text := p.Description
		if e.enricher != nil {
			text = e.enricher.EnrichDescription(ctx, p.Title, p.Description, st.Language)
		}

		e.queue.Enqueue(&model.SpeechItem{
			ID:         uuid.New().String(),
			POIKey:     key,
			Text:       announcementText(p.Title, text),
			Speed:      st.Speed,
			Pitch:      st.Pitch,
			Pause:      st.Pause(),
			EnqueuedAt: e.now(),
		})

		slog.Info("Announcing POI", "poi", key, "title", p.Title, "distance_m", int(p.Distance), "category", p.Category)
	}

	if len(winners) > 0 {
		e.status.setText(fmt.Sprintf("announcing %d object(s)", len(winners)))
	}
}

// announcementText renders the spoken text for a POI.
func announcementText(title, description string) string {
	if description != "" {
		return title + ". " + description
	}
	return title
}

// Status returns a point-in-time snapshot for the status API.
func (e *Engine) Status() model.EngineStatus {
	return e.status.snapshot()
}
