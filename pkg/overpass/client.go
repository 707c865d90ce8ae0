package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"geoguidego/pkg/classifier"
	"geoguidego/pkg/config"
	"geoguidego/pkg/geo"
	"geoguidego/pkg/model"
	"geoguidego/pkg/store"
)

// fetcher is the slice of the request client the adapter needs.
type fetcher interface {
	Get(ctx context.Context, u, cacheKey string) ([]byte, error)
}

// Client fetches POIs around a point from the Overpass API and maps the
// elements onto model.POI.
type Client struct {
	http       fetcher
	categories *config.CategoriesConfig
	classifier *classifier.Classifier
	pois       store.POIStore // nil disables persistence
	baseURL    string
	timeout    time.Duration
}

// New creates an Overpass client against the configured endpoint.
// Fetched batches persist into pois; pass nil to skip persistence.
func New(http fetcher, cfg *config.OverpassConfig, cats *config.CategoriesConfig, cls *classifier.Classifier, pois store.POIStore) *Client {
	return &Client{
		http:       http,
		categories: cats,
		classifier: cls,
		pois:       pois,
		baseURL:    cfg.URL,
		timeout:    time.Duration(cfg.Timeout),
	}
}

// response mirrors the Overpass JSON envelope.
type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *center           `json:"center"`
	Geom   []center          `json:"geometry"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FetchAround queries all enabled categories around the center point.
// An empty enabled set short-circuits to no results without a network
// round trip. Failures come back classified as *Error.
func (c *Client) FetchAround(ctx context.Context, centerPt geo.Point, radiusM float64, enabled []string, lang string) ([]*model.POI, error) {
	query, n := c.buildQuery(centerPt, radiusM, enabled)
	if n == 0 {
		return nil, nil
	}

	u := c.baseURL + "?data=" + url.QueryEscape(query)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// No cache key: results depend on a continuously moving center, a
	// stale hit would mask newly mapped objects.
	body, err := c.http.Get(reqCtx, u, "")
	if err != nil {
		cerr := ClassifyError(err)
		slog.Warn("Overpass fetch failed", "kind", cerr.Kind.String(), "error", err)
		return nil, cerr
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindUnknown, cause: fmt.Errorf("decode response: %w", err)}
	}

	pois := c.mapElements(resp.Elements, centerPt, lang)
	slog.Debug("Overpass fetch", "elements", len(resp.Elements), "pois", len(pois))

	// Persist the batch regardless of what the caller does with this
	// cycle. A failed upsert degrades ranking freshness, not the fetch.
	if c.pois != nil && len(pois) > 0 {
		if err := c.pois.UpsertPOIs(ctx, pois); err != nil {
			slog.Error("Failed to persist POI batch", "count", len(pois), "error", err)
		}
	}
	return pois, nil
}

// buildQuery assembles the query for the enabled categories and returns
// it with the number of clauses emitted.
func (c *Client) buildQuery(centerPt geo.Point, radiusM float64, enabled []string) (string, int) {
	b := NewQueryBuilder().
		SetRadius(int(radiusM)).
		SetLocation(centerPt.Lat, centerPt.Lon).
		SetTimeout(int(c.timeout / time.Second))

	n := 0
	enabledSet := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		enabledSet[id] = true
	}
	for _, cat := range c.categories.Categories {
		if !enabledSet[cat.ID] {
			continue
		}
		b.AddCategory(cat.OSMKey, cat.OSMValues, cat.NodeOnly)
		n++
	}
	return b.Build(), n
}

// mapElements converts raw elements to POIs, dropping anything without a
// resolvable coordinate or a usable title.
func (c *Client) mapElements(elements []element, from geo.Point, lang string) []*model.POI {
	pois := make([]*model.POI, 0, len(elements))
	for _, el := range elements {
		pt, ok := resolveCoords(el)
		if !ok {
			continue
		}

		title := pickTitle(el.Tags, lang)
		if title == "" {
			continue
		}

		description := pickDescription(el.Tags)

		var matched []string
		for _, cat := range c.categories.Categories {
			for k, v := range el.Tags {
				if cat.MatchesTag(k, v) {
					matched = append(matched, cat.ID)
					break
				}
			}
		}

		primary := ""
		if len(matched) > 0 {
			primary = matched[0]
		} else {
			primary = c.classifier.Classify(title, description)
		}

		pois = append(pois, &model.POI{
			OSMID:             el.ID,
			OSMType:           el.Type,
			Title:             title,
			Description:       description,
			Lat:               pt.Lat,
			Lon:               pt.Lon,
			Category:          primary,
			MatchedCategories: matched,
			Distance:          geo.Distance(from, pt),
		})
	}
	return pois
}

// resolveCoords picks the element position: node coordinates, way center,
// or the centroid of the way geometry.
func resolveCoords(el element) (geo.Point, bool) {
	switch el.Type {
	case "node":
		if el.Lat == 0 && el.Lon == 0 {
			return geo.Point{}, false
		}
		return geo.Point{Lat: el.Lat, Lon: el.Lon}, true
	case "way", "relation":
		if el.Center != nil {
			return geo.Point{Lat: el.Center.Lat, Lon: el.Center.Lon}, true
		}
		if len(el.Geom) > 0 {
			pts := make([]geo.Point, len(el.Geom))
			for i, g := range el.Geom {
				pts[i] = geo.Point{Lat: g.Lat, Lon: g.Lon}
			}
			return geo.Centroid(pts)
		}
	}
	return geo.Point{}, false
}

// pickTitle prefers the localized name tag, then the plain name.
func pickTitle(tags map[string]string, lang string) string {
	if lang != "" {
		if v := tags["name:"+lang]; v != "" {
			return v
		}
	}
	return tags["name"]
}

// pickDescription follows the tag precedence description > note > tourism.
func pickDescription(tags map[string]string) string {
	for _, key := range []string{"description", "note", "tourism"} {
		if v := tags[key]; v != "" {
			return v
		}
	}
	return ""
}
