package overpass

import (
	"fmt"
	"strings"
)

// QueryBuilder assembles an Overpass QL query with OR'd per-category
// clauses around a center point.
type QueryBuilder struct {
	blocks  []string
	radius  int
	lat     float64
	lon     float64
	timeout int
}

// NewQueryBuilder creates a builder with the default 30s server timeout.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{radius: 500, timeout: 30}
}

// SetRadius sets the search radius in meters.
func (b *QueryBuilder) SetRadius(meters int) *QueryBuilder {
	b.radius = meters
	return b
}

// SetLocation sets the center point.
func (b *QueryBuilder) SetLocation(lat, lon float64) *QueryBuilder {
	b.lat = lat
	b.lon = lon
	return b
}

// SetTimeout sets the server-side [timeout:] in seconds.
func (b *QueryBuilder) SetTimeout(seconds int) *QueryBuilder {
	b.timeout = seconds
	return b
}

// AddCategory appends node (and unless nodeOnly, way) clauses matching
// the tag key, optionally restricted to a value allow-list.
func (b *QueryBuilder) AddCategory(key string, values []string, nodeOnly bool) *QueryBuilder {
	around := fmt.Sprintf("(around:%d,%s,%s)", b.radius, trimFloat(b.lat), trimFloat(b.lon))

	var selector string
	if len(values) > 0 {
		selector = fmt.Sprintf("[%q~\"^(%s)$\"]", key, strings.Join(values, "|"))
	} else {
		selector = fmt.Sprintf("[%q]", key)
	}

	b.blocks = append(b.blocks, "node"+selector+around+";")
	if !nodeOnly {
		b.blocks = append(b.blocks, "way"+selector+around+";")
	}
	return b
}

// Build returns the raw (unencoded) Overpass QL query.
func (b *QueryBuilder) Build() string {
	return fmt.Sprintf("[out:json][timeout:%d];(%s);out center;", b.timeout, strings.Join(b.blocks, ""))
}

// trimFloat formats a coordinate without trailing zeros, matching the
// compact form Overpass examples use.
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.7f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
