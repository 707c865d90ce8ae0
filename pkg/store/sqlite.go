package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"geoguidego/pkg/db"
	"geoguidego/pkg/model"
)

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB

	subMu sync.Mutex
	subs  []chan struct{}
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- POI ---

const poiColumns = `poi_key, osm_id, osm_type, title, description, lat, lon, category, matched_categories, created_at`

func (s *SQLiteStore) GetPOI(ctx context.Context, key string) (*model.POI, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+poiColumns+` FROM poi WHERE poi_key = ?`, key)

	p, err := scanPOI(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) AllPOIs(ctx context.Context) ([]*model.POI, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+poiColumns+` FROM poi ORDER BY created_at, poi_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.POI
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) UpsertPOIs(ctx context.Context, pois []*model.POI) error {
	if len(pois) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO poi (` + poiColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(poi_key) DO UPDATE SET
			  title=excluded.title,
			  description=excluded.description,
			  lat=excluded.lat,
			  lon=excluded.lon,
			  category=excluded.category,
			  matched_categories=excluded.matched_categories`

	for _, p := range pois {
		matchedJSON, _ := json.Marshal(p.MatchedCategories)
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx, query,
			p.Key(), p.OSMID, p.OSMType, p.Title, p.Description,
			p.Lat, p.Lon, p.Category, string(matchedJSON), createdAt,
		); err != nil {
			return fmt.Errorf("upsert poi %s: %w", p.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify()
	return nil
}

func (s *SQLiteStore) SubscribePOIs() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// notify signals all subscribers without blocking; a full channel means a
// signal is already pending and the extra one coalesces.
func (s *SQLiteStore) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPOI(r rowScanner) (*model.POI, error) {
	var p model.POI
	var key string
	var matchedJSON sql.NullString
	var description sql.NullString

	err := r.Scan(
		&key, &p.OSMID, &p.OSMType, &p.Title, &description,
		&p.Lat, &p.Lon, &p.Category, &matchedJSON, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = description.String
	}
	if matchedJSON.Valid && matchedJSON.String != "" {
		_ = json.Unmarshal([]byte(matchedJSON.String), &p.MatchedCategories)
	}
	return &p, nil
}

// --- History ---

func (s *SQLiteStore) AppendHistory(ctx context.Context, e *model.HistoryEntry) error {
	matchedJSON, _ := json.Marshal(e.MatchedCategories)
	announcedAt := e.AnnouncedAt
	if announcedAt.IsZero() {
		announcedAt = time.Now()
	}

	query := `INSERT INTO history (id, poi_key, name, lat, lon, distance_m, category, matched_categories, announced_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.POIKey, e.Name, e.Lat, e.Lon, e.Distance, e.Category, string(matchedJSON), announcedAt,
	)
	return err
}

func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]*model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, poi_key, name, lat, lon, distance_m, category, matched_categories, announced_at
		 FROM history ORDER BY announced_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var matchedJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.POIKey, &e.Name, &e.Lat, &e.Lon, &e.Distance,
			&e.Category, &matchedJSON, &e.AnnouncedAt,
		); err != nil {
			return nil, err
		}
		if matchedJSON.Valid && matchedJSON.String != "" {
			_ = json.Unmarshal([]byte(matchedJSON.String), &e.MatchedCategories)
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE announced_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	// Transparent Decompression
	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		decompressed, err := decompress(val)
		if err == nil {
			return decompressed, true
		}
		// Corrupted gzip header: fall through and return raw
	}

	return val, true
}

func (s *SQLiteStore) HasCache(ctx context.Context, key string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM cache WHERE key = ?", key).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	// Transparent Compression
	compressed, err := compress(val)
	if err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
