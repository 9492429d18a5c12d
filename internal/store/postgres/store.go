// Package postgres implements a durable, queryable backing store for
// the inverted index (C6) on top of Postgres via pgx, for deployments
// that outgrow a single process's in-memory index or need the catalog
// to survive a restart without replaying every track's audio.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"shazoom/internal/index"
	"shazoom/internal/models"
)

// Store wraps a Postgres connection holding the tracks and fingerprints
// tables. Its StoreTrack method satisfies index.TrackSink, so a Builder
// mirrors each ingested track into it; for lookups it keeps its own SQL
// rather than sharing an interface with index.Index, and matching runs
// against an index.Index rehydrated by LoadIndex.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres at dsn and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("postgres: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	const createTracks = `
	CREATE TABLE IF NOT EXISTS tracks (
		track_id BIGINT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		metadata JSONB NOT NULL
	);`

	const createFingerprints = `
	CREATE TABLE IF NOT EXISTS fingerprints (
		hash_key BIGINT NOT NULL,
		anchor_time INTEGER NOT NULL,
		track_id BIGINT NOT NULL,
		PRIMARY KEY (hash_key, anchor_time, track_id)
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_hash_key ON fingerprints (hash_key);
	`

	if _, err := db.Exec(createTracks); err != nil {
		return fmt.Errorf("creating tracks table: %w", err)
	}
	if _, err := db.Exec(createFingerprints); err != nil {
		return fmt.Errorf("creating fingerprints table: %w", err)
	}
	return nil
}

// ErrTrackExists mirrors index.ErrTrackExists for callers that ingest
// straight into Postgres rather than through an in-memory Builder.
var ErrTrackExists = fmt.Errorf("postgres: track already exists")

// StoreTrack inserts trackID's metadata and every hash key it produced,
// each paired with the anchor times it was seen at. The insert is
// rejected if trackID is already registered, matching the in-memory
// index's re-ingestion refusal.
func (s *Store) StoreTrack(ctx context.Context, trackID uint32, meta models.TrackMetadata, keys map[uint32][]int) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("postgres: marshalling metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tracks (track_id, key, metadata) VALUES ($1, $2, $3)`,
		int64(trackID), meta.Key(), metaJSON)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrTrackExists
		}
		return fmt.Errorf("postgres: inserting track: %w", err)
	}

	const batchSize = 20000
	type row struct {
		hashKey    int64
		anchorTime int
	}
	var rows []row
	for key, anchorTimes := range keys {
		for _, at := range anchorTimes {
			rows = append(rows, row{hashKey: int64(key), anchorTime: at})
		}
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]any, 0, len(batch)*3)
		for i, r := range batch {
			base := i*3 + 1
			valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d)", base, base+1, base+2))
			valueArgs = append(valueArgs, r.hashKey, r.anchorTime, int64(trackID))
		}

		query := fmt.Sprintf(
			`INSERT INTO fingerprints (hash_key, anchor_time, track_id) VALUES %s ON CONFLICT DO NOTHING`,
			strings.Join(valueStrings, ","))
		if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
			return fmt.Errorf("postgres: inserting fingerprints: %w", err)
		}
	}

	return tx.Commit()
}

// Lookup returns every (track_id, anchor_time) posting stored under any
// of keys, using a single ANY($1) query rather than one round trip per
// key.
func (s *Store) Lookup(ctx context.Context, keys []uint32) (map[uint32][]index.Posting, error) {
	results := make(map[uint32][]index.Posting)
	if len(keys) == 0 {
		return results, nil
	}

	addresses := make([]int64, len(keys))
	for i, k := range keys {
		addresses[i] = int64(k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT hash_key, anchor_time, track_id FROM fingerprints WHERE hash_key = ANY($1)`,
		pq.Array(addresses))
	if err != nil {
		return nil, fmt.Errorf("postgres: looking up fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hashKey int64
		var anchorTime int
		var trackID int64
		if err := rows.Scan(&hashKey, &anchorTime, &trackID); err != nil {
			return nil, fmt.Errorf("postgres: scanning fingerprint row: %w", err)
		}
		key := uint32(hashKey)
		results[key] = append(results[key], index.Posting{TrackID: uint32(trackID), AnchorTime: anchorTime})
	}
	return results, rows.Err()
}

// TrackMetadata fetches a single track's metadata by id.
func (s *Store) TrackMetadata(ctx context.Context, trackID uint32) (models.TrackMetadata, bool, error) {
	var metaJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata FROM tracks WHERE track_id = $1`, int64(trackID)).Scan(&metaJSON)
	if err == sql.ErrNoRows {
		return models.TrackMetadata{}, false, nil
	}
	if err != nil {
		return models.TrackMetadata{}, false, fmt.Errorf("postgres: fetching track metadata: %w", err)
	}

	var meta models.TrackMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return models.TrackMetadata{}, false, fmt.Errorf("postgres: unmarshalling track metadata: %w", err)
	}
	return meta, true, nil
}

// TotalTracks returns the number of distinct tracks registered.
func (s *Store) TotalTracks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count)
	return count, err
}

// DeleteTrack removes a track and every fingerprint row that references
// it.
func (s *Store) DeleteTrack(ctx context.Context, trackID uint32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE track_id = $1`, int64(trackID)); err != nil {
		return fmt.Errorf("postgres: deleting fingerprints: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE track_id = $1`, int64(trackID)); err != nil {
		return fmt.Errorf("postgres: deleting track: %w", err)
	}
	return tx.Commit()
}

// LoadIndex reads every track and fingerprint row into a fresh
// in-memory index, for deployments that keep Postgres as the source of
// truth but still want map-speed lookups during matching.
func (s *Store) LoadIndex(ctx context.Context, idx *index.Index) error {
	trackRows, err := s.db.QueryContext(ctx, `SELECT track_id, metadata FROM tracks`)
	if err != nil {
		return fmt.Errorf("postgres: loading tracks: %w", err)
	}
	defer trackRows.Close()

	metas := make(map[uint32]models.TrackMetadata)
	for trackRows.Next() {
		var trackID int64
		var metaJSON []byte
		if err := trackRows.Scan(&trackID, &metaJSON); err != nil {
			return fmt.Errorf("postgres: scanning track row: %w", err)
		}
		var meta models.TrackMetadata
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return fmt.Errorf("postgres: unmarshalling track metadata: %w", err)
		}
		metas[uint32(trackID)] = meta
	}
	if err := trackRows.Err(); err != nil {
		return err
	}

	keysByTrack := make(map[uint32]map[uint32][]int)
	fpRows, err := s.db.QueryContext(ctx, `SELECT hash_key, anchor_time, track_id FROM fingerprints`)
	if err != nil {
		return fmt.Errorf("postgres: loading fingerprints: %w", err)
	}
	defer fpRows.Close()

	for fpRows.Next() {
		var hashKey int64
		var anchorTime int
		var trackID int64
		if err := fpRows.Scan(&hashKey, &anchorTime, &trackID); err != nil {
			return fmt.Errorf("postgres: scanning fingerprint row: %w", err)
		}
		tid := uint32(trackID)
		if keysByTrack[tid] == nil {
			keysByTrack[tid] = make(map[uint32][]int)
		}
		keysByTrack[tid][uint32(hashKey)] = append(keysByTrack[tid][uint32(hashKey)], anchorTime)
	}
	if err := fpRows.Err(); err != nil {
		return err
	}

	for trackID, meta := range metas {
		idx.AddPostings(trackID, meta, keysByTrack[trackID])
	}
	return nil
}
