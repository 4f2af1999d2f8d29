// Package store persists published terrain height grids to SQLite so the
// sandtable resumes from its last shape after a restart instead of rising
// from a flat plane.
package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"embed"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sandtable/internal/monitoring"
)

// ErrNoSnapshot indicates the snapshot table is empty.
var ErrNoSnapshot = errors.New("store: no height snapshot")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Snapshot is a persisted height grid. The grid values are stored as a
// gob+gzip blob; Resolution recovers the square dimension.
type Snapshot struct {
	SnapshotID     string    `json:"snapshot_id"`
	TakenUnixNanos int64     `json:"taken_unix_nanos"`
	Resolution     int       `json:"resolution"`
	Reason         string    `json:"reason"`
	BlobBytes      int       `json:"blob_bytes"`
	Heights        []float64 `json:"-"`
}

// Store wraps the terrain database. Safe for concurrent use; all access
// goes through database/sql's pooled connections.
type Store struct {
	*sql.DB
}

// New opens (or creates) the terrain database at path and applies any
// pending migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateUp runs all pending migrations from the embedded migration files.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	// Note: we don't close m here because it would close the underlying DB
	// connection.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// serializeHeights compresses the grid values using gob encoding and gzip
// compression.
func serializeHeights(values []float64) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(values); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeHeights decompresses and decodes grid values from a gob+gzip
// blob.
func deserializeHeights(blob []byte) ([]float64, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty heights blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var values []float64
	dec := gob.NewDecoder(gz)
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode heights: %w", err)
	}
	return values, nil
}

// InsertSnapshot serializes and stores a height grid. Returns the snapshot
// ID (generated when empty).
func (s *Store) InsertSnapshot(snap *Snapshot) (string, error) {
	if snap.Resolution <= 0 || len(snap.Heights) != snap.Resolution*snap.Resolution {
		return "", fmt.Errorf("snapshot resolution %d does not match %d values",
			snap.Resolution, len(snap.Heights))
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.New().String()
	}
	if snap.TakenUnixNanos == 0 {
		snap.TakenUnixNanos = time.Now().UnixNano()
	}

	blob, err := serializeHeights(snap.Heights)
	if err != nil {
		return "", fmt.Errorf("failed to serialize heights: %w", err)
	}

	_, err = s.Exec(`
		INSERT INTO height_snapshots (snapshot_id, taken_unix_nanos, resolution, heights_blob, snapshot_reason)
		VALUES (?, ?, ?, ?, ?)
	`, snap.SnapshotID, snap.TakenUnixNanos, snap.Resolution, blob, snap.Reason)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	monitoring.Debugf("[Store] Persisted snapshot %s: %dx%d, reason=%s, blob=%d bytes",
		snap.SnapshotID, snap.Resolution, snap.Resolution, snap.Reason, len(blob))
	return snap.SnapshotID, nil
}

// LatestSnapshot returns the most recently taken snapshot with its heights
// decoded, or ErrNoSnapshot.
func (s *Store) LatestSnapshot() (*Snapshot, error) {
	row := s.QueryRow(`
		SELECT snapshot_id, taken_unix_nanos, resolution, heights_blob, snapshot_reason
		FROM height_snapshots
		ORDER BY taken_unix_nanos DESC
		LIMIT 1
	`)
	return scanSnapshot(row)
}

// GetSnapshot returns the snapshot with the given ID, or ErrNoSnapshot.
func (s *Store) GetSnapshot(snapshotID string) (*Snapshot, error) {
	row := s.QueryRow(`
		SELECT snapshot_id, taken_unix_nanos, resolution, heights_blob, snapshot_reason
		FROM height_snapshots
		WHERE snapshot_id = ?
	`, snapshotID)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	var blob []byte
	err := row.Scan(&snap.SnapshotID, &snap.TakenUnixNanos, &snap.Resolution, &blob, &snap.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
	}
	snap.BlobBytes = len(blob)
	snap.Heights, err = deserializeHeights(blob)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots returns snapshot metadata (no heights) for the most recent
// limit entries, newest first.
func (s *Store) ListSnapshots(limit int) ([]Snapshot, error) {
	rows, err := s.Query(`
		SELECT snapshot_id, taken_unix_nanos, resolution, LENGTH(heights_blob), snapshot_reason
		FROM height_snapshots
		ORDER BY taken_unix_nanos DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.SnapshotID, &snap.TakenUnixNanos, &snap.Resolution,
			&snap.BlobBytes, &snap.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Prune deletes all but the newest keep snapshots. Returns the number of
// rows removed.
func (s *Store) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.Exec(`
		DELETE FROM height_snapshots
		WHERE snapshot_id NOT IN (
			SELECT snapshot_id FROM height_snapshots
			ORDER BY taken_unix_nanos DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		monitoring.Logf("[Store] Pruned %d snapshots (keeping %d)", removed, keep)
	}
	return removed, nil
}

// SaveHeights persists a published height grid. Part of the engine's
// snapshot store contract.
func (s *Store) SaveHeights(resolution int, values []float64, reason string) error {
	_, err := s.InsertSnapshot(&Snapshot{
		Resolution: resolution,
		Heights:    values,
		Reason:     reason,
	})
	return err
}

// LoadLatestHeights returns the most recent persisted grid. Part of the
// engine's snapshot store contract.
func (s *Store) LoadLatestHeights() (int, []float64, error) {
	snap, err := s.LatestSnapshot()
	if err != nil {
		return 0, nil, err
	}
	if len(snap.Heights) != snap.Resolution*snap.Resolution {
		return 0, nil, fmt.Errorf("snapshot %s blob holds %d values, expected %d",
			snap.SnapshotID, len(snap.Heights), snap.Resolution*snap.Resolution)
	}
	return snap.Resolution, snap.Heights, nil
}
