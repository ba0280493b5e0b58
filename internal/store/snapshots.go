package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// Snapshot is one stored extraction of a workbook revision.
type Snapshot struct {
	ID         int64                  `json:"id"`
	SourceHash string                 `json:"source_hash"`
	SourceName string                 `json:"source_name"`
	CreatedAt  time.Time              `json:"created_at"`
	EntryCount int                    `json:"entry_count"`
	Entries    []models.ScheduleEntry `json:"entries,omitempty"`
	Stats      models.ParseStats      `json:"stats"`
}

const snapshotColumns = "id, source_hash, source_name, created_at, entry_count, entries_json, stats_json"

// HasSnapshot reports whether a workbook with this content hash was stored.
func (s *Store) HasSnapshot(ctx context.Context, hash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM snapshots WHERE source_hash = ?"), hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check snapshot: %w", err)
	}
	return n > 0, nil
}

// SaveSnapshot stores an extraction result together with the changes that
// led to it. A repeated content hash yields ErrSnapshotExists.
func (s *Store) SaveSnapshot(ctx context.Context, name string, result *models.ExtractionResult, changes []models.ScheduleChange) (*Snapshot, error) {
	entries, err := json.Marshal(result.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}

	snap := &Snapshot{
		SourceHash: result.SourceHash,
		SourceName: name,
		CreatedAt:  s.now().UTC(),
		EntryCount: len(result.Entries),
		Entries:    result.Entries,
		Stats:      result.Stats,
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.rebind(`INSERT INTO snapshots
			(source_hash, source_name, created_at, entry_count, entries_json, stats_json)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			snap.SourceHash, snap.SourceName, snap.CreatedAt, snap.EntryCount, string(entries), string(stats),
		).Scan(&snap.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrSnapshotExists, snap.SourceHash)
			}
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return s.appendChanges(ctx, tx, snap.ID, changes)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("snapshot saved",
		logging.Int64("id", snap.ID),
		logging.String("source", name),
		logging.Int("changes", len(changes)))
	return snap, nil
}

// Snapshot returns a stored snapshot with its entries.
func (s *Store) Snapshot(ctx context.Context, id int64) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?"), id)
	return scanSnapshot(row)
}

// LatestSnapshot returns the newest snapshot of a source older than beforeID.
// beforeID <= 0 means no upper bound.
func (s *Store) LatestSnapshot(ctx context.Context, sourceName string, beforeID int64) (*Snapshot, error) {
	if beforeID <= 0 {
		beforeID = math.MaxInt64
	}
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+snapshotColumns+
		" FROM snapshots WHERE source_name = ? AND id < ? ORDER BY id DESC LIMIT 1"), sourceName, beforeID)
	return scanSnapshot(row)
}

// ListSnapshots returns the newest snapshots first, without their entries.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, source_hash, source_name, created_at, entry_count
		FROM snapshots ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.SourceHash, &snap.SourceName, &snap.CreatedAt, &snap.EntryCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, closeRows(rows)
}

// AllEntries returns the entries of the newest snapshot of every source,
// ordered by source name.
func (s *Store) AllEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entries_json FROM snapshots s
		WHERE id = (SELECT MAX(id) FROM snapshots WHERE source_name = s.source_name)
		ORDER BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	all := []models.ScheduleEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entries: %w", err)
		}
		var entries []models.ScheduleEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode entries: %w", err)
		}
		all = append(all, entries...)
	}
	return all, closeRows(rows)
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	var entries, stats []byte
	err := row.Scan(&snap.ID, &snap.SourceHash, &snap.SourceName, &snap.CreatedAt, &snap.EntryCount, &entries, &stats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	if err := json.Unmarshal(entries, &snap.Entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	if err := json.Unmarshal(stats, &snap.Stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &snap, nil
}
