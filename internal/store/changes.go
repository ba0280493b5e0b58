package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// AppendChanges adds change records to a snapshot's log, after any already stored.
func (s *Store) AppendChanges(ctx context.Context, snapshotID int64, changes []models.ScheduleChange) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.appendChanges(ctx, tx, snapshotID, changes)
	})
}

func (s *Store) appendChanges(ctx context.Context, tx *sql.Tx, snapshotID int64, changes []models.ScheduleChange) error {
	if len(changes) == 0 {
		return nil
	}
	var next int
	if err := tx.QueryRowContext(ctx, s.rebind(
		"SELECT COALESCE(MAX(position) + 1, 0) FROM schedule_changes WHERE snapshot_id = ?"),
		snapshotID).Scan(&next); err != nil {
		return fmt.Errorf("next change position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO schedule_changes
		(snapshot_id, position, change_type, entry_id, field_name, old_value, new_value,
		 date, start_time, end_time, group_label, subject)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare change insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range changes {
		if _, err := stmt.ExecContext(ctx, snapshotID, next+i, string(c.ChangeType), c.EntryID,
			c.FieldName, c.OldValue, c.NewValue, c.Date, c.StartTime, c.EndTime, c.GroupLabel, c.Subject); err != nil {
			return fmt.Errorf("insert change: %w", err)
		}
	}
	return nil
}

// Changes returns a snapshot's change log in stored order.
func (s *Store) Changes(ctx context.Context, snapshotID int64) ([]models.ScheduleChange, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT change_type, entry_id, field_name, old_value, new_value,
		date, start_time, end_time, group_label, subject
		FROM schedule_changes WHERE snapshot_id = ? ORDER BY position`), snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	out := []models.ScheduleChange{}
	for rows.Next() {
		var c models.ScheduleChange
		var changeType string
		if err := rows.Scan(&changeType, &c.EntryID, &c.FieldName, &c.OldValue, &c.NewValue,
			&c.Date, &c.StartTime, &c.EndTime, &c.GroupLabel, &c.Subject); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.ChangeType = models.ChangeType(changeType)
		out = append(out, c)
	}
	return out, closeRows(rows)
}
