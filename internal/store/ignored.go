package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/candidates"
)

// ErrInvalidCandidate indicates an unknown candidate kind or an empty key.
var ErrInvalidCandidate = errors.New("invalid candidate")

// IgnoreCandidate records a curator's decision to dismiss a candidate.
// Repeating it is a no-op.
func (s *Store) IgnoreCandidate(ctx context.Context, kind, key string) error {
	switch kind {
	case candidates.KindInstructor, candidates.KindSubject, candidates.KindRelation:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCandidate, kind)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty %s key", ErrInvalidCandidate, kind)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO ignored_candidates (kind, key, created_at)
		VALUES (?, ?, ?) ON CONFLICT (kind, key) DO NOTHING`), kind, key, s.now().UTC())
	if err != nil {
		return fmt.Errorf("ignore %s: %w", kind, err)
	}
	return nil
}

// IgnoredCandidates returns every dismissed candidate as detection input.
func (s *Store) IgnoredCandidates(ctx context.Context) (candidates.Ignored, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, key FROM ignored_candidates ORDER BY kind, key")
	if err != nil {
		return candidates.Ignored{}, fmt.Errorf("query ignored candidates: %w", err)
	}
	keys := map[string][]string{}
	for rows.Next() {
		var kind, key string
		if err := rows.Scan(&kind, &key); err != nil {
			rows.Close()
			return candidates.Ignored{}, fmt.Errorf("scan ignored candidate: %w", err)
		}
		keys[kind] = append(keys[kind], key)
	}
	if err := closeRows(rows); err != nil {
		return candidates.Ignored{}, err
	}
	return candidates.NewIgnored(
		keys[candidates.KindInstructor],
		keys[candidates.KindSubject],
		keys[candidates.KindRelation],
	), nil
}
