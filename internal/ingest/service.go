// Package ingest runs the store-extract-diff-publish pipeline around the
// extraction core.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/schedstruct-go/internal/cache"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/internal/metrics"
	"github.com/ukaji3/schedstruct-go/internal/store"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/candidates"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/changes"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

var (
	// ErrInProgress indicates another worker is ingesting the same content.
	ErrInProgress = errors.New("ingestion already in progress")
	// ErrNoSource indicates a Source with nothing to read.
	ErrNoSource = errors.New("source has no data, path or object key")
	// ErrNoObjectStore indicates an object key source without an object store.
	ErrNoObjectStore = errors.New("object store not configured")
)

// Store is the persistence the service needs.
type Store interface {
	LoadRegistry(ctx context.Context) (*models.Registry, error)
	HasSnapshot(ctx context.Context, hash string) (bool, error)
	LatestSnapshot(ctx context.Context, sourceName string, beforeID int64) (*store.Snapshot, error)
	SaveSnapshot(ctx context.Context, name string, result *models.ExtractionResult, changes []models.ScheduleChange) (*store.Snapshot, error)
	AllEntries(ctx context.Context) ([]models.ScheduleEntry, error)
	IgnoredCandidates(ctx context.Context) (candidates.Ignored, error)
}

// RegistryCache caches the registry between runs.
type RegistryCache interface {
	Get(ctx context.Context) (*models.Registry, bool, error)
	Set(ctx context.Context, reg *models.Registry) error
}

// Publisher announces stored changes.
type Publisher interface {
	PublishChanges(ctx context.Context, snapshotID int64, sourceName string, changes []models.ScheduleChange) error
}

// ObjectStore fetches uploaded workbooks and archives ingested ones.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Archive(ctx context.Context, hash, sourceName string, data []byte) (string, error)
}

// LockFunc takes an exclusive lock on name and returns its release.
type LockFunc func(ctx context.Context, name string) (release func(context.Context) error, err error)

// RedisLock adapts a cache.Locker to a LockFunc.
func RedisLock(l *cache.Locker, ttl time.Duration) LockFunc {
	return func(ctx context.Context, name string) (func(context.Context) error, error) {
		lock, err := l.Acquire(ctx, name, ttl)
		if err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				return nil, fmt.Errorf("%w: %v", ErrInProgress, err)
			}
			return nil, err
		}
		return lock.Release, nil
	}
}

// Deps are the collaborators of a Service. Store is required; the rest
// are optional.
type Deps struct {
	Store     Store
	Cache     RegistryCache
	Publisher Publisher
	Objects   ObjectStore
	Lock      LockFunc
	Metrics   *metrics.Metrics
	Logger    logging.Logger
}

// Service ingests workbooks.
type Service struct {
	deps          Deps
	opts          schedstruct.Options
	candidateOpts candidates.Options
	log           logging.Logger
}

// NewService returns a Service.
func NewService(deps Deps, opts schedstruct.Options, candidateOpts candidates.Options) *Service {
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Service{
		deps:          deps,
		opts:          opts,
		candidateOpts: candidateOpts,
		log:           log.Named("ingest"),
	}
}

// Source names one workbook to ingest. Exactly one of Data, Path and
// ObjectKey is read, in that order.
type Source struct {
	// Name identifies the workbook across revisions. Defaults to the base
	// name of Path or ObjectKey.
	Name      string
	Data      []byte
	Path      string
	ObjectKey string
}

// Outcome classifies an ingestion.
type Outcome string

// Ingestion outcomes.
const (
	OutcomeStored    Outcome = "stored"
	OutcomeUnchanged Outcome = "unchanged"
)

// Result describes one ingestion.
type Result struct {
	Outcome    Outcome                 `json:"outcome"`
	SourceName string                  `json:"source_name"`
	SourceHash string                  `json:"source_hash"`
	Snapshot   *store.Snapshot         `json:"snapshot,omitempty"`
	Changes    []models.ScheduleChange `json:"changes"`
	Stats      *models.ParseStats      `json:"stats,omitempty"`
}

// Ingest extracts a workbook and stores it as a new snapshot, with the
// changes against the previous snapshot of the same source. A workbook
// whose content hash is already stored is skipped.
func (s *Service) Ingest(ctx context.Context, src Source) (*Result, error) {
	res, err := s.ingest(ctx, src)
	switch {
	case errors.Is(err, ErrInProgress):
		s.deps.Metrics.Ingestion(metrics.ResultLocked)
	case err != nil:
		s.deps.Metrics.Ingestion(metrics.ResultFailed)
	case res.Outcome == OutcomeUnchanged:
		s.deps.Metrics.Ingestion(metrics.ResultUnchanged)
	default:
		s.deps.Metrics.Ingestion(metrics.ResultStored)
	}
	return res, err
}

func (s *Service) ingest(ctx context.Context, src Source) (*Result, error) {
	name, data, err := s.read(ctx, src)
	if err != nil {
		return nil, err
	}
	hash := schedstruct.ContentHash(data)
	log := s.log.With(logging.String("source", name), logging.String("hash", hash))
	out := &Result{SourceName: name, SourceHash: hash, Changes: []models.ScheduleChange{}}

	if seen, err := s.deps.Store.HasSnapshot(ctx, hash); err != nil {
		return nil, err
	} else if seen {
		log.Info("workbook unchanged, skipping")
		out.Outcome = OutcomeUnchanged
		return out, nil
	}

	if s.deps.Lock != nil {
		release, err := s.deps.Lock(ctx, "ingest:"+hash)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("release ingestion lock", logging.Err(err))
			}
		}()
		// Another worker may have finished between the check and the lock.
		if seen, err := s.deps.Store.HasSnapshot(ctx, hash); err != nil {
			return nil, err
		} else if seen {
			out.Outcome = OutcomeUnchanged
			return out, nil
		}
	}

	reg, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}

	result, err := schedstruct.ExtractBytes(name, data, reg, s.opts)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.ObserveExtraction(result)

	prior, err := s.deps.Store.LatestSnapshot(ctx, name, 0)
	switch {
	case errors.Is(err, store.ErrNotFound):
		prior = nil
	case err != nil:
		return nil, err
	}
	if prior != nil {
		out.Changes = changes.Diff(prior.Entries, result.Entries)
	}

	snap, err := s.deps.Store.SaveSnapshot(ctx, name, result, out.Changes)
	if errors.Is(err, store.ErrSnapshotExists) {
		out.Outcome = OutcomeUnchanged
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Outcome = OutcomeStored
	out.Snapshot = snap
	out.Stats = &result.Stats
	s.deps.Metrics.ObserveChanges(out.Changes)

	log.Info("workbook ingested",
		logging.Int64("snapshot_id", snap.ID),
		logging.Int("entries", len(result.Entries)),
		logging.Int("changes", len(out.Changes)),
		logging.Int("error_cells", result.Stats.ErrorCells),
		logging.Duration("elapsed", result.Stats.ProcessingTime),
	)

	if s.deps.Objects != nil {
		if key, err := s.deps.Objects.Archive(ctx, hash, name, data); err != nil {
			log.Warn("archive workbook", logging.Err(err))
		} else {
			log.Debug("workbook archived", logging.String("key", key))
		}
	}
	if s.deps.Publisher != nil && len(out.Changes) > 0 {
		if err := s.deps.Publisher.PublishChanges(ctx, snap.ID, name, out.Changes); err != nil {
			// The snapshot and its changes are stored; consumers can catch
			// up from the changes endpoint.
			log.Error("publish changes", logging.Err(err))
		}
	}
	return out, nil
}

// read loads the workbook bytes of src.
func (s *Service) read(ctx context.Context, src Source) (string, []byte, error) {
	name := src.Name
	switch {
	case src.Data != nil:
		if name == "" {
			name = "upload.xlsx"
		}
		return name, src.Data, nil
	case src.Path != "":
		if name == "" {
			name = filepath.Base(src.Path)
		}
		data, err := os.ReadFile(src.Path)
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", schedstruct.ErrFileNotFound, src.Path)
		}
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", src.Path, err)
		}
		return name, data, nil
	case src.ObjectKey != "":
		if s.deps.Objects == nil {
			return "", nil, ErrNoObjectStore
		}
		if name == "" {
			name = filepath.Base(src.ObjectKey)
		}
		data, err := s.deps.Objects.Fetch(ctx, src.ObjectKey)
		if err != nil {
			return "", nil, err
		}
		return name, data, nil
	}
	return "", nil, ErrNoSource
}

// Registry returns the entity registry, from the cache when possible.
func (s *Service) Registry(ctx context.Context) (*models.Registry, error) {
	if s.deps.Cache != nil {
		reg, ok, err := s.deps.Cache.Get(ctx)
		if err != nil {
			s.log.Warn("registry cache read", logging.Err(err))
		} else if ok {
			return reg, nil
		}
	}
	reg, err := s.deps.Store.LoadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, reg); err != nil {
			s.log.Warn("registry cache write", logging.Err(err))
		}
	}
	return reg, nil
}

// Candidates runs candidate detection over the latest snapshot of every
// source.
func (s *Service) Candidates(ctx context.Context) (models.CandidateReport, error) {
	reg, err := s.Registry(ctx)
	if err != nil {
		return models.CandidateReport{}, err
	}
	entries, err := s.deps.Store.AllEntries(ctx)
	if err != nil {
		return models.CandidateReport{}, err
	}
	ignored, err := s.deps.Store.IgnoredCandidates(ctx)
	if err != nil {
		return models.CandidateReport{}, err
	}
	return candidates.Detect(entries, resolver.NewIndex(reg), ignored, s.candidateOpts), nil
}
