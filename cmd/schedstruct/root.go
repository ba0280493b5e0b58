package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/cache"
	"github.com/ukaji3/schedstruct-go/internal/config"
	"github.com/ukaji3/schedstruct-go/internal/events"
	"github.com/ukaji3/schedstruct-go/internal/ingest"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/internal/metrics"
	"github.com/ukaji3/schedstruct-go/internal/objectstore"
	"github.com/ukaji3/schedstruct-go/internal/store"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "schedstruct",
		Short: "Ingest timetable workbooks into normalized class entries",
		Long: `schedstruct-go reads timetable workbooks, extracts class entries,
tracks changes between revisions and surfaces unregistered instructors,
subjects and relations for review.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file path (YAML)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newExtractCmd(a),
		newDiffCmd(a),
		newCandidatesCmd(a),
		newIngestCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newMigrateCmd(a),
		newRegistryCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// openStore connects to the configured database, migrating it when
// migrate is set and auto migration is enabled.
func (a *app) openStore(ctx context.Context, migrate bool) (*store.Store, error) {
	db := a.cfg.Database
	st, err := store.Open(ctx, store.Config{
		Driver:          db.Driver,
		DSN:             db.DSN,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}, a.log.Named("store"))
	if err != nil {
		return nil, err
	}
	if migrate && db.AutoMigrate {
		if err := st.MigrateUp(); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

// services is the wired ingestion stack.
type services struct {
	store   *store.Store
	ingest  *ingest.Service
	metrics *metrics.Metrics
	closers []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// buildServices wires the store and every enabled collaborator.
func (a *app) buildServices(ctx context.Context) (*services, error) {
	st, err := a.openStore(ctx, true)
	if err != nil {
		return nil, err
	}
	s := &services{store: st, closers: []func() error{st.Close}}
	deps := ingest.Deps{Store: st, Logger: a.log}

	if rc := a.cfg.Redis; rc.Enabled {
		rdb, err := cache.NewClient(ctx, cache.Config{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, rdb.Close)
		deps.Cache = cache.NewRegistryCache(rdb, rc.RegistryTTL, a.log.Named("cache"))
		deps.Lock = ingest.RedisLock(cache.NewLocker(rdb), rc.LockTTL)
	}
	if kc := a.cfg.Kafka; kc.Enabled {
		pub, err := events.NewPublisher(events.Config{Brokers: kc.Brokers, Topic: kc.Topic}, a.log.Named("events"))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pub.Close)
		deps.Publisher = pub
	}
	if mc := a.cfg.MinIO; mc.Enabled {
		objs, err := objectstore.New(objectstore.Config{
			Endpoint:  mc.Endpoint,
			AccessKey: mc.AccessKey,
			SecretKey: mc.SecretKey,
			UseSSL:    mc.UseSSL,
			Bucket:    mc.Bucket,
		}, a.log.Named("objects"))
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := objs.EnsureBucket(ctx); err != nil {
			s.Close()
			return nil, err
		}
		deps.Objects = objs
	}
	if a.cfg.Metrics.Enabled {
		s.metrics = metrics.New(true)
		deps.Metrics = s.metrics
	}

	s.ingest = ingest.NewService(deps, a.cfg.ExtractOptions(), a.cfg.CandidateOptions())
	return s, nil
}

// invalidateRegistryCache drops the cached registry when Redis is enabled.
func (a *app) invalidateRegistryCache(ctx context.Context) error {
	rc := a.cfg.Redis
	if !rc.Enabled {
		return nil
	}
	rdb, err := cache.NewClient(ctx, cache.Config{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()
	return cache.NewRegistryCache(rdb, rc.RegistryTTL, a.log).Invalidate(ctx)
}

func readRegistryFile(path string) (*models.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var reg models.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", path, err)
	}
	return &reg, nil
}

func readResultFile(path string) (*models.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	var res models.ExtractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", path, err)
	}
	return &res, nil
}

// writeJSON writes v to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v interface{}, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
