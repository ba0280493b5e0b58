// Package api serves ingestion, snapshot history and candidate review over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/schedstruct-go/internal/ingest"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/internal/store"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// Ingester runs ingestions and candidate detection.
type Ingester interface {
	Ingest(ctx context.Context, src ingest.Source) (*ingest.Result, error)
	Candidates(ctx context.Context) (models.CandidateReport, error)
}

// History reads stored snapshots and records curator decisions.
type History interface {
	Ping(ctx context.Context) error
	ListSnapshots(ctx context.Context, limit int) ([]store.Snapshot, error)
	Snapshot(ctx context.Context, id int64) (*store.Snapshot, error)
	Changes(ctx context.Context, snapshotID int64) ([]models.ScheduleChange, error)
	IgnoreCandidate(ctx context.Context, kind, key string) error
}

// Config tunes the router.
type Config struct {
	MaxUploadBytes int64
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the HTTP engine.
func NewRouter(cfg Config, svc Ingester, history History, log logging.Logger) *gin.Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	h := &handler{svc: svc, history: history, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Named("http")))

	r.GET("/healthz", h.health)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/ingest", bodyLimit(cfg.MaxUploadBytes), h.ingest)

		snapshots := v1.Group("/snapshots")
		{
			snapshots.GET("", h.listSnapshots)
			snapshots.GET("/:id", h.getSnapshot)
			snapshots.GET("/:id/changes", h.listChanges)
		}

		cands := v1.Group("/candidates")
		{
			cands.GET("", h.candidates)
			cands.POST("/ignore", h.ignoreCandidate)
		}
	}
	return r
}
