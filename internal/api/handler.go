package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/schedstruct-go/internal/ingest"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/internal/store"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct"
)

type handler struct {
	svc     Ingester
	history History
	log     logging.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type ignoreRequest struct {
	Kind string `json:"kind" binding:"required"`
	Key  string `json:"key" binding:"required"`
}

func (h *handler) health(c *gin.Context) {
	if err := h.history.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) ingest(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "workbook too large"})
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = header.Filename
	}

	res, err := h.svc.Ingest(c.Request.Context(), ingest.Source{Name: name, Data: data})
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if res.Outcome == ingest.OutcomeUnchanged {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *handler) listSnapshots(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return
	}
	snaps, err := h.history.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snaps)
}

func (h *handler) getSnapshot(c *gin.Context) {
	id, ok := snapshotID(c)
	if !ok {
		return
	}
	snap, err := h.history.Snapshot(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) listChanges(c *gin.Context) {
	id, ok := snapshotID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.history.Snapshot(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	changes, err := h.history.Changes(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

func (h *handler) candidates(c *gin.Context) {
	report, err := h.svc.Candidates(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) ignoreCandidate(c *gin.Context) {
	var req ignoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.history.IgnoreCandidate(c.Request.Context(), req.Kind, req.Key); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func snapshotID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid snapshot id"})
		return 0, false
	}
	return id, true
}

// fail maps err to a status code and writes it.
func (h *handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidCandidate):
		status = http.StatusBadRequest
	case errors.Is(err, schedstruct.ErrInvalidFormat):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ingest.ErrInProgress):
		status = http.StatusConflict
	}
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, errorResponse{Error: msg})
}
