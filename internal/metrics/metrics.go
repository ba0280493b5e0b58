// Package metrics exposes ingestion counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

const namespace = "schedstruct"

// Ingestion results.
const (
	ResultStored    = "stored"
	ResultUnchanged = "unchanged"
	ResultLocked    = "locked"
	ResultFailed    = "failed"
)

// Metrics holds the collectors of one process. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	Ingestions       *prometheus.CounterVec
	EntriesExtracted prometheus.Counter
	Cells            *prometheus.CounterVec
	UnknownMentions  *prometheus.GaugeVec
	Changes          *prometheus.CounterVec
	ExtractDuration  prometheus.Histogram
}

// New creates and registers the collectors on a fresh registry.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
			collectors.NewGoCollector(),
		)
	}

	m := &Metrics{
		registry: reg,
		Ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Workbook ingestions by result.",
		}, []string{"result"}),
		EntriesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_extracted_total",
			Help:      "Schedule entries produced by stored extractions.",
		}),
		Cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_total",
			Help:      "Group cells visited, by outcome.",
		}, []string{"kind"}),
		UnknownMentions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unknown_mentions",
			Help:      "Distinct unresolved mentions in the latest extraction.",
		}, []string{"kind"}),
		Changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Schedule changes detected, by type.",
		}, []string{"type"}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Wall time of one extraction run.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(m.Ingestions, m.EntriesExtracted, m.Cells, m.UnknownMentions, m.Changes, m.ExtractDuration)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Ingestion counts one ingestion attempt.
func (m *Metrics) Ingestion(result string) {
	if m == nil {
		return
	}
	m.Ingestions.WithLabelValues(result).Inc()
}

// ObserveExtraction records the counters of one extraction.
func (m *Metrics) ObserveExtraction(res *models.ExtractionResult) {
	if m == nil || res == nil {
		return
	}
	st := res.Stats
	m.EntriesExtracted.Add(float64(len(res.Entries)))
	m.Cells.WithLabelValues("parsed").Add(float64(st.ParsedCells))
	m.Cells.WithLabelValues("empty").Add(float64(st.EmptyCells))
	m.Cells.WithLabelValues("error").Add(float64(st.ErrorCells))
	m.UnknownMentions.WithLabelValues("instructor").Set(float64(len(st.UnknownInstructors)))
	m.UnknownMentions.WithLabelValues("subject").Set(float64(len(st.UnknownSubjects)))
	m.ExtractDuration.Observe(st.ProcessingTime.Seconds())
}

// ObserveChanges counts detected changes by type.
func (m *Metrics) ObserveChanges(changes []models.ScheduleChange) {
	if m == nil {
		return
	}
	for _, c := range changes {
		m.Changes.WithLabelValues(string(c.ChangeType)).Inc()
	}
}
