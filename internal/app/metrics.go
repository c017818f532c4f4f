package app

import (
	"sync/atomic"
	"time"
)

// Metrics counts application activity.
type Metrics struct {
	// Interaction timing
	interactionCount   atomic.Uint64
	interactionTotalNs atomic.Int64
	interactionMinNs   atomic.Int64
	interactionMaxNs   atomic.Int64
	interactionErrors  atomic.Uint64

	// Errors from asynchronous handlers
	reportedErrors atomic.Uint64

	// Settings
	settingChanges atomic.Uint64
	reloads        atomic.Uint64
	reloadErrors   atomic.Uint64

	// Sheets
	sheetsApplied atomic.Uint64
	sheetsSkipped atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	// Initialize min to max int64 so first interaction will be smaller
	m.interactionMinNs.Store(1<<63 - 1)
	return m
}

// RecordInteraction records a dispatched interaction and whether it failed.
func (m *Metrics) RecordInteraction(duration time.Duration, failed bool) {
	ns := duration.Nanoseconds()

	m.interactionCount.Add(1)
	m.interactionTotalNs.Add(ns)
	if failed {
		m.interactionErrors.Add(1)
	}

	for {
		old := m.interactionMinNs.Load()
		if ns >= old || m.interactionMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.interactionMaxNs.Load()
		if ns <= old || m.interactionMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordReported records an error delivered through the reporter.
func (m *Metrics) RecordReported() { m.reportedErrors.Add(1) }

// RecordSettingChange records a configuration broadcast.
func (m *Metrics) RecordSettingChange() { m.settingChanges.Add(1) }

// RecordReload records a settings file reload.
func (m *Metrics) RecordReload(err error) {
	m.reloads.Add(1)
	if err != nil {
		m.reloadErrors.Add(1)
	}
}

// RecordSheet records an Apply outcome.
func (m *Metrics) RecordSheet(applied bool) {
	if applied {
		m.sheetsApplied.Add(1)
		return
	}
	m.sheetsSkipped.Add(1)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Interactions      uint64
	InteractionErrors uint64
	AvgInteractionNs  int64
	MinInteractionNs  int64
	MaxInteractionNs  int64
	ReportedErrors    uint64
	SettingChanges    uint64
	Reloads           uint64
	ReloadErrors      uint64
	SheetsApplied     uint64
	SheetsSkipped     uint64
	Uptime            time.Duration
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Interactions:      m.interactionCount.Load(),
		InteractionErrors: m.interactionErrors.Load(),
		MaxInteractionNs:  m.interactionMaxNs.Load(),
		ReportedErrors:    m.reportedErrors.Load(),
		SettingChanges:    m.settingChanges.Load(),
		Reloads:           m.reloads.Load(),
		ReloadErrors:      m.reloadErrors.Load(),
		SheetsApplied:     m.sheetsApplied.Load(),
		SheetsSkipped:     m.sheetsSkipped.Load(),
		Uptime:            time.Since(m.startTime),
	}
	if s.Interactions > 0 {
		s.AvgInteractionNs = m.interactionTotalNs.Load() / int64(s.Interactions)
		s.MinInteractionNs = m.interactionMinNs.Load()
	}
	return s
}

// ErrorRate returns the fraction of interactions that failed.
func (s MetricsSnapshot) ErrorRate() float64 {
	if s.Interactions == 0 {
		return 0
	}
	return float64(s.InteractionErrors) / float64(s.Interactions)
}
