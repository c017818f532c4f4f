package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	snap := NewMetrics().Snapshot()
	if snap.Interactions != 0 || snap.MinInteractionNs != 0 {
		t.Errorf("zero snapshot = %+v", snap)
	}
	if snap.ErrorRate() != 0 {
		t.Errorf("ErrorRate() = %v, want 0", snap.ErrorRate())
	}
}

func TestMetrics_RecordInteraction(t *testing.T) {
	m := NewMetrics()
	m.RecordInteraction(10*time.Millisecond, false)
	m.RecordInteraction(20*time.Millisecond, true)
	m.RecordInteraction(6*time.Millisecond, false)

	snap := m.Snapshot()
	if snap.Interactions != 3 || snap.InteractionErrors != 1 {
		t.Errorf("counts = %d, %d", snap.Interactions, snap.InteractionErrors)
	}
	if snap.MinInteractionNs != int64(6*time.Millisecond) {
		t.Errorf("min = %d", snap.MinInteractionNs)
	}
	if snap.MaxInteractionNs != int64(20*time.Millisecond) {
		t.Errorf("max = %d", snap.MaxInteractionNs)
	}
	if snap.AvgInteractionNs != int64(12*time.Millisecond) {
		t.Errorf("avg = %d", snap.AvgInteractionNs)
	}
	if rate := snap.ErrorRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("ErrorRate() = %v", rate)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.RecordReported()
	m.RecordSettingChange()
	m.RecordSettingChange()
	m.RecordReload(nil)
	m.RecordReload(errors.New("bad file"))
	m.RecordSheet(true)
	m.RecordSheet(false)

	snap := m.Snapshot()
	if snap.ReportedErrors != 1 || snap.SettingChanges != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Reloads != 2 || snap.ReloadErrors != 1 {
		t.Errorf("reloads = %d, %d", snap.Reloads, snap.ReloadErrors)
	}
	if snap.SheetsApplied != 1 || snap.SheetsSkipped != 1 {
		t.Errorf("sheets = %d, %d", snap.SheetsApplied, snap.SheetsSkipped)
	}
}
