package models

import (
	"encoding/json"
	"math"
	"time"
)

// StartupUTC is reported as the last scan time until the first pass completes.
const StartupUTC = "(just starting up)"

// ScanTime holds the completion time and phase timings of a scan pass.
type ScanTime struct {
	UTC      time.Time `json:"utc"`
	PrepSec  float64   `json:"prep_sec" example:"0.0123"`
	ScanSec  float64   `json:"scan_sec" example:"4.2011"`
	TotalSec float64   `json:"total_sec" example:"4.2134"`
}

// NewScanTime builds a ScanTime from phase durations, rounding each to
// four decimal places of a second.
func NewScanTime(completed time.Time, prep, scan time.Duration) ScanTime {
	return ScanTime{
		UTC:      completed.UTC(),
		PrepSec:  roundSeconds(prep),
		ScanSec:  roundSeconds(scan),
		TotalSec: roundSeconds(prep + scan),
	}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1e4) / 1e4
}

// Snapshot is the published result of the most recently completed pass.
// A Snapshot is never mutated once published; readers may share it freely.
type Snapshot struct {
	Time  ScanTime     `json:"time"`
	Scan  []HostRecord `json:"scan"`
	Count int          `json:"count"`

	table       string
	placeholder bool
}

// NewSnapshot returns a snapshot over records, which must already be
// deduplicated and ordered. table is the human-readable rendering of the
// same records.
func NewSnapshot(t ScanTime, records []HostRecord, table string) *Snapshot {
	scan := make([]HostRecord, len(records))
	copy(scan, records)
	return &Snapshot{
		Time:  t,
		Scan:  scan,
		Count: len(scan),
		table: table,
	}
}

// Placeholder returns the snapshot served before any pass has completed.
func Placeholder() *Snapshot {
	return &Snapshot{Scan: []HostRecord{}, placeholder: true}
}

// IsPlaceholder reports whether s was created by Placeholder.
func (s *Snapshot) IsPlaceholder() bool { return s.placeholder }

// Table returns the human-readable tabular form of the scan.
func (s *Snapshot) Table() string { return s.table }

// MarshalJSON renders a placeholder as an empty object.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	if s.placeholder {
		return []byte("{}"), nil
	}
	type snapshot Snapshot
	return json.Marshal((*snapshot)(s))
}

// ScanStatus summarizes the last completed pass.
type ScanStatus struct {
	LastUTC     string  `json:"last_utc"`
	LastTimeSec float64 `json:"last_time_sec"`
	LastCount   int     `json:"last_count"`
}

// StatusReport is the body of the status endpoint.
type StatusReport struct {
	Status ScanStatus `json:"status"`
}

// Status derives the status report from the snapshot, so both always
// describe the same pass.
func (s *Snapshot) Status() StatusReport {
	if s.placeholder {
		return StatusReport{Status: ScanStatus{LastUTC: StartupUTC}}
	}
	return StatusReport{Status: ScanStatus{
		LastUTC:     s.Time.UTC.Format(time.RFC3339Nano),
		LastTimeSec: s.Time.TotalSec,
		LastCount:   s.Count,
	}}
}
