package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// Header is the first line of every summary file.
var Header = []string{"scenario", "guidance_law", "duration", "miss_distance", "hit", "timesteps", "outcome", "fingerprint"}

// Row is one finished (scenario, law) job.
type Row struct {
	Scenario     string
	Law          string
	Duration     float64
	MissDistance float64
	Hit          bool
	Timesteps    int
	Outcome      string
	Fingerprint  uint64
}

// Record formats r in Header order.
func (r Row) Record() []string {
	hit := "0"
	if r.Hit {
		hit = "1"
	}
	return []string{
		r.Scenario,
		r.Law,
		strconv.FormatFloat(r.Duration, 'f', 4, 64),
		strconv.FormatFloat(r.MissDistance, 'f', 4, 64),
		hit,
		strconv.Itoa(r.Timesteps),
		r.Outcome,
		fmt.Sprintf("%016x", r.Fingerprint),
	}
}

// Sink receives rows from concurrent workers.
type Sink interface {
	Write(Row) error
}

// CSVSink serialises rows from any number of workers into one CSV stream.
// Each row is flushed as it is written so a crash loses at most the row
// in flight.
type CSVSink struct {
	mu   sync.Mutex
	w    *csv.Writer
	rows int
}

// NewCSVSink writes the header immediately.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("write summary header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("write summary header: %w", err)
	}
	return &CSVSink{w: cw}, nil
}

// Write appends one row.
func (s *CSVSink) Write(r Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Write(r.Record()); err != nil {
		return fmt.Errorf("write summary row %s/%s: %w", r.Scenario, r.Law, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("write summary row %s/%s: %w", r.Scenario, r.Law, err)
	}
	s.rows++
	return nil
}

// Rows is the number of rows written, excluding the header.
func (s *CSVSink) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}
