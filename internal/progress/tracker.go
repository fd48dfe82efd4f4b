// Package progress tracks throughput for the long-running CLI stages and
// derives the rate, percent, and ETA figures shown while an archive is
// preprocessed or a catalog is indexed.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker accumulates counters for one run. Counters are atomics so the
// pipeline can update them while another goroutine renders snapshots.
type Tracker struct {
	startTime    time.Time
	totalBytes   atomic.Int64
	totalRecords atomic.Int64
	bytesRead    atomic.Int64
	groups       atomic.Int64
	skipped      atomic.Int64
	records      atomic.Int64
}

// NewTracker starts a tracker with its clock at now.
func NewTracker() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// SetTotalBytes records the size of the input, when known. Percent and ETA
// are derived from bytes whenever a total is set.
func (t *Tracker) SetTotalBytes(n int64) {
	t.totalBytes.Store(n)
}

// SetTotalRecords records the expected record count, used for percent and
// ETA when no byte total is available.
func (t *Tracker) SetTotalRecords(n int64) {
	t.totalRecords.Store(n)
}

// SetGroups stores the running group counters. Callers hand over absolute
// totals, matching the snapshot shape the pipeline reports.
func (t *Tracker) SetGroups(read, skipped int64) {
	t.groups.Store(read)
	t.skipped.Store(skipped)
}

// SetRecords stores the running record counter.
func (t *Tracker) SetRecords(n int64) {
	t.records.Store(n)
}

// AddRecords bumps the record counter, for loops that work in batches.
func (t *Tracker) AddRecords(n int64) {
	t.records.Add(n)
}

// SetBytesRead stores the absolute input position, for callers that track
// their own offset such as the download progress callback.
func (t *Tracker) SetBytesRead(n int64) {
	t.bytesRead.Store(n)
}

// Reader wraps r so that every byte read flows into the byte counter.
func (t *Tracker) Reader(r io.Reader) io.Reader {
	return &countingReader{reader: r, counter: &t.bytesRead}
}

// countingReader wraps an io.Reader and counts bytes read.
type countingReader struct {
	reader  io.Reader
	counter *atomic.Int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.reader.Read(p)
	if n > 0 {
		cr.counter.Add(int64(n))
	}
	return n, err
}

// Statistics is one view of a run's counters with derived rates. Percent
// and ETA come from bytes when a byte total is known, otherwise from
// records; both stay zero until a total is set.
type Statistics struct {
	BytesRead              int64         `json:"bytes_read"`
	TotalBytes             int64         `json:"total_bytes"`
	Groups                 int64         `json:"groups"`
	GroupsSkipped          int64         `json:"groups_skipped"`
	Records                int64         `json:"records"`
	TotalRecords           int64         `json:"total_records"`
	Elapsed                time.Duration `json:"elapsed"`
	BytesPerSecond         float64       `json:"bytes_per_second"`
	GroupsPerSecond        float64       `json:"groups_per_second"`
	RecordsPerSecond       float64       `json:"records_per_second"`
	PercentComplete        float64       `json:"percent_complete"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
}

// Snapshot computes the current statistics.
func (t *Tracker) Snapshot() Statistics {
	s := Statistics{
		BytesRead:     t.bytesRead.Load(),
		TotalBytes:    t.totalBytes.Load(),
		Groups:        t.groups.Load(),
		GroupsSkipped: t.skipped.Load(),
		Records:       t.records.Load(),
		TotalRecords:  t.totalRecords.Load(),
		Elapsed:       time.Since(t.startTime),
	}

	secs := s.Elapsed.Seconds()
	if secs > 0 {
		s.BytesPerSecond = float64(s.BytesRead) / secs
		s.GroupsPerSecond = float64(s.Groups) / secs
		s.RecordsPerSecond = float64(s.Records) / secs
	}

	done, total := s.BytesRead, s.TotalBytes
	if total <= 0 {
		done, total = s.Records, s.TotalRecords
	}
	if total > 0 && done > 0 {
		s.PercentComplete = float64(done) * 100 / float64(total)
		totalTime := secs * float64(total) / float64(done)
		s.EstimatedTimeRemaining = time.Duration(totalTime-secs) * time.Second
	}

	return s
}

// String renders a one-line status suitable for carriage-return updates.
func (s Statistics) String() string {
	parts := make([]string, 0, 5)
	if s.Groups > 0 {
		g := fmt.Sprintf("%s groups", humanize.Comma(s.Groups))
		if s.GroupsSkipped > 0 {
			g += fmt.Sprintf(" (%s skipped)", humanize.Comma(s.GroupsSkipped))
		}
		parts = append(parts, g)
	}
	parts = append(parts, fmt.Sprintf("%s records", humanize.Comma(s.Records)))
	if s.BytesPerSecond > 0 {
		parts = append(parts, fmt.Sprintf("%s/s", humanize.Bytes(uint64(s.BytesPerSecond))))
	} else if s.RecordsPerSecond > 0 {
		parts = append(parts, fmt.Sprintf("%.0f records/s", s.RecordsPerSecond))
	}
	if s.PercentComplete > 0 {
		parts = append(parts, fmt.Sprintf("%.1f%%", s.PercentComplete))
		if s.EstimatedTimeRemaining > 0 {
			parts = append(parts, fmt.Sprintf("ETA: %s", s.EstimatedTimeRemaining.Round(time.Second)))
		}
	}
	return strings.Join(parts, " | ")
}

// Reporter throttles status rendering to at most one call per interval.
// Tick and Flush are meant for a single goroutine, typically the pipeline's
// progress callback.
type Reporter struct {
	tracker    *Tracker
	every      time.Duration
	lastReport time.Time
	render     func(Statistics)
}

// NewReporter wraps tracker with a render callback fired at most once per
// interval. An interval of zero or less falls back to two seconds.
func NewReporter(tracker *Tracker, every time.Duration, render func(Statistics)) *Reporter {
	if every <= 0 {
		every = 2 * time.Second
	}
	return &Reporter{tracker: tracker, every: every, render: render}
}

// Tick renders a status line when the report interval has elapsed. The
// first call always renders.
func (r *Reporter) Tick() {
	if time.Since(r.lastReport) < r.every {
		return
	}
	r.lastReport = time.Now()
	r.render(r.tracker.Snapshot())
}

// Flush renders unconditionally, for the final line of a run.
func (r *Reporter) Flush() {
	r.lastReport = time.Now()
	r.render(r.tracker.Snapshot())
}
