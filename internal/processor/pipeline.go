package processor

import (
	"context"
	"io"
	"time"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// PipelineOptions configures one archive run. Zero-valued thresholds and
// an empty species list fall back to the defaults.
type PipelineOptions struct {
	Assemble         AssembleOptions
	Progress         ProgressFunc
	ProgressInterval int // groups between progress callbacks
}

// DefaultPipelineOptions returns the standard run configuration.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Assemble:         DefaultAssembleOptions(),
		ProgressInterval: 1000,
	}
}

// Pipeline composes the archive walker, field extractors, aggregator, and
// assembler into a pull-driven stream of StudyRecords. At most one group's
// documents and tables are live at a time, and stopping early never
// corrupts the underlying archive state.
type Pipeline struct {
	reader *GroupReader
	opts   PipelineOptions
	stats  Stats
	err    error
}

// NewPipeline opens a pipeline over r, which must carry a gzip-compressed
// tar metadata dump.
func NewPipeline(r io.Reader, opts PipelineOptions) (*Pipeline, error) {
	reader, err := NewGroupReader(r)
	if err != nil {
		return nil, err
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 1000
	}
	if opts.Assemble.Aggregate == (AggregateOptions{}) {
		opts.Assemble.Aggregate = DefaultAggregateOptions()
	}
	if len(opts.Assemble.Species) == 0 {
		opts.Assemble.Species = DefaultSpecies
	}
	return &Pipeline{
		reader: reader,
		opts:   opts,
		stats:  Stats{StartTime: time.Now()},
	}, nil
}

// Next returns the next qualifying StudyRecord in archive order, io.EOF
// after the last one. Skipped groups are counted, parse and layout errors
// are fatal and sticky.
func (p *Pipeline) Next() (*StudyRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	for {
		bundle, err := p.reader.Next()
		if err == io.EOF {
			p.err = io.EOF
			return nil, io.EOF
		}
		if err != nil {
			p.err = err
			return nil, err
		}
		p.stats.GroupsRead++
		if p.opts.Progress != nil && p.stats.GroupsRead%p.opts.ProgressInterval == 0 {
			p.opts.Progress(p.Stats())
		}

		record, err := AssembleStudy(bundle, p.opts.Assemble)
		switch {
		case err == nil:
			p.stats.RecordsEmitted++
			return record, nil
		case errors.Is(err, ErrIncompleteGroup):
			p.stats.SkippedIncomplete++
		case errors.Is(err, ErrTooFewSamples):
			p.stats.SkippedSingleSample++
		case errors.Is(err, ErrNoRetainedSpecies):
			p.stats.SkippedSpecies++
		default:
			p.err = err
			return nil, err
		}
	}
}

// Run drives the stream to completion, invoking fn for every record. It
// stops between groups when ctx is canceled and returns the stats either
// way.
func (p *Pipeline) Run(ctx context.Context, fn func(*StudyRecord) error) (Stats, error) {
	for {
		select {
		case <-ctx.Done():
			return p.Stats(), ctx.Err()
		default:
		}
		record, err := p.Next()
		if err == io.EOF {
			return p.Stats(), nil
		}
		if err != nil {
			return p.Stats(), err
		}
		if fn != nil {
			if err := fn(record); err != nil {
				return p.Stats(), err
			}
		}
	}
}

// Stats returns a snapshot of the counters so far.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.UnknownFiles = p.reader.Skipped()
	s.Elapsed = time.Since(s.StartTime)
	return s
}

// ReportSkips logs a summary of unclassifiable archive members.
func (p *Pipeline) ReportSkips() {
	p.reader.ReportSkips()
}

// Close releases the decompressor. It does not close the reader the
// pipeline was opened over.
func (p *Pipeline) Close() error {
	return p.reader.Close()
}
