package processor

import (
	"fmt"
	"strings"
)

// AggregateOptions holds the cardinality thresholds of the suppression
// rule. A field whose maximum count stays below MinCount while its
// distinct-value count exceeds MinSamples is treated as unaggregatable
// noise and omitted.
type AggregateOptions struct {
	MinSamples int
	MinCount   int
}

// DefaultAggregateOptions returns the standard thresholds.
func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{MinSamples: 10, MinCount: 3}
}

// Aggregate collapses each field table into one rendered string, applying
// the same rule for every document type:
//
//  1. an empty table omits the field,
//  2. identifier fields render all distinct values pipe-joined, no counts,
//  3. a field below MinCount repetition with more than MinSamples distinct
//     values is omitted,
//  4. anything else renders as value(N=count) pairs, pipe-joined in
//     first-seen order.
//
// A nil table set yields an empty summary.
func Aggregate(ts *TableSet, opts AggregateOptions) *Summary {
	summary := NewSummary()
	if ts == nil {
		return summary
	}
	for _, name := range ts.Names() {
		table, _ := ts.Get(name)
		switch {
		case table.Len() == 0:
			continue
		case IdentifierFields[name]:
			summary.Set(name, strings.Join(table.Values(), "|"))
		case table.Max() < opts.MinCount && table.Len() > opts.MinSamples:
			continue
		default:
			parts := make([]string, 0, table.Len())
			for _, value := range table.Values() {
				parts = append(parts, fmt.Sprintf("%s(N=%d)", value, table.Count(value)))
			}
			summary.Set(name, strings.Join(parts, "|"))
		}
	}
	return summary
}
