package processor

import (
	"path"
	"strings"
	"time"
)

// DocType identifies one of the SRA document kinds bundled per study group.
type DocType string

// Document types found inside NCBI SRA metadata dumps. Each study directory
// holds at most one file per type, named <study-id>.<type>.xml.
const (
	DocSubmission DocType = "submission"
	DocStudy      DocType = "study"
	DocSample     DocType = "sample"
	DocExperiment DocType = "experiment"
	DocRun        DocType = "run"
	DocAnalysis   DocType = "analysis"
)

// DocTypeForFile classifies an archive member by the final dot-segment of
// its filename stem, case-insensitively: "SRP000001.study.xml" -> DocStudy.
// The second return value is false for unrecognized suffixes.
func DocTypeForFile(name string) (DocType, bool) {
	stem := path.Base(name)
	stem = strings.TrimSuffix(stem, path.Ext(stem))
	if i := strings.LastIndex(stem, "."); i >= 0 {
		stem = stem[i+1:]
	}
	switch dt := DocType(strings.ToLower(stem)); dt {
	case DocSubmission, DocStudy, DocSample, DocExperiment, DocRun, DocAnalysis:
		return dt, true
	}
	return "", false
}

// GroupBundle holds the raw XML documents of one study group, keyed by
// document type. The ID is the name of the containing archive directory
// (an SRA accession such as "SRP000001").
type GroupBundle struct {
	ID   string
	Docs map[DocType][]byte
}

// Metadata is the structured sidecar of a StudyRecord. The four JSON keys
// are fixed by the indexing contract; bioproject, srp_id, and species are
// truncated to 300 characters before the record is emitted.
type Metadata struct {
	SRAID      string `json:"sra_id"`
	Bioproject string `json:"bioproject"`
	SRPID      string `json:"srp_id"`
	Species    string `json:"species"`
}

// StudyRecord is the final emitted unit: a free-text summary of one study
// plus its metadata. Records are immutable once built and are handed to the
// indexing side in archive order.
type StudyRecord struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Stats tracks pipeline counters across one archive run.
type Stats struct {
	GroupsRead          int
	RecordsEmitted      int
	SkippedIncomplete   int // groups missing a study or sample document
	SkippedSingleSample int // groups with a species total of one or less
	SkippedSpecies      int // groups with no retained species
	UnknownFiles        int // XML members with an unrecognized type suffix
	StartTime           time.Time
	Elapsed             time.Duration
}

// ProgressFunc receives a stats snapshot at the pipeline's progress
// interval. Callbacks run on the pipeline goroutine and should return
// quickly.
type ProgressFunc func(Stats)
