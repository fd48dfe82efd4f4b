package processor

import (
	"fmt"
	"strings"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// Skip sentinels reported by AssembleStudy. These are expected rejections,
// not failures; callers filter them with IsSkip.
var (
	ErrIncompleteGroup   = errors.New("group missing study or sample document")
	ErrTooFewSamples     = errors.New("species total at or below one sample")
	ErrNoRetainedSpecies = errors.New("no retained species in group")
)

// IsSkip reports whether err is one of the expected assembler rejections.
func IsSkip(err error) bool {
	return errors.Is(err, ErrIncompleteGroup) ||
		errors.Is(err, ErrTooFewSamples) ||
		errors.Is(err, ErrNoRetainedSpecies)
}

// DefaultSpecies is the retained-species whitelist: only studies with at
// least one sample from these organisms are kept.
var DefaultSpecies = []string{"Homo sapiens", "Mus musculus"}

// AssembleOptions configures filtering and aggregation for one run.
type AssembleOptions struct {
	Aggregate AggregateOptions
	Species   []string // retained species names, matched against raw table values
}

// DefaultAssembleOptions returns the standard thresholds and whitelist.
func DefaultAssembleOptions() AssembleOptions {
	return AssembleOptions{
		Aggregate: DefaultAggregateOptions(),
		Species:   DefaultSpecies,
	}
}

// metadataTruncateLen bounds the bioproject, srp_id, and species metadata
// values so oversized entries never reach the downstream index.
const metadataTruncateLen = 300

// AssembleStudy turns one group bundle into a StudyRecord. It returns a
// skip sentinel (see IsSkip) when the group is excluded by policy, and a
// non-skip error when a document fails to parse.
//
// The filter steps run against the raw tables, in order: the group must
// carry both a study and a sample document, its species table must total
// more than one occurrence, and at least one retained species must appear
// among the species values. Aggregation happens only after the group
// qualifies.
func AssembleStudy(bundle *GroupBundle, opts AssembleOptions) (*StudyRecord, error) {
	studyXML, hasStudy := bundle.Docs[DocStudy]
	sampleXML, hasSample := bundle.Docs[DocSample]
	if !hasStudy || !hasSample {
		return nil, fmt.Errorf("assembling %s: %w", bundle.ID, ErrIncompleteGroup)
	}

	studyTables, err := ExtractStudy(studyXML)
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", bundle.ID, err)
	}
	sampleTables, err := ExtractSample(sampleXML)
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", bundle.ID, err)
	}

	species, _ := sampleTables.Get(FieldSpecies)
	if species.Total() <= 1 {
		return nil, fmt.Errorf("assembling %s: %w", bundle.ID, ErrTooFewSamples)
	}
	if !anySpecies(species, opts.Species) {
		return nil, fmt.Errorf("assembling %s: %w", bundle.ID, ErrNoRetainedSpecies)
	}

	var experimentTables *TableSet
	if experimentXML, ok := bundle.Docs[DocExperiment]; ok {
		experimentTables, err = ExtractExperiment(experimentXML)
		if err != nil {
			return nil, fmt.Errorf("assembling %s: %w", bundle.ID, err)
		}
	}

	studySummary := Aggregate(studyTables, opts.Aggregate)
	sampleSummary := Aggregate(sampleTables, opts.Aggregate)
	experimentSummary := Aggregate(experimentTables, opts.Aggregate)

	// Identifier promotion: the accession and bio-registry id leave the
	// text body and become metadata. The species metadata renders the raw
	// species names, without counts, lowercased.
	bioproject, _ := studySummary.Pop(FieldBioproject)
	srpID, _ := studySummary.Pop(FieldSRPID)
	speciesMeta := strings.ToLower(strings.Join(species.Values(), "|"))

	return &StudyRecord{
		Text: renderText(studySummary, sampleSummary, experimentSummary),
		Metadata: Metadata{
			SRAID:      bundle.ID,
			Bioproject: truncate(bioproject, metadataTruncateLen),
			SRPID:      truncate(srpID, metadataTruncateLen),
			Species:    truncate(speciesMeta, metadataTruncateLen),
		},
	}, nil
}

func anySpecies(table *FieldTable, retained []string) bool {
	for _, s := range retained {
		if table.Contains(s) {
			return true
		}
	}
	return false
}

// renderText joins "field: value" lines across the study, sample, and
// experiment summaries, in that fixed order.
func renderText(summaries ...*Summary) string {
	var lines []string
	for _, summary := range summaries {
		if summary == nil {
			continue
		}
		for _, name := range summary.Names() {
			value, _ := summary.Get(name)
			lines = append(lines, name+": "+value)
		}
	}
	return strings.Join(lines, "\n")
}

// truncate limits s to at most n characters, counting runes so multi-byte
// values are never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
