package processor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

const endToEndStudyXML = `<STUDY_SET>
	<STUDY accession="SRP000001">
		<IDENTIFIERS>
			<PRIMARY_ID>SRP000001</PRIMARY_ID>
			<EXTERNAL_ID namespace="BioProject">PRJNA1</EXTERNAL_ID>
		</IDENTIFIERS>
		<DESCRIPTOR>
			<STUDY_TITLE>T</STUDY_TITLE>
		</DESCRIPTOR>
	</STUDY>
</STUDY_SET>`

const endToEndSampleXML = `<SAMPLE_SET>
	<SAMPLE accession="SRS000001">
		<SAMPLE_NAME><SCIENTIFIC_NAME>Homo sapiens</SCIENTIFIC_NAME></SAMPLE_NAME>
		<SAMPLE_ATTRIBUTES>
			<SAMPLE_ATTRIBUTE><TAG>tissue</TAG><VALUE>liver</VALUE></SAMPLE_ATTRIBUTE>
		</SAMPLE_ATTRIBUTES>
	</SAMPLE>
	<SAMPLE accession="SRS000002">
		<SAMPLE_NAME><SCIENTIFIC_NAME>Homo sapiens</SCIENTIFIC_NAME></SAMPLE_NAME>
		<SAMPLE_ATTRIBUTES>
			<SAMPLE_ATTRIBUTE><TAG>tissue</TAG><VALUE>skin</VALUE></SAMPLE_ATTRIBUTE>
		</SAMPLE_ATTRIBUTES>
	</SAMPLE>
</SAMPLE_SET>`

func newTestPipeline(t *testing.T, entries []archiveEntry, opts PipelineOptions) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(bytes.NewReader(buildArchive(t, entries)), opts)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return pipeline
}

// TestPipelineEndToEnd drives a minimal dump with one qualifying study
// through the whole chain and checks the record byte for byte.
func TestPipelineEndToEnd(t *testing.T) {
	pipeline := newTestPipeline(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: endToEndStudyXML},
		{name: "SRP000001/SRP000001.sample.xml", body: endToEndSampleXML},
	}, DefaultPipelineOptions())
	defer pipeline.Close()

	record, err := pipeline.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	wantText := "title: T\n" +
		"study_type: (N=1)\n" +
		"species: Homo sapiens(N=2)\n" +
		"tissue: liver(N=1)|skin(N=1)"
	if record.Text != wantText {
		t.Errorf("text mismatch:\ngot:\n%s\nwant:\n%s", record.Text, wantText)
	}

	wantMeta := Metadata{
		SRAID:      "SRP000001",
		Bioproject: "PRJNA1",
		SRPID:      "SRP000001",
		Species:    "homo sapiens",
	}
	if record.Metadata != wantMeta {
		t.Errorf("metadata = %+v, want %+v", record.Metadata, wantMeta)
	}

	if _, err := pipeline.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after last record, got %v", err)
	}

	stats := pipeline.Stats()
	if stats.GroupsRead != 1 || stats.RecordsEmitted != 1 {
		t.Errorf("stats = %+v, want one group and one record", stats)
	}
}

func TestPipelineSkipCounters(t *testing.T) {
	entries := []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: endToEndStudyXML},
		{name: "SRP000001/SRP000001.sample.xml", body: endToEndSampleXML},
		{name: "SRP000001/README", body: "not xml"},

		// Study document only.
		{name: "SRP000002/", dir: true},
		{name: "SRP000002/SRP000002.study.xml", body: endToEndStudyXML},
		{name: "SRP000002/SRP000002.mystery.xml", body: "<MYSTERY/>"},

		// Single sample.
		{name: "SRP000003/", dir: true},
		{name: "SRP000003/SRP000003.study.xml", body: endToEndStudyXML},
		{name: "SRP000003/SRP000003.sample.xml", body: sampleSetXML("Homo sapiens")},

		// Wrong species.
		{name: "SRP000004/", dir: true},
		{name: "SRP000004/SRP000004.study.xml", body: endToEndStudyXML},
		{name: "SRP000004/SRP000004.sample.xml", body: sampleSetXML("Danio rerio", "Danio rerio")},
	}
	pipeline := newTestPipeline(t, entries, DefaultPipelineOptions())
	defer pipeline.Close()

	var records []*StudyRecord
	stats, err := pipeline.Run(context.Background(), func(r *StudyRecord) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(records) != 1 || records[0].Metadata.SRAID != "SRP000001" {
		t.Fatalf("expected one record for SRP000001, got %d", len(records))
	}
	if stats.GroupsRead != 4 {
		t.Errorf("GroupsRead = %d, want 4", stats.GroupsRead)
	}
	if stats.RecordsEmitted != 1 {
		t.Errorf("RecordsEmitted = %d, want 1", stats.RecordsEmitted)
	}
	if stats.SkippedIncomplete != 1 {
		t.Errorf("SkippedIncomplete = %d, want 1", stats.SkippedIncomplete)
	}
	if stats.SkippedSingleSample != 1 {
		t.Errorf("SkippedSingleSample = %d, want 1", stats.SkippedSingleSample)
	}
	if stats.SkippedSpecies != 1 {
		t.Errorf("SkippedSpecies = %d, want 1", stats.SkippedSpecies)
	}
	if stats.UnknownFiles != 1 {
		t.Errorf("UnknownFiles = %d, want 1 (the mystery document)", stats.UnknownFiles)
	}
}

func TestPipelineFatalPlatformAmbiguity(t *testing.T) {
	experimentXML := `<EXPERIMENT_SET>
	<EXPERIMENT>
		<PLATFORM>
			<ILLUMINA><INSTRUMENT_MODEL>HiSeq</INSTRUMENT_MODEL></ILLUMINA>
			<LS454><INSTRUMENT_MODEL>454 GS FLX</INSTRUMENT_MODEL></LS454>
		</PLATFORM>
	</EXPERIMENT>
</EXPERIMENT_SET>`

	pipeline := newTestPipeline(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: endToEndStudyXML},
		{name: "SRP000001/SRP000001.sample.xml", body: endToEndSampleXML},
		{name: "SRP000001/SRP000001.experiment.xml", body: experimentXML},
	}, DefaultPipelineOptions())
	defer pipeline.Close()

	_, err := pipeline.Next()
	if err == nil {
		t.Fatal("expected ambiguous platform to abort the run")
	}
	if !errors.Is(err, ErrAmbiguousPlatform) {
		t.Errorf("expected ErrAmbiguousPlatform in chain, got %v", err)
	}

	// The failure is sticky.
	if _, again := pipeline.Next(); again != err {
		t.Errorf("second Next = %v, want the original error", again)
	}
	if stats := pipeline.Stats(); stats.RecordsEmitted != 0 {
		t.Errorf("RecordsEmitted = %d, want 0", stats.RecordsEmitted)
	}
}

func TestPipelineRunContextCanceled(t *testing.T) {
	pipeline := newTestPipeline(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: endToEndStudyXML},
		{name: "SRP000001/SRP000001.sample.xml", body: endToEndSampleXML},
	}, DefaultPipelineOptions())
	defer pipeline.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, func(*StudyRecord) error {
		t.Fatal("callback should not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPipelineRunCallbackError(t *testing.T) {
	pipeline := newTestPipeline(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: endToEndStudyXML},
		{name: "SRP000001/SRP000001.sample.xml", body: endToEndSampleXML},
	}, DefaultPipelineOptions())
	defer pipeline.Close()

	sentinel := errors.New("sink full")
	_, err := pipeline.Run(context.Background(), func(*StudyRecord) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected callback error to propagate, got %v", err)
	}
}

func TestPipelineProgressCallback(t *testing.T) {
	opts := DefaultPipelineOptions()
	opts.ProgressInterval = 1
	var calls []int
	opts.Progress = func(s Stats) {
		calls = append(calls, s.GroupsRead)
	}

	pipeline := newTestPipeline(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: endToEndStudyXML},
		{name: "SRP000001/SRP000001.sample.xml", body: endToEndSampleXML},
		{name: "SRP000002/", dir: true},
		{name: "SRP000002/SRP000002.study.xml", body: endToEndStudyXML},
		{name: "SRP000002/SRP000002.sample.xml", body: endToEndSampleXML},
	}, opts)
	defer pipeline.Close()

	if _, err := pipeline.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("progress calls = %v, want [1 2]", calls)
	}
}

func TestPipelineInvalidInput(t *testing.T) {
	if _, err := NewPipeline(bytes.NewReader([]byte("not a gzip stream")), DefaultPipelineOptions()); err == nil {
		t.Fatal("expected error for invalid input")
	}
}
