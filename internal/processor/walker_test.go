package processor

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"
	"time"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// archiveEntry describes one member of a synthetic metadata dump.
type archiveEntry struct {
	name string
	dir  bool
	body string
}

// buildArchive assembles a gzip-compressed tar stream from entries, in
// order.
func buildArchive(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	for _, e := range entries {
		header := &tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(e.body)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Now(),
		}
		if e.dir {
			header.Typeflag = tar.TypeDir
			header.Mode = 0755
			header.Size = 0
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		if !e.dir {
			if _, err := io.WriteString(tarWriter, e.body); err != nil {
				t.Fatalf("Failed to write tar content: %v", err)
			}
		}
	}

	tarWriter.Close()
	gzWriter.Close()
	return buf.Bytes()
}

func newTestReader(t *testing.T, entries []archiveEntry) *GroupReader {
	t.Helper()
	reader, err := NewGroupReader(bytes.NewReader(buildArchive(t, entries)))
	if err != nil {
		t.Fatalf("Failed to open group reader: %v", err)
	}
	return reader
}

func TestGroupReaderBundlesByDirectory(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: "<STUDY_SET/>"},
		{name: "SRP000001/SRP000001.sample.xml", body: "<SAMPLE_SET/>"},
		{name: "SRP000002/", dir: true},
		{name: "SRP000002/SRP000002.experiment.xml", body: "<EXPERIMENT_SET/>"},
	})
	defer reader.Close()

	first, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if first.ID != "SRP000001" {
		t.Errorf("expected group SRP000001, got %q", first.ID)
	}
	if len(first.Docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(first.Docs))
	}
	if string(first.Docs[DocStudy]) != "<STUDY_SET/>" {
		t.Errorf("study content mismatch: %q", first.Docs[DocStudy])
	}
	if string(first.Docs[DocSample]) != "<SAMPLE_SET/>" {
		t.Errorf("sample content mismatch: %q", first.Docs[DocSample])
	}

	second, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if second.ID != "SRP000002" {
		t.Errorf("expected group SRP000002, got %q", second.ID)
	}
	if _, ok := second.Docs[DocExperiment]; !ok {
		t.Error("expected experiment document in second bundle")
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after last bundle, got %v", err)
	}
}

// TestGroupReaderEmptyGroupsCollapse verifies that directory entries with
// no file children yield nothing.
func TestGroupReaderEmptyGroupsCollapse(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000002/", dir: true},
		{name: "SRP000003/", dir: true},
		{name: "SRP000003/SRP000003.study.xml", body: "<STUDY_SET/>"},
	})
	defer reader.Close()

	bundle, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if bundle.ID != "SRP000003" {
		t.Errorf("empty groups should collapse, got bundle for %q", bundle.ID)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestGroupReaderFlushesFinalGroup(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000009/", dir: true},
		{name: "SRP000009/SRP000009.study.xml", body: "<STUDY_SET/>"},
	})
	defer reader.Close()

	bundle, err := reader.Next()
	if err != nil {
		t.Fatalf("final group should flush at end of stream: %v", err)
	}
	if bundle.ID != "SRP000009" {
		t.Errorf("expected SRP000009, got %q", bundle.ID)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after final flush, got %v", err)
	}
	// Sticky: repeated calls keep returning io.EOF.
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF to be sticky, got %v", err)
	}
}

func TestGroupReaderSkipsUnknownSuffix(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: "<STUDY_SET/>"},
		{name: "SRP000001/SRP000001.mystery.xml", body: "<UNKNOWN/>"},
	})
	defer reader.Close()

	bundle, err := reader.Next()
	if err != nil {
		t.Fatalf("unknown suffix should not fail the walk: %v", err)
	}
	if len(bundle.Docs) != 1 {
		t.Errorf("expected only the study document, got %d docs", len(bundle.Docs))
	}
	if reader.Skipped() != 1 {
		t.Errorf("expected 1 skipped member, got %d", reader.Skipped())
	}
}

func TestGroupReaderIgnoresNonXML(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/README.txt", body: "not xml"},
		{name: "SRP000001/SRP000001.sample.xml", body: "<SAMPLE_SET/>"},
	})
	defer reader.Close()

	bundle, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(bundle.Docs) != 1 {
		t.Errorf("non-XML members should be ignored, got %d docs", len(bundle.Docs))
	}
	if reader.Skipped() != 0 {
		t.Errorf("non-XML members should not count as skipped, got %d", reader.Skipped())
	}
}

// TestGroupReaderLayoutViolation verifies that a file outside its group
// directory aborts the walk.
func TestGroupReaderLayoutViolation(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000099/SRP000099.study.xml", body: "<STUDY_SET/>"},
	})
	defer reader.Close()

	_, err := reader.Next()
	if err == nil {
		t.Fatal("expected layout violation error")
	}
	if !errors.IsKind(err, errors.KindArchive) {
		t.Errorf("expected archive kind error, got %v", err)
	}

	// The error is sticky.
	if _, second := reader.Next(); second != err {
		t.Errorf("expected sticky error, got %v", second)
	}
}

func TestGroupReaderFileBeforeAnyGroup(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001.study.xml", body: "<STUDY_SET/>"},
	})
	defer reader.Close()

	if _, err := reader.Next(); !errors.IsKind(err, errors.KindArchive) {
		t.Errorf("expected archive kind error for orphan file, got %v", err)
	}
}

func TestGroupReaderInvalidGzip(t *testing.T) {
	if _, err := NewGroupReader(bytes.NewReader([]byte("not gzip data"))); err == nil {
		t.Error("expected error for invalid gzip stream")
	}
}

// TestGroupReaderEarlyStop verifies that a consumer may stop mid-archive
// and later resume without corrupted state.
func TestGroupReaderEarlyStop(t *testing.T) {
	reader := newTestReader(t, []archiveEntry{
		{name: "SRP000001/", dir: true},
		{name: "SRP000001/SRP000001.study.xml", body: "<STUDY_SET/>"},
		{name: "SRP000002/", dir: true},
		{name: "SRP000002/SRP000002.study.xml", body: "<STUDY_SET/>"},
	})
	defer reader.Close()

	first, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if first.ID != "SRP000001" {
		t.Fatalf("expected SRP000001, got %q", first.ID)
	}

	// A pause between pulls changes nothing: the next pull picks up where
	// the stream left off.
	second, err := reader.Next()
	if err != nil {
		t.Fatalf("resumed Next failed: %v", err)
	}
	if second.ID != "SRP000002" {
		t.Errorf("expected SRP000002 after resume, got %q", second.ID)
	}
}

func TestDocTypeForFile(t *testing.T) {
	tests := []struct {
		name string
		want DocType
		ok   bool
	}{
		{"SRP000001/SRP000001.study.xml", DocStudy, true},
		{"SRP000001/SRP000001.SAMPLE.xml", DocSample, true},
		{"SRP000001/SRP000001.Experiment.xml", DocExperiment, true},
		{"SRP000001/SRP000001.run.xml", DocRun, true},
		{"SRP000001/SRP000001.submission.xml", DocSubmission, true},
		{"SRP000001/SRP000001.analysis.xml", DocAnalysis, true},
		{"SRP000001/SRP000001.mystery.xml", "", false},
		{"SRP000001/SRP000001.xml", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DocTypeForFile(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("DocTypeForFile(%q) = %q, %v; want %q, %v",
					tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}
