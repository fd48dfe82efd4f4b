// Package testutil provides shared fixtures for package tests: a small
// study corpus in catalog and index form, and synthetic metadata dumps for
// driving the preprocessing pipeline. Packages below the catalog and index
// keep their own local fixtures to avoid import cycles.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/search"
)

// Studies returns the canonical three-study corpus: two human studies and
// one mouse study with distinct tissue and disease vocabularies.
func Studies() []database.Study {
	return []database.Study{
		{
			SRAID: "SRP000001", Bioproject: "PRJNA1", SRPID: "SRP000001",
			Species: "homo sapiens",
			Text:    "title: Lupus skin biopsies\nspecies: Homo sapiens(N=12)\ntissue: skin(N=8)|blood(N=4)\ndisease: lupus(N=12)",
		},
		{
			SRAID: "SRP000002", Bioproject: "PRJNA2", SRPID: "SRP000002",
			Species: "mus musculus",
			Text:    "title: Mouse liver development\nspecies: Mus musculus(N=6)\ntissue: liver(N=6)",
		},
		{
			SRAID: "SRP000003", Bioproject: "PRJNA3", SRPID: "SRP000003",
			Species: "homo sapiens",
			Text:    "title: Human liver carcinoma\nspecies: Homo sapiens(N=20)\ntissue: liver(N=20)\ndisease: hepatocellular carcinoma(N=20)",
		},
	}
}

// Docs returns the corpus in index-document form.
func Docs() []search.StudyDoc {
	studies := Studies()
	docs := make([]search.StudyDoc, len(studies))
	for i, st := range studies {
		docs[i] = search.StudyDoc{
			SRAID:      st.SRAID,
			Bioproject: st.Bioproject,
			SRPID:      st.SRPID,
			Species:    st.Species,
			Text:       st.Text,
		}
	}
	return docs
}

// DumpGroup describes one group directory of a synthetic metadata dump.
// Samples line up index-wise with Species and Tissues; an empty tissue
// omits the attribute block.
type DumpGroup struct {
	ID         string
	Bioproject string
	Title      string
	Species    []string
	Tissues    []string
}

func (g DumpGroup) studyXML() string {
	return fmt.Sprintf(`<STUDY_SET>
	<STUDY accession=%q>
		<IDENTIFIERS>
			<PRIMARY_ID>%s</PRIMARY_ID>
			<EXTERNAL_ID namespace="BioProject">%s</EXTERNAL_ID>
		</IDENTIFIERS>
		<DESCRIPTOR>
			<STUDY_TITLE>%s</STUDY_TITLE>
		</DESCRIPTOR>
	</STUDY>
</STUDY_SET>`, g.ID, g.ID, g.Bioproject, g.Title)
}

func (g DumpGroup) sampleXML() string {
	var b strings.Builder
	b.WriteString("<SAMPLE_SET>\n")
	for i, species := range g.Species {
		fmt.Fprintf(&b, "\t<SAMPLE accession=\"SRS%06d\">\n", i+1)
		fmt.Fprintf(&b, "\t\t<SAMPLE_NAME><SCIENTIFIC_NAME>%s</SCIENTIFIC_NAME></SAMPLE_NAME>\n", species)
		if i < len(g.Tissues) && g.Tissues[i] != "" {
			fmt.Fprintf(&b, "\t\t<SAMPLE_ATTRIBUTES><SAMPLE_ATTRIBUTE><TAG>tissue</TAG><VALUE>%s</VALUE></SAMPLE_ATTRIBUTE></SAMPLE_ATTRIBUTES>\n", g.Tissues[i])
		}
		b.WriteString("\t</SAMPLE>\n")
	}
	b.WriteString("</SAMPLE_SET>")
	return b.String()
}

// BuildDump assembles a gzip-compressed tar dump with one directory per
// group, each holding a study and a sample document.
func BuildDump(t *testing.T, groups []DumpGroup) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	writeEntry := func(name, body string, dir bool) {
		header := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Now(),
		}
		if dir {
			header.Typeflag = tar.TypeDir
			header.Mode = 0755
			header.Size = 0
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		if !dir {
			if _, err := io.WriteString(tarWriter, body); err != nil {
				t.Fatalf("Failed to write tar content: %v", err)
			}
		}
	}

	for _, g := range groups {
		writeEntry(g.ID+"/", "", true)
		writeEntry(fmt.Sprintf("%s/%s.study.xml", g.ID, g.ID), g.studyXML(), false)
		writeEntry(fmt.Sprintf("%s/%s.sample.xml", g.ID, g.ID), g.sampleXML(), false)
	}

	tarWriter.Close()
	gzWriter.Close()
	return buf.Bytes()
}

// WriteDump writes a dump built from groups into dir and returns its path.
func WriteDump(t *testing.T, dir string, groups []DumpGroup) string {
	t.Helper()
	path := filepath.Join(dir, "NCBI_SRA_Metadata_20240101.tar.gz")
	if err := os.WriteFile(path, BuildDump(t, groups), 0644); err != nil {
		t.Fatalf("Failed to write dump: %v", err)
	}
	return path
}

// DefaultDump returns groups covering the qualifying and skip paths: two
// qualifying studies, a single-sample group, and a non-target species.
func DefaultDump() []DumpGroup {
	return []DumpGroup{
		{
			ID: "SRP100001", Bioproject: "PRJNA101", Title: "Lupus lesional skin atlas",
			Species: []string{"Homo sapiens", "Homo sapiens"},
			Tissues: []string{"skin", "blood"},
		},
		{
			ID: "SRP100002", Bioproject: "PRJNA102", Title: "Mouse liver regeneration",
			Species: []string{"Mus musculus", "Mus musculus", "Mus musculus"},
			Tissues: []string{"liver", "liver", "liver"},
		},
		{
			ID: "SRP100003", Bioproject: "PRJNA103", Title: "Single-sample pilot",
			Species: []string{"Homo sapiens"},
			Tissues: []string{"skin"},
		},
		{
			ID: "SRP100004", Bioproject: "PRJNA104", Title: "Zebrafish fin regeneration",
			Species: []string{"Danio rerio", "Danio rerio"},
			Tissues: []string{"fin", "fin"},
		},
	}
}
