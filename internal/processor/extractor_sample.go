package processor

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

const opExtractSample errors.Op = "processor.extractSample"

// sampleRecord mirrors the subset of a SAMPLE element the pipeline keeps.
type sampleRecord struct {
	Title      *string `xml:"TITLE"`
	SampleName struct {
		ScientificName *string `xml:"SCIENTIFIC_NAME"`
	} `xml:"SAMPLE_NAME"`
	Attributes *sampleAttributes `xml:"SAMPLE_ATTRIBUTES"`
}

type sampleAttributes struct {
	Attrs []sampleAttribute `xml:",any"`
}

// sampleAttribute holds one tag/value pair: the first child names the
// attribute, the remaining children carry its value parts.
type sampleAttribute struct {
	Children []xmlNode `xml:",any"`
}

// ExtractSample streaming-parses a sample document. Beyond the fixed title
// and species fields it counts an open-ended set of attribute keys
// discovered at parse time, registered in first-seen order.
func ExtractSample(data []byte) (*TableSet, error) {
	ts := NewTableSet(FieldTitle, FieldSpecies)
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ts, nil
		}
		if err != nil {
			return nil, errors.E(opExtractSample, errors.KindParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "SAMPLE" {
			continue
		}
		var rec sampleRecord
		if err := dec.DecodeElement(&rec, &start); err != nil {
			return nil, errors.E(opExtractSample, errors.KindParse, err)
		}
		countSample(ts, &rec)
	}
}

func countSample(ts *TableSet, rec *sampleRecord) {
	// Species falls back to "NA" when the scientific name is missing or
	// empty; every sample contributes exactly one species occurrence.
	species := "NA"
	if s := rec.SampleName.ScientificName; s != nil && *s != "" {
		species = *s
	}
	ts.Field(FieldSpecies).Add(species)

	if rec.Title != nil {
		ts.Field(FieldTitle).Add(*rec.Title)
	}
	if rec.Attributes == nil {
		return
	}

	// Duplicate keys within one sample collapse last-wins before counting.
	keys := make([]string, 0, len(rec.Attributes.Attrs))
	pairs := make(map[string]string, len(rec.Attributes.Attrs))
	for _, attr := range rec.Attributes.Attrs {
		if len(attr.Children) == 0 {
			continue
		}
		key := attr.Children[0].Text
		if key == "" {
			continue
		}
		var parts []string
		for _, v := range attr.Children[1:] {
			if v.Text != "" {
				parts = append(parts, v.Text)
			}
		}
		if _, seen := pairs[key]; !seen {
			keys = append(keys, key)
		}
		pairs[key] = strings.Join(parts, " ")
	}
	for _, k := range keys {
		ts.Field(k).Add(pairs[k])
	}
}
