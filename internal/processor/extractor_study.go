package processor

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

const opExtractStudy errors.Op = "processor.extractStudy"

// studyRecord mirrors the subset of a STUDY element the pipeline keeps.
// Pointer fields distinguish a missing element from one that is present
// but empty; a missing field contributes nothing to its table.
type studyRecord struct {
	Identifiers struct {
		PrimaryID   *string      `xml:"PRIMARY_ID"`
		ExternalIDs []externalID `xml:"EXTERNAL_ID"`
	} `xml:"IDENTIFIERS"`
	Descriptor struct {
		Title     *string `xml:"STUDY_TITLE"`
		Abstract  *string `xml:"STUDY_ABSTRACT"`
		StudyType *struct {
			Existing string `xml:"existing_study_type,attr"`
		} `xml:"STUDY_TYPE"`
	} `xml:"DESCRIPTOR"`
}

type externalID struct {
	Namespace string `xml:"namespace,attr"`
	Value     string `xml:",chardata"`
}

// ExtractStudy streaming-parses a study document and counts the study
// fields of interest across its STUDY elements. Each decoded element is
// released before the next token is read, so memory stays bounded by one
// record regardless of document size.
func ExtractStudy(data []byte) (*TableSet, error) {
	ts := NewTableSet(FieldSRPID, FieldBioproject, FieldTitle, FieldStudyType, FieldAbstract)
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ts, nil
		}
		if err != nil {
			return nil, errors.E(opExtractStudy, errors.KindParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "STUDY" {
			continue
		}
		var rec studyRecord
		if err := dec.DecodeElement(&rec, &start); err != nil {
			return nil, errors.E(opExtractStudy, errors.KindParse, err)
		}
		countStudy(ts, &rec)
	}
}

func countStudy(ts *TableSet, rec *studyRecord) {
	if id := rec.Identifiers.PrimaryID; id != nil {
		ts.Field(FieldSRPID).Add(*id)
	}
	for _, ext := range rec.Identifiers.ExternalIDs {
		if ext.Namespace == "BioProject" {
			ts.Field(FieldBioproject).Add(ext.Value)
			break
		}
	}
	if t := rec.Descriptor.Title; t != nil {
		ts.Field(FieldTitle).Add(*t)
	}
	// The study type code defaults to empty whether the element or its
	// attribute is missing.
	studyType := ""
	if st := rec.Descriptor.StudyType; st != nil {
		studyType = st.Existing
	}
	ts.Field(FieldStudyType).Add(studyType)
	if a := rec.Descriptor.Abstract; a != nil {
		ts.Field(FieldAbstract).Add(*a)
	}
}
