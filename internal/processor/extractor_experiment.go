package processor

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

const opExtractExperiment errors.Op = "processor.extractExperiment"

// ErrAmbiguousPlatform marks an experiment whose PLATFORM element carries
// more than one technology child. Such a platform cannot be summarized
// safely, so extraction fails instead of picking one.
var ErrAmbiguousPlatform = errors.New("ambiguous platform: multiple technology children")

// experimentRecord mirrors the subset of an EXPERIMENT element the
// pipeline keeps.
type experimentRecord struct {
	Title  *string `xml:"TITLE"`
	Design struct {
		Description *string `xml:"DESIGN_DESCRIPTION"`
		Library     struct {
			Name      *string    `xml:"LIBRARY_NAME"`
			Strategy  *string    `xml:"LIBRARY_STRATEGY"`
			Source    *string    `xml:"LIBRARY_SOURCE"`
			Selection *string    `xml:"LIBRARY_SELECTION"`
			Layout    *flagGroup `xml:"LIBRARY_LAYOUT"`
		} `xml:"LIBRARY_DESCRIPTOR"`
	} `xml:"DESIGN"`
	Platform *platformGroup `xml:"PLATFORM"`
}

// flagGroup models a single-select element whose meaning is carried by its
// child tag names, such as LIBRARY_LAYOUT holding a PAIRED or SINGLE child.
type flagGroup struct {
	Children []xmlNode `xml:",any"`
}

type platformGroup struct {
	Children []platformChild `xml:",any"`
}

type platformChild struct {
	XMLName         xml.Name
	InstrumentModel *string `xml:"INSTRUMENT_MODEL"`
}

// ExtractExperiment streaming-parses an experiment document, counting the
// library descriptor and platform fields across its EXPERIMENT elements.
func ExtractExperiment(data []byte) (*TableSet, error) {
	ts := NewTableSet(
		FieldTitle, FieldDesignDescription,
		FieldLibraryName, FieldLibraryStrategy, FieldLibrarySource,
		FieldLibrarySelection, FieldLibraryLayout,
		FieldPlatformTechnology, FieldPlatformInstrument,
	)
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ts, nil
		}
		if err != nil {
			return nil, errors.E(opExtractExperiment, errors.KindParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "EXPERIMENT" {
			continue
		}
		var rec experimentRecord
		if err := dec.DecodeElement(&rec, &start); err != nil {
			return nil, errors.E(opExtractExperiment, errors.KindParse, err)
		}
		if err := countExperiment(ts, &rec); err != nil {
			return nil, errors.E(opExtractExperiment, errors.KindParse, err)
		}
	}
}

func countExperiment(ts *TableSet, rec *experimentRecord) error {
	if t := rec.Title; t != nil {
		ts.Field(FieldTitle).Add(*t)
	}
	if d := rec.Design.Description; d != nil {
		ts.Field(FieldDesignDescription).Add(*d)
	}

	lib := rec.Design.Library
	if v := lib.Name; v != nil {
		ts.Field(FieldLibraryName).Add(*v)
	}
	if v := lib.Strategy; v != nil {
		ts.Field(FieldLibraryStrategy).Add(*v)
	}
	if v := lib.Source; v != nil {
		ts.Field(FieldLibrarySource).Add(*v)
	}
	if v := lib.Selection; v != nil {
		ts.Field(FieldLibrarySelection).Add(*v)
	}
	if lib.Layout != nil {
		tags := make([]string, 0, len(lib.Layout.Children))
		for _, c := range lib.Layout.Children {
			tags = append(tags, c.XMLName.Local)
		}
		ts.Field(FieldLibraryLayout).Add(strings.Join(tags, "|"))
	}

	if p := rec.Platform; p != nil {
		if len(p.Children) > 1 {
			return ErrAmbiguousPlatform
		}
		if len(p.Children) == 1 {
			child := p.Children[0]
			ts.Field(FieldPlatformTechnology).Add(child.XMLName.Local)
			if m := child.InstrumentModel; m != nil {
				ts.Field(FieldPlatformInstrument).Add(*m)
			}
		}
	}
	return nil
}
