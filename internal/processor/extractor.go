package processor

import "encoding/xml"

// Field names under which extracted values are counted. They surface
// verbatim as line prefixes in the rendered text body, so they keep the
// upstream corpus convention (snake_case, except the SRP_ID accession key).
const (
	FieldSRPID      = "SRP_ID"
	FieldBioproject = "bioproject"
	FieldTitle      = "title"
	FieldStudyType  = "study_type"
	FieldAbstract   = "abstract"

	FieldSpecies = "species"

	FieldDesignDescription  = "design_description"
	FieldLibraryName        = "library_name"
	FieldLibraryStrategy    = "library_strategy"
	FieldLibrarySource      = "library_source"
	FieldLibrarySelection   = "library_selection"
	FieldLibraryLayout      = "library_layout"
	FieldPlatformTechnology = "platform_technology"
	FieldPlatformInstrument = "platform_instrument"
)

// IdentifierFields are never suppressed by aggregation: their values are
// rendered verbatim regardless of cardinality.
var IdentifierFields = map[string]bool{
	FieldSRPID:      true,
	FieldBioproject: true,
	FieldTitle:      true,
}

// xmlNode captures an arbitrary child element: its tag name and character
// data. Used where the schema is open-ended, such as sample attribute
// lists and single-select flag groups.
type xmlNode struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}
