// Package validator checks the identifier formats used across the catalog:
// SRA accessions and BioProject IDs.
package validator

import (
	"fmt"
	"regexp"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

const opRecordID errors.Op = "validator.RecordID"

// AccessionType names the record class an SRA accession refers to.
type AccessionType string

const (
	TypeSubmission AccessionType = "submission"
	TypeStudy      AccessionType = "study"
	TypeSample     AccessionType = "sample"
	TypeExperiment AccessionType = "experiment"
	TypeRun        AccessionType = "run"
	TypeBioproject AccessionType = "bioproject"
	TypeUnknown    AccessionType = "unknown"
)

// Accessions are an INSDC prefix (SRA/ERA/DRA archives) followed by at
// least six digits. BioProject IDs use their own PRJ prefix.
var (
	accessionPattern  = regexp.MustCompile(`^[SED]R[APSXR]\d{6,}$`)
	bioprojectPattern = regexp.MustCompile(`^PRJ(NA|EB|DB)\d+$`)
)

// TypeOf classifies an identifier by its prefix, or returns TypeUnknown.
func TypeOf(id string) AccessionType {
	if bioprojectPattern.MatchString(id) {
		return TypeBioproject
	}
	if !accessionPattern.MatchString(id) {
		return TypeUnknown
	}
	switch id[2] {
	case 'A':
		return TypeSubmission
	case 'P':
		return TypeStudy
	case 'S':
		return TypeSample
	case 'X':
		return TypeExperiment
	case 'R':
		return TypeRun
	}
	return TypeUnknown
}

// IsAccession reports whether id is a well-formed SRA accession of any type.
func IsAccession(id string) bool {
	return accessionPattern.MatchString(id)
}

// IsStudyID reports whether id is a study accession (SRP, ERP or DRP).
func IsStudyID(id string) bool {
	return TypeOf(id) == TypeStudy
}

// IsSubmissionID reports whether id is a submission accession (SRA, ERA or DRA).
func IsSubmissionID(id string) bool {
	return TypeOf(id) == TypeSubmission
}

// IsBioproject reports whether id is a BioProject ID (PRJNA, PRJEB or PRJDB).
func IsBioproject(id string) bool {
	return bioprojectPattern.MatchString(id)
}

// ValidateRecordID checks that id has one of the forms used to key catalog
// records: a submission or study accession. Metadata dumps name their
// per-study directories with either, depending on the archive vintage.
func ValidateRecordID(id string) error {
	switch TypeOf(id) {
	case TypeSubmission, TypeStudy:
		return nil
	}
	return errors.E(opRecordID, errors.KindValidation,
		fmt.Sprintf("invalid record id %q", id))
}
