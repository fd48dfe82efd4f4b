package database

import "time"

// Study is one catalog row: the flattened text body produced by the
// preprocessing pipeline plus the identifier metadata promoted out of it.
type Study struct {
	SRAID      string    `json:"sra_id"`
	Bioproject string    `json:"bioproject"`
	SRPID      string    `json:"srp_id"`
	Species    string    `json:"species"`
	Text       string    `json:"text"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// ListOptions narrows and pages a catalog listing.
type ListOptions struct {
	Species    string // exact match on the species metadata, empty for all
	Bioproject string // exact match on the bioproject accession, empty for all
	OrderBy    string // validated against AllowedColumns, default sra_id
	Limit      int
	Offset     int
}
