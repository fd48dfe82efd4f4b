package service

import (
	"context"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/validator"
)

// MetadataService provides direct catalog access by accession.
type MetadataService struct {
	db *database.DB
}

// NewMetadataService creates a metadata service over an open catalog.
func NewMetadataService(db *database.DB) *MetadataService {
	return &MetadataService{db: db}
}

// GetStudy returns the catalog record keyed by id. The id must look like a
// study or submission accession before the database is consulted.
func (m *MetadataService) GetStudy(ctx context.Context, id string) (*database.Study, error) {
	if err := validator.ValidateRecordID(id); err != nil {
		return nil, err
	}
	return m.db.GetStudy(id)
}

// ListStudies pages through the catalog.
func (m *MetadataService) ListStudies(ctx context.Context, opts database.ListOptions) ([]database.Study, error) {
	return m.db.ListStudies(opts)
}
