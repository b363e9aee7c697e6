package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/model"
)

// Extractor pulls text out of an uploaded document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*model.ExtractedDocument, error)
}

// DocumentService handles standalone document processing outside the
// project pipeline: extract the text, archive the source file.
type DocumentService struct {
	extractor Extractor
	storage   client.StorageClient
}

func NewDocumentService(extractor Extractor, storage client.StorageClient) *DocumentService {
	return &DocumentService{
		extractor: extractor,
		storage:   storage,
	}
}

// Process extracts a document and archives the original. Archive failure
// is logged rather than fatal; the extraction result is the point.
func (s *DocumentService) Process(ctx context.Context, localPath, filename string) (*model.DocumentProcessResponse, error) {
	doc, err := s.extractor.Extract(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("extract document: %w", err)
	}

	documentID := uuid.New().String()
	resp := &model.DocumentProcessResponse{
		DocumentID: documentID,
		Processed:  doc,
	}

	if s.storage != nil {
		key := fmt.Sprintf("documents/%s/source%s", documentID, filepath.Ext(filename))
		url, err := s.storage.UploadFile(ctx, localPath, key, "application/pdf")
		if err != nil {
			log.Printf("Failed to archive document %s: %v", documentID, err)
		} else {
			resp.SourceURL = url
		}
	}

	return resp, nil
}
