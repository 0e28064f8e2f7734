package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/config"
	"github.com/tony-42069/abare-v2/pkg/database"
	"github.com/tony-42069/abare-v2/pkg/storage"
	"go.uber.org/zap"
)

const documentsCollection = "documents"

// Upload is a file received from a client together with its metadata.
type Upload struct {
	Title       string
	Description string
	PropertyID  string
	FileName    string
	Body        io.Reader
}

// DocumentService manages document metadata and the stored payloads.
type DocumentService struct {
	documents  database.Collection
	properties *PropertyService
	files      storage.Storage
	limits     *config.UploadConfig
	log        *zap.Logger
}

func NewDocumentService(store database.Store, files storage.Storage, limits *config.UploadConfig, log *zap.Logger) *DocumentService {
	return &DocumentService{
		documents:  store.Collection(documentsCollection),
		properties: NewPropertyService(store),
		files:      files,
		limits:     limits,
		log:        log,
	}
}

// List returns a page of documents, restricted to one property when propertyID is set.
func (s *DocumentService) List(ctx context.Context, propertyID string, skip, limit int64) ([]model.Document, error) {
	filter := database.Filter{}
	if propertyID != "" {
		filter["property_id"] = propertyID
	}
	documents := []model.Document{}
	if err := s.documents.Find(ctx, filter, &documents,
		database.WithSkip(skip), database.WithLimit(limit)); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documents, nil
}

// Upload stores the file, records its metadata and links it to the property.
func (s *DocumentService) Upload(ctx context.Context, user *model.User, in Upload) (*model.Document, error) {
	name := filepath.Base(in.FileName)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" || !s.limits.ExtensionAllowed(ext) {
		return nil, newError(ErrValidation, "File type not allowed. Allowed types: %s",
			strings.Join(s.limits.AllowedExtensions, ", "))
	}
	if in.PropertyID != "" {
		if err := s.properties.Exists(ctx, in.PropertyID); err != nil {
			return nil, err
		}
	}

	path, size, err := s.files.Save(ctx, name, in.Body, s.limits.MaxSize)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, newError(ErrFileTooLarge, "File too large. Maximum size is %d bytes", s.limits.MaxSize)
	}
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	title := in.Title
	if title == "" {
		title = name
	}
	now := timestamp()
	doc := &model.Document{
		Title:       title,
		Description: in.Description,
		PropertyID:  in.PropertyID,
		FilePath:    path,
		FileName:    name,
		FileSize:    size,
		FileType:    ext,
		UploadedBy:  user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.documents.InsertOne(ctx, doc)
	if err != nil {
		s.removeFile(ctx, path)
		return nil, fmt.Errorf("insert document: %w", err)
	}
	doc.ID = id

	if doc.PropertyID != "" {
		if err := s.properties.AttachDocument(ctx, doc.PropertyID, id); err != nil {
			s.log.Warn("Failed to link document to property",
				zap.String("document_id", id),
				zap.String("property_id", doc.PropertyID),
				zap.Error(err))
		}
	}
	return doc, nil
}

// Get loads one document's metadata.
func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := s.documents.FindOne(ctx, database.Filter{database.IDField: id}, &doc)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Document")
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// Update changes the metadata. Moving a document to another property relinks it.
func (s *DocumentService) Update(ctx context.Context, id string, in model.DocumentUpdate) (*model.Document, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := database.Patch{"updated_at": timestamp()}
	if in.Title != nil {
		patch["title"] = *in.Title
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	moved := in.PropertyID != nil && *in.PropertyID != current.PropertyID
	if moved {
		if *in.PropertyID != "" {
			if err := s.properties.Exists(ctx, *in.PropertyID); err != nil {
				return nil, err
			}
		}
		patch["property_id"] = *in.PropertyID
	}

	n, err := s.documents.UpdateOne(ctx, database.Filter{database.IDField: id}, patch)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if n == 0 {
		return nil, notFound("Document")
	}

	if moved {
		s.unlink(ctx, current.PropertyID, id)
		if *in.PropertyID != "" {
			if err := s.properties.AttachDocument(ctx, *in.PropertyID, id); err != nil {
				s.log.Warn("Failed to link document to property",
					zap.String("document_id", id),
					zap.String("property_id", *in.PropertyID),
					zap.Error(err))
			}
		}
	}
	return s.Get(ctx, id)
}

// Delete removes the metadata, then the stored file and the property link.
// Failures after the record is gone are logged only.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.documents.DeleteOne(ctx, database.Filter{database.IDField: id})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return notFound("Document")
	}
	s.removeFile(ctx, doc.FilePath)
	s.unlink(ctx, doc.PropertyID, id)
	return nil
}

// Process marks the document as processed.
func (s *DocumentService) Process(ctx context.Context, id string) (*model.Document, error) {
	now := timestamp()
	n, err := s.documents.UpdateOne(ctx, database.Filter{database.IDField: id}, database.Patch{
		"processed":    true,
		"processed_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, fmt.Errorf("process document: %w", err)
	}
	if n == 0 {
		return nil, notFound("Document")
	}
	return s.Get(ctx, id)
}

// Open returns the document and a reader over its stored payload. The caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, id string) (*model.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, doc.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, notFound("File")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open document file: %w", err)
	}
	return doc, rc, nil
}

func (s *DocumentService) removeFile(ctx context.Context, path string) {
	if err := s.files.Remove(ctx, path); err != nil {
		s.log.Warn("Failed to remove stored file", zap.String("path", path), zap.Error(err))
	}
}

func (s *DocumentService) unlink(ctx context.Context, propertyID, documentID string) {
	if propertyID == "" {
		return
	}
	err := s.properties.DetachDocument(ctx, propertyID, documentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn("Failed to unlink document from property",
			zap.String("document_id", documentID),
			zap.String("property_id", propertyID),
			zap.Error(err))
	}
}
