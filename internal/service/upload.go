package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/artgen/internal/domain"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/storage"
)

const (
	msgInvalidUploadList = `Invalid request. "images" should be a list of objects with "imageUrl" and "generatedImageFilename"`
	msgInvalidUploadItem = `Invalid request. Each image object must contain "imageUrl" and "generatedImageFilename"`
	msgUploadSucceeded   = "Image uploaded successfully"
)

// UploadItem links a remote image to the generated image it was derived from.
type UploadItem struct {
	ImageURL               string `json:"imageUrl"`
	GeneratedImageFilename string `json:"generatedImageFilename"`
}

// UploadOutcome is the per-item upload result. UploadedFilename is nil on failure.
type UploadOutcome struct {
	UploadedFilename *string `json:"uploaded_filename"`
	Message          string  `json:"message"`
}

// UploadService stores client-supplied images and copies their source metadata.
type UploadService struct {
	fetcher *Fetcher
	store   storage.ObjectStorage
	repo    *repository.MetadataRepository
	now     func() time.Time
	newName func() string
}

// NewUploadService creates a new UploadService writing to the upload store.
func NewUploadService(fetcher *Fetcher, store storage.ObjectStorage, repo *repository.MetadataRepository) *UploadService {
	return &UploadService{
		fetcher: fetcher,
		store:   store,
		repo:    repo,
		now:     time.Now,
		newName: func() string { return uuid.New().String() + ".jpg" },
	}
}

// Upload handles one upload request.
// Every referenced generated image is resolved before anything is downloaded,
// so a missing reference leaves no files or rows behind.
// Parameters:
//   - ctx: request context.
//   - body: raw JSON body of the form {"images": [{imageUrl, generatedImageFilename}]}.
//
// Returns:
//   - []UploadOutcome: one outcome per item, in request order.
//   - error: ErrValidation, ErrNotFound, or a wrapped storage/commit error.
func (s *UploadService) Upload(ctx context.Context, body []byte) ([]UploadOutcome, error) {
	items, err := parseUploadItems(body)
	if err != nil {
		return nil, err
	}

	sources := make([]*domain.ImageMetadata, len(items))
	for i, item := range items {
		src, err := s.repo.GetByFilename(ctx, item.GeneratedImageFilename)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFoundError("Metadata for the generated image %s not found", item.GeneratedImageFilename)
			}
			return nil, fmt.Errorf("failed to look up %s: %w", item.GeneratedImageFilename, err)
		}
		sources[i] = src
	}

	outcomes := make([]UploadOutcome, 0, len(items))
	rows := make([]*domain.ImageMetadata, 0, len(items))

	for i, item := range items {
		data, err := s.fetcher.Download(ctx, item.ImageURL)
		if err != nil {
			imageFailuresTotal.WithLabelValues("uploaded").Inc()
			logger.CtxWarn(ctx, "Upload download failed: url=%s, err=%v", item.ImageURL, err)
			outcomes = append(outcomes, UploadOutcome{
				Message: fmt.Sprintf("Failed to download image from %s. URL may be invalid", item.ImageURL),
			})
			continue
		}

		name := s.newName()
		if err := s.store.Upload(ctx, name, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
			return nil, fmt.Errorf("failed to store uploaded image: %w", err)
		}
		imagesStoredTotal.WithLabelValues("uploaded").Inc()

		rows = append(rows, sources[i].CopyAs(name, s.now().UTC().Truncate(time.Second), false))
		outcomes = append(outcomes, UploadOutcome{UploadedFilename: &name, Message: msgUploadSucceeded})
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to record uploaded metadata: %w", err)
	}

	logger.With(logger.Fields{logger.FieldCount: len(rows)}).
		Info(ctx, "Upload completed: items=%d", len(items))
	return outcomes, nil
}

func parseUploadItems(body []byte) ([]UploadItem, error) {
	var envelope struct {
		Images json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, validationError(msgInvalidUploadList)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(envelope.Images, &raw); err != nil || len(raw) == 0 {
		return nil, validationError(msgInvalidUploadList)
	}

	items := make([]UploadItem, 0, len(raw))
	for _, r := range raw {
		var item UploadItem
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, validationError(msgInvalidUploadItem)
		}
		if item.ImageURL == "" || item.GeneratedImageFilename == "" {
			return nil, validationError(msgInvalidUploadItem)
		}
		items = append(items, item)
	}
	return items, nil
}
