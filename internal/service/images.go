package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/timmy/artgen/internal/domain"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/storage"
)

// ImageService serves stored image files and their metadata.
type ImageService struct {
	generated storage.ObjectStorage
	uploaded  storage.ObjectStorage
	repo      *repository.MetadataRepository
}

// NewImageService creates a new ImageService.
func NewImageService(generated, uploaded storage.ObjectStorage, repo *repository.MetadataRepository) *ImageService {
	return &ImageService{generated: generated, uploaded: uploaded, repo: repo}
}

// OpenGenerated opens a file from the generated-image store.
func (s *ImageService) OpenGenerated(ctx context.Context, filename string) (io.ReadCloser, error) {
	return open(ctx, s.generated, filename)
}

// OpenUploaded opens a file from the upload store.
func (s *ImageService) OpenUploaded(ctx context.Context, filename string) (io.ReadCloser, error) {
	return open(ctx, s.uploaded, filename)
}

func open(ctx context.Context, store storage.ObjectStorage, filename string) (io.ReadCloser, error) {
	if err := storage.ValidateKey(filename); err != nil {
		return nil, notFoundError("Image %s not found", filename)
	}
	rc, err := store.Download(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundError("Image %s not found", filename)
		}
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	return rc, nil
}

// ListUploaded returns the .jpg and .png names in the upload store.
func (s *ImageService) ListUploaded(ctx context.Context) ([]string, error) {
	keys, err := s.uploaded.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploaded images: %w", err)
	}
	images := make([]string, 0, len(keys))
	for _, k := range keys {
		lower := strings.ToLower(k)
		if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".png") {
			images = append(images, k)
		}
	}
	return images, nil
}

// GetMetadata returns the client view of one metadata row.
func (s *ImageService) GetMetadata(ctx context.Context, filename string) (*domain.MetadataView, error) {
	if filename == "" {
		return nil, validationError("Filename parameter is required")
	}
	row, err := s.repo.GetByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("Metadata not found for the given filename")
		}
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	view := row.View()
	return &view, nil
}
