package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/artgen/internal/domain"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/provider"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/storage"
)

// filenameTimeLayout is the timestamp segment of generated file names.
const filenameTimeLayout = "20060102_150405"

// ErrFilenameTaken is reported for an image whose name another request already
// used within the same second.
var ErrFilenameTaken = errors.New("filename already in use")

// GeneratedImage is one persisted image in a generation response.
type GeneratedImage struct {
	URL      string              `json:"url"`
	Metadata domain.MetadataView `json:"metadata"`
}

// ImageFailure reports an image the provider produced but that was not persisted.
type ImageFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// GenerateResult is the response body of a generation request.
type GenerateResult struct {
	Images []GeneratedImage `json:"images"`
	Failed []ImageFailure   `json:"failed"`
}

// GenerateService runs validate → provider call → fetch/persist → record.
type GenerateService struct {
	registry  *provider.Registry
	validator *Validator
	fetcher   *Fetcher
	store     storage.ObjectStorage
	repo      *repository.MetadataRepository
	now       func() time.Time
}

// NewGenerateService creates a new GenerateService writing to the generated-image store.
func NewGenerateService(
	registry *provider.Registry,
	fetcher *Fetcher,
	store storage.ObjectStorage,
	repo *repository.MetadataRepository,
) *GenerateService {
	return &GenerateService{
		registry:  registry,
		validator: NewValidator(),
		fetcher:   fetcher,
		store:     store,
		repo:      repo,
		now:       time.Now,
	}
}

// Generate handles one generation request for model.
// Parameters:
//   - ctx: request context.
//   - model: route model identifier, checked before the body is read.
//   - body: raw JSON request body.
//
// Returns:
//   - *GenerateResult: persisted images and per-image failures.
//   - error: ErrValidation, a *provider.Error, or a wrapped metadata commit error.
func (s *GenerateService) Generate(ctx context.Context, model string, body []byte) (*GenerateResult, error) {
	p, ok := s.registry.Get(model)
	if !ok {
		return nil, validationError("Invalid model")
	}
	ctx = logger.SetModel(ctx, model)

	req, err := s.validator.ParseGenerateRequest(body)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetUser(ctx, req.User)

	ts := s.now().UTC().Truncate(time.Second)

	start := time.Now()
	refs, genErr := p.Generate(ctx, req.ProviderRequest())
	providerRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if genErr != nil && len(refs) == 0 {
		providerRequestsTotal.WithLabelValues(model, "error").Inc()
		logger.CtxError(ctx, "Provider call failed: %v", genErr)
		return nil, genErr
	}
	providerRequestsTotal.WithLabelValues(model, "ok").Inc()
	logger.With(logger.Fields{logger.FieldCount: len(refs)}).
		WithDuration(start).
		Info(ctx, "Provider returned images")

	result := &GenerateResult{Images: []GeneratedImage{}, Failed: []ImageFailure{}}
	rows := make([]*domain.ImageMetadata, 0, len(refs))

	for i, ref := range refs {
		filename := fmt.Sprintf("%s_%s_%d.png", p.FilePrefix(), ts.Format(filenameTimeLayout), i)
		if err := s.persist(ctx, ref, filename); err != nil {
			imageFailuresTotal.WithLabelValues("generated").Inc()
			logger.CtxWarn(ctx, "Failed to persist image %d: %v", i, err)
			result.Failed = append(result.Failed, ImageFailure{Index: i, Reason: err.Error()})
			continue
		}
		imagesStoredTotal.WithLabelValues("generated").Inc()

		rows = append(rows, &domain.ImageMetadata{
			Filename:    filename,
			Timestamp:   ts,
			Model:       model,
			Prompt:      req.Prompt,
			Width:       req.Width,
			Height:      req.Height,
			Quality:     req.Quality,
			Style:       req.Style,
			User:        req.User,
			IsGenerated: true,
		})
	}

	if genErr != nil {
		for i := len(refs); i < req.N; i++ {
			result.Failed = append(result.Failed, ImageFailure{Index: i, Reason: genErr.Error()})
		}
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		logger.CtxError(ctx, "Failed to record metadata for %d images: %v", len(rows), err)
		return nil, fmt.Errorf("failed to record image metadata: %w", err)
	}

	for _, row := range rows {
		result.Images = append(result.Images, GeneratedImage{
			URL:      "/images/" + row.Filename,
			Metadata: row.View(),
		})
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(result.Images),
	}).Info(ctx, "Generation completed: failed=%d", len(result.Failed))

	return result, nil
}

func (s *GenerateService) persist(ctx context.Context, ref provider.ImageRef, filename string) error {
	data, _, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.claim(ctx, filename); err != nil {
		return err
	}
	if err := s.store.Upload(ctx, filename, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		return fmt.Errorf("failed to store %s: %w", filename, err)
	}
	logger.CtxDebug(logger.SetFilename(ctx, filename), "Stored generated image")
	return nil
}

// claim fails with ErrFilenameTaken when filename already has a file or a row.
func (s *GenerateService) claim(ctx context.Context, filename string) error {
	exists, err := s.store.Exists(ctx, filename)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", filename, err)
	}
	if !exists {
		_, err = s.repo.GetByFilename(ctx, filename)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("failed to check %s: %w", filename, err)
		}
	}
	return fmt.Errorf("%w: %s", ErrFilenameTaken, filename)
}
