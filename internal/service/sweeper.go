package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timmy/artgen/internal/domain"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/storage"
)

// SweepResult summarises one retention sweep.
type SweepResult struct {
	Scanned      int           `json:"scanned"`
	FilesDeleted int           `json:"files_deleted"`
	FilesMissing int           `json:"files_missing"`
	RowsDeleted  int64         `json:"rows_deleted"`
	Errors       int           `json:"errors"`
	Duration     time.Duration `json:"duration_ns"`
}

// SweeperConfig controls the retention schedule.
type SweeperConfig struct {
	Interval   time.Duration
	MaxAge     time.Duration
	RunOnStart bool
}

// Sweeper deletes image files and metadata rows older than MaxAge.
type Sweeper struct {
	repo      *repository.MetadataRepository
	generated storage.ObjectStorage
	uploaded  storage.ObjectStorage
	cfg       SweeperConfig
	now       func() time.Time

	mu     sync.Mutex // serialises RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a Sweeper over both image stores.
func NewSweeper(
	repo *repository.MetadataRepository,
	generated, uploaded storage.ObjectStorage,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 48 * time.Hour
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 48 * time.Hour
	}
	return &Sweeper{
		repo:      repo,
		generated: generated,
		uploaded:  uploaded,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start launches the background ticker. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx = logger.SetComponent(ctx, "sweeper")
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)

	logger.CtxInfo(ctx, "Retention sweeper started: interval=%s, max_age=%s", s.cfg.Interval, s.cfg.MaxAge)
}

// Stop cancels the ticker and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	logger.Info("Retention sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	if s.cfg.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Expired lists the rows a sweep would remove right now.
func (s *Sweeper) Expired(ctx context.Context) ([]*domain.ImageMetadata, error) {
	return s.repo.ListOlderThan(ctx, s.now().UTC().Add(-s.cfg.MaxAge))
}

// RunOnce performs one sweep.
// A missing file still releases its row. Rows whose file could not be deleted
// for any other reason are kept for the next sweep. Selected rows are deleted
// in one transaction.
func (s *Sweeper) RunOnce(ctx context.Context) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}
	defer func() {
		result.Duration = time.Since(start)
		sweepRunsTotal.Inc()
		sweepRowsDeletedTotal.Add(float64(result.RowsDeleted))
		sweepFilesDeletedTotal.Add(float64(result.FilesDeleted))
		sweepErrorsTotal.Add(float64(result.Errors))
		sweepDurationSeconds.Observe(result.Duration.Seconds())
	}()

	expired, err := s.Expired(ctx)
	if err != nil {
		result.Errors++
		logger.CtxError(ctx, "Sweep: failed to list expired metadata: %v", err)
		return result
	}
	result.Scanned = len(expired)

	ids := make([]uint, 0, len(expired))
	for _, row := range expired {
		store := s.generated
		if !row.IsGenerated {
			store = s.uploaded
		}

		err := store.Delete(ctx, row.Filename)
		switch {
		case err == nil:
			result.FilesDeleted++
		case errors.Is(err, storage.ErrNotFound):
			result.FilesMissing++
		default:
			result.Errors++
			logger.CtxWarn(logger.SetFilename(ctx, row.Filename),
				"Sweep: failed to delete file, keeping row: %v", err)
			continue
		}
		ids = append(ids, row.ID)
	}

	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		result.Errors++
		logger.CtxError(ctx, "Sweep: failed to delete %d metadata rows: %v", len(ids), err)
		return result
	}
	result.RowsDeleted = deleted

	logger.With(logger.Fields{
		logger.FieldCount: result.RowsDeleted,
	}).WithDuration(start).Info(ctx, "Sweep completed: scanned=%d, files_deleted=%d, files_missing=%d, errors=%d",
		result.Scanned, result.FilesDeleted, result.FilesMissing, result.Errors)

	return result
}
