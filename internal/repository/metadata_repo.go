package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/artgen/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no metadata row matches a lookup.
var ErrNotFound = errors.New("metadata not found")

// MetadataRepository handles image metadata rows.
type MetadataRepository struct {
	db *gorm.DB
}

// NewMetadataRepository creates a new MetadataRepository.
func NewMetadataRepository(db *gorm.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// CreateBatch inserts all rows in a single transaction. Either every row is
// committed or none is.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rows: rows to persist; IDs are populated on success.
//
// Returns:
//   - error: non-nil if the insert or commit fails.
func (r *MetadataRepository) CreateBatch(ctx context.Context, rows []*domain.ImageMetadata) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rows).Error; err != nil {
			return fmt.Errorf("failed to insert metadata: %w", err)
		}
		return nil
	})
}

// GetByFilename retrieves the row for one stored file.
// Returns ErrNotFound when no row exists.
func (r *MetadataRepository) GetByFilename(ctx context.Context, filename string) (*domain.ImageMetadata, error) {
	var row domain.ImageMetadata
	err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", filename, err)
	}
	return &row, nil
}

// ListOlderThan returns every row whose timestamp is strictly before cutoff, oldest first.
func (r *MetadataRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.ImageMetadata, error) {
	var rows []*domain.ImageMetadata
	if err := r.db.WithContext(ctx).
		Where(clause.Lt{Column: clause.Column{Name: "timestamp"}, Value: cutoff.UTC()}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired metadata: %w", err)
	}
	return rows, nil
}

// DeleteByIDs removes the given rows in one transaction and returns how many were deleted.
func (r *MetadataRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&domain.ImageMetadata{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete metadata: %w", err)
	}
	return deleted, nil
}

// Count returns the total number of rows.
func (r *MetadataRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ImageMetadata{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
