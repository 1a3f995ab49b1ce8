package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/domain"
)

func newTestRepo(t *testing.T) *MetadataRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "meta.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return NewMetadataRepository(db)
}

func row(filename string, ts time.Time) *domain.ImageMetadata {
	return &domain.ImageMetadata{
		Filename:    filename,
		Timestamp:   ts,
		Model:       domain.ModelDALLE,
		Prompt:      "a lighthouse at dusk",
		Width:       1024,
		Height:      1024,
		User:        "u-1",
		IsGenerated: true,
	}
}

func TestCreateBatchAndGetByFilename(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	rows := []*domain.ImageMetadata{row("DALLE_a_0.png", now), row("DALLE_a_1.png", now)}
	rows[1].IsGenerated = false

	if err := repo.CreateBatch(ctx, rows); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if rows[0].ID == 0 || rows[1].ID == 0 {
		t.Fatal("expected IDs to be assigned")
	}

	got, err := repo.GetByFilename(ctx, "DALLE_a_1.png")
	if err != nil {
		t.Fatalf("GetByFilename: %v", err)
	}
	if got.IsGenerated {
		t.Error("is_generated=false must round-trip")
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, now)
	}

	if _, err := repo.GetByFilename(ctx, "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateBatchIsAllOrNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.CreateBatch(ctx, []*domain.ImageMetadata{row("dup.png", now)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := repo.CreateBatch(ctx, []*domain.ImageMetadata{row("fresh.png", now), row("dup.png", now)})
	if err == nil {
		t.Fatal("expected unique filename violation")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (batch must roll back)", count)
	}
}

func TestListOlderThanAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := row("old.png", now.Add(-49*time.Hour))
	fresh := row("fresh.png", now.Add(-47*time.Hour))
	if err := repo.CreateBatch(ctx, []*domain.ImageMetadata{old, fresh}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	expired, err := repo.ListOlderThan(ctx, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("ListOlderThan: %v", err)
	}
	if len(expired) != 1 || expired[0].Filename != "old.png" {
		t.Fatalf("expired = %+v, want only old.png", expired)
	}

	deleted, err := repo.DeleteByIDs(ctx, []uint{expired[0].ID})
	if err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := repo.GetByFilename(ctx, "fresh.png"); err != nil {
		t.Errorf("fresh row should remain: %v", err)
	}
	if n, _ := repo.DeleteByIDs(ctx, nil); n != 0 {
		t.Errorf("empty delete = %d, want 0", n)
	}
}
