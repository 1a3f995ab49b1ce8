package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/domain"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/service"
	"github.com/timmy/artgen/internal/storage"
)

func TestTriggerSweep(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "admin.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(db) })
	repo := repository.NewMetadataRepository(db)

	old := &domain.ImageMetadata{
		Filename:    "DALLE_20200101_000000_0.png",
		Timestamp:   time.Now().UTC().Add(-72 * time.Hour),
		Model:       domain.ModelDALLE,
		Prompt:      "p",
		Width:       1024,
		Height:      1024,
		User:        "u",
		IsGenerated: true,
	}
	if err := repo.CreateBatch(context.Background(), []*domain.ImageMetadata{old}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	fs := afero.NewMemMapFs()
	sweeper := service.NewSweeper(repo, storage.NewLocalStorageFs(fs), storage.NewLocalStorageFs(afero.NewMemMapFs()), service.SweeperConfig{})
	h := NewAdminHandler(sweeper)

	r := gin.New()
	r.POST("/admin/sweep", h.TriggerSweep)
	r.GET("/admin/sweep/status", h.GetSweepStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/sweep", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res service.SweepResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RowsDeleted != 1 || res.FilesMissing != 1 {
		t.Errorf("result = %+v, want one missing file and one deleted row", res)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/sweep/status", nil))
	var status SweepStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.IsRunning || status.LastRunTime == nil || status.LastResult == nil {
		t.Errorf("status = %+v", status)
	}
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"other", context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
