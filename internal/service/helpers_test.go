package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/provider"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/storage"
)

func newTestRepo(t *testing.T) *repository.MetadataRepository {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "artgen.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(db) })
	return repository.NewMetadataRepository(db)
}

func newMemStore() *storage.LocalStorage {
	return storage.NewLocalStorageFs(afero.NewMemMapFs())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// imageServer serves a PNG at every path except /missing, counting hits.
func imageServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	body := pngBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

type fakeProvider struct {
	refs  []provider.ImageRef
	err   error
	calls int
	last  *provider.Request
}

func (p *fakeProvider) Model() string      { return "dalle" }
func (p *fakeProvider) FilePrefix() string { return "DALLE" }

func (p *fakeProvider) Generate(_ context.Context, req *provider.Request) ([]provider.ImageRef, error) {
	p.calls++
	p.last = req
	return p.refs, p.err
}
