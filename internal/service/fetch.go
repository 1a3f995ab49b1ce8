package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/artgen/internal/provider"
	_ "golang.org/x/image/webp"
)

// ErrDownload is returned when a remote image cannot be retrieved.
var ErrDownload = errors.New("download failed")

// Fetcher resolves image refs to bytes.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a Fetcher whose GETs time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Fetcher{client: client}
}

// Fetch returns the bytes behind ref and checks that they decode as an image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ref: remote URL or inline base64 payload.
//
// Returns:
//   - []byte: raw image bytes.
//   - string: detected image format (png, jpeg, gif, webp).
//   - error: non-nil if download, decode or the image check fails.
func (f *Fetcher) Fetch(ctx context.Context, ref provider.ImageRef) ([]byte, string, error) {
	var data []byte
	switch {
	case ref.B64 != "":
		decoded, err := base64.StdEncoding.DecodeString(ref.B64)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode inline image: %w", err)
		}
		data = decoded
	case ref.URL != "":
		downloaded, err := f.Download(ctx, ref.URL)
		if err != nil {
			return nil, "", err
		}
		data = downloaded
	default:
		return nil, "", errors.New("provider returned no image reference")
	}

	format, err := checkImage(data)
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

// Download GETs url and returns the body. Anything but HTTP 200 is ErrDownload.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrDownload, resp.StatusCode(), url)
	}
	return resp.Body(), nil
}

func checkImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image payload")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("payload is not a supported image: %w", err)
	}
	return format, nil
}
