package provider

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/artgen/internal/domain"
)

// supportedAspectRatios are the ratios accepted by the SD3 endpoint.
var supportedAspectRatios = []struct {
	label string
	value float64
}{
	{"21:9", 21.0 / 9}, {"16:9", 16.0 / 9}, {"3:2", 3.0 / 2}, {"5:4", 5.0 / 4},
	{"1:1", 1}, {"4:5", 4.0 / 5}, {"2:3", 2.0 / 3}, {"9:16", 9.0 / 16}, {"9:21", 9.0 / 21},
}

// Stability calls the Stability AI SD3 generate endpoint, one call per image.
type Stability struct {
	client   *resty.Client
	endpoint string
}

// StabilityConfig holds configuration for the Stability provider.
type StabilityConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewStability creates a new Stability AI provider.
func NewStability(cfg *StabilityConfig) *Stability {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stability.ai"
	}

	return &Stability{
		client:   client,
		endpoint: baseURL + "/v2beta/stable-image/generate/sd3",
	}
}

func (p *Stability) Model() string      { return domain.ModelStableDiffusion }
func (p *Stability) FilePrefix() string { return "STABLEDIFF" }

type stabilityResponse struct {
	Image        string   `json:"image"`
	Seed         int64    `json:"seed"`
	FinishReason string   `json:"finish_reason"`
	Name         string   `json:"name"`
	Errors       []string `json:"errors"`
}

// Generate issues req.N sequential calls. When a later call fails the refs
// produced so far are returned together with the error.
func (p *Stability) Generate(ctx context.Context, req *Request) ([]ImageRef, error) {
	n := req.N
	if n < 1 {
		n = 1
	}

	refs := make([]ImageRef, 0, n)
	for i := 0; i < n; i++ {
		ref, err := p.generateOne(ctx, req)
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (p *Stability) generateOne(ctx context.Context, req *Request) (ImageRef, error) {
	form := map[string]string{
		"prompt":        req.Prompt,
		"output_format": "png",
		"aspect_ratio":  aspectRatio(req.Width, req.Height),
	}
	if req.NegativePrompt != "" {
		form["negative_prompt"] = req.NegativePrompt
	}
	if req.Seed != 0 {
		form["seed"] = strconv.FormatInt(req.Seed, 10)
	}
	if req.Style != "" {
		form["style_preset"] = req.Style
	}

	var resp stabilityResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetMultipartFormData(form).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return ImageRef{}, &Error{Provider: p.Model(), Kind: ErrTransport, Err: err}
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := string(httpResp.Body())
		if len(resp.Errors) > 0 {
			msg = strings.Join(resp.Errors, "; ")
		}
		return ImageRef{}, &Error{Provider: p.Model(), Kind: ErrUpstream, StatusCode: httpResp.StatusCode(), Message: msg}
	}

	if resp.Image == "" {
		return ImageRef{}, &Error{
			Provider:   p.Model(),
			Kind:       ErrUnexpectedResponse,
			StatusCode: httpResp.StatusCode(),
			Message:    fmt.Sprintf("missing image field (finish_reason=%q)", resp.FinishReason),
		}
	}
	return ImageRef{B64: resp.Image}, nil
}

// aspectRatio picks the supported ratio closest to width:height.
func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	target := float64(width) / float64(height)
	best := "1:1"
	bestDiff := math.MaxFloat64
	for _, r := range supportedAspectRatios {
		if d := math.Abs(math.Log(target / r.value)); d < bestDiff {
			best, bestDiff = r.label, d
		}
	}
	return best
}
