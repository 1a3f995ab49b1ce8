package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/artgen/internal/domain"
)

// DALLE calls the OpenAI images/generations endpoint.
type DALLE struct {
	client   *resty.Client
	model    string
	endpoint string
}

// DALLEConfig holds configuration for the DALL-E provider.
type DALLEConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewDALLE creates a new DALL-E provider.
// Parameters:
//   - cfg: API key, base URL, model name and request timeout.
//
// Returns:
//   - *DALLE: initialized provider.
func NewDALLE(cfg *DALLEConfig) *DALLE {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "dall-e-3"
	}

	return &DALLE{
		client:   client,
		model:    model,
		endpoint: baseURL + "/images/generations",
	}
}

func (p *DALLE) Model() string      { return domain.ModelDALLE }
func (p *DALLE) FilePrefix() string { return "DALLE" }

type dalleRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	User           string `json:"user,omitempty"`
	ResponseFormat string `json:"response_format"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
}

type dalleResponse struct {
	Data []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate issues one images/generations call.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: validated request; Quality and Style are sent only when set.
//
// Returns:
//   - []ImageRef: one URL ref per returned image.
//   - error: *Error classified as ErrTransport, ErrUpstream or ErrUnexpectedResponse.
func (p *DALLE) Generate(ctx context.Context, req *Request) ([]ImageRef, error) {
	body := dalleRequest{
		Model:          p.model,
		Prompt:         req.Prompt,
		N:              req.N,
		Size:           fmt.Sprintf("%dx%d", req.Width, req.Height),
		User:           req.User,
		ResponseFormat: "url",
		Quality:        req.Quality,
		Style:          req.Style,
	}

	var resp dalleResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return nil, &Error{Provider: p.Model(), Kind: ErrTransport, Err: err}
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, &Error{Provider: p.Model(), Kind: ErrUpstream, StatusCode: httpResp.StatusCode(), Message: msg}
	}

	if resp.Data == nil {
		return nil, &Error{
			Provider:   p.Model(),
			Kind:       ErrUnexpectedResponse,
			StatusCode: httpResp.StatusCode(),
			Message:    fmt.Sprintf("missing data field: %s", string(httpResp.Body())),
		}
	}

	refs := make([]ImageRef, 0, len(resp.Data))
	for _, d := range resp.Data {
		refs = append(refs, ImageRef{URL: d.URL, B64: d.B64JSON})
	}
	return refs, nil
}
