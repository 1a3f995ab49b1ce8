// Package provider adapts validated generation requests to third-party
// text-to-image APIs.
package provider

import (
	"context"
	"sort"
)

// Request carries validated generation inputs. Zero values mean "not supplied".
type Request struct {
	Prompt  string
	User    string
	N       int
	Width   int
	Height  int
	Quality string
	Style   string

	// Stable Diffusion only
	NegativePrompt string
	Seed           int64
}

// ImageRef points at one generated image: either a remote URL or inline base64 bytes.
type ImageRef struct {
	URL string
	B64 string
}

// Empty reports whether the provider returned neither a URL nor inline data.
func (r ImageRef) Empty() bool {
	return r.URL == "" && r.B64 == ""
}

// Provider issues a single synchronous generation call.
type Provider interface {
	// Model is the route identifier and metadata model tag, e.g. "dalle"
	Model() string

	// FilePrefix prefixes stored file names, e.g. "DALLE"
	FilePrefix() string

	// Generate returns one ref per produced image. A non-nil error may
	// accompany a partial list of refs.
	Generate(ctx context.Context, req *Request) ([]ImageRef, error)
}

// Registry maps model identifiers to providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers the given providers by Model().
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Model()] = p
	}
	return r
}

// Get returns the provider for model.
func (r *Registry) Get(model string) (Provider, bool) {
	p, ok := r.providers[model]
	return p, ok
}

// Models returns the registered model identifiers, sorted.
func (r *Registry) Models() []string {
	models := make([]string, 0, len(r.providers))
	for m := range r.providers {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
