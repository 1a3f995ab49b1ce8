package service

import (
	"errors"
	"strings"
	"testing"
)

func TestParseGenerateRequestErrors(t *testing.T) {
	v := NewValidator()

	testCases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"absent body", "", "Invalid JSON data received"},
		{"null body", "null", "Invalid JSON data received"},
		{"missing prompt", `{"user":"u"}`, "Invalid JSON format: prompt is required"},
		{"missing user", `{"prompt":"p"}`, "Invalid JSON format: user is required"},
		{"n too small", `{"prompt":"p","user":"u","n":0}`, "Invalid JSON format: n must be at least 1"},
		{"n too large", `{"prompt":"p","user":"u","n":11}`, "Invalid JSON format: n must be at most 10"},
		{"zero width", `{"prompt":"p","user":"u","width":0}`, "Invalid JSON format: width must be greater than 0"},
		{"array body", `[]`, "Invalid JSON format: request body must be an object"},
		{"string body", `"draw a cat"`, "Invalid JSON format: request body must be an object"},
		{"fractional n", `{"prompt":"p","user":"u","n":1.5}`, "Invalid JSON format: n must be of type int"},
		{"string seed", `{"prompt":"p","user":"u","seed":"7"}`, "Invalid JSON format: seed must be of type int"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.ParseGenerateRequest([]byte(tc.body))
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if err.Error() != tc.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
		})
	}

	t.Run("wrong type", func(t *testing.T) {
		_, err := v.ParseGenerateRequest([]byte(`{"prompt":"p","user":"u","n":"two"}`))
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if !strings.HasPrefix(err.Error(), "Invalid JSON format: n must be of type") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := v.ParseGenerateRequest([]byte(`{"prompt":`))
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestParseGenerateRequestIntegralFloats(t *testing.T) {
	req, err := NewValidator().ParseGenerateRequest([]byte(`{"prompt":"p","user":"u","n":2.0,"width":512.0,"seed":42}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.N != 2 || req.Width != 512 || req.Height != 1024 || req.Seed != 42 {
		t.Errorf("request = %+v", req)
	}
}

func TestParseGenerateRequestDefaults(t *testing.T) {
	req, err := NewValidator().ParseGenerateRequest([]byte(`{"prompt":"a cat","user":"u-1","style":"vivid"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.N != 1 || req.Width != 1024 || req.Height != 1024 {
		t.Errorf("defaults not applied: %+v", req)
	}

	pr := req.ProviderRequest()
	if pr.Style != "vivid" || pr.Quality != "" {
		t.Errorf("provider request = %+v", pr)
	}
}
