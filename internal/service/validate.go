package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/timmy/artgen/internal/provider"
)

const (
	defaultImageCount = 1
	defaultImageSize  = 1024
)

// generateBody mirrors the request JSON; pointers distinguish absent fields.
type generateBody struct {
	Prompt         *string  `json:"prompt"`
	User           *string  `json:"user"`
	N              *integer `json:"n"`
	Width          *integer `json:"width"`
	Height         *integer `json:"height"`
	Quality        *string  `json:"quality"`
	Style          *string  `json:"style"`
	NegativePrompt *string  `json:"negative_prompt"`
	Seed           *integer `json:"seed"`
}

var intType = reflect.TypeOf(0)

// integer is a JSON number with no fractional part; 2 and 2.0 are both accepted.
type integer int64

func (i *integer) UnmarshalJSON(data []byte) error {
	lit := string(bytes.TrimSpace(data))
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return &json.UnmarshalTypeError{Value: literalKind(lit), Type: intType}
	}
	*i = integer(f)
	return nil
}

func literalKind(lit string) string {
	switch {
	case strings.HasPrefix(lit, `"`):
		return "string"
	case strings.HasPrefix(lit, "{"):
		return "object"
	case strings.HasPrefix(lit, "["):
		return "array"
	case lit == "true" || lit == "false":
		return "bool"
	default:
		return "number " + lit
	}
}

// GenerateRequest is a generation request after defaults are applied.
type GenerateRequest struct {
	Prompt         string `json:"prompt" validate:"required"`
	User           string `json:"user" validate:"required"`
	N              int    `json:"n" validate:"min=1,max=10"`
	Width          int    `json:"width" validate:"gt=0"`
	Height         int    `json:"height" validate:"gt=0"`
	Quality        string `json:"quality"`
	Style          string `json:"style"`
	NegativePrompt string `json:"negative_prompt"`
	Seed           int64  `json:"seed" validate:"gte=0"`
}

// ProviderRequest converts r into the adapter request.
func (r *GenerateRequest) ProviderRequest() *provider.Request {
	return &provider.Request{
		Prompt:         r.Prompt,
		User:           r.User,
		N:              r.N,
		Width:          r.Width,
		Height:         r.Height,
		Quality:        r.Quality,
		Style:          r.Style,
		NegativePrompt: r.NegativePrompt,
		Seed:           r.Seed,
	}
}

// Validator checks generation request bodies.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator reporting fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ParseGenerateRequest decodes and validates a raw request body.
// Parameters:
//   - body: raw JSON body; empty or "null" counts as absent.
//
// Returns:
//   - *GenerateRequest: request with defaults applied.
//   - error: ErrValidation with the client-facing message.
func (v *Validator) ParseGenerateRequest(body []byte) (*GenerateRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, validationError("Invalid JSON data received")
	}

	var raw generateBody
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, validationError("Invalid JSON format: %s", jsonErrorDetail(err))
	}

	req := &GenerateRequest{
		Prompt:         deref(raw.Prompt, ""),
		User:           deref(raw.User, ""),
		N:              int(deref(raw.N, defaultImageCount)),
		Width:          int(deref(raw.Width, defaultImageSize)),
		Height:         int(deref(raw.Height, defaultImageSize)),
		Quality:        deref(raw.Quality, ""),
		Style:          deref(raw.Style, ""),
		NegativePrompt: deref(raw.NegativePrompt, ""),
		Seed:           int64(deref(raw.Seed, 0)),
	}

	if err := v.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, validationError("Invalid JSON format: %s", fieldMessage(fieldErrs[0]))
		}
		return nil, validationError("Invalid JSON format: %v", err)
	}
	return req, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func jsonErrorDetail(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return "request body must be an object"
		}
		return fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("%s at offset %d", syntaxErr.Error(), syntaxErr.Offset)
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
