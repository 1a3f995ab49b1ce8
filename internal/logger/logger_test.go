package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "artgen-test"})

	ctx := l.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetModel(ctx, "dalle")
	ctx = SetFilename(ctx, "DALLE_20240501_123045_0.png")

	With(Fields{FieldCount: 2}).Info(ctx, "persisted %d images", 2)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}

	want := map[string]interface{}{
		"service":      "artgen-test",
		FieldRequestID: "req-1",
		FieldModel:     "dalle",
		FieldFilename:  "DALLE_20240501_123045_0.png",
		"message":      "persisted 2 images",
		"level":        "info",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("field %s = %v, want %v", k, line[k], v)
		}
	}
	if line[FieldCount] != float64(2) {
		t.Errorf("count = %v, want 2", line[FieldCount])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
	if _, ok := FromContext(context.Background()).Data[FieldRequestID]; ok {
		t.Error("expected no request id on the default logger")
	}
}

func TestSetDefaultLoggerIgnoresNil(t *testing.T) {
	before := GetDefault()
	SetDefaultLogger(nil)
	if GetDefault() != before {
		t.Error("nil must not replace the default logger")
	}
}
