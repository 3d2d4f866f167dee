package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Info("hidden")
	log.Warn("shown", "component", "ranker")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "shown" || record["component"] != "ranker" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestID(ctx); got != "req-42" {
		t.Errorf("RequestID() = %q, want req-42", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID() on bare context = %q, want empty", got)
	}
}
