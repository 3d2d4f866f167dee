package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestChildSpansShareTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "pipeline", "")
	if len(root.TraceID) != 32 {
		t.Fatalf("trace id = %q", root.TraceID)
	}
	_, weigh := StartChildSpan(ctx, "weigh")
	weigh.SetAttr("terms", 42)
	weigh.End()
	weigh.End()
	root.End()

	children := root.Children()
	if len(children) != 1 || children[0].TraceID != root.TraceID {
		t.Fatalf("unexpected children: %+v", children)
	}
	if v, ok := children[0].Attr("terms"); !ok || v != 42 {
		t.Errorf("attr terms = %v, %v", v, ok)
	}
}

func TestLogWritesWholeTree(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, root := StartSpan(context.Background(), "pipeline", "t1")
	_, rank := StartChildSpan(ctx, "rank")
	rank.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	if !strings.Contains(out, "span=pipeline") || !strings.Contains(out, "span=rank") {
		t.Errorf("log output missing spans: %s", out)
	}
}

func TestStartChildWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	if span.TraceID == "" {
		t.Error("orphan span should get a trace id")
	}
}
