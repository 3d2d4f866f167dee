package evaluation

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

func ranked(query string, keys ...string) ranking.Ranking {
	r := ranking.Ranking{Query: query, NoResults: len(keys) == 0}
	for _, k := range keys {
		r.Docs = append(r.Docs, ranking.ScoredDoc{DocKey: k, Score: 0.5})
	}
	return r
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestEvaluateMicroAverages(t *testing.T) {
	rankings := []ranking.Ranking{
		ranked("A", "d1", "d2"),
		ranked("B", "d3", "d4", "d5"),
	}
	truth := Truth{
		"A": {"d1", "d9"},
		"B": {"d3", "d4", "d5"},
	}
	report, err := Evaluate(rankings, truth, Options{Label: "test"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !near(report.Precision, 0.8) {
		t.Errorf("precision = %v, want 0.8", report.Precision)
	}
	if !near(report.Recall, 0.8) {
		t.Errorf("recall = %v, want 0.8", report.Recall)
	}
	a := report.Queries[0]
	if a.TP != 1 || a.FP != 1 || a.FN != 1 {
		t.Errorf("query A counts = %+v", a)
	}
	if !near(a.Precision, 0.5) || !near(a.Recall, 0.5) {
		t.Errorf("query A scores = %+v", a)
	}
}

func TestEvaluateBounds(t *testing.T) {
	report, err := Evaluate(
		[]ranking.Ranking{ranked("q", "x", "y"), ranked("r")},
		Truth{"q": {"y", "z"}, "r": {"w"}},
		Options{},
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, qs := range report.Queries {
		if qs.Precision < 0 || qs.Precision > 1 || qs.Recall < 0 || qs.Recall > 1 {
			t.Errorf("scores out of range: %+v", qs)
		}
	}
	empty := report.Queries[1]
	if !empty.NoResults || empty.FN != 1 || empty.Precision != 0 {
		t.Errorf("no-result query = %+v", empty)
	}
}

func TestEvaluateMissingGroundTruth(t *testing.T) {
	_, err := Evaluate([]ranking.Ranking{ranked("7", "1")}, Truth{"8": {"2"}}, Options{})
	if !errors.Is(err, apperrors.ErrMissingGroundTruth) {
		t.Fatalf("err = %v, want ErrMissingGroundTruth", err)
	}
}

func TestEvaluateEmptyTruthEntry(t *testing.T) {
	report, err := Evaluate([]ranking.Ranking{ranked("q", "a")}, Truth{"q": nil}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Queries[0].FP != 1 || report.Queries[0].Recall != 0 {
		t.Errorf("unexpected score %+v", report.Queries[0])
	}
}

func TestOffsetKeys(t *testing.T) {
	report, err := Evaluate(
		[]ranking.Ranking{ranked("1", "0", "4")},
		Truth{"1": {"1", "2"}},
		Options{KeyMapper: OffsetKeys(1)},
	)
	if err != nil {
		t.Fatal(err)
	}
	if q := report.Queries[0]; q.TP != 1 || q.FP != 1 || q.FN != 1 {
		t.Errorf("offset counts = %+v", q)
	}

	_, err = Evaluate([]ranking.Ranking{ranked("1", "abc")}, Truth{"1": {"1"}}, Options{KeyMapper: OffsetKeys(1)})
	if !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestEvaluateInteractive(t *testing.T) {
	labels := map[string]bool{"a": true, "b": false, "c": true, "d": true}
	judge := JudgeFunc(func(_ context.Context, _ string, doc string) (bool, error) {
		return labels[doc], nil
	})
	report, err := EvaluateInteractive(context.Background(),
		[]ranking.Ranking{ranked("apple", "a", "b"), ranked("tesla", "c", "d"), ranked("none")},
		judge, "news")
	if err != nil {
		t.Fatal(err)
	}
	if report.HasRecall {
		t.Error("interactive report must not claim recall")
	}
	if !near(report.Queries[0].Precision, 0.5) || !near(report.Queries[1].Precision, 1) {
		t.Errorf("per-query precision = %+v", report.Queries)
	}
	if !near(report.Precision, 0.75) {
		t.Errorf("pooled precision = %v, want 0.75", report.Precision)
	}
}

func TestPromptJudgeRetriesInvalidAnswers(t *testing.T) {
	var out bytes.Buffer
	judge := NewPromptJudge(strings.NewReader("maybe\n1\n0"), &out)

	got, err := judge.Judge(context.Background(), "apple", "3")
	if err != nil || !got {
		t.Fatalf("first answer = %v, %v", got, err)
	}
	got, err = judge.Judge(context.Background(), "apple", "4")
	if err != nil || got {
		t.Fatalf("second answer = %v, %v", got, err)
	}
	if !strings.Contains(out.String(), "please answer 1 or 0") {
		t.Errorf("expected re-prompt, got %q", out.String())
	}
	if _, err := judge.Judge(context.Background(), "apple", "5"); err == nil {
		t.Error("expected error when input is exhausted")
	}
}

func TestStoredJudgeAsksOnce(t *testing.T) {
	calls := 0
	next := JudgeFunc(func(context.Context, string, string) (bool, error) {
		calls++
		return true, nil
	})
	judge := NewStoredJudge(NewMemoryStore(), next)
	for range 3 {
		got, err := judge.Judge(context.Background(), "q", "d")
		if err != nil || !got {
			t.Fatalf("Judge = %v, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("next judge called %d times, want 1", calls)
	}
}

func TestReportWrite(t *testing.T) {
	report, _ := Evaluate([]ranking.Ranking{ranked("q", "a")}, Truth{"q": {"a"}}, Options{Label: "cranfield"})
	var buf bytes.Buffer
	if err := report.Write(&buf, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"query q: precision 1.0000 recall 1.0000", "overall recall for cranfield: 1.0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
