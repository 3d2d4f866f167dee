package ranking

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
)

func matrixOf(t testing.TB, docs ...[]string) *weighting.Matrix {
	t.Helper()
	b := index.NewBuilder()
	for i, terms := range docs {
		if err := b.Add(fmt.Sprintf("doc%d", i+1), terms); err != nil {
			t.Fatal(err)
		}
	}
	return weighting.Weigh(b.Build())
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float64
		want    float64
		defined bool
	}{
		{"identical", []float64{1, 2}, []float64{1, 2}, 1, true},
		{"orthogonal", []float64{1, 0}, []float64{0, 3}, 0, true},
		{"zero norm", []float64{0, 0}, []float64{1, 1}, 0, false},
		{"empty", nil, nil, 0, false},
		{"half", []float64{1, 1}, []float64{1, 0}, 1 / math.Sqrt2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cosine(tt.a, tt.b)
			if ok != tt.defined || math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Cosine = %v, %v; want %v, %v", got, ok, tt.want, tt.defined)
			}
			back, _ := Cosine(tt.b, tt.a)
			if back != got {
				t.Errorf("Cosine not symmetric: %v vs %v", got, back)
			}
			if got < 0 || got > 1 {
				t.Errorf("Cosine out of [0,1]: %v", got)
			}
		})
	}
}

func TestPetsEndToEnd(t *testing.T) {
	m := matrixOf(t, []string{"cat", "dog"}, []string{"dog", "bird"})
	r := New(Options{Threshold: DefaultThreshold, TopN: 1})
	scores, err := r.Score(context.Background(), m, map[string]query.TermSet{"pets": {"cat"}})
	if err != nil {
		t.Fatal(err)
	}
	pets := scores["pets"]

	top := r.TopN(pets)
	if top.NoResults || !reflect.DeepEqual(top.Keys(), []string{"doc1"}) {
		t.Errorf("TopN = %+v, want [doc1]", top)
	}
	above := r.Threshold(pets)
	if !reflect.DeepEqual(above.Keys(), []string{"doc1"}) {
		t.Errorf("Threshold = %+v, want [doc1]", above)
	}
	if pets.Score("doc1") != 1 || pets.Score("doc2") != 0 {
		t.Errorf("scores = %v", pets.Values)
	}
}

func TestScoreQueryMatchesDenseCosine(t *testing.T) {
	m := matrixOf(t,
		[]string{"wing", "lift", "lift"},
		[]string{"drag", "wing"},
		[]string{"shock", "heat", "mach"},
		[]string{},
	)
	terms := query.NewTermSet("lift", "shock", "unknown")
	s := ScoreQuery(m, "q", terms)

	columns := m.Terms()
	qvec := make([]float64, len(columns))
	for j, term := range columns {
		if terms.Contains(term) {
			qvec[j] = 1
		}
	}
	dense := m.Dense(columns)
	for i := range m.Docs() {
		want, defined := Cosine(qvec, dense.RawRowView(i))
		if s.Defined[i] != defined || math.Abs(s.Values[i]-want) > 1e-12 {
			t.Errorf("row %d: sparse = %v/%v, dense = %v/%v", i, s.Values[i], s.Defined[i], want, defined)
		}
	}
	if s.Defined[3] {
		t.Error("empty document must have an undefined score")
	}
}

func TestTopNNoResults(t *testing.T) {
	m := matrixOf(t, []string{"cat"}, []string{"dog"})
	r := New(Options{TopN: 3})
	got := r.TopN(ScoreQuery(m, "fish", query.NewTermSet("fish")))
	if !got.NoResults || got.Docs != nil {
		t.Errorf("TopN = %+v, want NoResults", got)
	}
	// Threshold mode reports an empty list instead.
	if th := r.Threshold(ScoreQuery(m, "fish", query.NewTermSet("fish"))); th.NoResults || len(th.Docs) != 0 {
		t.Errorf("Threshold = %+v", th)
	}
}

func TestNewKeepsZeroThreshold(t *testing.T) {
	r := New(Options{})
	opts := r.Options()
	if opts.TopN != DefaultTopN || opts.Workers != 1 || opts.Threshold != 0 {
		t.Fatalf("Options = %+v", opts)
	}
	m := matrixOf(t, []string{"cat", "dog"}, []string{"dog", "bird"})
	got := r.Threshold(ScoreQuery(m, "cat", query.NewTermSet("cat")))
	if keys := got.Keys(); !reflect.DeepEqual(keys, []string{"doc1"}) {
		t.Errorf("Threshold keys = %v, want [doc1]", keys)
	}
}

func TestTopNCountAndOrder(t *testing.T) {
	m := matrixOf(t,
		[]string{"a", "x"},
		[]string{"a", "y"},
		[]string{"b"},
		[]string{"a", "a", "z"},
		[]string{},
	)
	s := ScoreQuery(m, "q", query.NewTermSet("a"))
	defined := 0
	for _, ok := range s.Defined {
		if ok {
			defined++
		}
	}
	for n := 1; n <= 6; n++ {
		got := New(Options{TopN: n}).TopN(s)
		want := min(n, defined)
		if len(got.Docs) != want {
			t.Errorf("n=%d: got %d docs, want %d", n, len(got.Docs), want)
		}
		for i := 1; i < len(got.Docs); i++ {
			if got.Docs[i].Score > got.Docs[i-1].Score {
				t.Errorf("n=%d: scores not non-increasing: %+v", n, got.Docs)
			}
		}
	}
}

func TestTiesBrokenByRowOrder(t *testing.T) {
	m := matrixOf(t, []string{"a", "b"}, []string{"c"}, []string{"a", "b"}, []string{"a", "b"})
	s := ScoreQuery(m, "q", query.NewTermSet("a"))
	r := New(Options{TopN: 2, Threshold: 0.1})
	if got := r.TopN(s).Keys(); !reflect.DeepEqual(got, []string{"doc1", "doc3"}) {
		t.Errorf("TopN = %v, want [doc1 doc3]", got)
	}
	if got := r.Threshold(s).Keys(); !reflect.DeepEqual(got, []string{"doc1", "doc3", "doc4"}) {
		t.Errorf("Threshold = %v, want [doc1 doc3 doc4]", got)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	docs := make([][]string, 0, 60)
	for i := 0; i < 60; i++ {
		docs = append(docs, []string{fmt.Sprintf("t%d", i%7), fmt.Sprintf("t%d", i%11), "shared"})
	}
	m := matrixOf(t, docs...)
	queries := make(map[string]query.TermSet)
	for i := 0; i < 25; i++ {
		queries[fmt.Sprintf("q%02d", i)] = query.NewTermSet(fmt.Sprintf("t%d", i%7), fmt.Sprintf("t%d", i%5))
	}
	seq, err := New(Options{Workers: 1}).Score(context.Background(), m, queries)
	if err != nil {
		t.Fatal(err)
	}
	par, err := New(Options{Workers: 8}).Score(context.Background(), m, queries)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Error("parallel scores differ from sequential scores")
	}
}

func TestScoreHonoursCancellation(t *testing.T) {
	m := matrixOf(t, []string{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}).Score(ctx, m, map[string]query.TermSet{"q": {"a"}}); err == nil {
		t.Error("expected context error")
	}
}

func TestRankKeepsOrder(t *testing.T) {
	m := matrixOf(t, []string{"a"}, []string{"b"})
	r := New(Options{TopN: 1})
	scores, _ := r.Score(context.Background(), m, map[string]query.TermSet{"z": {"a"}, "y": {"b"}})
	got := r.Rank(scores, []string{"z", "missing", "y"}, PolicyTopN)
	if len(got) != 2 || got[0].Query != "z" || got[1].Query != "y" {
		t.Errorf("Rank = %+v", got)
	}
}

func BenchmarkScoreQuery(b *testing.B) {
	docs := make([][]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		docs = append(docs, []string{fmt.Sprintf("t%d", i%97), fmt.Sprintf("t%d", i%31), fmt.Sprintf("t%d", i%13)})
	}
	m := matrixOf(b, docs...)
	terms := query.NewTermSet("t1", "t2", "t3", "t5", "t8")
	b.ReportAllocs()
	for b.Loop() {
		ScoreQuery(m, "q", terms)
	}
}
