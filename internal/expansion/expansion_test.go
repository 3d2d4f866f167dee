package expansion

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
)

func bakeryMatrix(t *testing.T) *weighting.Matrix {
	t.Helper()
	b := index.NewBuilder()
	docs := []struct {
		key   string
		terms []string
	}{
		{"d1", []string{"apple", "pie", "common"}},
		{"d2", []string{"apple", "tart", "common"}},
		{"d3", []string{"car", "engine", "common"}},
		{"d4", []string{"car", "wheel", "engine", "common"}},
	}
	for _, d := range docs {
		if err := b.Add(d.key, d.terms); err != nil {
			t.Fatal(err)
		}
	}
	return weighting.Weigh(b.Build())
}

func TestGlobalSimilarityMatchesDenseProduct(t *testing.T) {
	m := bakeryMatrix(t)
	d := m.Dense(nil)
	var c mat.Dense
	c.Mul(d.T(), d)
	frobenius := mat.Norm(d, 2)
	c.Scale(1/(frobenius*frobenius), &c)

	for _, term := range m.Terms() {
		j, _ := m.TermIndex(term)
		got := similarityRow(m, j, Global)
		for k := range got {
			if diff := math.Abs(got[k] - c.At(j, k)); diff > 1e-12 {
				t.Errorf("sim(%s, %s) = %v, want %v", term, m.Terms()[k], got[k], c.At(j, k))
			}
		}
	}
}

func TestExpandWidthAndTies(t *testing.T) {
	m := bakeryMatrix(t)
	tests := []struct {
		name  string
		width int
		norm  Normalization
		seeds []string
		want  query.TermSet
	}{
		{"ties by column order", 2, Global, []string{"apple"}, query.TermSet{"apple", "pie"}},
		{"zero similarities fill by column order", 5, Global, []string{"apple"}, query.TermSet{"apple", "car", "common", "pie", "tart"}},
		{"cosine prefers itself", 1, Cosine, []string{"pie"}, query.TermSet{"pie"}},
		{"unknown seed kept", 5, Global, []string{"zebra"}, query.TermSet{"zebra"}},
		{"zero column takes first columns", 5, Global, []string{"common"}, query.TermSet{"apple", "car", "common", "engine", "pie"}},
		{"width beyond vocabulary", 20, Global, []string{"wheel"}, query.TermSet{"apple", "car", "common", "engine", "pie", "tart", "wheel"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.width, tt.norm)
			got := e.Expand(m, []query.Query{{Name: "q", Seeds: tt.seeds}})["q"]
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandIsSuperset(t *testing.T) {
	m := bakeryMatrix(t)
	e := New(3, Global)
	queries := []query.Query{
		{Name: "baking", Seeds: []string{"tart", "zebra"}},
		{Name: "motor", Seeds: []string{"wheel"}},
	}
	first := e.Expand(m, queries)
	for _, q := range queries {
		for _, seed := range q.Seeds {
			if !first[q.Name].Contains(seed) {
				t.Errorf("%s lost seed %s", q.Name, seed)
			}
		}
	}

	again := make([]query.Query, 0, len(first))
	for name, set := range first {
		again = append(again, query.Query{Name: name, Seeds: set})
	}
	second := e.Expand(m, again)
	for name, set := range first {
		for _, term := range set {
			if !second[name].Contains(term) {
				t.Errorf("re-expansion of %s dropped %s", name, term)
			}
		}
	}
}

func TestExpandAlwaysAddsWidthTerms(t *testing.T) {
	m := bakeryMatrix(t)
	e := New(3, Global)
	for _, term := range m.Terms() {
		got := e.nearest(m, mustIndex(t, m, term))
		if len(got) != 3 {
			t.Errorf("nearest(%s) = %v, want 3 columns", term, got)
		}
	}
}

func mustIndex(t *testing.T, m *weighting.Matrix, term string) int {
	t.Helper()
	j, ok := m.TermIndex(term)
	if !ok {
		t.Fatalf("%s is not a column", term)
	}
	return j
}

func TestExpandTerms(t *testing.T) {
	m := bakeryMatrix(t)
	got := New(0, "").ExpandTerms(m, []string{"wheel"})
	for _, term := range []string{"wheel", "car", "engine"} {
		if !got.Contains(term) {
			t.Errorf("ExpandTerms(wheel) = %v, missing %s", got, term)
		}
	}
}

func BenchmarkExpand(b *testing.B) {
	builder := index.NewBuilder()
	vocab := []string{"wing", "lift", "drag", "flow", "shock", "heat", "mach", "plate", "boundari", "layer"}
	for d := 0; d < 500; d++ {
		terms := make([]string, 0, 6)
		for k := 0; k < 6; k++ {
			terms = append(terms, vocab[(d*7+k*3)%len(vocab)])
		}
		_ = builder.Add(fmt.Sprint(d), terms)
	}
	m := weighting.Weigh(builder.Build())
	e := New(DefaultWidth, Global)
	queries := []query.Query{{Name: "q", Seeds: []string{"wing", "shock"}}}
	b.ResetTimer()
	for b.Loop() {
		e.Expand(m, queries)
	}
}
