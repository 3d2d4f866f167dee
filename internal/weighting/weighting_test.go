package weighting

import (
	"errors"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

func petsIndex(t *testing.T) *index.Index {
	t.Helper()
	b := index.NewBuilder()
	if err := b.Add("doc1", []string{"cat", "dog"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Add("doc2", []string{"dog", "bird", "bird"}); err != nil {
		t.Fatal(err)
	}
	return b.Build()
}

func TestInverseDocumentFrequency(t *testing.T) {
	tests := []struct {
		n, df int
		want  float64
	}{
		{2, 1, 1},
		{2, 2, 0},
		{8, 1, 3},
		{1400, 1400, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := InverseDocumentFrequency(tt.n, tt.df); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("idf(%d,%d) = %v, want %v", tt.n, tt.df, got, tt.want)
		}
	}
}

func TestWeigh(t *testing.T) {
	m := Weigh(petsIndex(t))

	if got := m.Terms(); len(got) != 3 || got[0] != "bird" || got[1] != "cat" || got[2] != "dog" {
		t.Fatalf("Terms = %v", got)
	}
	if !m.HasTerm("dog") {
		t.Error("term present in every document must stay a column")
	}
	if m.IDF("dog") != 0 || m.IDF("cat") != 1 {
		t.Errorf("IDF(dog)=%v IDF(cat)=%v", m.IDF("dog"), m.IDF("cat"))
	}
	cells := []struct {
		doc, term string
		want      float64
	}{
		{"doc1", "cat", 1},
		{"doc1", "dog", 0},
		{"doc1", "bird", 0},
		{"doc2", "bird", 2},
		{"doc2", "cat", 0},
		{"nope", "cat", 0},
		{"doc1", "fish", 0},
	}
	for _, c := range cells {
		if got := m.Weight(c.doc, c.term); got != c.want {
			t.Errorf("Weight(%s,%s) = %v, want %v", c.doc, c.term, got, c.want)
		}
	}
	row := m.Row("doc1")
	if len(row) != 2 || row["cat"] != 1 {
		t.Errorf("Row(doc1) = %v", row)
	}
	if _, stored := row["dog"]; !stored {
		t.Error("zero-idf cell should be stored for a present term")
	}
	col := m.Column("bird")
	if len(col) != 2 || col[0] != 0 || col[1] != 2 {
		t.Errorf("Column(bird) = %v", col)
	}
	if m.Column("fish") != nil {
		t.Error("unknown column should be nil")
	}
	if got, want := m.FrobeniusNorm(), math.Sqrt(5); math.Abs(got-want) > 1e-12 {
		t.Errorf("FrobeniusNorm = %v, want %v", got, want)
	}
}

func TestIDFNonNegative(t *testing.T) {
	m := Weigh(petsIndex(t))
	for _, term := range m.Terms() {
		if m.IDF(term) < 0 {
			t.Errorf("IDF(%s) = %v < 0", term, m.IDF(term))
		}
	}
}

func TestDense(t *testing.T) {
	m := Weigh(petsIndex(t))
	d := m.Dense([]string{"cat", "fish", "bird"})
	r, c := d.Dims()
	if r != 2 || c != 3 {
		t.Fatalf("dims = %dx%d", r, c)
	}
	if d.At(0, 0) != 1 || d.At(1, 1) != 0 || d.At(1, 2) != 2 {
		t.Errorf("unexpected dense matrix")
	}
}

func TestSubsetKeepsColumnsAndWeights(t *testing.T) {
	m := Weigh(petsIndex(t))
	sub := m.Subset([]string{"doc2", "missing"})
	if sub.DocCount() != 1 || sub.Docs()[0] != "doc2" {
		t.Fatalf("Docs = %v", sub.Docs())
	}
	if sub.TermCount() != m.TermCount() {
		t.Errorf("TermCount = %d, want %d", sub.TermCount(), m.TermCount())
	}
	if sub.Weight("doc2", "bird") != 2 || sub.IDF("cat") != 1 {
		t.Error("subset must not reweight")
	}
	if j, _ := sub.TermIndex("cat"); sub.ColumnNorm(j) != 0 {
		t.Error("cat does not occur in the subset")
	}
}

func TestNewMatrixRoundTrip(t *testing.T) {
	m := Weigh(petsIndex(t))
	restored, err := NewMatrix(m.Docs(), m.Rows(), m.IDFs())
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	for _, doc := range m.Docs() {
		for _, term := range m.Terms() {
			if d := math.Abs(restored.Weight(doc, term) - m.Weight(doc, term)); d > 1e-9 {
				t.Errorf("Weight(%s,%s) differs by %v", doc, term, d)
			}
		}
	}
	if restored.TermCount() != m.TermCount() {
		t.Error("zero-weight columns lost in round trip")
	}
}

func TestNewMatrixRejects(t *testing.T) {
	if _, err := NewMatrix([]string{"a", "a"}, nil, nil); !errors.Is(err, apperrors.ErrDuplicateDocument) {
		t.Errorf("err = %v", err)
	}
	if _, err := NewMatrix([]string{"a"}, map[string]Row{"b": {"x": 1}}, nil); !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("err = %v", err)
	}
	if _, err := NewMatrix([]string{"a"}, map[string]Row{"a": {"x": math.NaN()}}, nil); !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("err = %v", err)
	}
}
