package snapshot

import (
	"errors"
	"math"
	"os"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/codec"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

func sampleIndex(t *testing.T) *index.Index {
	t.Helper()
	b := index.NewBuilder()
	docs := []struct {
		key   string
		terms []string
	}{
		{"doc1", []string{"cat", "dog", "dog"}},
		{"doc2", []string{"dog", "bird"}},
		{"doc3", []string{"fish"}},
		{"doc4", nil},
	}
	for _, d := range docs {
		if err := b.Add(d.key, d.terms); err != nil {
			t.Fatal(err)
		}
	}
	return b.Build()
}

func TestMatrixRoundTrip(t *testing.T) {
	for _, format := range []codec.Format{codec.FormatJSON, codec.FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			store := NewStore(t.TempDir(), format)
			m := weighting.Weigh(sampleIndex(t))
			if err := store.SaveMatrix("pets", "fp1", m); err != nil {
				t.Fatalf("SaveMatrix: %v", err)
			}
			got, err := store.LoadMatrix("pets", "fp1")
			if err != nil {
				t.Fatalf("LoadMatrix: %v", err)
			}
			if !reflect.DeepEqual(got.Docs(), m.Docs()) || !reflect.DeepEqual(got.Terms(), m.Terms()) {
				t.Fatalf("shape changed: %v %v", got.Docs(), got.Terms())
			}
			for _, doc := range m.Docs() {
				for _, term := range m.Terms() {
					if d := math.Abs(got.Weight(doc, term) - m.Weight(doc, term)); d > 1e-9 {
						t.Errorf("weight(%s,%s) drifted by %g", doc, term, d)
					}
				}
			}
			for _, term := range m.Terms() {
				if math.Abs(got.IDF(term)-m.IDF(term)) > 1e-9 {
					t.Errorf("idf(%s) drifted", term)
				}
			}
		})
	}
}

func TestFingerprintMismatch(t *testing.T) {
	store := NewStore(t.TempDir(), codec.FormatCBOR)
	if err := store.SaveQueries("cran", "old", []query.Query{{Name: "1", Seeds: []string{"wing"}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadQueries("cran", "new"); !errors.Is(err, apperrors.ErrSnapshotMismatch) {
		t.Errorf("err = %v, want ErrSnapshotMismatch", err)
	}
	if _, err := store.LoadTruth("cran", "old"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueriesAndTruth(t *testing.T) {
	store := NewStore(t.TempDir(), codec.FormatJSON)
	qs := []query.Query{{Name: "1", Seeds: []string{"wing", "flow"}}, {Name: "2", Seeds: []string{}}}
	truth := evaluation.Truth{"1": {"184", "29"}, "2": {}}
	if err := store.SaveQueries("cran", "fp", qs); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTruth("cran", "fp", truth); err != nil {
		t.Fatal(err)
	}
	gotQ, err := store.LoadQueries("cran", "fp")
	if err != nil || !reflect.DeepEqual(gotQ, qs) {
		t.Errorf("queries = %+v, %v", gotQ, err)
	}
	gotT, err := store.LoadTruth("cran", "fp")
	if err != nil || !reflect.DeepEqual(gotT, truth) {
		t.Errorf("truth = %+v, %v", gotT, err)
	}
}

func TestCorruptSnapshot(t *testing.T) {
	store := NewStore(t.TempDir(), codec.FormatCBOR)
	if err := os.WriteFile(store.Path("x", KindMatrix), []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadMatrix("x", "fp"); !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), codec.FormatCBOR)
	idx := sampleIndex(t)
	if err := store.SaveIndex("pets", "fp", idx); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadIndex("pets", "fp")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.DocKeys(), idx.DocKeys()) || got.TermFrequency("dog", "doc1") != 2 {
		t.Errorf("index changed: %v", got.DocKeys())
	}
	if _, err := store.LoadIndex("pets", "other"); !errors.Is(err, apperrors.ErrSnapshotMismatch) {
		t.Errorf("err = %v, want ErrSnapshotMismatch", err)
	}
	if _, err := store.LoadIndex("missing", "fp"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
