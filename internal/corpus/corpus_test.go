package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

const cranDocs = `.I 1
.T
experimental investigation of the aerodynamics of a wing
.A
brenckmann,m.
.B
j. ae. scs. 25, 1958, 324.
.W
experimental investigation of the aerodynamics of a
wing in a slipstream .
.I 2
.T
simple shear flow past a flat plate
.W
simple shear flow past a flat plate in an incompressible fluid
`

const cranQueries = `.I 001
.W
what similarity laws must be obeyed when constructing aeroelastic models
of heated high speed aircraft .
.I 002
.W
what are the structural and aeroelastic problems associated with flight
`

func TestReadCranfieldDocuments(t *testing.T) {
	c, err := ReadCranfieldDocuments(strings.NewReader(cranDocs))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"0", "1"}) {
		t.Fatalf("keys = %v", got)
	}
	if strings.Contains(c.Docs[0].Text, "brenckmann") {
		t.Errorf("author leaked into body: %q", c.Docs[0].Text)
	}
	if !strings.Contains(c.Docs[0].Text, "slipstream") {
		t.Errorf("body missing continuation line: %q", c.Docs[0].Text)
	}
}

func TestReadCranfieldQueries(t *testing.T) {
	qs, err := ReadCranfieldQueries(strings.NewReader(cranQueries), normalizer.NewEnglish())
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 || qs[0].Name != "1" || qs[1].Name != "2" {
		t.Fatalf("queries = %+v", qs)
	}
	for _, s := range qs[0].Seeds {
		if s == "what" || s == "." {
			t.Errorf("unexpected seed %q", s)
		}
	}
}

func TestReadCranfieldRelevance(t *testing.T) {
	qs, _ := ReadCranfieldQueries(strings.NewReader(cranQueries), normalizer.NewEnglish())
	truth, err := ReadCranfieldRelevance(strings.NewReader("1 184 2\n1 29 2\n"), qs)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(truth["1"], []string{"184", "29"}) {
		t.Errorf("truth[1] = %v", truth["1"])
	}
	if got, ok := truth["2"]; !ok || len(got) != 0 {
		t.Errorf("query without judgments should map to empty list, got %v, %v", got, ok)
	}

	_, err = ReadCranfieldRelevance(strings.NewReader("9 1 1\n"), qs)
	if !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("unknown query err = %v", err)
	}
	_, err = ReadCranfieldRelevance(strings.NewReader("1 x\n"), qs)
	if !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("bad doc err = %v", err)
	}
}

func TestReadArticlesSortsAndRejectsDuplicates(t *testing.T) {
	c, err := ReadArticles(strings.NewReader(`{"https://b.example/x": "Beta story", "https://a.example/y": "Alpha story"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"https://a.example/y", "https://b.example/x"}) {
		t.Errorf("keys = %v", got)
	}

	_, err = ReadArticles(strings.NewReader(`{"u": "one", "u": "two"}`))
	if !errors.Is(err, apperrors.ErrDuplicateDocument) {
		t.Errorf("duplicate err = %v", err)
	}
	_, err = ReadArticles(strings.NewReader(`{"u": 3}`))
	if !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Errorf("malformed err = %v", err)
	}
}

func TestReadPortfolio(t *testing.T) {
	data := `{
		"2020-04-02": [{"Symbol": "TSLA", "Name": "Tesla"}],
		"2020-04-01": [{"Symbol": "AAPL", "Name": "Apple Inc"}, {"Symbol": "TSLA", "Name": "Tesla"}]
	}`
	qs, err := ReadPortfolio(strings.NewReader(data), normalizer.NewEnglish("inc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 {
		t.Fatalf("queries = %+v", qs)
	}
	if qs[0].Name != "apple inc" || !reflect.DeepEqual(qs[0].Seeds, []string{"appl", "aapl"}) {
		t.Errorf("first query = %+v", qs[0])
	}
	if qs[1].Name != "tesla" || qs[1].Seeds[len(qs[1].Seeds)-1] != "tsla" {
		t.Errorf("second query = %+v", qs[1])
	}
}

func TestFingerprintChangesWithOrder(t *testing.T) {
	a := &Corpus{Docs: []Document{{"1", "x"}, {"2", "y"}}}
	b := &Corpus{Docs: []Document{{"2", "y"}, {"1", "x"}}}
	c := &Corpus{Docs: []Document{{"1", "xy"}, {"2", ""}}}
	if Fingerprint(a) == Fingerprint(b) || Fingerprint(a) == Fingerprint(c) {
		t.Error("fingerprints should differ")
	}
	if Fingerprint(a) != Fingerprint(&Corpus{Docs: append([]Document(nil), a.Docs...)}) {
		t.Error("fingerprint not deterministic")
	}
}

func TestBuildIndex(t *testing.T) {
	c := &Corpus{Name: "t", Docs: []Document{{"a", "cat dog"}, {"b", "dog bird"}}}
	idx, err := c.BuildIndex(normalizer.NewEnglish())
	if err != nil {
		t.Fatal(err)
	}
	if idx.DocFreq("dog") != 2 || idx.DocCount() != 2 {
		t.Errorf("unexpected index: df(dog)=%d docs=%d", idx.DocFreq("dog"), idx.DocCount())
	}
	dup := &Corpus{Docs: []Document{{"a", "x"}, {"a", "y"}}}
	if _, err := dup.BuildIndex(normalizer.NewEnglish()); !errors.Is(err, apperrors.ErrDuplicateDocument) {
		t.Errorf("err = %v", err)
	}
}

func TestStripHTML(t *testing.T) {
	got, err := StripHTML(`<p>Shares <b>rose</b></p><script>var x</script>  today`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Shares rose today" {
		t.Errorf("StripHTML = %q", got)
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cran.all.1400")
	if err := os.WriteFile(path, []byte(cranDocs), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCranfieldDocuments(path)
	if err != nil || c.Len() != 2 {
		t.Fatalf("LoadCranfieldDocuments = %v, %v", c, err)
	}
	if _, err := LoadArticles(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	os.WriteFile(a, []byte("one"), 0o644)
	os.WriteFile(b, []byte("two"), 0o644)
	ab, err := FileFingerprint(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, _ := FileFingerprint(b, a)
	if ab == ba {
		t.Error("file order should change the fingerprint")
	}
	if _, err := FileFingerprint(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
