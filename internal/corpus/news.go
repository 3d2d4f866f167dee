package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LoadArticles reads a JSON object mapping article URL to "title text".
// Documents are ordered by URL so the row order does not depend on how the
// file was written.
func LoadArticles(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening articles: %w", err)
	}
	defer f.Close()
	return ReadArticles(f)
}

// ReadArticles parses the article object from r. A URL that appears twice is
// rejected rather than silently overwritten.
func ReadArticles(r io.Reader) (*Corpus, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("reading articles: %w", err)
	}
	c := &Corpus{Name: "news"}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading articles: %w: %v", apperrors.ErrMalformedRecord, err)
		}
		key, _ := tok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return nil, fmt.Errorf("article %q: %w: %v", key, apperrors.ErrMalformedRecord, err)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("article %q: %w", key, apperrors.ErrDuplicateDocument)
		}
		seen[key] = struct{}{}
		c.Docs = append(c.Docs, Document{Key: key, Text: text})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("reading articles: %w", err)
	}
	sort.Slice(c.Docs, func(i, j int) bool { return c.Docs[i].Key < c.Docs[j].Key })
	return c, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v: %w", want, tok, apperrors.ErrMalformedRecord)
	}
	return nil
}

// Stock is one portfolio entry.
type Stock struct {
	Symbol string `json:"Symbol"`
	Name   string `json:"Name"`
}

// LoadPortfolio reads {date: [{Symbol, Name}]} and turns each company into a
// query named by its lower-case name. Seeds are the normalized name terms
// followed by the lower-case ticker, which is kept unstemmed.
func LoadPortfolio(path string, n normalizer.Normalizer) (QuerySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio: %w", err)
	}
	defer f.Close()
	return ReadPortfolio(f, n)
}

// ReadPortfolio parses a portfolio from r. Dates are visited in ascending
// order and a company listed on several dates yields one query.
func ReadPortfolio(r io.Reader, n normalizer.Normalizer) (QuerySet, error) {
	var byDate map[string][]Stock
	if err := json.NewDecoder(r).Decode(&byDate); err != nil {
		return nil, fmt.Errorf("reading portfolio: %w: %v", apperrors.ErrMalformedRecord, err)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var qs QuerySet
	seen := make(map[string]struct{})
	for _, d := range dates {
		for i, s := range byDate[d] {
			name := strings.ToLower(strings.TrimSpace(s.Name))
			ticker := strings.ToLower(strings.TrimSpace(s.Symbol))
			if name == "" || ticker == "" {
				return nil, fmt.Errorf("portfolio %s entry %d: %w", d, i, apperrors.ErrMalformedRecord)
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			seeds := append(n.Normalize(name), ticker)
			qs = append(qs, query.Query{Name: name, Seeds: seeds})
		}
	}
	return qs, nil
}

// StripHTML returns the visible text of an HTML fragment, separating text
// nodes with single spaces. Script and style contents are dropped. Plain
// text passes through with its whitespace collapsed.
func StripHTML(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " "), nil
}
