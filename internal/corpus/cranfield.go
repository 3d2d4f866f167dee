package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// LoadCranfieldDocuments reads cran.all.1400. Only the .W section of each
// record is kept; documents are keyed 0..N-1 in file order.
func LoadCranfieldDocuments(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cranfield documents: %w", err)
	}
	defer f.Close()
	return ReadCranfieldDocuments(f)
}

// ReadCranfieldDocuments parses Cranfield documents from r.
func ReadCranfieldDocuments(r io.Reader) (*Corpus, error) {
	texts, err := readRecords(r, true)
	if err != nil {
		return nil, fmt.Errorf("reading cranfield documents: %w", err)
	}
	c := &Corpus{Name: "cranfield", Docs: make([]Document, len(texts))}
	for i, t := range texts {
		c.Docs[i] = Document{Key: strconv.Itoa(i), Text: t}
	}
	return c, nil
}

// LoadCranfieldQueries reads cran.qry. Queries are named 1..Q in file order,
// matching the numbering used by cranqrel rather than the .I ids.
func LoadCranfieldQueries(path string, n normalizer.Normalizer) (QuerySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cranfield queries: %w", err)
	}
	defer f.Close()
	return ReadCranfieldQueries(f, n)
}

// ReadCranfieldQueries parses Cranfield queries from r and normalizes them
// into seed terms.
func ReadCranfieldQueries(r io.Reader, n normalizer.Normalizer) (QuerySet, error) {
	texts, err := readRecords(r, false)
	if err != nil {
		return nil, fmt.Errorf("reading cranfield queries: %w", err)
	}
	qs := make(QuerySet, len(texts))
	for i, t := range texts {
		qs[i] = query.Query{Name: strconv.Itoa(i + 1), Seeds: n.Normalize(t)}
	}
	return qs, nil
}

// readRecords splits a Cranfield file on .I lines. With onlyBody set only
// lines after .W are collected, otherwise every line except the markers.
func readRecords(r io.Reader, onlyBody bool) ([]string, error) {
	var (
		records []string
		current strings.Builder
		open    bool
		inBody  bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		switch {
		case strings.HasPrefix(text, ".I"):
			if open {
				records = append(records, current.String())
			}
			current.Reset()
			open, inBody = true, false
		case !open:
			if strings.TrimSpace(text) != "" {
				return nil, fmt.Errorf("line %d outside any record: %w", line, apperrors.ErrMalformedRecord)
			}
		case strings.HasPrefix(text, ".W"):
			inBody = true
		case inBody || !onlyBody:
			current.WriteString(text)
			current.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if open {
		records = append(records, current.String())
	}
	return records, nil
}

// LoadCranfieldRelevance reads cranqrel lines of the form
// "query doc [level]". Every query in queries gets an entry, possibly empty;
// a line naming an unknown query is malformed.
func LoadCranfieldRelevance(path string, queries QuerySet) (evaluation.Truth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cranfield relevance: %w", err)
	}
	defer f.Close()
	return ReadCranfieldRelevance(f, queries)
}

// ReadCranfieldRelevance parses relevance judgments from r.
func ReadCranfieldRelevance(r io.Reader, queries QuerySet) (evaluation.Truth, error) {
	truth := make(evaluation.Truth, len(queries))
	for _, q := range queries {
		truth[q.Name] = []string{}
	}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("relevance line %d: %w", line, apperrors.ErrMalformedRecord)
		}
		q, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("relevance line %d: query %q: %w", line, fields[0], apperrors.ErrMalformedRecord)
		}
		d, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("relevance line %d: document %q: %w", line, fields[1], apperrors.ErrMalformedRecord)
		}
		name := strconv.Itoa(q)
		if _, ok := truth[name]; !ok {
			return nil, fmt.Errorf("relevance line %d: unknown query %s: %w", line, name, apperrors.ErrMalformedRecord)
		}
		truth[name] = append(truth[name], strconv.Itoa(d))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading relevance: %w", err)
	}
	return truth, nil
}
