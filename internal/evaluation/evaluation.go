// Package evaluation scores rankings against relevance judgments. Ground
// truth runs compute precision and recall from true positives, false
// positives and false negatives; interactive runs ask a Judge about every
// returned document and report precision only. Aggregates are
// micro-averaged: counts are summed across queries before dividing.
package evaluation

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// Truth maps a query id to its relevant document ids.
type Truth map[string][]string

// KeyMapper converts a ranked document key to the id space of the
// judgments.
type KeyMapper func(docKey string) (string, error)

// OffsetKeys maps integer keys by adding offset, e.g. zero-based row ids to
// one-based benchmark ids.
func OffsetKeys(offset int) KeyMapper {
	return func(docKey string) (string, error) {
		n, err := strconv.Atoi(docKey)
		if err != nil {
			return "", fmt.Errorf("document key %q is not an integer: %w", docKey, apperrors.ErrMalformedRecord)
		}
		return strconv.Itoa(n + offset), nil
	}
}

// Options controls a ground-truth evaluation. A nil KeyMapper compares keys
// unchanged.
type Options struct {
	Label     string
	KeyMapper KeyMapper
	Verbose   bool
}

// QueryScore is the outcome for one query.
type QueryScore struct {
	Query     string  `json:"query"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	NoResults bool    `json:"no_results,omitempty"`
}

// Report aggregates one evaluation run.
type Report struct {
	Label     string       `json:"label"`
	Queries   []QueryScore `json:"queries"`
	TP        int          `json:"tp"`
	FP        int          `json:"fp"`
	FN        int          `json:"fn"`
	Precision float64      `json:"precision"`
	Recall    float64      `json:"recall"`
	HasRecall bool         `json:"has_recall"`
}

// Evaluate scores rankings against truth. Every ranked query must appear in
// truth, otherwise ErrMissingGroundTruth is returned: a missing entry is not
// the same as "no relevant documents".
func Evaluate(rankings []ranking.Ranking, truth Truth, opts Options) (Report, error) {
	mapKey := opts.KeyMapper
	if mapKey == nil {
		mapKey = func(k string) (string, error) { return k, nil }
	}
	report := Report{Label: opts.Label, HasRecall: true, Queries: make([]QueryScore, 0, len(rankings))}
	for _, r := range rankings {
		relevantIDs, ok := truth[r.Query]
		if !ok {
			return Report{}, fmt.Errorf("evaluating query %q: %w", r.Query, apperrors.ErrMissingGroundTruth)
		}
		relevant := make(map[string]struct{}, len(relevantIDs))
		for _, id := range relevantIDs {
			relevant[id] = struct{}{}
		}
		qs := QueryScore{Query: r.Query, NoResults: r.NoResults}
		for _, doc := range r.Docs {
			id, err := mapKey(doc.DocKey)
			if err != nil {
				return Report{}, fmt.Errorf("evaluating query %q: %w", r.Query, err)
			}
			if _, hit := relevant[id]; hit {
				qs.TP++
			} else {
				qs.FP++
			}
		}
		qs.FN = len(relevant) - qs.TP
		qs.Precision = ratio(qs.TP, qs.TP+qs.FP)
		qs.Recall = ratio(qs.TP, qs.TP+qs.FN)
		report.add(qs)
	}
	report.finish()
	return report, nil
}

func (r *Report) add(qs QueryScore) {
	r.Queries = append(r.Queries, qs)
	r.TP += qs.TP
	r.FP += qs.FP
	r.FN += qs.FN
}

func (r *Report) finish() {
	r.Precision = ratio(r.TP, r.TP+r.FP)
	if r.HasRecall {
		r.Recall = ratio(r.TP, r.TP+r.FN)
	}
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// Write prints the report. Per-query lines are printed only when verbose.
func (r Report) Write(w io.Writer, verbose bool) error {
	if verbose {
		for _, q := range r.Queries {
			if q.NoResults {
				if _, err := fmt.Fprintf(w, "query %s: no results in %s\n", q.Query, r.Label); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "query %s: precision %.4f", q.Query, q.Precision); err != nil {
				return err
			}
			if r.HasRecall {
				if _, err := fmt.Fprintf(w, " recall %.4f", q.Recall); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, " in %s\n", r.Label); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "overall precision for %s: %.4f\n", r.Label, r.Precision); err != nil {
		return err
	}
	if r.HasRecall {
		if _, err := fmt.Fprintf(w, "overall recall for %s: %.4f\n", r.Label, r.Recall); err != nil {
			return err
		}
	}
	return nil
}

// Log emits the aggregate through logger.
func (r Report) Log(logger *slog.Logger) {
	attrs := []any{"label", r.Label, "queries", len(r.Queries), "tp", r.TP, "fp", r.FP, "precision", r.Precision}
	if r.HasRecall {
		attrs = append(attrs, "fn", r.FN, "recall", r.Recall)
	}
	logger.Info("evaluation finished", attrs...)
}
