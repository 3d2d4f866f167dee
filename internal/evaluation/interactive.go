package evaluation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
)

// Judge labels a returned document as relevant or not for a query.
type Judge interface {
	Judge(ctx context.Context, query, docKey string) (bool, error)
}

// JudgeFunc adapts an ordinary function to Judge.
type JudgeFunc func(ctx context.Context, query, docKey string) (bool, error)

func (f JudgeFunc) Judge(ctx context.Context, query, docKey string) (bool, error) {
	return f(ctx, query, docKey)
}

// EvaluateInteractive asks judge about every returned document. Without
// ground truth only precision is defined: per query it is the mean label,
// and the aggregate pools all labels.
func EvaluateInteractive(ctx context.Context, rankings []ranking.Ranking, judge Judge, label string) (Report, error) {
	report := Report{Label: label, Queries: make([]QueryScore, 0, len(rankings))}
	for _, r := range rankings {
		qs := QueryScore{Query: r.Query, NoResults: r.NoResults}
		for _, doc := range r.Docs {
			if err := ctx.Err(); err != nil {
				return Report{}, err
			}
			relevant, err := judge.Judge(ctx, r.Query, doc.DocKey)
			if err != nil {
				return Report{}, fmt.Errorf("judging %q for %q: %w", doc.DocKey, r.Query, err)
			}
			if relevant {
				qs.TP++
			} else {
				qs.FP++
			}
		}
		qs.Precision = ratio(qs.TP, qs.TP+qs.FP)
		report.add(qs)
	}
	report.finish()
	return report, nil
}

// PromptJudge asks a person on Out and reads "1" or "0" answers from In.
// Anything else is asked again.
type PromptJudge struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPromptJudge(in io.Reader, out io.Writer) *PromptJudge {
	return &PromptJudge{in: bufio.NewReader(in), out: out}
}

func (p *PromptJudge) Judge(ctx context.Context, query, docKey string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := fmt.Fprintf(p.out, "Is document %s relevant to %s? 1 for yes, 0 for no: ", docKey, query); err != nil {
			return false, err
		}
		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		switch answer {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, fmt.Errorf("no answer for document %s: %w", docKey, io.ErrUnexpectedEOF)
			}
			return false, err
		}
		fmt.Fprintln(p.out, "please answer 1 or 0")
	}
}
