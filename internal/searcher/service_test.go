package searcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus/articles"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/kafka"
)

func TestServiceReloadsOnCorpusChange(t *testing.T) {
	store := articles.NewMemoryStore()
	ctx := context.Background()
	if _, _, err := store.Upsert(ctx, articles.Article{URL: "https://a.example/1", Title: "Tesla", Text: "electric cars"}); err != nil {
		t.Fatal(err)
	}
	svc := NewService(engine.New(nil, nil, nil), func(ctx context.Context) (*corpus.Corpus, error) {
		return articles.LoadCorpus(ctx, store)
	}, nil)

	if _, _, err := svc.Search(ctx, "tesla", engine.Options{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("search before load err = %v", err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	first, _ := svc.Artifacts()

	if _, _, err := store.Upsert(ctx, articles.Article{URL: "https://a.example/2", Title: "Apple", Text: "phones"}); err != nil {
		t.Fatal(err)
	}
	event, _ := json.Marshal(articles.CorpusChanged{Corpus: "news", Count: 2})
	if err := svc.HandleCorpusChanged(ctx, nil, event); err != nil {
		t.Fatal(err)
	}
	second, _ := svc.Artifacts()
	if second.Fingerprint == first.Fingerprint || second.Matrix.DocCount() != 2 {
		t.Errorf("artifacts not rebuilt: %d docs", second.Matrix.DocCount())
	}

	entry, hit, err := svc.Search(ctx, "apple", engine.Options{Policy: ranking.PolicyTopN, Ranking: ranking.Options{TopN: 1}})
	if err != nil || hit {
		t.Fatalf("Search = %v, hit %v", err, hit)
	}
	if got := entry.Ranking.Keys(); len(got) != 1 || got[0] != "https://a.example/2" {
		t.Errorf("ranking = %v", got)
	}

	if err := svc.HandleCorpusChanged(ctx, nil, []byte("{")); !kafka.IsPermanent(err) {
		t.Errorf("bad event err = %v", err)
	}
}
