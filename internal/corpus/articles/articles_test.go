package articles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/kafka"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func validArticle() Article {
	return Article{URL: "https://news.example/tesla", Title: "Tesla rallies", Text: "Shares of the carmaker rose."}
}

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Article)
		field  string
	}{
		{"missing url", func(a *Article) { a.URL = "" }, "url"},
		{"relative url", func(a *Article) { a.URL = "/tesla" }, "url"},
		{"ftp url", func(a *Article) { a.URL = "ftp://news.example/x" }, "url"},
		{"blank title", func(a *Article) { a.Title = "  " }, "title"},
		{"empty text", func(a *Article) { a.Text = "" }, "text"},
		{"huge title", func(a *Article) { a.Title = strings.Repeat("x", maxTitleLength+1) }, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.mutate(&a)
			err := ValidateArticle(&a)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := ve.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", ve.Fields, tt.field)
			}
			if !errors.Is(err, apperrors.ErrMalformedRecord) {
				t.Error("validation errors must unwrap to ErrMalformedRecord")
			}
		})
	}
	a := validArticle()
	if err := ValidateArticle(&a); err != nil {
		t.Errorf("valid article rejected: %v", err)
	}
}

func TestIngestAnnouncesOnlyChanges(t *testing.T) {
	store := NewMemoryStore()
	pub := &recordingPublisher{}
	h := NewHandler(store, pub, nil)
	ctx := context.Background()

	resp, err := h.Ingest(ctx, validArticle())
	if err != nil || !resp.Created || !resp.Changed {
		t.Fatalf("first ingest = %+v, %v", resp, err)
	}
	resp, err = h.Ingest(ctx, validArticle())
	if err != nil || resp.Created || resp.Changed {
		t.Fatalf("repeat ingest = %+v, %v", resp, err)
	}
	edited := validArticle()
	edited.Text = "Shares fell."
	if resp, err = h.Ingest(ctx, edited); err != nil || !resp.Changed {
		t.Fatalf("edited ingest = %+v, %v", resp, err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	ev := pub.events[1].Value.(CorpusChanged)
	if ev.Count != 1 || ev.URL != edited.URL {
		t.Errorf("event = %+v", ev)
	}
}

func TestIngestStripsHTML(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandler(store, nil, nil)
	a := validArticle()
	a.Text = "<p>Shares <em>rose</em></p>"
	if _, err := h.Ingest(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCorpus(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if c.Docs[0].Text != "Tesla rallies Shares rose" {
		t.Errorf("stored text = %q", c.Docs[0].Text)
	}
}

func TestHandleMessage(t *testing.T) {
	h := NewHandler(NewMemoryStore(), nil, nil)
	body, _ := json.Marshal(Article{Title: "t", Text: "x"})
	if err := h.HandleMessage(context.Background(), []byte("https://a.example/1"), body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	err := h.HandleMessage(context.Background(), nil, []byte("{"))
	if !kafka.IsPermanent(err) {
		t.Errorf("undecodable payload should be permanent, got %v", err)
	}
	bad, _ := json.Marshal(Article{URL: "https://a.example/2"})
	if err := h.HandleMessage(context.Background(), nil, bad); !kafka.IsPermanent(err) {
		t.Errorf("invalid article should be permanent, got %v", err)
	}
}

func TestServeIngest(t *testing.T) {
	h := NewHandler(NewMemoryStore(), nil, nil)
	body, _ := json.Marshal(validArticle())

	rec := httptest.NewRecorder()
	h.ServeIngest(rec, httptest.NewRequest(http.MethodPost, "/api/v1/articles", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	rec = httptest.NewRecorder()
	h.ServeIngest(rec, httptest.NewRequest(http.MethodPost, "/api/v1/articles", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Errorf("repeat status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeIngest(rec, httptest.NewRequest(http.MethodPost, "/api/v1/articles", strings.NewReader(`{"url":"x"}`)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "fields") {
		t.Errorf("invalid status = %d body %s", rec.Code, rec.Body)
	}
}
