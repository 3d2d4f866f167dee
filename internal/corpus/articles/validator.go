package articles

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

const (
	maxTitleLength = 1024
	maxTextLength  = 1048576
	maxURLLength   = 2048
)

// ValidationError holds per-field validation failure messages. It unwraps to
// ErrMalformedRecord so consumers treat it as permanent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, field := range names {
		parts[i] = fmt.Sprintf("%s: %s", field, e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrMalformedRecord }

// ValidateArticle checks that an article has an absolute http(s) URL, a
// title and a non-empty body within size limits.
func ValidateArticle(a *Article) error {
	errs := make(map[string]string)

	u := strings.TrimSpace(a.URL)
	switch parsed, err := url.Parse(u); {
	case u == "":
		errs["url"] = "url is required"
	case len(u) > maxURLLength:
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	case err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https"):
		errs["url"] = "url must be an absolute http or https address"
	}

	title := strings.TrimSpace(a.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	text := strings.TrimSpace(a.Text)
	if text == "" {
		errs["text"] = "text is required and must not be empty"
	} else if len(text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d characters", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
