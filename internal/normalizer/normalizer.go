// Package normalizer turns raw text into index terms. The English normalizer
// lower-cases input, splits on non-alphanumeric boundaries, keeps purely
// alphabetic tokens, removes stop-words and applies the Snowball (Porter2)
// English stemmer.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Normalizer maps raw text to an ordered list of terms, repeats included.
// Implementations must be deterministic and safe for concurrent use.
type Normalizer interface {
	Normalize(text string) []string
}

// Func adapts an ordinary function to the Normalizer interface.
type Func func(text string) []string

func (f Func) Normalize(text string) []string { return f(text) }

// English is the default normalizer for both corpora.
type English struct {
	stopWords map[string]struct{}
}

// NewEnglish returns an English normalizer using the standard stop-word list.
// Extra stop-words are added to it.
func NewEnglish(extra ...string) *English {
	set := make(map[string]struct{}, len(englishStopWords)+len(extra))
	for _, w := range englishStopWords {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &English{stopWords: set}
}

// Normalize returns the stemmed terms of text in reading order.
func (e *English) Normalize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words)/2)
	for _, word := range words {
		if !isAlpha(word) {
			continue
		}
		if e.IsStopWord(word) {
			continue
		}
		if stemmed := Stem(word); stemmed != "" {
			terms = append(terms, stemmed)
		}
	}
	return terms
}

// IsStopWord reports whether the lower-cased word is filtered out.
func (e *English) IsStopWord(word string) bool {
	_, ok := e.stopWords[word]
	return ok
}

// Stem applies the Snowball English stemmer to a single lower-case word.
func Stem(word string) string {
	return english.Stem(word, true)
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}
