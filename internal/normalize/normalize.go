// Package normalize canonicalizes raw book text into the token form used
// both at ingestion time and at query time. Corpus and query must go
// through the same pipeline or the embeddings drift apart.
package normalize

import (
	"regexp"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// Lemmatizer reduces a token to its base form. The concrete dictionary is
// pluggable; it must be deterministic and locale-fixed to English.
type Lemmatizer interface {
	Lemma(word string) string
}

type Normalizer struct {
	lemmatizer Lemmatizer
}

// New builds a Normalizer backed by the golem English dictionary.
func New() (*Normalizer, error) {
	lem, err := golem.New(en.New())
	if err != nil {
		return nil, err
	}
	return &Normalizer{lemmatizer: lem}, nil
}

// NewWithLemmatizer builds a Normalizer around a caller-supplied
// lemmatizer. A nil lemmatizer leaves tokens unchanged.
func NewWithLemmatizer(lem Lemmatizer) *Normalizer {
	return &Normalizer{lemmatizer: lem}
}

// Normalize lowercases the input, strips everything outside [a-z0-9\s],
// collapses whitespace, then tokenizes, drops stopwords and non-alpha
// tokens, and lemmatizes what remains. Empty or malformed input yields an
// empty string, never an error; ingestion data is scraped and dirty.
func (n *Normalizer) Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonAlnum.ReplaceAllString(text, "")

	var out []string
	for _, tok := range strings.Fields(text) {
		if !isAlpha(tok) || isStopword(tok) {
			continue
		}
		lemma := tok
		if n.lemmatizer != nil {
			lemma = n.lemmatizer.Lemma(tok)
		}
		// a lemma that collapses into a stopword would break
		// idempotence on the next pass
		if lemma == "" || isStopword(lemma) {
			continue
		}
		out = append(out, lemma)
	}
	return strings.Join(out, " ")
}

// NormalizeSubjects accepts a comma-delimited string, a list of strings,
// or an arbitrary decoded JSON value. Each entry is normalized and the
// result rejoined with ", ". Anything else degrades to an empty string.
func (n *Normalizer) NormalizeSubjects(subjects any) string {
	var entries []string
	switch v := subjects.(type) {
	case string:
		for _, s := range strings.Split(v, ",") {
			entries = append(entries, strings.TrimSpace(s))
		}
	case []string:
		entries = v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				entries = append(entries, s)
			}
		}
	default:
		return ""
	}

	normalized := make([]string, 0, len(entries))
	for _, entry := range entries {
		normalized = append(normalized, n.Normalize(entry))
	}
	return strings.Join(normalized, ", ")
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
