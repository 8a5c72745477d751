/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package classify

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Decision is the coarse label for a reply.
type Decision string

const (
	Accepted  Decision = "accepted"
	Rejected  Decision = "rejected"
	Ambiguous Decision = "ambiguous"
)

// Classifier labels cleaned reply text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Decision, error)
}

// Keywords configures KeywordClassifier. Phrases are matched on whole words,
// case-insensitively. A negation within NegationWindow words before an accept
// phrase turns it into a rejection.
type Keywords struct {
	Accept         []string `yaml:"accept"`
	Reject         []string `yaml:"reject"`
	Negations      []string `yaml:"negations"`
	NegationWindow int      `yaml:"negation_window"`
}

// DefaultKeywords returns the built-in English keyword set.
func DefaultKeywords() Keywords {
	return Keywords{
		Accept: []string{
			"accept", "accepted", "accepting", "i accept",
			"yes", "agree", "agreed", "happy to join", "glad to join",
			"look forward to joining", "looking forward to joining", "count me in",
		},
		Reject: []string{
			"reject", "rejected", "rejecting",
			"decline", "declined", "declining",
			"no thanks", "no thank you", "not interested",
			"turn down", "turning down", "pass on",
			"another offer", "other offer",
		},
		Negations: []string{
			"not", "don't", "dont", "do not", "cannot", "can't", "cant",
			"won't", "wont", "unable", "never", "unfortunately",
		},
		NegationWindow: 3,
	}
}

// LoadKeywords reads a YAML keyword file. Empty lists fall back to the
// defaults.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("read keywords: %w", err)
	}

	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return Keywords{}, fmt.Errorf("parse keywords: %w", err)
	}

	def := DefaultKeywords()
	if len(kw.Accept) == 0 {
		kw.Accept = def.Accept
	}
	if len(kw.Reject) == 0 {
		kw.Reject = def.Reject
	}
	if len(kw.Negations) == 0 {
		kw.Negations = def.Negations
	}
	if kw.NegationWindow <= 0 {
		kw.NegationWindow = def.NegationWindow
	}
	return kw, nil
}

// KeywordClassifier is a deterministic phrase matcher. It returns Ambiguous
// when the text carries no signal or both signals at once.
type KeywordClassifier struct {
	accept    [][]string
	reject    [][]string
	negations [][]string
	window    int
}

// NewKeywordClassifier compiles kw.
func NewKeywordClassifier(kw Keywords) *KeywordClassifier {
	if kw.NegationWindow <= 0 {
		kw.NegationWindow = DefaultKeywords().NegationWindow
	}
	return &KeywordClassifier{
		accept:    phrases(kw.Accept),
		reject:    phrases(kw.Reject),
		negations: phrases(kw.Negations),
		window:    kw.NegationWindow,
	}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Ambiguous, err
	}

	words := tokenize(text)
	if len(words) == 0 {
		return Ambiguous, nil
	}

	var accept, reject bool
	for i := range words {
		if n := matchAny(words, i, c.accept); n > 0 {
			if c.negated(words, i) {
				reject = true
			} else {
				accept = true
			}
		}
		if n := matchAny(words, i, c.reject); n > 0 && !c.negated(words, i) {
			reject = true
		}
	}

	switch {
	case accept && !reject:
		return Accepted, nil
	case reject && !accept:
		return Rejected, nil
	default:
		return Ambiguous, nil
	}
}

func (c *KeywordClassifier) negated(words []string, at int) bool {
	start := at - c.window
	if start < 0 {
		start = 0
	}
	for i := start; i < at; i++ {
		if n := matchAny(words, i, c.negations); n > 0 && i+n <= at {
			return true
		}
	}
	return false
}

// matchAny returns the length of the first phrase matching at words[at:], or 0.
func matchAny(words []string, at int, set [][]string) int {
	for _, p := range set {
		if at+len(p) > len(words) {
			continue
		}
		ok := true
		for j, w := range p {
			if words[at+j] != w {
				ok = false
				break
			}
		}
		if ok {
			return len(p)
		}
	}
	return 0
}

func phrases(list []string) [][]string {
	out := make([][]string, 0, len(list))
	for _, p := range list {
		if words := tokenize(p); len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
