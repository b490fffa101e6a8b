package memstore

import (
	"errors"
	"strings"
	"unicode"

	"github.com/yiblet/kopa/internal/store"
)

var errClosed = errors.New("store is closed")

// asciiLower folds only ASCII letters, like SQLite's LIKE.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func containsFold(query string) func(string) bool {
	needle := asciiLower(query)
	return func(content string) bool {
		return strings.Contains(asciiLower(content), needle)
	}
}

// words splits s into lower-cased runs of letters and digits, roughly what
// the unicode61 tokenizer produces.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// matchesTokens returns a predicate true when every query token, taken as a
// phrase whose last word is a prefix, appears in the content.
func matchesTokens(query string) func(string) bool {
	var phrases [][]string
	for _, tok := range store.QueryTokens(query) {
		phrases = append(phrases, words(tok))
	}

	return func(content string) bool {
		have := words(content)
		for _, phrase := range phrases {
			if !containsPhrase(have, phrase) {
				return false
			}
		}
		return true
	}
}

// containsPhrase reports whether phrase occurs in have as consecutive words,
// with the final word matched as a prefix. An empty phrase matches nothing.
func containsPhrase(have, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	last := len(phrase) - 1
	for i := 0; i+len(phrase) <= len(have); i++ {
		ok := true
		for j, w := range phrase {
			got := have[i+j]
			if j == last {
				ok = strings.HasPrefix(got, w)
			} else {
				ok = got == w
			}
			if !ok {
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
