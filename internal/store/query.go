package store

import (
	"strings"
	"unicode/utf8"
)

// Strategy is the search strategy chosen for a query.
type Strategy int

const (
	// StrategyRecency lists entries newest first without filtering.
	StrategyRecency Strategy = iota
	// StrategySubstring matches the query anywhere in the content.
	StrategySubstring
	// StrategyIndexed runs a full-text prefix match and falls back to
	// StrategySubstring when it finds nothing.
	StrategyIndexed
)

func (s Strategy) String() string {
	switch s {
	case StrategyRecency:
		return "recency"
	case StrategySubstring:
		return "substring"
	case StrategyIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// MinIndexedQueryLen is the shortest trimmed query, in characters, that goes
// through the full-text index. Shorter queries are poor prefixes.
const MinIndexedQueryLen = 3

// PlanQuery trims query and picks the strategy for it.
func PlanQuery(query string) (Strategy, string) {
	trimmed := strings.TrimSpace(query)
	switch n := utf8.RuneCountInString(trimmed); {
	case n == 0:
		return StrategyRecency, ""
	case n < MinIndexedQueryLen:
		return StrategySubstring, trimmed
	default:
		return StrategyIndexed, trimmed
	}
}

// LikeEscape is the escape character used with EscapeLike patterns.
const LikeEscape = `\`

// EscapeLike escapes the LIKE wildcards and the escape character itself so
// that query matches literally. Use with ESCAPE '\'.
func EscapeLike(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(query)
}

// ContainsPattern returns the LIKE pattern matching query anywhere.
func ContainsPattern(query string) string {
	return "%" + EscapeLike(query) + "%"
}

// QueryTokens splits a trimmed query on whitespace, dropping empty tokens.
func QueryTokens(query string) []string {
	return strings.Fields(query)
}

// FTSQuery builds an FTS5 MATCH expression from query. Every token becomes a
// quoted phrase with a prefix star, and tokens are implicitly ANDed:
//
//	foo "bar  ->  "foo"* """bar"*
//
// Quotes inside a token are doubled so they cannot close the phrase.
func FTSQuery(query string) string {
	tokens := QueryTokens(query)
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"*`)
	}
	return strings.Join(parts, " ")
}
