package search

import "strings"

// Token is one search term; Phrase marks a double-quoted run.
type Token struct {
	Text   string
	Phrase bool
}

// Tokenize splits on whitespace, keeping double-quoted runs together.
func Tokenize(s string) []Token {
	var out []Token
	var cur strings.Builder
	inQuote := false
	flush := func(phrase bool) {
		t := strings.TrimSpace(cur.String())
		cur.Reset()
		if t != "" {
			out = append(out, Token{Text: t, Phrase: phrase})
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			flush(inQuote)
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	flush(inQuote)
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains renders a case-insensitive substring pattern for ILIKE.
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
