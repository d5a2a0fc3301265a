package knowledge

import (
	"strings"
	"unicode"
)

// MaxKeywords bounds the output of ExtractKeywords.
const MaxKeywords = 5

// stopWords are Portuguese articles, prepositions, contractions and pronouns ignored
// when extracting search terms. Short ones ("a", "o", "de", "em", "do", "na", ...) are
// left out because tokens of two runes or fewer are dropped before the lookup.
var stopWords = map[string]struct{}{
	"que": {}, "para": {}, "com": {}, "uma": {}, "uns": {}, "umas": {},
	"dos": {}, "das": {}, "nos": {}, "nas": {}, "pelo": {}, "pela": {},
	"por": {}, "sobre": {}, "entre": {}, "como": {}, "mais": {}, "mas": {},
	"são": {}, "qual": {}, "quais": {}, "quando": {}, "onde": {},
	"este": {}, "esta": {}, "esse": {}, "essa": {}, "isso": {},
	"ele": {}, "ela": {}, "eles": {}, "elas": {}, "você": {}, "seu": {}, "sua": {},
	"meu": {}, "minha": {}, "nós": {},
}

// ExtractKeywords lowercases message, deletes punctuation and symbols (so "NR-35"
// becomes "nr35" and "guarda-corpo" stays one token), splits on whitespace and returns the first MaxKeywords tokens that are longer than two runes
// and not stop-words. No stemming and no deduplication.
func ExtractKeywords(message string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, strings.ToLower(message))

	out := make([]string, 0, MaxKeywords)
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// IsStopWord reports whether tok is in the stop-word set.
func IsStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}
