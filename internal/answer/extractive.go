// Package answer builds short extractive answers from retrieved passages.
//
// It is the no-LLM fallback: the most query-relevant sentences across the
// retrieved chunks are scored by term overlap and stitched together.
package answer

import (
	"regexp"
	"sort"
	"strings"
)

// NoAnswer is returned when the retrieved passages contain no usable sentence.
const NoAnswer = "Não encontrei informação suficiente nos documentos."

const defaultMaxSentences = 3

var (
	nonWordRe  = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
	boundaryRe = regexp.MustCompile(`[.!?]\s+|\n+`)
	spaceRe    = regexp.MustCompile(`\s+`)

	// Common FAQ topics get a small score bonus.
	faqKeywordRe = regexp.MustCompile(`(?i)\b(hor[aá]rio|prazo|sla|pol[ií]tica|suporte|contato)\b`)
)

// Portuguese and English stop-words excluded from query term matching.
var stopWords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "e": {}, "ou": {},
	"o": {}, "a": {}, "os": {}, "as": {}, "um": {}, "uma": {}, "para": {},
	"por": {}, "no": {}, "na": {}, "nos": {}, "nas": {}, "em": {}, "com": {},
	"se": {}, "que": {}, "é": {}, "ser": {},
	"to": {}, "the": {}, "of": {}, "and": {}, "or": {}, "in": {}, "on": {},
	"for": {}, "an": {}, "is": {}, "are": {}, "be": {},
}

// Extractive selects the sentences most relevant to the query from the given
// passage texts and joins them into a short answer. maxSentences <= 0 uses
// the default of 3.
func Extractive(query string, texts []string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}

	terms := queryTerms(query)
	sentences := splitSentences(strings.Join(texts, " "))
	if len(sentences) == 0 {
		return NoAnswer
	}

	type scored struct {
		sentence string
		score    float64
	}
	ranked := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		ls := strings.ToLower(s)
		var score float64
		for _, t := range terms {
			if strings.Contains(ls, t) {
				score++
			}
		}
		if faqKeywordRe.MatchString(s) {
			score += 0.5
		}
		ranked = append(ranked, scored{sentence: s, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > maxSentences {
		ranked = ranked[:maxSentences]
	}
	top := make([]string, len(ranked))
	for i, r := range ranked {
		top[i] = r.sentence
	}
	return strings.Join(top, " ")
}

// Snippet collapses whitespace and truncates the text to max runes for use
// as a citation preview. max <= 0 uses 220.
func Snippet(text string, max int) string {
	if max <= 0 {
		max = 220
	}
	t := strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	runes := []rune(t)
	if len(runes) <= max {
		return t
	}
	return string(runes[:max-1]) + "…"
}

// queryTerms lowercases the query, strips punctuation, and drops stop-words.
func queryTerms(query string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(query), " ")
	fields := strings.Fields(cleaned)
	terms := fields[:0]
	for _, w := range fields {
		if _, skip := stopWords[w]; !skip {
			terms = append(terms, w)
		}
	}
	return terms
}

// splitSentences cuts the text at sentence punctuation or newlines, keeping
// the punctuation with its sentence, and drops fragments too short or too
// long to be useful.
func splitSentences(text string) []string {
	var out []string
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if len(s) > 20 && len(s) < 400 {
			out = append(out, s)
		}
	}

	last := 0
	for _, m := range boundaryRe.FindAllStringIndex(text, -1) {
		// A punctuation boundary keeps its leading [.!?] with the sentence.
		end := m[0]
		if text[m[0]] == '.' || text[m[0]] == '!' || text[m[0]] == '?' {
			end = m[0] + 1
		}
		emit(text[last:end])
		last = m[1]
	}
	emit(text[last:])
	return out
}
