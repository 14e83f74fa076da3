package engine

import (
	"regexp"
	"sort"
	"strings"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+\s*`)
var wordSplit = regexp.MustCompile(`[^a-zA-Z']+`)

// stopwords are excluded from the vocabulary stage; common function words
// carry little teaching value as flashcard material.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "to": true, "of": true, "and": true,
	"in": true, "on": true, "it": true, "that": true, "this": true, "i": true,
	"you": true, "he": true, "she": true, "we": true, "they": true, "for": true,
	"with": true, "at": true, "my": true, "your": true, "do": true, "does": true,
}

// extractSentences splits normalized transcript text into sentences,
// dropping anything too short to be useful exercise material.
func extractSentences(normalized string) []string {
	parts := sentenceSplit.Split(normalized, -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(strings.Fields(p)) >= 3 {
			out = append(out, p)
		}
	}
	return out
}

// extractVocabulary picks the most frequent non-stopword terms across the
// transcript's sentences as flashcard/translation candidates. This is the
// heuristic fallback for stage 2 (spec.md §4.4), used when the LLM path is
// unavailable, rate limited, or returns nothing usable.
func extractVocabulary(sentences []string) []string {
	counts := map[string]int{}
	for _, s := range sentences {
		for _, w := range wordSplit.Split(s, -1) {
			w = strings.ToLower(strings.TrimSpace(w))
			if len(w) < 3 || stopwords[w] {
				continue
			}
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > nVocab {
		words = words[:nVocab]
	}
	return words
}

// heuristicTeachableSentences is the fallback for stage 3 (spec.md §4.4):
// sentences that mention at least one chosen vocabulary word, capped at
// nSentences. Falls back further to the first nSentences sentences overall
// when nothing matches, so a short or vocabulary-poor transcript still
// yields sentence-builder/cloze material.
func heuristicTeachableSentences(sentences, vocabulary []string) []string {
	vocabSet := make(map[string]bool, len(vocabulary))
	for _, w := range vocabulary {
		vocabSet[w] = true
	}

	var out []string
	for _, s := range sentences {
		if len(out) >= nSentences {
			break
		}
		for _, w := range wordSplit.Split(s, -1) {
			if vocabSet[strings.ToLower(w)] {
				out = append(out, s)
				break
			}
		}
	}
	if len(out) == 0 {
		out = sentences
		if len(out) > nSentences {
			out = out[:nSentences]
		}
	}
	return out
}

// Mistake is a heuristically-detected grammar error worth a correction
// exercise (spec.md §4.4 stage "ExtractMistakes").
type Mistake struct {
	Wrong     string
	Corrected string
}

// commonErrors are a small set of frequent learner mistakes recognizable
// without an LLM; real transcripts will miss most actual errors this way,
// which is exactly why the LLM enrichment stage exists when available.
var commonErrors = []struct {
	pattern *regexp.Regexp
	correct func(string) string
	label   string
}{
	{regexp.MustCompile(`(?i)\bI are\b`), func(s string) string { return regexp.MustCompile(`(?i)\bI are\b`).ReplaceAllString(s, "I am") }, "subject-verb agreement"},
	{regexp.MustCompile(`(?i)\bhe are\b`), func(s string) string { return regexp.MustCompile(`(?i)\bhe are\b`).ReplaceAllString(s, "he is") }, "subject-verb agreement"},
	{regexp.MustCompile(`(?i)\bshe are\b`), func(s string) string { return regexp.MustCompile(`(?i)\bshe are\b`).ReplaceAllString(s, "she is") }, "subject-verb agreement"},
	{regexp.MustCompile(`(?i)\bdoes not \w+s\b`), nil, "double marking"},
}

// extractMistakes scans sentences for the common-error patterns above.
func extractMistakes(sentences []string) []Mistake {
	var out []Mistake
	for _, s := range sentences {
		for _, rule := range commonErrors {
			if rule.pattern.MatchString(s) && rule.correct != nil {
				out = append(out, Mistake{Wrong: s, Corrected: rule.correct(s)})
			}
		}
	}
	return out
}
