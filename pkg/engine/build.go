package engine

import (
	"math/rand/v2"
	"strings"

	"github.com/tulkka/lessonpipe/pkg/anastore"
)

const (
	maxFlashcards       = 15
	maxCloze            = 10
	maxGrammar          = 10
	maxSentenceBuilders = 10
)

// genericDistractors backs cloze/grammar distractor generation when the
// vocabulary list itself doesn't yield enough alternatives.
var genericDistractors = []string{
	"house", "table", "window", "river", "garden", "music", "paper", "bridge",
	"mirror", "forest", "pocket", "ladder", "bottle", "candle", "island",
}

// buildFlashcards turns chosen vocabulary into word/translation/example
// triples (spec.md §4.4 stage "Build"), anchoring each card to a transcript
// sentence that actually uses the word.
func buildFlashcards(vocabulary []string, translations map[string]string, sentences []string, source string) []anastore.Flashcard {
	var out []anastore.Flashcard
	for _, w := range vocabulary {
		if len(out) >= maxFlashcards {
			break
		}
		out = append(out, anastore.Flashcard{
			Word:            w,
			Translation:     translations[w],
			ExampleSentence: findExampleSentence(sentences, w),
			Difficulty:      difficultyFor(w),
			Source:          source,
		})
	}
	return out
}

func difficultyFor(word string) string {
	switch {
	case len(word) <= 5:
		return "basic"
	case len(word) <= 8:
		return "intermediate"
	default:
		return "advanced"
	}
}

func findExampleSentence(sentences []string, word string) string {
	lw := strings.ToLower(word)
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), lw) {
			return s
		}
	}
	return ""
}

// buildCloze turns sentences containing a known vocabulary word into
// fill-in-the-blank items with a closed four-option answer set (spec.md
// §4.4 stage "Build"), blanking the first vocabulary occurrence found.
func buildCloze(sentences, vocabulary []string, rng *rand.Rand) []anastore.Cloze {
	vocabSet := make(map[string]bool, len(vocabulary))
	for _, w := range vocabulary {
		vocabSet[w] = true
	}

	var out []anastore.Cloze
	for _, s := range shuffled(sentences, rng) {
		if len(out) >= maxCloze {
			break
		}
		for _, w := range wordSplit.Split(s, -1) {
			lw := strings.ToLower(w)
			if !vocabSet[lw] {
				continue
			}
			blanked := replaceFirst(s, w, "____")
			options, correctIdx := buildOptions(lw, vocabulary, rng)
			out = append(out, anastore.Cloze{
				Prompt:       blanked,
				Options:      options,
				CorrectIndex: correctIdx,
				Explanation:  "Fill in the blank with the correct word from the lesson.",
				Source:       "heuristic",
			})
			break
		}
	}
	return out
}

// buildGrammar turns each detected mistake into a multiple-choice item: the
// wrong sentence blanked at the mistaken word, offering the correct form
// against the wrong form and generic distractors.
func buildGrammar(mistakes []Mistake, rng *rand.Rand) []anastore.Grammar {
	var out []anastore.Grammar
	for _, m := range mistakes {
		if len(out) >= maxGrammar {
			break
		}
		correctWord, wrongWord := mistakeWords(m)
		if correctWord == "" {
			continue
		}
		options, correctIdx := buildGrammarOptions(correctWord, wrongWord, rng)
		out = append(out, anastore.Grammar{
			Prompt:       replaceFirst(m.Wrong, wrongWord, "____"),
			Options:      options,
			CorrectIndex: correctIdx,
			Explanation:  "subject-verb agreement",
			Source:       "heuristic",
		})
	}
	return out
}

// mistakeWords diffs a mistake's wrong and corrected forms word-by-word,
// returning the single word that changed.
func mistakeWords(m Mistake) (correct, wrong string) {
	wrongWords := strings.Fields(m.Wrong)
	correctWords := strings.Fields(m.Corrected)
	if len(wrongWords) != len(correctWords) {
		return "", ""
	}
	for i := range wrongWords {
		if !strings.EqualFold(wrongWords[i], correctWords[i]) {
			return correctWords[i], wrongWords[i]
		}
	}
	return "", ""
}

// buildSentenceBuilders shuffles each sentence's words into scrambled
// tokens the student must reorder, giving the rng a genuine job: the same
// sentence always scrambles the same way for a given summary_id.
func buildSentenceBuilders(sentences []string, rng *rand.Rand) []anastore.SentenceBuilder {
	var out []anastore.SentenceBuilder
	for _, s := range shuffled(sentences, rng) {
		if len(out) >= maxSentenceBuilders {
			break
		}
		words := strings.Fields(s)
		if len(words) < 4 || len(words) > 12 {
			continue
		}
		tokens := append([]string(nil), words...)
		rng.Shuffle(len(tokens), func(i, j int) {
			tokens[i], tokens[j] = tokens[j], tokens[i]
		})
		out = append(out, anastore.SentenceBuilder{
			EnglishSentence: s,
			SentenceTokens:  tokens,
			Source:          "heuristic",
		})
	}
	return out
}

// buildOptions assembles a shuffled four-option set with correct as one of
// them, returning the options and the index correct landed at.
func buildOptions(correct string, pool []string, rng *rand.Rand) ([]string, int) {
	options := append([]string{correct}, pickDistractors(correct, pool, 3, rng)...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	for i, o := range options {
		if o == correct {
			return options, i
		}
	}
	return options, 0
}

// buildGrammarOptions assembles a shuffled option set containing both the
// correct and the originally-wrong form, padded out with generic
// distractors to four options.
func buildGrammarOptions(correct, wrong string, rng *rand.Rand) ([]string, int) {
	seen := map[string]bool{correct: true, wrong: true}
	options := []string{correct, wrong}
	for _, w := range genericDistractors {
		if len(options) >= 4 {
			break
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		options = append(options, w)
	}
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	for i, o := range options {
		if o == correct {
			return options, i
		}
	}
	return options, 0
}

func pickDistractors(correct string, pool []string, n int, rng *rand.Rand) []string {
	seen := map[string]bool{correct: true}
	var out []string
	for _, w := range shuffled(pool, rng) {
		if len(out) >= n {
			break
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, w := range genericDistractors {
		if len(out) >= n {
			break
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func shuffled(items []string, rng *rand.Rand) []string {
	out := append([]string(nil), items...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func replaceFirst(s, old, new string) string {
	idx := strings.Index(s, old)
	if idx < 0 {
		return s
	}
	return s[:idx] + new + s[idx+len(old):]
}
