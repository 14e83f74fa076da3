package engine

import (
	"strings"

	"github.com/tulkka/lessonpipe/pkg/anastore"
)

const maxPromptLength = 300

// sanitize drops exercises that would be useless or malformed (empty
// required fields, duplicate or out-of-range options) and trims anything
// absurdly long a noisy transcript might have produced (spec.md §4.4 stage
// "Sanitize"), per exercise type's own closed schema.
func sanitize(flashcards []anastore.Flashcard, cloze []anastore.Cloze, grammar []anastore.Grammar, sentences []anastore.SentenceBuilder) ([]anastore.Flashcard, []anastore.Cloze, []anastore.Grammar, []anastore.SentenceBuilder) {
	return sanitizeFlashcards(flashcards), sanitizeCloze(cloze), sanitizeGrammar(grammar), sanitizeSentences(sentences)
}

func sanitizeFlashcards(items []anastore.Flashcard) []anastore.Flashcard {
	seen := map[string]bool{}
	var out []anastore.Flashcard
	for _, it := range items {
		word := strings.TrimSpace(it.Word)
		if word == "" || strings.TrimSpace(it.ExampleSentence) == "" {
			continue
		}
		key := strings.ToLower(word)
		if seen[key] {
			continue
		}
		seen[key] = true
		it.Word = word
		out = append(out, it)
	}
	return out
}

func sanitizeCloze(items []anastore.Cloze) []anastore.Cloze {
	seen := map[string]bool{}
	var out []anastore.Cloze
	for _, it := range items {
		prompt := strings.TrimSpace(it.Prompt)
		if prompt == "" || len(it.Options) != 4 {
			continue
		}
		if it.CorrectIndex < 0 || it.CorrectIndex >= len(it.Options) {
			continue
		}
		if hasDuplicateOptions(it.Options) {
			continue
		}
		if len(prompt) > maxPromptLength {
			prompt = prompt[:maxPromptLength]
		}
		key := strings.ToLower(prompt)
		if seen[key] {
			continue
		}
		seen[key] = true
		it.Prompt = prompt
		out = append(out, it)
	}
	return out
}

func sanitizeGrammar(items []anastore.Grammar) []anastore.Grammar {
	seen := map[string]bool{}
	var out []anastore.Grammar
	for _, it := range items {
		prompt := strings.TrimSpace(it.Prompt)
		if prompt == "" || len(it.Options) < 2 {
			continue
		}
		if it.CorrectIndex < 0 || it.CorrectIndex >= len(it.Options) {
			continue
		}
		if hasDuplicateOptions(it.Options) {
			continue
		}
		if len(prompt) > maxPromptLength {
			prompt = prompt[:maxPromptLength]
		}
		key := strings.ToLower(prompt)
		if seen[key] {
			continue
		}
		seen[key] = true
		it.Prompt = prompt
		out = append(out, it)
	}
	return out
}

func sanitizeSentences(items []anastore.SentenceBuilder) []anastore.SentenceBuilder {
	seen := map[string]bool{}
	var out []anastore.SentenceBuilder
	for _, it := range items {
		sentence := strings.TrimSpace(it.EnglishSentence)
		if sentence == "" || len(it.SentenceTokens) == 0 {
			continue
		}
		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}
		seen[key] = true
		it.EnglishSentence = sentence
		out = append(out, it)
	}
	return out
}

func hasDuplicateOptions(options []string) bool {
	seen := map[string]bool{}
	for _, o := range options {
		key := strings.ToLower(strings.TrimSpace(o))
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}
