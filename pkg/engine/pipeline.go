// Package engine implements the Exercise Engine (spec.md §4.4): a
// deterministic pipeline that turns a class transcript into flashcard,
// cloze, grammar, and sentence-builder exercises, with optional LLM
// enrichment for vocabulary selection, sentence selection, and translation,
// and a heuristic fallback at every stage when the LLM is unavailable or
// rate limited.
//
// The pipeline's randomized choices (sentence-builder word shuffling, item
// sampling when a stage produces more candidates than the output needs)
// are seeded from summary_id via math/rand/v2's PCG source, so the same
// transcript always produces the same exercise set — the same determinism
// technique the teacher's pkg/queue.Worker.pollInterval uses for jitter,
// generalized here from jitter to reproducible sampling.
package engine

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tulkka/lessonpipe/pkg/anastore"
	"github.com/tulkka/lessonpipe/pkg/llm"
	"github.com/tulkka/lessonpipe/pkg/masking"
)

// Config controls the engine's optional stages (spec.md §4.4, §6.3).
type Config struct {
	TranslationTargetLang string
	QualityMin            int
}

// Engine runs the deterministic exercise-generation pipeline.
type Engine struct {
	llmClient llm.Client
	cfg       Config
}

// New builds an Engine. llmClient may be nil, in which case every LLM-backed
// stage falls back to its heuristic path (spec.md §4.4 "LLM contract").
func New(llmClient llm.Client, cfg Config) *Engine {
	return &Engine{llmClient: llmClient, cfg: cfg}
}

// Generate runs the full pipeline against one class's transcript text and
// returns the resulting exercise set. summaryID seeds the deterministic
// random choices so re-running the same transcript reproduces the same
// output (spec.md §4.4), and becomes the ExerciseSet's summary_id foreign
// key back to the TranscriptArtifact it was generated from.
func (e *Engine) Generate(ctx context.Context, classID, summaryID, transcript string) anastore.ExerciseSet {
	rng := rand.New(rand.NewPCG(seedFrom(summaryID), seedFrom(classID)))

	allSentences := extractSentences(normalize(transcript))

	vocabulary, vocabFromLLM := e.extractVocabularyLLM(ctx, allSentences)
	flashcardSource := "llm"
	if !vocabFromLLM {
		vocabulary = extractVocabulary(allSentences)
		flashcardSource = "heuristic"
	}

	teachable, sentFromLLM := e.extractTeachableSentencesLLM(ctx, allSentences)
	sentenceSource := "llm"
	if !sentFromLLM {
		teachable = heuristicTeachableSentences(allSentences, vocabulary)
		sentenceSource = "heuristic"
	}

	mistakes := extractMistakes(allSentences)

	var translations map[string]string
	translationPresent := false
	if e.cfg.TranslationTargetLang != "" {
		translations, translationPresent = e.translate(ctx, vocabulary)
	}

	flashcards := buildFlashcards(vocabulary, translations, allSentences, flashcardSource)
	cloze := buildCloze(teachable, vocabulary, rng)
	grammar := buildGrammar(mistakes, rng)
	sentenceBuilders := buildSentenceBuilders(teachable, rng)

	flashcards, cloze, grammar, sentenceBuilders = sanitize(flashcards, cloze, grammar, sentenceBuilders)

	counts := map[string]int{
		"flashcards": len(flashcards),
		"cloze":      len(cloze),
		"grammar":    len(grammar),
		"sentence":   len(sentenceBuilders),
	}

	qualityScore := score(counts, len(mistakes), translationPresent)

	return anastore.ExerciseSet{
		ClassID:     classID,
		SummaryID:   summaryID,
		GeneratedAt: time.Now().UTC(),
		Flashcards:  flashcards,
		Cloze:       cloze,
		Grammar:     grammar,
		Sentence:    sentenceBuilders,
		Counts:      counts,
		Metadata: anastore.ExerciseSetMetadata{
			QualityPassed:      qualityScore >= e.cfg.QualityMin,
			QualityScore:       qualityScore,
			VocabularyCount:    len(vocabulary),
			SentencesCount:     len(allSentences),
			TranslationPresent: translationPresent,
			FlashcardSource:    flashcardSource,
			ClozeSource:        "heuristic",
			GrammarSource:      "heuristic",
			SentenceSource:     sentenceSource,
		},
		Status: anastore.ExerciseSetPendingApproval,
	}
}

// seedFrom derives a stable uint64 seed from an identifier string, giving
// the PCG source a deterministic but well-distributed starting point
// without depending on the identifier's numeric form.
func seedFrom(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

// normalize collapses whitespace and strips obvious transcript artifacts
// (speaker labels like "Teacher:"/"Student:") before sentence extraction.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.Index(line, ":"); idx > 0 && idx < 20 {
			label := strings.ToLower(line[:idx])
			if label == "teacher" || label == "student" {
				line = strings.TrimSpace(line[idx+1:])
			}
		}
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return masking.Redact(strings.Join(cleaned, " "))
}
