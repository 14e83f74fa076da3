package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tulkka/lessonpipe/pkg/llm"
)

// nVocab and nSentences cap stages 2 and 3's output regardless of which
// path produced it (spec.md §4.4).
const (
	nVocab     = 15
	nSentences = 10
)

// extractVocabularyLLM asks the LLM for up to nVocab pedagogically valuable
// words or phrases, falling back to the heuristic path on any non-Available
// outcome or an unparsable response (spec.md §4.4 stage "ExtractVocabulary",
// "LLM contract").
func (e *Engine) extractVocabularyLLM(ctx context.Context, sentences []string) ([]string, bool) {
	if e.llmClient == nil || len(sentences) == 0 {
		return nil, false
	}

	prompt := fmt.Sprintf("From this lesson transcript, list up to %d English words or phrases "+
		"worth teaching a language learner. Respond with one \"word: short definition\" pair per "+
		"line, nothing else.\n\n%s", nVocab, strings.Join(sentences, " "))

	result := e.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if result.Status != llm.Available {
		return nil, false
	}

	words := parseWordList(result.Response, nVocab)
	if len(words) == 0 {
		return nil, false
	}
	return words, true
}

// extractTeachableSentencesLLM asks the LLM to pick the most teachable
// sentences out of the full extracted set, falling back to the heuristic
// path on any non-Available outcome or an unparsable response (spec.md
// §4.4 stage "ExtractSentences").
func (e *Engine) extractTeachableSentencesLLM(ctx context.Context, sentences []string) ([]string, bool) {
	if e.llmClient == nil || len(sentences) == 0 {
		return nil, false
	}

	var numbered strings.Builder
	for i, s := range sentences {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, s)
	}
	prompt := fmt.Sprintf("From the numbered sentences below, pick up to %d that are most useful "+
		"to teach a language learner. Respond with one sentence number per line, nothing else.\n\n%s",
		nSentences, numbered.String())

	result := e.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if result.Status != llm.Available {
		return nil, false
	}

	picked := parseSentencePicks(result.Response, sentences, nSentences)
	if len(picked) == 0 {
		return nil, false
	}
	return picked, true
}

// parseWordList reads one "word: definition" (or bare "word") pair per
// line, normalizing and deduplicating up to limit entries.
func parseWordList(response string, limit int) []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		word := line
		if idx := strings.Index(line, ":"); idx > 0 {
			word = line[:idx]
		}
		word = strings.ToLower(strings.Trim(strings.TrimSpace(word), "-*0123456789. "))
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// parseSentencePicks reads one 1-based sentence number per line and maps
// each back to the corresponding original sentence, up to limit entries.
func parseSentencePicks(response string, sentences []string, limit int) []string {
	var out []string
	seen := map[int]bool{}
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		numStr := strings.TrimRight(fields[0], ".):")
		idx, err := strconv.Atoi(numStr)
		if err != nil || idx < 1 || idx > len(sentences) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, sentences[idx-1])
		if len(out) >= limit {
			break
		}
	}
	return out
}
