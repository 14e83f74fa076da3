package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tulkka/lessonpipe/pkg/llm"
)

// translate resolves a target-language translation for each vocabulary
// word, preferring the LLM client when available and falling back to a
// deterministic heuristic placeholder when it is not (spec.md §4.4 "LLM
// contract": Available/RateLimited/Unavailable, heuristic fallback on the
// latter two).
func (e *Engine) translate(ctx context.Context, vocabulary []string) (map[string]string, bool) {
	out := make(map[string]string, len(vocabulary))

	if e.llmClient != nil {
		prompt := fmt.Sprintf("Translate each of the following English words to %s. "+
			"Respond with one \"word: translation\" pair per line:\n%s",
			e.cfg.TranslationTargetLang, strings.Join(vocabulary, "\n"))

		result := e.llmClient.Complete(ctx, []llm.Message{
			{Role: "user", Content: prompt},
		})

		if result.Status == llm.Available {
			parsed := parseTranslationResponse(result.Response)
			if len(parsed) > 0 {
				for _, w := range vocabulary {
					if t, ok := parsed[w]; ok {
						out[w] = t
					} else {
						out[w] = heuristicTranslation(w, e.cfg.TranslationTargetLang)
					}
				}
				return out, true
			}
		}
		// RateLimited or Unavailable (or an empty/unparseable response):
		// fall through to the heuristic path below.
	}

	for _, w := range vocabulary {
		out[w] = heuristicTranslation(w, e.cfg.TranslationTargetLang)
	}
	return out, false
}

func parseTranslationResponse(response string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(response, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		word := strings.ToLower(strings.TrimSpace(parts[0]))
		translation := strings.TrimSpace(parts[1])
		if word != "" && translation != "" {
			out[word] = translation
		}
	}
	return out
}

// heuristicTranslation is the no-LLM fallback: it cannot actually translate,
// so it produces a clearly-marked placeholder rather than a silently wrong
// guess, keeping the exercise usable as a flashcard prompt ("[es] word")
// while being honest about the missing translation.
func heuristicTranslation(word, targetLang string) string {
	return fmt.Sprintf("[%s] %s", targetLang, word)
}
