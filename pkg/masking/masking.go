// Package masking redacts personally-identifying patterns (emails, phone
// numbers, card numbers) out of transcript text during exercise generation,
// before any of it is handed to an LLM; the transcript as stored in the
// analytical store is not redacted. It is
// adapted from the teacher's pkg/masking regex-pattern-masking concept
// (pattern.go's CompiledPattern: a precompiled regex plus its replacement).
// The teacher's version resolves patterns through a per-MCP-server
// DataMasking config and a Kubernetes-Secret-aware structural masker; both
// are specific to the teacher's alert-investigation domain and were
// dropped (see DESIGN.md) — what's kept is the regex-masking idea itself,
// applied to a fixed built-in pattern set since this domain has no
// per-tenant masking configuration to resolve.
package masking

import "regexp"

// Pattern is a precompiled regex and its replacement text.
type Pattern struct {
	Name        string
	regex       *regexp.Regexp
	replacement string
}

// builtinPatterns are the PII shapes worth redacting from a class
// transcript before it reaches generated exercises or an LLM prompt.
var builtinPatterns = []Pattern{
	{
		Name:        "email",
		regex:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		replacement: "[redacted-email]",
	},
	{
		Name:        "phone",
		regex:       regexp.MustCompile(`\b(?:\+?\d{1,2}[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`),
		replacement: "[redacted-phone]",
	},
	{
		Name:        "credit_card",
		regex:       regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`),
		replacement: "[redacted-card]",
	},
}

// Redact applies every built-in pattern to text and returns the result.
// Masking never fails: an unmatched pattern simply leaves the text
// unchanged, so a transcript missing a particular PII shape is not an
// error condition.
func Redact(text string) string {
	for _, p := range builtinPatterns {
		text = p.regex.ReplaceAllString(text, p.replacement)
	}
	return text
}
