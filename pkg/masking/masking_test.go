package masking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tulkka/lessonpipe/pkg/masking"
)

func TestRedactEmail(t *testing.T) {
	out := masking.Redact("Contact me at jane.doe@example.com for notes.")
	assert.Contains(t, out, "[redacted-email]")
	assert.NotContains(t, out, "jane.doe@example.com")
}

func TestRedactPhone(t *testing.T) {
	out := masking.Redact("Call me at 555-123-4567 tonight.")
	assert.Contains(t, out, "[redacted-phone]")
}

func TestRedactLeavesOrdinaryTextUnchanged(t *testing.T) {
	out := masking.Redact("We reviewed the past perfect tense today.")
	assert.Equal(t, "We reviewed the past perfect tense today.", out)
}
