package workflows

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunesKeepsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 400))

	// A multi-byte rune straddling the limit is dropped whole, never
	// split into invalid bytes.
	s := strings.Repeat("x", 399) + "é and more"
	out := truncateRunes(s, 400)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("x", 399)+"...", out)
}
