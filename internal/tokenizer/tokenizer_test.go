package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_SplitsOnPunctuation(t *testing.T) {
	toks := String("Hello, world! foo_bar? 3.14")
	assert.Equal(t, []string{"hello", "world", "foo", "bar", "3", "14"}, toks)
}

func TestString_DeduplicatesPreservingOrder(t *testing.T) {
	toks := String("the cat and the hat and the cat")
	assert.Equal(t, []string{"the", "cat", "and", "hat"}, toks)
}

func TestString_Empty(t *testing.T) {
	assert.Empty(t, String(""))
	assert.Empty(t, String("  ,;!  "))
}

func TestString_Unicode(t *testing.T) {
	toks := String("Grüße müller café")
	assert.Equal(t, []string{"grüße", "müller", "café"}, toks)
}

func TestReader_RespectsTokenCap(t *testing.T) {
	toks, err := Reader(strings.NewReader("a b c d e f"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, toks)
}

func TestReader_LargeInputCrossesBufferBoundary(t *testing.T) {
	// A long separator run followed by a token near the buffer edge.
	input := strings.Repeat(" ", 70000) + "needle " + strings.Repeat("x ", 100)
	toks, err := Reader(strings.NewReader(input), 0)
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, "needle", toks[0])
}

func TestNormalize_RejectsOverlongTokens(t *testing.T) {
	assert.Equal(t, "", Normalize(strings.Repeat("a", MaxTokenLen+1)))
	assert.Equal(t, "abc", Normalize("ABC"))
}
