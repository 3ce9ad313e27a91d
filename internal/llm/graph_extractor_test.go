package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSkeleton(t *testing.T) {
	doc := strings.Join([]string{
		"# Thermodynamics",
		"some body text",
		"## First Law",
		"### too deep",
		"#notaheading",
		"## Second Law",
	}, "\n")

	got := ExtractSkeleton(doc)
	assert.Equal(t, "# Thermodynamics\n## First Law\n## Second Law", got)
}

func TestExtractSkeleton_Empty(t *testing.T) {
	assert.Equal(t, "", ExtractSkeleton("no headings at all"))
}

func TestSplitWindows_ShortText(t *testing.T) {
	assert.Nil(t, splitWindows("", 10, 2))
	assert.Equal(t, []string{"short"}, splitWindows("short", 10, 2))
}

func TestSplitWindows_Overlap(t *testing.T) {
	text := "abcdefghijklmnop" // 16 chars
	windows := splitWindows(text, 10, 4)

	require.Len(t, windows, 2)
	assert.Equal(t, "abcdefghij", windows[0])
	assert.Equal(t, "ghijklmnop", windows[1])
	// consecutive windows share the overlap region
	assert.Equal(t, windows[0][6:], windows[1][:4])
}

func TestSplitWindows_CoversWholeText(t *testing.T) {
	text := strings.Repeat("x", 137)
	windows := splitWindows(text, 50, 10)

	require.NotEmpty(t, windows)
	total := 0
	for i, w := range windows {
		if i < len(windows)-1 {
			assert.Len(t, w, 50)
		}
		total += len(w)
	}
	// last window ends exactly at the end of the text
	last := windows[len(windows)-1]
	assert.True(t, strings.HasSuffix(text, last))
}

func TestSplitWindows_NeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("日本語のテキスト", 40)
	windows := splitWindows(text, 50, 10)

	require.NotEmpty(t, windows)
	for _, w := range windows {
		assert.True(t, utf8.ValidString(w), "window %q splits a rune", w)
	}
	// first window starts the text, last window ends it
	assert.True(t, strings.HasPrefix(text, windows[0]))
	assert.True(t, strings.HasSuffix(text, windows[len(windows)-1]))
}

func TestSplitBatches(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	batches := splitBatches(ids, 2)

	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"c", "d"}, batches[1])
	assert.Equal(t, []string{"e"}, batches[2])
}

func TestSplitBatches_Empty(t *testing.T) {
	assert.Empty(t, splitBatches(nil, 50))
}

func TestDecodeOrEmpty_MalformedFallsBackToEmptyFragment(t *testing.T) {
	frag := NewGraphExtractor(nil, nil).decodeOrEmpty("total garbage", "window")
	assert.Empty(t, frag.Nodes)
}
