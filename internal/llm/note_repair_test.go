package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestRepairNoteMarkdown_FlattensUnknownWikilinks(t *testing.T) {
	got := RepairNoteMarkdown("[[nonexistent]] and [[known]]", validSet("known"))
	assert.Equal(t, "nonexistent and [[known]]", got)
}

func TestRepairNoteMarkdown_WikilinkLookupIsCaseInsensitive(t *testing.T) {
	got := RepairNoteMarkdown("see [[Known Concept]]", validSet("known concept"))
	assert.Equal(t, "see [[Known Concept]]", got)
}

func TestRepairNoteMarkdown_SelfLinksBecomeWikilinks(t *testing.T) {
	got := RepairNoteMarkdown("see [entropy](entropy) here", validSet("entropy"))
	assert.Equal(t, "see [[entropy]] here", got)

	// mismatched text and target stays a regular link
	got = RepairNoteMarkdown("see [entropy](https://example.com)", validSet("entropy"))
	assert.Equal(t, "see [entropy](https://example.com)", got)
}

func TestRepairNoteMarkdown_SuperscriptToLatex(t *testing.T) {
	got := RepairNoteMarkdown("x<sup>2</sup>", nil)
	assert.Equal(t, "$x^{2}$", got)
}

func TestRepairNoteMarkdown_SubscriptToLatex(t *testing.T) {
	got := RepairNoteMarkdown("H<sub>2</sub>O", nil)
	assert.Contains(t, got, "$H_{2}$")
}

func TestRepairNoteMarkdown_StripsFence(t *testing.T) {
	got := RepairNoteMarkdown("```markdown\n# Entropy\n\nbody\n```", nil)
	assert.Equal(t, "# Entropy\n\nbody", got)
}

func TestRepairNoteMarkdown_ListMarkerSpacing(t *testing.T) {
	got := RepairNoteMarkdown("-first\n*second\n1.third", nil)
	assert.Equal(t, "- first\n* second\n1. third", got)
}

func TestRepairNoteMarkdown_CollapsesBlankRuns(t *testing.T) {
	got := RepairNoteMarkdown("a\n\n\n\n\nb", nil)
	assert.Equal(t, "a\n\nb", got)
}

func TestBalanceDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unclosed code fence", "```go\nfunc main() {}"},
		{"unclosed inline code", "use `context.Context"},
		{"unclosed bold", "this is **important"},
		{"unclosed math", "energy is $E = mc^2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := balanceDelimiters(tt.input)
			assert.Equal(t, 0, strings.Count(got, "```")%2)
			singleTicks := strings.Count(got, "`") - 3*strings.Count(got, "```")
			assert.Equal(t, 0, singleTicks%2)
			assert.Equal(t, 0, strings.Count(got, "**")%2)
			dollars := strings.Count(got, "$") - 2*strings.Count(got, "$$")
			assert.Equal(t, 0, dollars%2)
		})
	}
}
