package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "hello", StripCodeFence("```markdown\nhello\n```"))
	assert.Equal(t, "plain", StripCodeFence("```\nplain\n```"))
	assert.Equal(t, "no fence here", StripCodeFence("no fence here"))
}

func TestRepairJSON_LeadingProse(t *testing.T) {
	got := RepairJSON(`Here is the graph: {"nodes": []}`)
	assert.Equal(t, `{"nodes": []}`, got)
}

func TestRepairJSON_TrailingCommas(t *testing.T) {
	got := RepairJSON(`{"nodes": [{"id": "a",},],}`)
	assert.Equal(t, `{"nodes": [{"id": "a"}]}`, got)
}

func TestRepairJSON_TruncatedOutput(t *testing.T) {
	got := RepairJSON(`{"nodes": [{"id": "entropy", "aliases": ["s`)
	assert.Equal(t, `{"nodes": [{"id": "entropy", "aliases": ["s"]}`, got)
}

func TestDecodeGraphFragment_CleanInput(t *testing.T) {
	frag, err := DecodeGraphFragment(`{"nodes": [{"id": "entropy", "aliases": [], "outbound_links": ["energy"]}]}`)
	require.NoError(t, err)
	require.Len(t, frag.Nodes, 1)
	assert.Equal(t, "entropy", frag.Nodes[0].ID)
	assert.Equal(t, []string{"energy"}, frag.Nodes[0].OutboundLinks)
}

func TestDecodeGraphFragment_FencedWithTrailingComma(t *testing.T) {
	raw := "```json\n{\"nodes\": [{\"id\": \"entropy\", \"aliases\": [],}]}\n```"
	frag, err := DecodeGraphFragment(raw)
	require.NoError(t, err)
	require.Len(t, frag.Nodes, 1)
	assert.Equal(t, "entropy", frag.Nodes[0].ID)
}

func TestDecodeGraphFragment_Hopeless(t *testing.T) {
	_, err := DecodeGraphFragment("the model refused to answer")
	require.Error(t, err)
	llmErr, ok := err.(*LLMError)
	require.True(t, ok)
	assert.Equal(t, "decode_fragment", llmErr.Operation)
}
