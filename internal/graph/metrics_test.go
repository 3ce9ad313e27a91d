package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainlattice/internal/models"
)

func TestPageRank_Empty(t *testing.T) {
	assert.Empty(t, PageRank(nil))
	assert.Empty(t, PageRank(&models.Graph{}))
}

func TestPageRank_ScoresSumToOne(t *testing.T) {
	ranks := PageRank(chainGraph())
	require.Len(t, ranks, 3)

	sum := 0.0
	for _, score := range ranks {
		assert.Greater(t, score, 0.0)
		sum += score
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestPageRank_SinkCollectsRank(t *testing.T) {
	// a -> c, b -> c: the sink should outrank its sources
	g := &models.Graph{Nodes: []*models.Node{
		{ID: "a", OutboundLinks: []string{"c"}},
		{ID: "b", OutboundLinks: []string{"c"}},
		{ID: "c"},
	}}
	ranks := PageRank(g)
	assert.Greater(t, ranks["c"], ranks["a"])
	assert.Greater(t, ranks["c"], ranks["b"])
}

func TestPageRank_IgnoresDanglingTargets(t *testing.T) {
	g := &models.Graph{Nodes: []*models.Node{
		{ID: "a", OutboundLinks: []string{"missing", "b"}},
		{ID: "b"},
	}}
	ranks := PageRank(g)
	require.Len(t, ranks, 2)
	assert.NotContains(t, ranks, "missing")
}
