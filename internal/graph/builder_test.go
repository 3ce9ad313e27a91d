package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainlattice/internal/models"
)

func TestBuild_Empty(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(4, nil)))
	g, err := b.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestBuild_MergesSynonymsAndKeepsRawIDAsAlias(t *testing.T) {
	emb := newFakeEmbedder(3, map[string][]float32{
		"neural network": {1, 0, 0},
		"neural net":     {1, 0.1, 0},
		"training data":  {0, 0, 1},
	})
	b := NewBuilder(NewEntityResolver(emb))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "neural network", Aliases: []string{"ann"}, OutboundLinks: []string{"training data"}},
			{ID: "neural network", OutboundLinks: []string{"training data"}},
		}},
		{Nodes: []models.FragmentNode{
			{ID: "neural net", OutboundLinks: []string{"training data"}},
			{ID: "training data"},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	nn := g.NodeByID("neural network")
	require.NotNil(t, nn)
	assert.Contains(t, nn.Aliases, "ann")
	assert.Contains(t, nn.Aliases, "neural net")
	// duplicate edges collapse to one
	assert.Equal(t, []string{"training data"}, nn.OutboundLinks)

	td := g.NodeByID("training data")
	require.NotNil(t, td)
	assert.Equal(t, []string{"neural network"}, td.InboundLinks)
}

func TestBuild_ImplicitTargetsBecomeNodes(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(8, nil)))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "energy", OutboundLinks: []string{"entropy"}},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	entropy := g.NodeByID("entropy")
	require.NotNil(t, entropy)
	assert.Empty(t, entropy.OutboundLinks)
	assert.Equal(t, []string{"energy"}, entropy.InboundLinks)
}

func TestBuild_AuthoredInboundBecomesParentOutbound(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(8, nil)))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "entropy", InboundLinks: []string{"thermodynamics"}},
			{ID: "thermodynamics"},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)

	thermo := g.NodeByID("thermodynamics")
	require.NotNil(t, thermo)
	assert.Equal(t, []string{"entropy"}, thermo.OutboundLinks)

	entropy := g.NodeByID("entropy")
	assert.Equal(t, []string{"thermodynamics"}, entropy.InboundLinks)
}

func TestBuild_SelfLoopsDropped(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(8, nil)))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "entropy", OutboundLinks: []string{"entropy", "energy"}},
			{ID: "energy"},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)

	entropy := g.NodeByID("entropy")
	assert.Equal(t, []string{"energy"}, entropy.OutboundLinks)
	assert.Empty(t, entropy.InboundLinks)
}

func TestCanonicalizeID(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"sigma-algebra", "sigma algebra"},
		{"Measure_Theory", "measure theory"},
		{"Lebesgue  Integral", "lebesgue integral"},
		{"σ-algebra", "algebra"},
		{"  borel set  ", "borel set"},
		{"L2(μ)", "l2"},
		{"plain id", "plain id"},
		{"∀∃", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalizeID(tc.raw), "raw=%q", tc.raw)
	}
}

func TestBuild_CanonicalizesRawIDsAndLinks(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(8, nil)))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "Sigma-Algebra", OutboundLinks: []string{"Measure_Theory", "∀∃"}},
			{ID: "measure theory"},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	sigma := g.NodeByID("sigma algebra")
	require.NotNil(t, sigma)
	assert.Contains(t, sigma.Aliases, "Sigma-Algebra")
	assert.Equal(t, []string{"measure theory"}, sigma.OutboundLinks)

	for _, node := range g.Nodes {
		assert.True(t, models.IsValidConceptID(node.ID), "id=%q", node.ID)
	}
}

func TestBuild_DropsNodesWithEmptyCanonicalID(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(8, nil)))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "---", OutboundLinks: []string{"entropy"}},
			{ID: "entropy"},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "entropy", g.Nodes[0].ID)
}

func TestBuild_InboundAlwaysMirrorsOutbound(t *testing.T) {
	b := NewBuilder(NewEntityResolver(newFakeEmbedder(16, nil)))

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{
			{ID: "a", OutboundLinks: []string{"b", "c"}},
			{ID: "b", OutboundLinks: []string{"c"}, InboundLinks: []string{"c"}},
			{ID: "c"},
		}},
	}

	g, err := b.Build(context.Background(), fragments)
	require.NoError(t, err)

	for _, node := range g.Nodes {
		for _, target := range node.OutboundLinks {
			assert.Contains(t, g.NodeByID(target).InboundLinks, node.ID)
		}
		for _, source := range node.InboundLinks {
			assert.Contains(t, g.NodeByID(source).OutboundLinks, node.ID)
		}
	}
}
