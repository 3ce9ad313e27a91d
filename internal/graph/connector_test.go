package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainlattice/internal/models"
)

func chainGraph() *models.Graph {
	return &models.Graph{Nodes: []*models.Node{
		{ID: "a", OutboundLinks: []string{"b"}, InboundLinks: []string{}},
		{ID: "b", OutboundLinks: []string{"c"}, InboundLinks: []string{"a"}},
		{ID: "c", OutboundLinks: []string{}, InboundLinks: []string{"b"}},
	}}
}

func TestConnectOrphans_NilAndEmpty(t *testing.T) {
	c := NewConnector(newFakeEmbedder(4, nil), nil)
	assert.Nil(t, c.ConnectOrphans(context.Background(), nil))

	empty := &models.Graph{}
	assert.Same(t, empty, c.ConnectOrphans(context.Background(), empty))
}

func TestConnectOrphans_AlreadyConnected(t *testing.T) {
	emb := newFakeEmbedder(4, nil)
	c := NewConnector(emb, nil)

	g := chainGraph()
	got := c.ConnectOrphans(context.Background(), g)
	assert.Same(t, g, got)
	// a connected graph needs no embeddings
	assert.Zero(t, emb.calls)
}

func TestConnectOrphans_BridgesSimilarOrphan(t *testing.T) {
	emb := newFakeEmbedder(4, map[string][]float32{
		"a": {1, 0, 0, 0},
		"b": {0, 1, 0, 0},
		"c": {0, 0, 1, 0},
		"d": {0, 0, 0.9, 0.4},
	})
	c := NewConnector(emb, nil)

	g := chainGraph()
	g.Nodes = append(g.Nodes, &models.Node{ID: "d", OutboundLinks: []string{}, InboundLinks: []string{}})

	got := c.ConnectOrphans(context.Background(), g)

	d := got.NodeByID("d")
	require.NotNil(t, d)
	assert.Equal(t, []string{"c"}, d.OutboundLinks)
	assert.Contains(t, got.NodeByID("c").InboundLinks, "d")
}

func TestConnectOrphans_DissimilarOrphanStaysDisconnected(t *testing.T) {
	emb := newFakeEmbedder(4, map[string][]float32{
		"a": {1, 0, 0, 0},
		"b": {0, 1, 0, 0},
		"c": {0, 0, 1, 0},
		"d": {0, 0, 0, 1},
	})
	c := NewConnector(emb, nil)

	g := chainGraph()
	g.Nodes = append(g.Nodes, &models.Node{ID: "d", OutboundLinks: []string{}, InboundLinks: []string{}})

	got := c.ConnectOrphans(context.Background(), g)
	assert.Empty(t, got.NodeByID("d").OutboundLinks)
	assert.Empty(t, got.NodeByID("d").InboundLinks)
}

type recordingLogger struct {
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, args ...interface{})  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(msg string, args ...interface{})  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, args ...interface{}) { l.errors = append(l.errors, msg) }

func TestConnectOrphans_LogsThroughInjectedLogger(t *testing.T) {
	emb := newFakeEmbedder(4, map[string][]float32{
		"a": {1, 0, 0, 0},
		"b": {0, 1, 0, 0},
		"c": {0, 0, 1, 0},
		"d": {0, 0, 0.9, 0.4},
	})
	logged := &recordingLogger{}
	c := NewConnector(emb, logged)

	g := chainGraph()
	g.Nodes = append(g.Nodes, &models.Node{ID: "d", OutboundLinks: []string{}, InboundLinks: []string{}})
	c.ConnectOrphans(context.Background(), g)

	require.NotEmpty(t, logged.infos)
	assert.Contains(t, logged.infos, "bridging orphan %q -> main %q (score %.2f)")
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}), 1e-9)
}
