package graph

import (
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"brainlattice/internal/models"
)

const (
	pagerankDamping   = 0.85
	pagerankTolerance = 1e-6
)

// PageRank scores every node from the directed outbound edges. Scores
// feed node_metadata so clients can size or rank concepts.
func PageRank(g *models.Graph) map[string]float64 {
	if g == nil || len(g.Nodes) == 0 {
		return map[string]float64{}
	}

	directed := simple.NewDirectedGraph()
	idToIndex := make(map[string]int64, len(g.Nodes))
	indexToID := make(map[int64]string, len(g.Nodes))
	for i, node := range g.Nodes {
		idx := int64(i)
		idToIndex[node.ID] = idx
		indexToID[idx] = node.ID
		directed.AddNode(simple.Node(idx))
	}
	for _, node := range g.Nodes {
		from := idToIndex[node.ID]
		for _, target := range node.OutboundLinks {
			to, ok := idToIndex[target]
			if !ok || from == to {
				continue
			}
			directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	ranks := network.PageRank(directed, pagerankDamping, pagerankTolerance)
	out := make(map[string]float64, len(ranks))
	for idx, score := range ranks {
		out[indexToID[idx]] = score
	}
	return out
}
