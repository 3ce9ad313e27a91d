package graph

import (
	"context"
	"log"
	"math"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"brainlattice/internal/models"
	"brainlattice/internal/services"
)

const (
	// representative counts for similarity matching
	mainComponentReps   = 50
	orphanComponentReps = 10
	// lenient cutoff: bridging prefers a weak link over leaving islands
	bridgeThreshold = 0.25
)

// Logger is the logging surface this package needs. A nil logger falls
// back to the process logger.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type stdLogger struct{}

func (stdLogger) Info(msg string, args ...interface{})  { log.Printf("[INFO] "+msg, args...) }
func (stdLogger) Warn(msg string, args ...interface{})  { log.Printf("[WARN] "+msg, args...) }
func (stdLogger) Error(msg string, args ...interface{}) { log.Printf("[ERROR] "+msg, args...) }

// Connector attaches orphan components to the main component using
// semantic similarity between high-degree representatives.
type Connector struct {
	embedder services.Embedder
	logger   Logger
}

// NewConnector creates a graph connector
func NewConnector(embedder services.Embedder, logger Logger) *Connector {
	if logger == nil {
		logger = stdLogger{}
	}
	return &Connector{embedder: embedder, logger: logger}
}

// ConnectOrphans bridges each disconnected component to the main
// component when a representative pair clears the similarity threshold.
// Orphans with no close match stay disconnected; the graph is returned
// either way.
func (c *Connector) ConnectOrphans(ctx context.Context, g *models.Graph) *models.Graph {
	if g == nil || len(g.Nodes) == 0 {
		return g
	}

	undirected := simple.NewUndirectedGraph()
	idToIndex := make(map[string]int64, len(g.Nodes))
	indexToID := make(map[int64]string, len(g.Nodes))
	for i, node := range g.Nodes {
		idx := int64(i)
		idToIndex[node.ID] = idx
		indexToID[idx] = node.ID
		undirected.AddNode(simple.Node(idx))
	}
	for _, node := range g.Nodes {
		from := idToIndex[node.ID]
		for _, target := range node.OutboundLinks {
			to, ok := idToIndex[target]
			if !ok || from == to {
				continue
			}
			undirected.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	components := topo.ConnectedComponents(undirected)
	if len(components) <= 1 {
		c.logger.Info("graph is already fully connected")
		return g
	}

	sort.Slice(components, func(i, j int) bool {
		return len(components[i]) > len(components[j])
	})
	main := components[0]
	orphans := components[1:]
	c.logger.Info("main component has %d nodes, %d orphan components", len(main), len(orphans))

	mainReps := c.representatives(undirected, indexToID, main, mainComponentReps)
	if len(mainReps) == 0 {
		return g
	}
	mainEmb, err := c.embedder.EmbedTexts(ctx, mainReps)
	if err != nil {
		c.logger.Error("failed to embed main component representatives: %v", err)
		return g
	}

	for _, orphan := range orphans {
		orphanReps := c.representatives(undirected, indexToID, orphan, orphanComponentReps)
		if len(orphanReps) == 0 {
			continue
		}
		orphanEmb, err := c.embedder.EmbedTexts(ctx, orphanReps)
		if err != nil {
			c.logger.Error("failed to embed orphan representatives: %v", err)
			continue
		}

		bestOrphan, bestMain, bestScore := bestPair(orphanReps, orphanEmb, mainReps, mainEmb)
		if bestScore > bridgeThreshold {
			c.logger.Info("bridging orphan %q -> main %q (score %.2f)", bestOrphan, bestMain, bestScore)
			orphanNode := g.NodeByID(bestOrphan)
			mainNode := g.NodeByID(bestMain)
			if !contains(orphanNode.OutboundLinks, bestMain) {
				orphanNode.OutboundLinks = append(orphanNode.OutboundLinks, bestMain)
			}
			if !contains(mainNode.InboundLinks, bestOrphan) {
				mainNode.InboundLinks = append(mainNode.InboundLinks, bestOrphan)
			}
		} else {
			c.logger.Warn("orphan %q has no close semantic match (max %.2f)", orphanReps[0], bestScore)
		}
	}

	return g
}

// representatives picks the highest-degree nodes of a component
func (c *Connector) representatives(g *simple.UndirectedGraph, indexToID map[int64]string, component []gonumgraph.Node, limit int) []string {
	type ranked struct {
		id     string
		degree int
	}
	nodes := make([]ranked, 0, len(component))
	for _, n := range component {
		degree := 0
		for it := g.From(n.ID()); it.Next(); {
			degree++
		}
		nodes = append(nodes, ranked{id: indexToID[n.ID()], degree: degree})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].degree > nodes[j].degree
	})
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	return ids
}

// bestPair finds the (orphan, main) representative pair with maximum
// cosine similarity.
func bestPair(orphanReps []string, orphanEmb [][]float32, mainReps []string, mainEmb [][]float32) (string, string, float64) {
	bestScore := math.Inf(-1)
	var bestOrphan, bestMain string
	for i, oEmb := range orphanEmb {
		for j, mEmb := range mainEmb {
			score := cosineSimilarity(oEmb, mEmb)
			if score > bestScore {
				bestScore = score
				bestOrphan = orphanReps[i]
				bestMain = mainReps[j]
			}
		}
	}
	return bestOrphan, bestMain, bestScore
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
