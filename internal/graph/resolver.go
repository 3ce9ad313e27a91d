package graph

import (
	"context"
	"math"
	"sort"

	"brainlattice/internal/models"
	"brainlattice/internal/services"
)

// DefaultClusteringThreshold is the cosine-similarity cutoff for merging
// two concept ids into one entity
const DefaultClusteringThreshold = 0.85

// EntityResolver deduplicates near-synonym concept ids. Unique ids are
// embedded, L2-normalized, and clustered with average-linkage
// agglomerative clustering; each cluster collapses onto its most
// frequent member.
type EntityResolver struct {
	embedder  services.Embedder
	threshold float64
}

// NewEntityResolver creates a resolver with the default threshold
func NewEntityResolver(embedder services.Embedder) *EntityResolver {
	return &EntityResolver{embedder: embedder, threshold: DefaultClusteringThreshold}
}

// Resolve computes the mapping from raw ids to canonical ids. The map is
// total over the raw ids; unclustered ids map to themselves.
func (r *EntityResolver) Resolve(ctx context.Context, rawNodes []models.FragmentNode) (map[string]string, error) {
	if len(rawNodes) == 0 {
		return map[string]string{}, nil
	}

	counts := make(map[string]int)
	var uniqueIDs []string
	for _, n := range rawNodes {
		if counts[n.ID] == 0 {
			uniqueIDs = append(uniqueIDs, n.ID)
		}
		counts[n.ID]++
	}

	idMap := make(map[string]string, len(uniqueIDs))
	if len(uniqueIDs) < 2 {
		for _, id := range uniqueIDs {
			idMap[id] = id
		}
		return idMap, nil
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, uniqueIDs)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(embeddings))
	for i, emb := range embeddings {
		vectors[i] = normalize(emb)
	}

	// euclidean distance between unit vectors is a monotone transform of
	// cosine similarity: d = sqrt(2(1-cos))
	distThreshold := math.Sqrt(2 * (1 - r.threshold))
	labels := agglomerate(vectors, distThreshold)

	clusters := make(map[int][]string)
	for i, id := range uniqueIDs {
		clusters[labels[i]] = append(clusters[labels[i]], id)
	}

	for _, group := range clusters {
		canonical := group[0]
		for _, id := range group[1:] {
			if counts[id] > counts[canonical] ||
				(counts[id] == counts[canonical] && id < canonical) {
				canonical = id
			}
		}
		for _, id := range group {
			idMap[id] = canonical
		}
	}

	return idMap, nil
}

// normalize returns the L2-normalized vector in float64. Zero vectors
// pass through unchanged so they cluster with nothing.
func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for i, x := range v {
		out[i] = float64(x)
		sum += out[i] * out[i]
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}

// agglomerate runs average-linkage agglomerative clustering with a
// distance cutoff and no fixed cluster count. Returns a cluster label
// per input vector.
func agglomerate(vectors [][]float64, threshold float64) []int {
	n := len(vectors)

	// pairwise distance matrix
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(vectors[i], vectors[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	for len(clusters) > 1 {
		bestI, bestJ := -1, -1
		bestD := math.Inf(1)
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := averageLinkage(clusters[i], clusters[j], dist)
				if d < bestD {
					bestD = d
					bestI, bestJ = i, j
				}
			}
		}
		if bestD >= threshold {
			break
		}
		merged := append(append([]int{}, clusters[bestI]...), clusters[bestJ]...)
		sort.Ints(merged)
		next := make([][]int, 0, len(clusters)-1)
		for k, c := range clusters {
			if k != bestI && k != bestJ {
				next = append(next, c)
			}
		}
		clusters = append(next, merged)
	}

	labels := make([]int, n)
	for label, cluster := range clusters {
		for _, idx := range cluster {
			labels[idx] = label
		}
	}
	return labels
}

// averageLinkage is the mean pairwise distance between two clusters
func averageLinkage(a, b []int, dist [][]float64) float64 {
	var sum float64
	for _, i := range a {
		for _, j := range b {
			sum += dist[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
