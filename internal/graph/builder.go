package graph

import (
	"context"

	"brainlattice/internal/models"
)

// Builder merges raw extraction fragments into one consolidated concept
// network with symmetric backlinks. Entity resolution runs first so
// near-synonym ids collapse before edges are merged.
type Builder struct {
	resolver *EntityResolver
}

// NewBuilder creates a graph builder over the given resolver
func NewBuilder(resolver *EntityResolver) *Builder {
	return &Builder{resolver: resolver}
}

// Build merges all fragments into a deduplicated graph. Inbound links
// are rebuilt globally from outbound links at the end, so the
// bidirectional invariant holds regardless of fragment order.
func (b *Builder) Build(ctx context.Context, fragments []models.GraphFragment) (*models.Graph, error) {
	// LLM output is free-form; canonicalize ids and link targets into
	// the stored identifier shape before anything else touches them
	var rawNodes []models.FragmentNode
	for _, f := range fragments {
		for _, raw := range f.Nodes {
			node := canonicalizeNode(raw)
			if node.ID == "" {
				continue
			}
			rawNodes = append(rawNodes, node)
		}
	}

	idMap, err := b.resolver.Resolve(ctx, rawNodes)
	if err != nil {
		return nil, err
	}
	remap := func(id string) string {
		if canonical, ok := idMap[id]; ok {
			return canonical
		}
		return id
	}

	// node set with deterministic insertion order
	nodes := make(map[string]*models.Node)
	var order []string
	getOrCreate := func(id string) *models.Node {
		if node, ok := nodes[id]; ok {
			return node
		}
		node := &models.Node{
			ID:            id,
			Aliases:       []string{},
			OutboundLinks: []string{},
			InboundLinks:  []string{},
		}
		nodes[id] = node
		order = append(order, id)
		return node
	}

	for _, raw := range rawNodes {
		canonical := remap(raw.ID)
		target := getOrCreate(canonical)

		target.Aliases = mergeAliases(target.Aliases, raw.Aliases)
		if raw.ID != canonical {
			target.Aliases = mergeAliases(target.Aliases, []string{raw.ID})
		}

		// outbound edges: me -> them
		for _, rawLink := range raw.OutboundLinks {
			link := remap(rawLink)
			getOrCreate(link)
			if link != canonical && !contains(target.OutboundLinks, link) {
				target.OutboundLinks = append(target.OutboundLinks, link)
			}
		}

		// inbound edges from mixed sources materialize as the parent's
		// outbound edge: them -> me
		for _, rawParent := range raw.InboundLinks {
			parent := getOrCreate(remap(rawParent))
			if canonical != parent.ID && !contains(parent.OutboundLinks, canonical) {
				parent.OutboundLinks = append(parent.OutboundLinks, canonical)
			}
		}
	}

	// rebuild all inbound links from the final outbound state
	for _, id := range order {
		nodes[id].InboundLinks = []string{}
	}
	for _, id := range order {
		for _, targetID := range nodes[id].OutboundLinks {
			target := nodes[targetID]
			if !contains(target.InboundLinks, id) {
				target.InboundLinks = append(target.InboundLinks, id)
			}
		}
	}

	graph := &models.Graph{Nodes: make([]*models.Node, 0, len(order))}
	for _, id := range order {
		graph.Nodes = append(graph.Nodes, nodes[id])
	}
	return graph, nil
}

func mergeAliases(existing, incoming []string) []string {
	for _, alias := range incoming {
		if alias != "" && !contains(existing, alias) {
			existing = append(existing, alias)
		}
	}
	return existing
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
