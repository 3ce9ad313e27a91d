package models

import (
	"regexp"
	"time"
)

// conceptIDPattern is the canonical shape of a concept identifier:
// lowercase letters, digits, and single spaces, never leading with a space.
var conceptIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9 ]*$`)

// IsValidConceptID reports whether s is a well-formed concept identifier.
func IsValidConceptID(s string) bool {
	return conceptIDPattern.MatchString(s)
}

// FragmentNode is a partial node as returned by the LLM for one window or
// one paginated batch. It has not yet been merged or canonicalized.
type FragmentNode struct {
	ID            string   `json:"id"`
	Aliases       []string `json:"aliases"`
	OutboundLinks []string `json:"outbound_links"`
	InboundLinks  []string `json:"inbound_links,omitempty"`
}

// GraphFragment is the LLM's output for one extraction call.
type GraphFragment struct {
	Nodes []FragmentNode `json:"nodes"`
}

// Node is a merged concept node with symmetric backlinks.
type Node struct {
	ID            string   `json:"id"`
	Aliases       []string `json:"aliases"`
	OutboundLinks []string `json:"outbound_links"`
	InboundLinks  []string `json:"inbound_links"`
}

// Graph is the consolidated in-memory concept network for a project.
// InboundLinks are always derived from OutboundLinks, never authored.
type Graph struct {
	Nodes []*Node `json:"nodes"`
}

// NodeByID returns the node with the given concept id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// GraphNode is the persisted row form of a concept node.
type GraphNode struct {
	ID            string                 `json:"id"`
	ProjectID     string                 `json:"project_id"`
	ConceptID     string                 `json:"concept_id"`
	Content       string                 `json:"content,omitempty"`
	Aliases       []string               `json:"aliases"`
	OutboundLinks []string               `json:"outbound_links"`
	InboundLinks  []string               `json:"inbound_links"`
	NodeMetadata  map[string]interface{} `json:"node_metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Validate checks the persisted-node invariants.
func (n *GraphNode) Validate() error {
	if n.ProjectID == "" {
		return &ValidationError{Field: "project_id", Message: "project ID is required"}
	}
	if n.ConceptID == "" {
		return &ValidationError{Field: "concept_id", Message: "concept ID is required"}
	}
	if !IsValidConceptID(n.ConceptID) {
		return &ValidationError{Field: "concept_id", Message: "malformed concept ID: " + n.ConceptID}
	}
	for _, target := range n.OutboundLinks {
		if target == n.ConceptID {
			return &ValidationError{Field: "outbound_links", Message: "self-loop on " + n.ConceptID}
		}
	}
	return nil
}

// ValidationError describes a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed on " + e.Field + ": " + e.Message
}
