package graph

import (
	"strings"
	"unicode"

	"brainlattice/internal/models"
)

// CanonicalizeID normalizes an LLM-produced concept identifier to the
// stored form: lowercase letters, digits, and single spaces. Hyphens and
// underscores become spaces, any other character is dropped, and
// whitespace runs collapse to one space. Returns "" when nothing
// survives.
func CanonicalizeID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// canonicalizeNode rewrites a fragment node's id and link targets into
// the stored identifier form. The original id is kept as an alias when
// it differs, so wiki-links written against the raw spelling still
// resolve.
func canonicalizeNode(raw models.FragmentNode) models.FragmentNode {
	id := CanonicalizeID(raw.ID)
	node := models.FragmentNode{
		ID:      id,
		Aliases: append([]string(nil), raw.Aliases...),
	}
	if id != "" && raw.ID != id {
		node.Aliases = append(node.Aliases, raw.ID)
	}
	node.OutboundLinks = canonicalizeLinks(raw.OutboundLinks)
	node.InboundLinks = canonicalizeLinks(raw.InboundLinks)
	return node
}

func canonicalizeLinks(links []string) []string {
	var out []string
	for _, link := range links {
		if c := CanonicalizeID(link); c != "" {
			out = append(out, c)
		}
	}
	return out
}
