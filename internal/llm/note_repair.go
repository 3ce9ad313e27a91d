package llm

import (
	"regexp"
	"strings"
)

var (
	selfLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	supRe        = regexp.MustCompile(`(\S*)<sup>([^<]+)</sup>`)
	subRe        = regexp.MustCompile(`(\S*)<sub>([^<]+)</sub>`)
	wikilinkRe   = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
	listMarkerRe = regexp.MustCompile(`(?m)^([*-])([^\s*-])`)
	orderedRe    = regexp.MustCompile(`(?m)^(\d+\.)(\S)`)
	lineTrailRe  = regexp.MustCompile(`[ \t]+\n`)
)

// RepairNoteMarkdown normalizes model-generated note markdown: fence
// stripping, wikilink conversion, HTML super/subscript to LaTeX,
// hallucinated-link removal, delimiter balancing, and whitespace
// cleanup. validIDs is the set of concept ids that exist in the project;
// wikilinks to anything else are flattened to plain text.
func RepairNoteMarkdown(content string, validIDs map[string]struct{}) string {
	content = StripCodeFence(content)

	// [x](x) style self-links become wikilinks
	content = selfLinkRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := selfLinkRe.FindStringSubmatch(match)
		if parts[1] == parts[2] {
			return "[[" + parts[1] + "]]"
		}
		return match
	})

	content = supRe.ReplaceAllString(content, `$$${1}^{${2}}$$`)
	content = subRe.ReplaceAllString(content, `$$${1}_{${2}}$$`)

	// drop wikilinks that do not resolve to a concept in this project
	content = wikilinkRe.ReplaceAllStringFunc(content, func(match string) string {
		inner := wikilinkRe.FindStringSubmatch(match)[1]
		if _, ok := validIDs[strings.ToLower(strings.TrimSpace(inner))]; ok {
			return match
		}
		return inner
	})

	content = balanceDelimiters(content)

	content = blankRunsRe.ReplaceAllString(content, "\n\n")
	content = listMarkerRe.ReplaceAllString(content, "$1 $2")
	content = orderedRe.ReplaceAllString(content, "$1 $2")
	content = lineTrailRe.ReplaceAllString(content, "\n")

	return strings.TrimSpace(content)
}

// balanceDelimiters closes unpaired $, backtick, code-fence, and bold
// markers so downstream markdown renderers do not bleed formatting.
func balanceDelimiters(content string) string {
	if strings.Count(content, "```")%2 == 1 {
		content += "\n```"
	}
	singleTicks := strings.Count(content, "`") - 3*strings.Count(content, "```")
	if singleTicks%2 == 1 {
		content += "`"
	}
	if strings.Count(content, "**")%2 == 1 {
		content += "**"
	}
	dollars := strings.Count(content, "$") - 2*strings.Count(content, "$$")
	if dollars%2 == 1 {
		content += "$"
	}
	return content
}
