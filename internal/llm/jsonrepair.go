package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"brainlattice/internal/models"
)

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// StripCodeFence removes a surrounding markdown code fence if present
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"```json", "```markdown", "```"} {
		if strings.HasPrefix(text, prefix) {
			text = text[len(prefix):]
			break
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// RepairJSON fixes the malformations models commonly produce: leading
// prose before the first brace, truncated output, trailing commas, and
// unbalanced quotes or brackets.
func RepairJSON(text string) string {
	if idx := strings.Index(text, "{"); idx > 0 {
		text = text[idx:]
	}

	// truncate to the last balanced top-level object
	braceCount := 0
	lastComplete := -1
	for i, ch := range text {
		switch ch {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				lastComplete = i
			}
		}
		if lastComplete >= 0 {
			break
		}
	}
	if lastComplete > 0 {
		text = text[:lastComplete+1]
	} else if end := strings.LastIndex(text, "}"); end > 0 {
		text = text[:end+1]
	}

	text = trailingCommaRe.ReplaceAllString(text, "$1")
	if strings.Count(text, `"`)%2 == 1 {
		text += `"`
	}
	if strings.Count(text, "[") > strings.Count(text, "]") {
		text += "]"
	}
	if strings.Count(text, "{") > strings.Count(text, "}") {
		text += "}"
	}
	return text
}

// DecodeGraphFragment parses a model response into a GraphFragment,
// applying tolerant repair before giving up.
func DecodeGraphFragment(raw string) (models.GraphFragment, error) {
	cleaned := StripCodeFence(raw)

	var fragment models.GraphFragment
	if err := json.Unmarshal([]byte(cleaned), &fragment); err == nil {
		return fragment, nil
	}

	repaired := RepairJSON(cleaned)
	if err := json.Unmarshal([]byte(repaired), &fragment); err != nil {
		return models.GraphFragment{}, &LLMError{Operation: "decode_fragment", Err: err, Message: "malformed graph fragment: " + err.Error()}
	}
	return fragment, nil
}
