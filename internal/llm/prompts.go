package llm

import (
	"bytes"
	"strings"
	"text/template"
)

// Prompt templates for graph extraction and note generation. All graph
// prompts share the same naming contract: IDs are lowercase with spaces,
// singular, conceptual names rather than formulas or abbreviations.

const namingRules = `NAMING RULES:
1. all concept ids must be lowercase, words separated by single spaces
2. use singular forms: "function" not "functions"
3. use conceptual names, never formulas or notation: "quadratic function" not "f(x) = x^2"
4. no abbreviations: "vertical line test" not "VLT"
5. be consistent: reuse an existing id when it names the same concept`

var skeletonTmpl = template.Must(template.New("skeleton").Parse(`You are building a knowledge graph from a document.
Below is the document's heading skeleton. Identify the root concepts it covers.

` + namingRules + `

Return ONLY valid JSON of the form:
{"nodes": [{"id": "concept name", "aliases": [], "outbound_links": ["other concept"]}]}

Every outbound_links target must be the id of another node defined in this response.

DOCUMENT SKELETON:
{{.Skeleton}}
`))

var windowTmpl = template.Must(template.New("window").Parse(`You are extending a knowledge graph from a document, one window of text at a time.
Extract every meaningful concept from the window below as a node with directed outbound links to the concepts it depends on or leads to.

` + namingRules + `

{{if .ExistingConcepts}}CONCEPTS ALREADY IN THE GRAPH (reuse these ids when the window mentions the same concept):
{{.ExistingConcepts}}

Every outbound_links target must be either an id defined in this response or one of the ids listed above.
{{else}}Every outbound_links target must be the id of another node defined in this response.
{{end}}
Return ONLY valid JSON of the form:
{"nodes": [{"id": "concept name", "aliases": ["synonym"], "outbound_links": ["other concept"]}]}

TEXT WINDOW:
{{.Window}}
`))

var globalSeedTmpl = template.Must(template.New("global_seed").Parse(`The full document is available to you as cached context.
List every meaningful concept the document covers. Be comprehensive: include all definitions, theorems, techniques, methods, and properties a student would need to study. Do not include document-structure references like chapter or section names.

` + namingRules + `

Return ONLY valid JSON of the form:
{"concepts": ["concept one", "concept two"]}
`))

var paginatedTmpl = template.Must(template.New("paginated").Parse(`The full document is available to you as cached context.
For each of the following concepts, produce a graph node with directed outbound links to the concepts it depends on or leads to.

CONCEPTS TO DEFINE IN THIS RESPONSE:
{{.BatchIDs}}

FULL CONCEPT LIST (outbound_links targets must come from this list):
{{.GlobalIDs}}

` + namingRules + `

Return ONLY valid JSON of the form:
{"nodes": [{"id": "concept name", "aliases": ["synonym"], "outbound_links": ["other concept"]}]}

Node ids must be exactly the concepts to define, nothing else.
`))

var noteTmpl = template.Must(template.New("note").Parse(`Write a concise, obsidian-style study note for the concept "{{.ConceptID}}".

Requirements:
- all lowercase
- start with a one-line definition, then essential details, formulas, and examples drawn from the context
- use [[wikilink]] syntax when mentioning related concepts
{{if .LinksStr}}- related concepts to link where relevant: {{.LinksStr}}
{{end}}- markdown only, no surrounding code fence

CONTEXT:
{{.ContextChunks}}
`))

func renderTemplate(tmpl *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		// templates and data are plain strings; execution cannot fail
		return ""
	}
	return buf.String()
}

// RenderSkeletonPrompt builds the root-concept seeding prompt
func RenderSkeletonPrompt(skeleton string) string {
	return renderTemplate(skeletonTmpl, struct{ Skeleton string }{skeleton})
}

// RenderWindowPrompt builds the windowed extraction prompt
func RenderWindowPrompt(window string, existingConcepts []string) string {
	return renderTemplate(windowTmpl, struct {
		Window           string
		ExistingConcepts string
	}{window, strings.Join(existingConcepts, ", ")})
}

// RenderGlobalSeedPrompt builds the cached-mode master-list prompt
func RenderGlobalSeedPrompt() string {
	return renderTemplate(globalSeedTmpl, nil)
}

// RenderPaginatedPrompt builds the cached-mode batch prompt
func RenderPaginatedPrompt(batchIDs, globalIDs []string) string {
	return renderTemplate(paginatedTmpl, struct {
		BatchIDs  string
		GlobalIDs string
	}{strings.Join(batchIDs, ", "), strings.Join(globalIDs, ", ")})
}

// RenderNotePrompt builds the study-note prompt
func RenderNotePrompt(conceptID, linksStr, contextChunks string) string {
	return renderTemplate(noteTmpl, struct {
		ConceptID     string
		LinksStr      string
		ContextChunks string
	}{conceptID, linksStr, contextChunks})
}
