package llm

import (
	"context"
	"strings"

	"brainlattice/internal/repositories"
	"brainlattice/internal/services"
)

const (
	// chunks retrieved per concept in RAG mode
	ragChunkLimit = 5
	// stands in for retrieved chunks when the whole document is cached
	cachedContextStub = "document context is cached natively in the model."
	noContextStub     = "no specific course context found."
)

// NoteService generates obsidian-style study notes for graph nodes.
// Context comes from the document cache when a live handle exists,
// otherwise from RAG over the project's chunk embeddings.
type NoteService struct {
	client   *Client
	embedder services.Embedder
	repo     repositories.ProjectRepository
	logger   Logger
}

// NewNoteService creates a note generator
func NewNoteService(client *Client, embedder services.Embedder, repo repositories.ProjectRepository, logger Logger) *NoteService {
	return &NoteService{client: client, embedder: embedder, repo: repo, logger: orStdLogger(logger)}
}

// Generate produces the repaired markdown note for one concept. A dead
// cache handle triggers a single retry in RAG mode.
func (s *NoteService) Generate(ctx context.Context, projectID, conceptID string, outboundLinks []string, cacheHandle string) (string, error) {
	linksStr := formatLinks(outboundLinks)

	var contextChunks string
	if cacheHandle != "" {
		contextChunks = cachedContextStub
	} else {
		contextChunks = s.ragContext(ctx, projectID, conceptID)
	}

	prompt := RenderNotePrompt(conceptID, linksStr, contextChunks)
	raw, err := s.client.Generate(ctx, prompt, GenerateOptions{CachedContent: cacheHandle})
	if err != nil && cacheHandle != "" && IsCacheInvalid(err) {
		s.logger.Warn("cache %s dead for %s, retrying in rag mode: %v", cacheHandle, conceptID, err)
		contextChunks = s.ragContext(ctx, projectID, conceptID)
		prompt = RenderNotePrompt(conceptID, linksStr, contextChunks)
		raw, err = s.client.Generate(ctx, prompt, GenerateOptions{})
	}
	if err != nil {
		return "", err
	}

	content := strings.ToLower(strings.TrimSpace(raw))

	validIDs, idsErr := s.repo.ValidConceptIDs(ctx, projectID)
	if idsErr != nil {
		s.logger.Warn("failed to load concept ids for %s: %v", projectID, idsErr)
		validIDs = map[string]struct{}{}
	}
	content = RepairNoteMarkdown(content, validIDs)

	// guarantee every declared link appears somewhere in the note
	if missing := missingLinks(content, outboundLinks); len(missing) > 0 {
		var b strings.Builder
		b.WriteString(content)
		b.WriteString("\n\n## related\n\n")
		for i, link := range missing {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- [[" + link + "]]")
		}
		content = b.String()
	}

	return content, nil
}

// ragContext embeds the concept id and pulls the closest chunks
func (s *NoteService) ragContext(ctx context.Context, projectID, conceptID string) string {
	vectors, err := s.embedder.EmbedTexts(ctx, []string{conceptID})
	if err != nil || len(vectors) == 0 {
		s.logger.Error("failed to embed %q for rag context: %v", conceptID, err)
		return ""
	}

	chunks, err := s.repo.SearchChunks(ctx, projectID, vectors[0], ragChunkLimit)
	if err != nil {
		s.logger.Error("chunk search failed for %q: %v", conceptID, err)
		return ""
	}
	if len(chunks) == 0 {
		return noContextStub
	}

	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content
	}
	return strings.Join(contents, "\n\n")
}

func formatLinks(links []string) string {
	if len(links) == 0 {
		return ""
	}
	formatted := make([]string, len(links))
	for i, link := range links {
		formatted[i] = "[[" + link + "]]"
	}
	return strings.Join(formatted, ", ")
}

// missingLinks returns the declared links whose wikilink form does not
// appear in the note, case-insensitively.
func missingLinks(content string, links []string) []string {
	lower := strings.ToLower(content)
	var missing []string
	for _, link := range links {
		if !strings.Contains(lower, "[["+strings.ToLower(link)+"]]") {
			missing = append(missing, link)
		}
	}
	return missing
}
