package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"brainlattice/internal/models"
)

const (
	// window geometry for uncached extraction
	windowSize    = 50000
	windowOverlap = 5000
	// cap on the existing-concepts list passed back into prompts
	maxExistingConcepts = 500
	// cached-mode batch size; one model call per batch
	seedBatchSize = 50
)

var skeletonLineRe = regexp.MustCompile(`^#{1,2}\s+`)

// GraphExtractor pulls concept nodes and directed links out of document
// text. Two modes: windowed (sequential passes over overlapping text
// windows) and paginated (parallel batches against a cached document).
// Both produce the same fragment shape.
type GraphExtractor struct {
	client *Client
	logger Logger
}

// NewGraphExtractor creates an extractor over an existing client
func NewGraphExtractor(client *Client, logger Logger) *GraphExtractor {
	return &GraphExtractor{client: client, logger: orStdLogger(logger)}
}

// Extract runs paginated-cache mode when a handle is available, falling
// back to windowed mode when the cache is dead or the seed comes back
// empty.
func (g *GraphExtractor) Extract(ctx context.Context, document string, cacheHandle string) ([]models.GraphFragment, error) {
	if cacheHandle != "" {
		fragments, err := g.ExtractPaginated(ctx, cacheHandle)
		if err == nil && len(fragments) > 0 {
			return fragments, nil
		}
		if err != nil {
			g.logger.Warn("paginated extraction unavailable, falling back to windowed mode: %v", err)
		}
	}
	return g.ExtractWindowed(ctx, document)
}

// ExtractWindowed seeds root concepts from the heading skeleton, then
// walks overlapping windows in order. Each window sees the accumulated
// concept ids so the model reuses ids instead of minting near-duplicates.
func (g *GraphExtractor) ExtractWindowed(ctx context.Context, document string) ([]models.GraphFragment, error) {
	var fragments []models.GraphFragment
	var existing []string
	seen := make(map[string]struct{})

	accumulate := func(fragment models.GraphFragment) {
		fragments = append(fragments, fragment)
		for _, node := range fragment.Nodes {
			if _, ok := seen[node.ID]; !ok {
				seen[node.ID] = struct{}{}
				existing = append(existing, node.ID)
			}
		}
	}

	if skeleton := ExtractSkeleton(document); skeleton != "" {
		accumulate(g.extractFromSkeleton(ctx, skeleton))
	}

	for _, window := range splitWindows(document, windowSize, windowOverlap) {
		capped := existing
		if len(capped) > maxExistingConcepts {
			capped = capped[:maxExistingConcepts]
		}
		accumulate(g.extractFromWindow(ctx, window, capped))
	}

	return fragments, nil
}

// ExtractPaginated fetches the global concept seed from the cached
// document, then resolves node definitions in parallel batches. Every
// batch references the same global id list, so order does not matter.
func (g *GraphExtractor) ExtractPaginated(ctx context.Context, cacheHandle string) ([]models.GraphFragment, error) {
	seed, err := g.extractGlobalSeed(ctx, cacheHandle)
	if err != nil {
		return nil, err
	}
	if len(seed) == 0 {
		return nil, &LLMError{Operation: "extract_paginated", Message: "global seed is empty"}
	}

	batches := splitBatches(seed, seedBatchSize)
	fragments := make([]models.GraphFragment, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()
			fragments[i] = g.extractPaginatedBatch(ctx, cacheHandle, batch, seed)
		}(i, batch)
	}
	wg.Wait()

	return fragments, nil
}

// extractFromSkeleton seeds root concepts from the document headings
func (g *GraphExtractor) extractFromSkeleton(ctx context.Context, skeleton string) models.GraphFragment {
	raw, err := g.client.Generate(ctx, RenderSkeletonPrompt(skeleton), GenerateOptions{JSON: true})
	if err != nil {
		g.logger.Warn("skeleton extraction failed: %v", err)
		return models.GraphFragment{}
	}
	return g.decodeOrEmpty(raw, "skeleton")
}

// extractFromWindow extracts concepts and directed links from one window
func (g *GraphExtractor) extractFromWindow(ctx context.Context, window string, existingConcepts []string) models.GraphFragment {
	raw, err := g.client.Generate(ctx, RenderWindowPrompt(window, existingConcepts), GenerateOptions{JSON: true})
	if err != nil {
		g.logger.Warn("window extraction failed: %v", err)
		return models.GraphFragment{}
	}
	return g.decodeOrEmpty(raw, "window")
}

// extractGlobalSeed asks the cached document for the master concept list
func (g *GraphExtractor) extractGlobalSeed(ctx context.Context, cacheHandle string) ([]string, error) {
	raw, err := g.client.Generate(ctx, RenderGlobalSeedPrompt(), GenerateOptions{
		JSON:          true,
		CachedContent: cacheHandle,
	})
	if err != nil {
		return nil, err
	}

	var seed struct {
		Concepts []string `json:"concepts"`
	}
	cleaned := StripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), &seed); err != nil {
		if err := json.Unmarshal([]byte(RepairJSON(cleaned)), &seed); err != nil {
			return nil, &LLMError{Operation: "global_seed", Err: err, Message: "malformed global seed response"}
		}
	}
	return seed.Concepts, nil
}

// extractPaginatedBatch defines one batch of seed concepts against the
// cached document; node ids are constrained to the batch and link targets
// to the global list.
func (g *GraphExtractor) extractPaginatedBatch(ctx context.Context, cacheHandle string, batchIDs, globalIDs []string) models.GraphFragment {
	raw, err := g.client.Generate(ctx, RenderPaginatedPrompt(batchIDs, globalIDs), GenerateOptions{
		JSON:          true,
		CachedContent: cacheHandle,
	})
	if err != nil {
		g.logger.Warn("paginated batch extraction failed: %v", err)
		return models.GraphFragment{}
	}
	return g.decodeOrEmpty(raw, "paginated batch")
}

func (g *GraphExtractor) decodeOrEmpty(raw string, stage string) models.GraphFragment {
	fragment, err := DecodeGraphFragment(raw)
	if err != nil {
		g.logger.Warn("%s extraction returned malformed json: %v", stage, err)
		return models.GraphFragment{}
	}
	return fragment
}

// ExtractSkeleton concatenates the document's h1/h2 heading lines
func ExtractSkeleton(document string) string {
	var headings []string
	for _, line := range strings.Split(document, "\n") {
		if skeletonLineRe.MatchString(line) {
			headings = append(headings, line)
		}
	}
	return strings.Join(headings, "\n")
}

// splitWindows cuts text into overlapping windows. The final window may
// be shorter; step = size - overlap. Boundaries snap back to rune starts
// so multi-byte characters are never split.
func splitWindows(text string, size, overlap int) []string {
	if len(text) <= size {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	step := size - overlap
	var windows []string
	for start := 0; start < len(text); {
		end := snapToRuneStart(text, start+size)
		if end >= len(text) {
			windows = append(windows, text[start:])
			break
		}
		windows = append(windows, text[start:end])
		start = snapToRuneStart(text, start+step)
	}
	return windows
}

func snapToRuneStart(text string, i int) int {
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// splitBatches chunks ids into fixed-size groups preserving order
func splitBatches(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
