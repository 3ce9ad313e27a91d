package workers

import (
	"context"

	"brainlattice/internal/llm"
	"brainlattice/internal/models"
	"brainlattice/internal/repositories"
	"brainlattice/internal/services"
)

// Extractor produces graph fragments from document text, optionally
// against a cached document.
type Extractor interface {
	Extract(ctx context.Context, document string, cacheHandle string) ([]models.GraphFragment, error)
}

// DocumentCache manages provider-side document caches.
type DocumentCache interface {
	CreateDocumentCache(ctx context.Context, documentText string, projectID string, ttlSeconds int) (string, error)
	Verify(ctx context.Context, handle string) error
	DeleteCache(ctx context.Context, handle string)
}

// NoteGenerator produces repaired markdown notes for graph nodes.
type NoteGenerator interface {
	Generate(ctx context.Context, projectID, conceptID string, outboundLinks []string, cacheHandle string) (string, error)
}

// PipelineComponents are the key-scoped services built fresh for each
// worker invocation. Keys are per-request (BYOK), so none of these
// outlive the invocation; Close releases provider clients.
type PipelineComponents struct {
	Embedder  services.Embedder
	Cache     DocumentCache
	Extractor Extractor
	Notes     NoteGenerator
	Close     func()
}

// PipelineFactory builds the pipeline components from the request keys.
type PipelineFactory func(ctx context.Context, geminiKey, openaiKey string) (*PipelineComponents, error)

// NewPipelineFactory wires the production LLM stack. The Gemini key is
// mandatory; embedding uses OpenAI when a key is present and falls back
// to the Gemini embedding model otherwise. Stored chunk vectors expect
// the OpenAI dimensionality.
func NewPipelineFactory(repo repositories.ProjectRepository, logger Logger) PipelineFactory {
	return func(ctx context.Context, geminiKey, openaiKey string) (*PipelineComponents, error) {
		if geminiKey == "" {
			return nil, NewWorkerError("pipeline", "build", nil, "gemini api key is required")
		}

		client, err := llm.NewClient(ctx, geminiKey)
		if err != nil {
			return nil, err
		}

		var embedder services.Embedder
		var closeEmbedder func() error
		if openaiKey != "" {
			embedder = services.NewOpenAIEmbedder(openaiKey)
		} else {
			geminiEmbedder, err := services.NewGeminiEmbedder(ctx, geminiKey)
			if err != nil {
				client.Close()
				return nil, err
			}
			embedder = geminiEmbedder
			closeEmbedder = geminiEmbedder.Close
		}

		cache := llm.NewCacheService(client, logger)
		return &PipelineComponents{
			Embedder:  embedder,
			Cache:     &cacheAdapter{cache},
			Extractor: llm.NewGraphExtractor(client, logger),
			Notes:     llm.NewNoteService(client, embedder, repo, logger),
			Close: func() {
				client.Close()
				if closeEmbedder != nil {
					closeEmbedder()
				}
			},
		}, nil
	}
}

// cacheAdapter narrows the cache service to the worker-facing surface
type cacheAdapter struct {
	svc *llm.CacheService
}

func (a *cacheAdapter) CreateDocumentCache(ctx context.Context, documentText string, projectID string, ttlSeconds int) (string, error) {
	return a.svc.CreateDocumentCache(ctx, documentText, projectID, ttlSeconds)
}

func (a *cacheAdapter) Verify(ctx context.Context, handle string) error {
	_, err := a.svc.GetCache(ctx, handle)
	return err
}

func (a *cacheAdapter) DeleteCache(ctx context.Context, handle string) {
	a.svc.DeleteCache(ctx, handle)
}
