package llm

import (
	"context"
	"time"

	"github.com/google/generative-ai-go/genai"
)

// DefaultCacheTTLSeconds is how long a document cache stays alive
const DefaultCacheTTLSeconds = 3600

// CacheService manages Gemini context caches for single documents. A
// handle is persisted on the project so the ingestion and export phases
// reuse the same cache, and is deleted explicitly after export assembly.
type CacheService struct {
	client  *Client
	modelID string
	logger  Logger
}

// NewCacheService creates a cache service over an existing client
func NewCacheService(client *Client, logger Logger) *CacheService {
	return &CacheService{client: client, modelID: "models/" + DefaultModelID, logger: orStdLogger(logger)}
}

// CreateDocumentCache uploads the document text and returns the cache
// handle. Failures are soft: callers fall back to uncached mode.
func (s *CacheService) CreateDocumentCache(ctx context.Context, documentText string, projectID string, ttlSeconds int) (string, error) {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultCacheTTLSeconds
	}
	s.logger.Info("creating context cache for project %s (%d chars)", projectID, len(documentText))

	cached, err := s.client.genai.CreateCachedContent(ctx, &genai.CachedContent{
		Model: s.modelID,
		Contents: []*genai.Content{
			genai.NewUserContent(genai.Text(documentText)),
		},
		Expiration: genai.ExpireTimeOrTTL{TTL: time.Duration(ttlSeconds) * time.Second},
	})
	if err != nil {
		return "", &LLMError{Operation: "create_cache", Err: err, Message: "failed to create context cache: " + err.Error()}
	}

	s.logger.Info("created cache %s for project %s", cached.Name, projectID)
	return cached.Name, nil
}

// GetCache verifies the handle still resolves to a live cache.
func (s *CacheService) GetCache(ctx context.Context, handle string) (*genai.CachedContent, error) {
	cached, err := s.client.genai.GetCachedContent(ctx, handle)
	if err != nil {
		return nil, cacheInvalidError(handle, err)
	}
	return cached, nil
}

// DeleteCache removes the cache. Best-effort; the TTL covers leaks.
func (s *CacheService) DeleteCache(ctx context.Context, handle string) {
	if handle == "" {
		return
	}
	if err := s.client.genai.DeleteCachedContent(ctx, handle); err != nil {
		s.logger.Warn("failed to delete cache %s: %v", handle, err)
		return
	}
	s.logger.Info("deleted cache %s", handle)
}
