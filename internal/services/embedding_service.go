package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// StoredEmbeddingDimensions is the width of the chunks table's vector
// column. Every embedder must produce vectors of exactly this width or
// chunk inserts are rejected by the database.
const StoredEmbeddingDimensions = 1536

// Embedder produces dense vectors for texts. Implementations must return
// one vector per input in the same order, all StoredEmbeddingDimensions
// wide.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbeddingError represents a failure from an embedding provider
type EmbeddingError struct {
	Provider string
	Err      error
	Message  string
}

func (e *EmbeddingError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Provider + " embedding: " + e.Err.Error()
	}
	return e.Provider + " embedding: unknown error"
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// OpenAIEmbedder embeds with text-embedding-3-small, whose native width
// matches the chunks table exactly.
type OpenAIEmbedder struct {
	client *openai.Client
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI API
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: openai.NewClient(apiKey)}
}

// Dimensions returns the vector width produced by the embedder
func (e *OpenAIEmbedder) Dimensions() int {
	return StoredEmbeddingDimensions
}

// EmbedTexts embeds all texts in a single batch request.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	cleaned := sanitizeForEmbedding(texts)
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: cleaned,
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, &EmbeddingError{Provider: "openai", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &EmbeddingError{
			Provider: "openai",
			Message:  fmt.Sprintf("openai embedding: expected %d vectors, got %d", len(texts), len(resp.Data)),
		}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// GeminiEmbedder embeds with text-embedding-004, which is 768-wide
// natively. Output is zero-padded to the stored width so Gemini-only
// ingestions insert into the same chunks column as OpenAI ones. Padding
// with zeros leaves dot products and norms unchanged, so similarity
// ranking is unaffected.
type GeminiEmbedder struct {
	client *genai.Client
}

// NewGeminiEmbedder creates an embedder backed by the Gemini API
func NewGeminiEmbedder(ctx context.Context, apiKey string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &EmbeddingError{Provider: "gemini", Err: err, Message: "failed to create gemini client"}
	}
	return &GeminiEmbedder{client: client}, nil
}

// Dimensions returns the vector width produced by the embedder
func (e *GeminiEmbedder) Dimensions() int {
	return StoredEmbeddingDimensions
}

// EmbedTexts embeds all texts in one batch call.
func (e *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.client.EmbeddingModel("text-embedding-004")
	batch := model.NewBatch()
	for _, text := range sanitizeForEmbedding(texts) {
		batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &EmbeddingError{Provider: "gemini", Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &EmbeddingError{
			Provider: "gemini",
			Message:  fmt.Sprintf("gemini embedding: expected %d vectors, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = fitDimensions(emb.Values, StoredEmbeddingDimensions)
	}
	return vectors, nil
}

// Close releases the underlying API client
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}

// fitDimensions adjusts a vector to the given width, zero-padding short
// vectors and truncating long ones.
func fitDimensions(v []float32, dims int) []float32 {
	if len(v) == dims {
		return v
	}
	if len(v) > dims {
		return v[:dims]
	}
	out := make([]float32, dims)
	copy(out, v)
	return out
}

// sanitizeForEmbedding replaces newlines with spaces, which improves
// embedding quality for models trained on single-line inputs.
func sanitizeForEmbedding(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = strings.ReplaceAll(t, "\n", " ")
	}
	return out
}
