package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitDimensions_PadsShortVectors(t *testing.T) {
	native := make([]float32, 768)
	for i := range native {
		native[i] = float32(i) * 0.5
	}

	fitted := fitDimensions(native, StoredEmbeddingDimensions)

	assert.Len(t, fitted, StoredEmbeddingDimensions)
	for i, v := range native {
		assert.Equal(t, v, fitted[i])
	}
	for i := len(native); i < StoredEmbeddingDimensions; i++ {
		assert.Zero(t, fitted[i])
	}
}

func TestFitDimensions_TruncatesLongVectors(t *testing.T) {
	long := make([]float32, StoredEmbeddingDimensions+100)
	for i := range long {
		long[i] = 1.0
	}

	fitted := fitDimensions(long, StoredEmbeddingDimensions)
	assert.Len(t, fitted, StoredEmbeddingDimensions)
}

func TestFitDimensions_ExactWidthPassesThrough(t *testing.T) {
	exact := make([]float32, StoredEmbeddingDimensions)
	fitted := fitDimensions(exact, StoredEmbeddingDimensions)
	assert.Len(t, fitted, StoredEmbeddingDimensions)
}

func TestEmbedderDimensionsMatchStoredColumn(t *testing.T) {
	openai := NewOpenAIEmbedder("test-key")
	assert.Equal(t, StoredEmbeddingDimensions, openai.Dimensions())

	gemini := &GeminiEmbedder{}
	assert.Equal(t, StoredEmbeddingDimensions, gemini.Dimensions())
}

func TestSanitizeForEmbedding(t *testing.T) {
	out := sanitizeForEmbedding([]string{"line one\nline two", "plain"})
	assert.Equal(t, []string{"line one line two", "plain"}, out)
}
