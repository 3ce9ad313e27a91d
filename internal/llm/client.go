package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultModelID is the generation model for extraction and notes
	DefaultModelID = "gemini-2.0-flash"
)

// Client wraps the Gemini API for text and JSON generation, with optional
// context caching. Keys are supplied per request chain (strict BYOK), so a
// Client is constructed per worker invocation, not at startup.
type Client struct {
	genai   *genai.Client
	modelID string
}

// NewClient creates a Gemini-backed LLM client
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, &LLMError{Operation: "new_client", Message: "gemini api key is required"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &LLMError{Operation: "new_client", Err: err, Message: "failed to create gemini client"}
	}
	return &Client{genai: client, modelID: DefaultModelID}, nil
}

// Close releases the underlying API client
func (c *Client) Close() error {
	return c.genai.Close()
}

// GenerateOptions configures a single generation call. The zero value
// produces plain text at temperature 0.
type GenerateOptions struct {
	// JSON requests an application/json response
	JSON bool
	// Schema constrains the JSON output shape when set
	Schema *genai.Schema
	// CachedContent is an opaque cache handle; when set the generation
	// runs against the cached document context
	CachedContent string
	Temperature   float32
}

// Generate runs one model call and returns the raw response text.
// Cache-handle failures come back as a cache-invalid error so callers can
// fall back to non-cached mode.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var model *genai.GenerativeModel

	if opts.CachedContent != "" {
		cc, err := c.genai.GetCachedContent(ctx, opts.CachedContent)
		if err != nil {
			return "", cacheInvalidError(opts.CachedContent, err)
		}
		model = c.genai.GenerativeModelFromCachedContent(cc)
	} else {
		model = c.genai.GenerativeModel(c.modelID)
	}

	model.SetTemperature(opts.Temperature)
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if opts.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = opts.Schema
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if opts.CachedContent != "" {
			return "", cacheInvalidError(opts.CachedContent, err)
		}
		return "", &LLMError{Operation: "generate", Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return "", &LLMError{Operation: "generate", Message: "empty response from model"}
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var out string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	return out
}

// LLMError represents a failure from the LLM provider
type LLMError struct {
	Operation string
	Err       error
	Message   string
}

func (e *LLMError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// cacheInvalidError marks a failure caused by a missing or expired cache
// handle, distinguishable so callers can retry without the cache.
func cacheInvalidError(handle string, err error) error {
	return &LLMError{
		Operation: "cached_content",
		Err:       err,
		Message:   fmt.Sprintf("cached content %s is invalid or expired: %v", handle, err),
	}
}

// IsCacheInvalid reports whether err indicates a dead cache handle.
func IsCacheInvalid(err error) bool {
	if e, ok := err.(*LLMError); ok {
		return e.Operation == "cached_content"
	}
	return false
}
