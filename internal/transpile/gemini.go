package transpile

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient asks a Gemini model to act as the transpiler.
type GeminiClient struct {
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiClient creates a client; the SDK client is built on first use.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (c *GeminiClient) Submit(ctx context.Context, source string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, fmt.Errorf("Gemini API key not found")
	}

	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if c.initErr != nil {
		return Result{}, &TransportError{Backend: BackendGemini, Err: c.initErr}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.1),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt(source)), config)
	if err != nil {
		return Result{}, &TransportError{Backend: BackendGemini, Err: err}
	}

	return resolve(Decode([]byte(stripFences(resp.Text()))))
}
