package transpile

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient asks an OpenAI chat model to act as the transpiler.
type OpenAIClient struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAIClient creates a client using the public OpenAI endpoint.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return NewOpenAIClientWithConfig(apiKey, model, openai.DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig allows a custom base URL, e.g. for proxies.
func NewOpenAIClientWithConfig(apiKey, model string, cfg openai.ClientConfig) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (c *OpenAIClient) Submit(ctx context.Context, source string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, fmt.Errorf("OpenAI API key not found")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(source)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, &TransportError{Backend: BackendOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 {
		return resolve(Malformed{Reason: "no choices returned"})
	}

	return resolve(Decode([]byte(stripFences(resp.Choices[0].Message.Content))))
}
