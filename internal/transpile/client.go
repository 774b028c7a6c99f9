package transpile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Client submits source text for one transpile cycle.
type Client interface {
	Submit(ctx context.Context, source string) (Result, error)
}

// TransportError means the request did not complete: the backend could
// not be reached, the call was aborted, or the breaker is open.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Backend names accepted by New.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// http
	ServerURL string
	Timeout   time.Duration

	// openai
	OpenAIKey   string
	OpenAIModel string

	// gemini
	GeminiKey   string
	GeminiModel string

	Logger *slog.Logger
}

// DefaultConfig returns a Config for a service on localhost.
func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendHTTP,
		ServerURL:   "http://localhost:8000",
		OpenAIModel: "gpt-4o-mini",
		GeminiModel: "gemini-2.0-flash",
	}
}

// New builds the Client named by cfg.Backend.
func New(cfg *Config) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Backend {
	case "", BackendHTTP:
		return NewHTTPClient(cfg.ServerURL, cfg.Timeout, cfg.Logger), nil
	case BackendOpenAI:
		return NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel), nil
	case BackendGemini:
		return NewGeminiClient(cfg.GeminiKey, cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unknown transpile backend %q (want http, openai or gemini)", cfg.Backend)
	}
}
