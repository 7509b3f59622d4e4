package ner

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/Sumit2809/PII-Final/internal/constants"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// rateLimitedLLM wraps an LLM client with rate limiting and retry with
// exponential backoff. Entity extraction issues one call per text line, so
// a single document can easily burst past hosted API limits without it.
type rateLimitedLLM struct {
	llm         llms.Model
	rateLimiter *rate.Limiter
	maxRetries  int
	backoffMin  time.Duration
	backoffMax  time.Duration
}

// rateLimitConfig holds configuration for rate limiting and retries
type rateLimitConfig struct {
	// RequestsPerMinute caps outgoing calls; 0 or negative disables the cap.
	RequestsPerMinute float64

	// MaxRetries is the number of retry attempts after the first failure.
	MaxRetries int
}

func newRateLimitedLLM(llm llms.Model, config rateLimitConfig) *rateLimitedLLM {
	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerMinute/60.0), 1)
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &rateLimitedLLM{
		llm:         llm,
		rateLimiter: limiter,
		maxRetries:  maxRetries,
		backoffMin:  1 * time.Second,
		backoffMax:  30 * time.Second,
	}
}

// GenerateContent implements the llms.Model interface with rate limiting
// and retries.
func (r *rateLimitedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := r.llm.GenerateContent(ctx, messages, options...)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt >= r.maxRetries {
			return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
		}

		backoff := r.backoffMin * time.Duration(1<<uint(attempt))
		if backoff > r.backoffMax {
			backoff = r.backoffMax
		}
		// Jitter by +/- 20% so parallel lines don't retry in lockstep.
		jitter := time.Duration(float64(backoff) * (0.8 + 0.4*rand.Float64()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jitter):
		}
	}
}

// Call implements the legacy llms.Model entry point.
func (r *rateLimitedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := r.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

// createLLM creates the appropriate langchaingo client based on the provider
func createLLM(config Config) (llms.Model, error) {
	switch strings.ToLower(config.LLMProvider) {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		baseURL := os.Getenv("OPENAI_BASE_URL")
		if apiKey == "" {
			if baseURL == "" {
				return nil, fmt.Errorf("OpenAI API key is not set")
			}
			// OpenAI-compatible servers usually want a token header but
			// don't validate it.
			apiKey = constants.DummyAPIKey
		}
		opts := []openai.Option{
			openai.WithModel(config.LLMModel),
			openai.WithToken(apiKey),
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		return openai.New(opts...)

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		return ollama.New(
			ollama.WithModel(config.LLMModel),
			ollama.WithServerURL(host),
		)

	case "mistral":
		apiKey := os.Getenv("MISTRAL_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("Mistral API key is not set")
		}
		return mistral.New(
			mistral.WithModel(config.LLMModel),
			mistral.WithAPIKey(apiKey),
		)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.LLMProvider)
	}
}
