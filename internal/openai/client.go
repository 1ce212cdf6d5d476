package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultChatModel is the OpenAI model used for distillation and merge naming
	DefaultChatModel = openai.GPT4oMini
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536

	maxRetries = 3
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the chat model returns no content
	ErrEmptyCompletion = errors.New("no completion content returned")
)

// Distilled is the title/summary pair produced by distillation.
type Distilled struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// API defines the raw OpenAI calls used by the client
type API interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
	CreateCompletion(ctx context.Context, system, user string) (string, error)
}

// Client wraps the OpenAI API client with dimension validation and retries.
type Client struct {
	api        API
	dimensions int
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
}

func NewOpenAIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, chatModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat API and returns the first choice.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	ChatModel           string
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.ChatModel),
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text and validates
// its dimensionality against the configured value.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	err := c.retry(ctx, func() error {
		var apiErr error
		embedding, apiErr = c.api.CreateEmbeddings(ctx, text)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

const distillSystemPrompt = `You distill raw text fragments into knowledge artifacts.
Given the fragment, respond with JSON: {"title": "...", "summary": "..."}.
The title is at most 10 words; the summary is 1-3 sentences capturing the core idea.`

// Distill extracts a title and summary from a raw text fragment.
func (c *Client) Distill(ctx context.Context, text string) (*Distilled, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	return c.complete(ctx, distillSystemPrompt, text)
}

const mergeSystemPrompt = `You are merging near-duplicate knowledge artifacts into one.
Given the numbered source texts, respond with JSON: {"title": "...", "summary": "..."}
describing the single merged artifact. The title is at most 10 words; the summary
is 1-3 sentences covering the union of the sources.`

// NameMerge produces a title and summary for an artifact that absorbs the
// given source texts.
func (c *Client) NameMerge(ctx context.Context, sources []string) (*Distilled, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyText
	}

	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, src)
	}

	return c.complete(ctx, mergeSystemPrompt, b.String())
}

func (c *Client) complete(ctx context.Context, system, user string) (*Distilled, error) {
	var content string
	err := c.retry(ctx, func() error {
		var apiErr error
		content, apiErr = c.api.CreateCompletion(ctx, system, user)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}

	var out Distilled
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	if strings.TrimSpace(out.Title) == "" {
		return nil, fmt.Errorf("completion is missing a title")
	}

	return &out, nil
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(500*time.Millisecond),
			backoff.WithMaxInterval(5*time.Second),
		), maxRetries),
		ctx,
	)
	return backoff.Retry(op, policy)
}
