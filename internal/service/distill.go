package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/cloo-solutions/curioai/internal/openai"
)

// DistillResult is the title/summary pair produced for an artifact.
type DistillResult struct {
	Title   string
	Summary string
}

// Distiller turns raw text into a titled/summarized artifact and names the
// survivor of a merge. One interface, one configurable implementation per
// provider.
type Distiller interface {
	Distill(ctx context.Context, text string) (*DistillResult, error)
	NameMerge(ctx context.Context, sources []string) (*DistillResult, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DistillProvider selects which distillation backend to use.
type DistillProvider string

const (
	DistillProviderOpenAI DistillProvider = "openai"
	// DistillProviderStatic extracts title/summary heuristically without
	// an LLM. Used when no API key is configured.
	DistillProviderStatic DistillProvider = "static"
)

// NewDistiller creates the distiller for the selected provider.
func NewDistiller(provider DistillProvider, client *openai.Client) (Distiller, error) {
	switch provider {
	case DistillProviderOpenAI:
		if client == nil {
			return nil, fmt.Errorf("openai distiller requires a client")
		}
		return &openAIDistiller{client: client}, nil
	case DistillProviderStatic:
		return &staticDistiller{}, nil
	default:
		return nil, fmt.Errorf("unknown distill provider: %s", provider)
	}
}

type openAIDistiller struct {
	client *openai.Client
}

func (d *openAIDistiller) Distill(ctx context.Context, text string) (*DistillResult, error) {
	out, err := d.client.Distill(ctx, text)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCollaborator, "distillation call failed", err)
	}
	return &DistillResult{Title: out.Title, Summary: out.Summary}, nil
}

func (d *openAIDistiller) NameMerge(ctx context.Context, sources []string) (*DistillResult, error) {
	out, err := d.client.NameMerge(ctx, sources)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCollaborator, "merge naming call failed", err)
	}
	return &DistillResult{Title: out.Title, Summary: out.Summary}, nil
}

const (
	staticTitleMaxWords   = 10
	staticSummaryMaxChars = 280
)

// staticDistiller derives the title from the first sentence and the
// summary from a truncated prefix of the text.
type staticDistiller struct{}

func (d *staticDistiller) Distill(ctx context.Context, text string) (*DistillResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptySourceText
	}
	return &DistillResult{
		Title:   staticTitle(text),
		Summary: staticSummary(text),
	}, nil
}

func (d *staticDistiller) NameMerge(ctx context.Context, sources []string) (*DistillResult, error) {
	if len(sources) == 0 {
		return nil, domain.ErrEmptySourceText
	}
	return d.Distill(ctx, sources[0])
}

func staticTitle(text string) string {
	sentence := text
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(sentence, sep); idx > 0 {
			sentence = sentence[:idx]
		}
	}
	words := strings.Fields(sentence)
	if len(words) > staticTitleMaxWords {
		words = words[:staticTitleMaxWords]
	}
	return strings.TrimRight(strings.Join(words, " "), ".!?")
}

func staticSummary(text string) string {
	clean := strings.Join(strings.Fields(text), " ")
	if len(clean) <= staticSummaryMaxChars {
		return clean
	}
	return clean[:staticSummaryMaxChars-3] + "..."
}
