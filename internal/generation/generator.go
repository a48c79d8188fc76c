// Package generation wraps the language-model backend that turns merged
// retrieval context into prose.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrGenerationFailed indicates a backend generation failure.
	ErrGenerationFailed = errors.New("generation failed")
)

// Generator produces an answer from merged context. Implementations are
// safe for concurrent use.
type Generator interface {
	// Generate answers the question from the merged context, formatted
	// for the given prompt variant, in the requested language.
	Generate(ctx context.Context, variant, mergedContext, question, language string) (string, error)
}

// Config holds language-model backend configuration.
type Config struct {
	// BaseURL is an OpenAI-compatible chat completion endpoint.
	BaseURL string

	// Model is the chat model to use.
	Model string

	// APIKey authenticates against the backend. Optional for local
	// OpenAI-compatible services.
	APIKey string

	// Prompts overrides the built-in system prompt per variant name.
	Prompts map[string]string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// variantPrompts maps a prompt variant to its system prompt. Variants
// shape tone and caution level; the legal-sensitive variant instructs the
// model to stay strictly within the provided passages.
var variantPrompts = map[string]string{
	"general": "You are a helpful assistant. Answer the question using the " +
		"provided context passages. If the context does not contain the answer, say so.",
	"technical": "You are a software engineering assistant. Answer precisely, " +
		"reference the provided code and documentation passages, and prefer " +
		"concrete examples over speculation.",
	"compliance": "You are a compliance assistant. Answer strictly from the " +
		"provided passages, cite the governing policy where it appears in the " +
		"context, and do not extrapolate beyond the documented policy text.",
	"multimedia": "You are an assistant answering questions about media " +
		"content. Base your answer on the provided transcripts and descriptions.",
}

const defaultPrompt = "You are a helpful assistant. Answer the question using " +
	"the provided context passages."

// Service generates answers via an OpenAI-compatible chat backend.
type Service struct {
	client  *openai.LLM
	config  Config
	prompts map[string]string
	logger  *zap.Logger
}

// NewService creates a generation service.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	token := config.APIKey
	if token == "" {
		// Local OpenAI-compatible services reject empty tokens but
		// accept any placeholder.
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	prompts := make(map[string]string, len(variantPrompts)+len(config.Prompts))
	for variant, prompt := range variantPrompts {
		prompts[variant] = prompt
	}
	for variant, prompt := range config.Prompts {
		if prompt != "" {
			prompts[variant] = prompt
		}
	}

	return &Service{
		client:  client,
		config:  config,
		prompts: prompts,
		logger:  logger,
	}, nil
}

// Generate answers the question from the merged context.
func (s *Service) Generate(ctx context.Context, variant, mergedContext, question, language string) (string, error) {
	system, ok := s.prompts[variant]
	if !ok {
		system = defaultPrompt
	}
	if language != "" {
		system += fmt.Sprintf(" Answer in %s.", language)
	}

	var user strings.Builder
	if mergedContext != "" {
		user.WriteString("Context:\n")
		user.WriteString(mergedContext)
		user.WriteString("\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(question)

	resp, err := s.client.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, system),
			llms.TextParts(llms.ChatMessageTypeHuman, user.String()),
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: backend returned no choices", ErrGenerationFailed)
	}

	s.logger.Debug("generation completed",
		zap.String("variant", variant),
		zap.String("model", s.config.Model),
	)

	return resp.Choices[0].Content, nil
}
