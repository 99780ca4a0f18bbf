package provider

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/vk/blockflow/internal/ctxlog"
)

// DefaultTextModel is used when no model is configured.
const DefaultTextModel = "gpt-3.5-turbo"

// TextGenerator turns a prompt into generated text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// LLMText generates text through any langchaingo model.
type LLMText struct {
	model llms.Model
	opts  []llms.CallOption
}

// NewLLMText wraps an existing langchaingo model.
func NewLLMText(model llms.Model, opts ...llms.CallOption) *LLMText {
	return &LLMText{model: model, opts: opts}
}

// NewOpenAIText builds a text generator backed by the OpenAI chat API.
// An empty baseURL keeps the library default.
func NewOpenAIText(apiKey, model, baseURL string) (*LLMText, error) {
	if model == "" {
		model = DefaultTextModel
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OpenAI client")
	}
	return NewLLMText(llm), nil
}

// GenerateText sends prompt as a single user message and returns the reply.
func (t *LLMText) GenerateText(ctx context.Context, prompt string) (string, error) {
	logger := ctxlog.FromContext(ctx).With("provider", "text")
	logger.Debug("Generating text.", "prompt_len", len(prompt))

	text, err := llms.GenerateFromSinglePrompt(ctx, t.model, prompt, t.opts...)
	if err != nil {
		return "", errors.Wrap(err, "text generation failed")
	}
	text = strings.TrimSpace(text)
	logger.Debug("Text generated.", "text_len", len(text))
	return text, nil
}
