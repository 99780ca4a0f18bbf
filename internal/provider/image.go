package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/vk/blockflow/internal/ctxlog"
)

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// ImageGenerator turns a prompt into the URL of a generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// apiError is the error envelope returned by OpenAI-compatible APIs.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (e *apiError) message(status string) string {
	if e != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return status
}

// OpenAIImages calls the images/generations endpoint.
type OpenAIImages struct {
	client *resty.Client
	model  string
	size   string
}

// NewOpenAIImages builds an image generator. An empty baseURL uses DefaultBaseURL.
func NewOpenAIImages(apiKey, baseURL, model, size string) *OpenAIImages {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = "dall-e-3"
	}
	if size == "" {
		size = "1024x1024"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(2 * time.Minute).
		SetHeader("Content-Type", "application/json")
	return &OpenAIImages{client: client, model: model, size: size}
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage requests one image and returns its URL.
func (g *OpenAIImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	logger := ctxlog.FromContext(ctx).With("provider", "image", "model", g.model)
	logger.Debug("Generating image.", "prompt_len", len(prompt))

	var out imageResponse
	var apiErr apiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(imageRequest{Model: g.model, Prompt: prompt, N: 1, Size: g.size}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/images/generations")
	if err != nil {
		return "", errors.Wrap(err, "image generation request failed")
	}
	if resp.IsError() {
		return "", fmt.Errorf("image generation failed: %s", apiErr.message(resp.Status()))
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", errors.New("image generation returned no image")
	}

	logger.Debug("Image generated.")
	return out.Data[0].URL, nil
}
