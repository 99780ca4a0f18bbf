package provider

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/vk/blockflow/internal/ctxlog"
)

// SpeechSynthesizer turns text into a stream of encoded audio. Callers must
// close the returned reader.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// OpenAISpeech calls the audio/speech endpoint and streams back mp3 bytes.
type OpenAISpeech struct {
	client *resty.Client
	model  string
	voice  string
}

// NewOpenAISpeech builds a speech synthesizer. An empty baseURL uses DefaultBaseURL.
func NewOpenAISpeech(apiKey, baseURL, model, voice string) *OpenAISpeech {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = "tts-1"
	}
	if voice == "" {
		voice = "alloy"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(2 * time.Minute).
		SetHeader("Content-Type", "application/json")
	return &OpenAISpeech{client: client, model: model, voice: voice}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize starts the request and hands back the response body unread.
func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	logger := ctxlog.FromContext(ctx).With("provider", "speech", "model", s.model, "voice", s.voice)
	logger.Debug("Synthesizing speech.", "text_len", len(text))

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(speechRequest{Model: s.model, Input: text, Voice: s.voice, ResponseFormat: "mp3"}).
		SetDoNotParseResponse(true).
		Post("/audio/speech")
	if err != nil {
		return nil, errors.Wrap(err, "speech synthesis request failed")
	}

	body := resp.RawBody()
	if resp.IsError() {
		defer body.Close()
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, fmt.Errorf("speech synthesis failed: %s: %s", resp.Status(), string(msg))
	}
	return body, nil
}
