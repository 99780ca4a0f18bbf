package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel is a minimal llms.Model that records the prompt it was sent.
type fakeModel struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompt = tc.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLLMText(t *testing.T) {
	t.Run("returns trimmed reply", func(t *testing.T) {
		model := &fakeModel{reply: "  a haiku \n"}
		text, err := NewLLMText(model).GenerateText(context.Background(), "write a haiku")
		require.NoError(t, err)
		assert.Equal(t, "a haiku", text)
		assert.Equal(t, "write a haiku", model.prompt)
	})

	t.Run("wraps provider errors", func(t *testing.T) {
		model := &fakeModel{err: errors.New("rate limited")}
		_, err := NewLLMText(model).GenerateText(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "text generation failed")
		assert.Contains(t, err.Error(), "rate limited")
	})
}

func TestOpenAIImages(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/images/generations", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			var req imageRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "a red fox", req.Prompt)
			assert.Equal(t, 1, req.N)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/fox.png"}]}`))
		}))
		defer srv.Close()

		url, err := NewOpenAIImages("key", srv.URL, "", "").GenerateImage(context.Background(), "a red fox")
		require.NoError(t, err)
		assert.Equal(t, "https://img.example/fox.png", url)
	})

	t.Run("api error message is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"content policy violation","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()

		_, err := NewOpenAIImages("key", srv.URL, "", "").GenerateImage(context.Background(), "x")
		assert.EqualError(t, err, "image generation failed: content policy violation")
	})

	t.Run("empty data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		_, err := NewOpenAIImages("key", srv.URL, "", "").GenerateImage(context.Background(), "x")
		assert.EqualError(t, err, "image generation returned no image")
	})
}

func TestOpenAISpeech(t *testing.T) {
	t.Run("streams audio bytes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/audio/speech", r.URL.Path)
			var req speechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "hello there", req.Input)
			assert.Equal(t, "alloy", req.Voice)

			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3fake-mp3"))
		}))
		defer srv.Close()

		body, err := NewOpenAISpeech("key", srv.URL, "", "").Synthesize(context.Background(), "hello there")
		require.NoError(t, err)
		defer body.Close()

		b, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "ID3fake-mp3", string(b))
	})

	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("bad key"))
		}))
		defer srv.Close()

		_, err := NewOpenAISpeech("key", srv.URL, "", "").Synthesize(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "speech synthesis failed")
		assert.Contains(t, err.Error(), "bad key")
	})
}
