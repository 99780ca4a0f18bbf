package text_to_speech

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/blobstore"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/provider"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	Speech provider.SpeechSynthesizer
	Store  blobstore.Store
	// Expiry is how long the returned audio link stays valid.
	Expiry time.Duration
}

// Run synthesizes the producer's text, uploads the audio and records a
// signed {audio_url}.
func (m *Module) Run(ctx context.Context, acc accumulator.Accumulator, nodeID string, params registry.Params) accumulator.Accumulator {
	logger := ctxlog.FromContext(ctx).With("unit", workflow.TextToSpeech, "nodeID", nodeID)
	logger.Debug("Text to speech unit started.")

	if failed, ok := registry.UpstreamError(acc, params); ok {
		logger.Debug("Producer failed, propagating its error.")
		return acc.With(nodeID, failed)
	}

	text := registry.ProducerOutput(acc, params).String(accumulator.FieldText)
	if text == "" {
		return acc.With(nodeID, accumulator.ErrorOutput(fmt.Sprintf("%s: textToSpeech needs text from its input", flowerr.ErrMissingPrompt)))
	}
	if m.Speech == nil || m.Store == nil {
		return acc.With(nodeID, accumulator.ErrorOutput("speech synthesis is not configured"))
	}

	url, err := m.synthesize(ctx, text)
	if err != nil {
		logger.Warn("Text to speech failed.", "error", err)
		return acc.With(nodeID, accumulator.ErrorOutput(err.Error()))
	}

	logger.Debug("Text to speech unit finished.")
	return acc.With(nodeID, accumulator.Output{accumulator.FieldAudioURL: url})
}

func (m *Module) synthesize(ctx context.Context, text string) (string, error) {
	audio, err := m.Speech.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	defer audio.Close()

	name, err := m.Store.Put(ctx, audio, blobstore.NewObjectName("mp3"))
	if err != nil {
		return "", err
	}

	expiry := m.Expiry
	if expiry <= 0 {
		expiry = blobstore.DefaultExpiry
	}
	return m.Store.SignedURL(ctx, name, expiry)
}

// Register registers the unit of work with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit(string(workflow.TextToSpeech), &registry.RegisteredUnit{
		Bind: registry.RequireProducer,
		Run:  m.Run,
	})
}
