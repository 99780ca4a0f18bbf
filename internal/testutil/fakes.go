package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// FakeText is a TextGenerator that answers "generated: <prompt>" unless Err is set.
type FakeText struct {
	Err   error
	Calls atomic.Int32
}

// GenerateText implements provider.TextGenerator.
func (f *FakeText) GenerateText(_ context.Context, prompt string) (string, error) {
	f.Calls.Add(1)
	if f.Err != nil {
		return "", f.Err
	}
	return "generated: " + prompt, nil
}

// FakeImages is an ImageGenerator returning a deterministic URL per prompt.
type FakeImages struct {
	Err   error
	Calls atomic.Int32
}

// GenerateImage implements provider.ImageGenerator.
func (f *FakeImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.Calls.Add(1)
	if f.Err != nil {
		return "", f.Err
	}
	return fmt.Sprintf("https://images.test/%d.png", len(prompt)), nil
}

// FakeSpeech is a SpeechSynthesizer returning the text itself as "audio".
type FakeSpeech struct {
	Err   error
	Calls atomic.Int32
}

// Synthesize implements provider.SpeechSynthesizer.
func (f *FakeSpeech) Synthesize(_ context.Context, text string) (io.ReadCloser, error) {
	f.Calls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	return io.NopCloser(bytes.NewReader([]byte("audio:" + text))), nil
}

// MemoryStore is an in-memory blobstore.Store.
type MemoryStore struct {
	PutErr  error
	mu      sync.Mutex
	objects map[string][]byte
}

// Put implements blobstore.Store.
func (s *MemoryStore) Put(_ context.Context, r io.Reader, name string) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	if name == "" {
		return "", errors.New("name required")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[name] = b
	return name, nil
}

// SignedURL implements blobstore.Store.
func (s *MemoryStore) SignedURL(_ context.Context, name string, expiry time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return "", fmt.Errorf("object %s not found", name)
	}
	return fmt.Sprintf("https://blobs.test/%s?ttl=%s", name, expiry), nil
}

// Object returns a stored object's bytes.
func (s *MemoryStore) Object(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[name]
	return b, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
