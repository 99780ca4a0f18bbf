// Package blobstore stores generated media and hands out time-limited links
// to it.
//
// Three backends are provided: Azure Blob Storage, Amazon S3 (or any
// S3-compatible endpoint), and a local directory served by the HTTP front
// door with HMAC-signed links.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// DefaultExpiry is how long signed links stay valid unless configured.
const DefaultExpiry = time.Hour

// Store is the object-storage collaborator.
type Store interface {
	// Put stores the stream under name and returns the stored object name.
	// An empty name gets a random one with the given extension.
	Put(ctx context.Context, r io.Reader, name string) (string, error)
	// SignedURL returns a read link for a stored object that expires after expiry.
	SignedURL(ctx context.Context, name string, expiry time.Duration) (string, error)
}

// NewObjectName returns a random object name with the given extension,
// e.g. "3f1c...e2.mp3".
func NewObjectName(ext string) string {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return uuid.NewString() + ext
}

// cleanName rejects names that would escape a container or directory.
func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned != name {
		return "", fmt.Errorf("invalid object name '%s'", name)
	}
	return cleaned, nil
}
