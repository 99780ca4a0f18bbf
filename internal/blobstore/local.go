package blobstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"github.com/vk/blockflow/internal/ctxlog"
)

// LocalStore writes objects into a directory and signs links that the HTTP
// front door verifies before serving the file.
type LocalStore struct {
	dir     string
	baseURL string
	secret  []byte
	clock   clock.Clock
}

// NewLocalStore creates the directory if needed. baseURL is the public root
// under which the front door serves /blobs/<name>.
func NewLocalStore(dir, baseURL string, secret []byte, clk clock.Clock) (*LocalStore, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("local blob store needs a signing secret")
	}
	if clk == nil {
		clk = clock.New()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		clock:   clk,
	}, nil
}

// Put writes the stream to a temporary file and renames it into place, so a
// redelivered upload never leaves a half-written object behind.
func (s *LocalStore) Put(ctx context.Context, r io.Reader, name string) (string, error) {
	if name == "" {
		name = NewObjectName("mp3")
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store object %s: %w", name, err)
	}

	ctxlog.FromContext(ctx).Debug("Object stored locally.", "name", name, "size", humanize.Bytes(uint64(n)))
	return name, nil
}

// SignedURL returns <baseURL>/blobs/<name>?expires=<unix>&signature=<hmac>.
func (s *LocalStore) SignedURL(_ context.Context, name string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	expires := s.clock.Now().Add(expiry).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.sign(name, expires))
	return fmt.Sprintf("%s/blobs/%s?%s", s.baseURL, name, q.Encode()), nil
}

// Verify checks a link produced by SignedURL.
func (s *LocalStore) Verify(name, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expiry")
	}
	if s.clock.Now().Unix() > exp {
		return fmt.Errorf("link expired")
	}
	want := s.sign(name, exp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// Open returns the stored object for reading.
func (s *LocalStore) Open(name string) (*os.File, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.dir, filepath.FromSlash(name)))
}

func (s *LocalStore) sign(name string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", name, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
