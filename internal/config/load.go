package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Load reads the settings file at path and applies it on top of base. A
// missing file is not an error when optional is true.
func Load(ctx context.Context, path string, base Settings, optional bool) (Settings, error) {
	logger := ctxlog.FromContext(ctx)
	src, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			logger.Debug("No settings file found, using defaults.", "path", path)
			return base, nil
		}
		return base, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	s, err := Parse(src, path, base, os.Environ())
	if err != nil {
		return base, err
	}
	logger.Debug("Settings file loaded.", "path", path)
	return s, nil
}

// Parse decodes settings source. environ is exposed to expressions as env.
func Parse(src []byte, filename string, base Settings, environ []string) (Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return base, fmt.Errorf("failed to parse settings: %w", diags)
	}

	var f File
	if diags := gohcl.DecodeBody(file.Body, evalContext(environ), &f); diags.HasErrors() {
		return base, fmt.Errorf("failed to decode settings: %w", diags)
	}
	return f.apply(base)
}

func evalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !hclIdentifier(k) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

// hclIdentifier reports whether k can be reached as env.<k>.
func hclIdentifier(k string) bool {
	for i, r := range k {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (f *File) apply(s Settings) (Settings, error) {
	var err error
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v, name string) {
		if v == "" || err != nil {
			return
		}
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = fmt.Errorf("invalid %s '%s': %w", name, v, perr)
			return
		}
		*dst = d
	}

	if b := f.Server; b != nil {
		set(&s.Addr, b.Addr)
		set(&s.PublicURL, b.PublicURL)
		if b.CORSOrigins != nil {
			s.CORSOrigins = b.CORSOrigins
		}
	}
	if b := f.Engine; b != nil {
		if b.Workers != nil {
			s.Workers = *b.Workers
		}
		if b.MaxRedeliveries != nil {
			s.MaxRedeliveries = *b.MaxRedeliveries
		}
		set(&s.Backend, b.Backend)
		set(&s.StatePath, b.StatePath)
		dur(&s.TaskTimeLimit, b.TaskTimeLimit, "task_time_limit")
	}
	if b := f.Bridge; b != nil {
		dur(&s.PollInterval, b.PollInterval, "poll_interval")
	}
	if b := f.Log; b != nil {
		set(&s.LogLevel, strings.ToLower(b.Level))
		set(&s.LogFormat, strings.ToLower(b.Format))
	}
	if b := f.Providers; b != nil {
		set(&s.OpenAIAPIKey, b.OpenAIAPIKey)
		set(&s.OpenAIBaseURL, b.OpenAIBaseURL)
		set(&s.TextModel, b.TextModel)
		set(&s.ImageModel, b.ImageModel)
		set(&s.ImageSize, b.ImageSize)
		set(&s.SpeechModel, b.SpeechModel)
		set(&s.Voice, b.Voice)
	}
	if b := f.Storage; b != nil {
		set(&s.StorageBackend, b.Backend)
		dur(&s.SignedURLExpiry, b.SignedURLExpiry, "signed_url_expiry")
		set(&s.BlobDir, b.Dir)
		set(&s.BlobSecret, b.Secret)
		set(&s.AzureConnectionString, b.AzureConnectionString)
		set(&s.AzureContainer, b.AzureContainer)
		set(&s.S3Bucket, b.S3Bucket)
		set(&s.S3Region, b.S3Region)
		set(&s.S3Endpoint, b.S3Endpoint)
	}
	if b := f.Database; b != nil {
		set(&s.DatabasePath, b.Path)
	}
	return s, err
}
