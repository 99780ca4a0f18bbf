package config

import (
	"errors"
	"fmt"
	"time"
)

// Result backends.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
)

// Blob storage backends.
const (
	StorageLocal = "local"
	StorageAzure = "azure"
	StorageS3    = "s3"
)

// Settings is the fully resolved configuration.
type Settings struct {
	Addr        string
	PublicURL   string
	CORSOrigins []string

	Workers         int
	Backend         string
	StatePath       string
	TaskTimeLimit   time.Duration
	MaxRedeliveries int

	PollInterval time.Duration

	LogLevel  string
	LogFormat string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	TextModel     string
	ImageModel    string
	ImageSize     string
	SpeechModel   string
	Voice         string

	StorageBackend        string
	SignedURLExpiry       time.Duration
	BlobDir               string
	BlobSecret            string
	AzureConnectionString string
	AzureContainer        string
	S3Bucket              string
	S3Region              string
	S3Endpoint            string

	DatabasePath string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Addr:            ":8000",
		PublicURL:       "http://localhost:8000",
		CORSOrigins:     []string{"http://localhost:3000"},
		Workers:         4,
		Backend:         BackendMemory,
		StatePath:       "blockflow-state",
		TaskTimeLimit:   300 * time.Second,
		MaxRedeliveries: 3,
		PollInterval:    time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
		StorageBackend:  StorageLocal,
		SignedURLExpiry: time.Hour,
		BlobDir:         "blobs",
		AzureContainer:  "audiofiles",
		DatabasePath:    "blockflow.db",
	}
}

// Validate reports the first invalid setting.
func (s *Settings) Validate() error {
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level '%s': must be 'debug', 'info', 'warn', or 'error'", s.LogLevel)
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		return fmt.Errorf("invalid log format '%s': must be 'text' or 'json'", s.LogFormat)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.MaxRedeliveries < 0 {
		return fmt.Errorf("max_redeliveries cannot be negative, got %d", s.MaxRedeliveries)
	}
	if s.TaskTimeLimit <= 0 || s.PollInterval <= 0 || s.SignedURLExpiry <= 0 {
		return errors.New("task_time_limit, poll_interval and signed_url_expiry must be positive")
	}
	switch s.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if s.StatePath == "" {
			return errors.New("the leveldb backend needs a state_path")
		}
	default:
		return fmt.Errorf("unknown engine backend '%s'", s.Backend)
	}
	switch s.StorageBackend {
	case StorageLocal:
		if s.BlobDir == "" {
			return errors.New("local storage needs a dir")
		}
	case StorageAzure:
		if s.AzureConnectionString == "" {
			return errors.New("azure storage needs azure_connection_string")
		}
	case StorageS3:
		if s.S3Bucket == "" {
			return errors.New("s3 storage needs s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend '%s'", s.StorageBackend)
	}
	return nil
}
