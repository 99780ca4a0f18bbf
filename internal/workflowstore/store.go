// Package workflowstore persists named workflow definitions so they can be
// listed, reloaded and run again later. Runs never read from it; the HTTP
// layer loads a definition and submits its node list like any other.
package workflowstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/vk/blockflow/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no workflow has the requested id.
var ErrNotFound = errors.New("workflow not found")

// SavedWorkflow is the stored row.
type SavedWorkflow struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	Description string    `json:"description,omitempty"`
	Workflow    string    `gorm:"type:text;not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName implements gorm's tabler interface.
func (SavedWorkflow) TableName() string {
	return "saved_workflows"
}

// Nodes decodes the stored node list.
func (w SavedWorkflow) Nodes() ([]workflow.Node, error) {
	return workflow.ParseJSON([]byte(w.Workflow))
}

// Store is a gorm-backed workflow store.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at dsn and migrates
// the schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open workflow database: %w", err)
	}
	if dsn == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access workflow database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.WithContext(ctx).AutoMigrate(&SavedWorkflow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate workflow database: %w", err)
	}
	return &Store{db: db}, nil
}

// Save stores a new workflow and returns it with its generated id.
func (s *Store) Save(ctx context.Context, name, description string, def workflow.Definition) (SavedWorkflow, error) {
	if name == "" {
		return SavedWorkflow{}, errors.New("workflow name is required")
	}
	body, err := json.Marshal(def)
	if err != nil {
		return SavedWorkflow{}, fmt.Errorf("failed to encode workflow: %w", err)
	}
	row := SavedWorkflow{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Workflow:    string(body),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return SavedWorkflow{}, fmt.Errorf("failed to save workflow: %w", err)
	}
	return row, nil
}

// List returns every stored workflow, newest first.
func (s *Store) List(ctx context.Context) ([]SavedWorkflow, error) {
	var rows []SavedWorkflow
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return rows, nil
}

// Get returns one workflow by id.
func (s *Store) Get(ctx context.Context, id string) (SavedWorkflow, error) {
	var row SavedWorkflow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SavedWorkflow{}, ErrNotFound
	}
	if err != nil {
		return SavedWorkflow{}, fmt.Errorf("failed to load workflow '%s': %w", id, err)
	}
	return row, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
