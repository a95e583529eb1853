// Package store tracks in-flight workflow records for crash recovery and
// status enforcement, distinct from the step-level checkpoints.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/auramail/auramail/internal/engine"
)

// ErrWorkflowNotFound is returned when a record does not exist.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Status is a workflow record's lifecycle state. COMPLETED and FAILED are
// transient: the runner removes the record as soon as either is reached.
type Status string

const (
	StatusActive          Status = "ACTIVE"
	StatusWaitingForInput Status = "WAITING_FOR_INPUT"
	StatusCompleted       Status = "COMPLETED"
	StatusFailed          Status = "FAILED"
)

// Record is one tracked workflow.
type Record struct {
	WorkflowID string          `db:"workflow_id" json:"workflow_id"`
	Topology   engine.Topology `db:"topology" json:"topology"`
	Status     Status          `db:"status" json:"status"`

	// ConfigKey is the opaque session key handed to the checkpointer.
	ConfigKey string    `db:"config_key" json:"config_key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store is the durable map of workflow id to record.
type Store interface {
	Add(ctx context.Context, rec Record) error
	Get(ctx context.Context, workflowID string) (Record, error)
	Remove(ctx context.Context, workflowID string) error
	UpdateStatus(ctx context.Context, workflowID string, status Status) error
	List(ctx context.Context) ([]Record, error)
}

// MemoryStore keeps records in a map behind a single mutex.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Add(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.WorkflowID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, workflowID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[workflowID]
	if !ok {
		return Record{}, ErrWorkflowNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Remove(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, workflowID)
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, workflowID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[workflowID]
	if !ok {
		return ErrWorkflowNotFound
	}
	rec.Status = status
	s.records[workflowID] = rec
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}
