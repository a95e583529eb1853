// Package checkpoint provides durable stores for the engine's per-workflow
// step checkpoints. Each store implements engine.Checkpointer; keys are
// never shared across workflows, so no cross-workflow locking is needed.
package checkpoint

import (
	"context"
	"sync"

	"github.com/auramail/auramail/internal/engine"
)

// MemoryCheckpointer is a goroutine-safe in-memory checkpointer for tests
// and ephemeral runs.
type MemoryCheckpointer struct {
	mu          sync.RWMutex
	checkpoints map[string]engine.Checkpoint
}

// NewMemoryCheckpointer creates an empty MemoryCheckpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{checkpoints: make(map[string]engine.Checkpoint)}
}

var _ engine.Checkpointer = (*MemoryCheckpointer)(nil)

func (m *MemoryCheckpointer) Save(ctx context.Context, key string, cp engine.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[key] = cp
	return nil
}

func (m *MemoryCheckpointer) Load(ctx context.Context, key string) (engine.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[key]
	if !ok {
		return engine.Checkpoint{}, engine.ErrCheckpointNotFound
	}
	return cp, nil
}

func (m *MemoryCheckpointer) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, key)
	return nil
}
