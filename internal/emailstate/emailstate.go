// Package emailstate tracks which messages and threads have already been
// handed to the triage core, plus the shutdown watermark used to resume
// polling after a restart without reprocessing.
//
// The state is mutated only by the discovery loop (single writer), so no
// lock is taken here.
package emailstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// State is the dedup ledger. SeenIDs and SeenThreads are always updated
// together: a half-processed message must neither be retried as new nor
// swallowed as old.
type State struct {
	path string

	ownerAddress string

	SeenIDs      map[string]struct{}
	SeenThreads  map[string]struct{}
	LastShutdown time.Time
}

// persisted is the on-disk layout of the dedup file.
type persisted struct {
	SeenIDs      []string  `json:"seen_ids"`
	SeenThreads  []string  `json:"seen_threads"`
	LastShutdown time.Time `json:"last_shutdown_marker"`
}

// New returns an empty State persisted at path. ownerAddress is the account
// owner's address; self-sent mail is never considered new.
func New(path, ownerAddress string) *State {
	return &State{
		path:         path,
		ownerAddress: strings.ToLower(strings.TrimSpace(ownerAddress)),
		SeenIDs:      make(map[string]struct{}),
		SeenThreads:  make(map[string]struct{}),
	}
}

// Load reads the dedup file at path. A missing file yields an empty state.
func Load(path, ownerAddress string) (*State, error) {
	s := New(path, ownerAddress)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading email state: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding email state: %w", err)
	}

	for _, id := range p.SeenIDs {
		s.SeenIDs[id] = struct{}{}
	}
	for _, id := range p.SeenThreads {
		s.SeenThreads[id] = struct{}{}
	}
	s.LastShutdown = p.LastShutdown
	return s, nil
}

// IsNew reports whether a message should enter the pipeline: its id is
// unseen, its thread is unseen, and it was not sent by the account owner.
func (s *State) IsNew(messageID, threadID, sender string) bool {
	if _, seen := s.SeenIDs[messageID]; seen {
		return false
	}
	if _, seen := s.SeenThreads[threadID]; seen {
		return false
	}
	if s.ownerAddress != "" && strings.Contains(strings.ToLower(sender), s.ownerAddress) {
		return false
	}
	return true
}

// MarkSeen records the message id and its thread id together.
func (s *State) MarkSeen(messageID, threadID string) {
	s.SeenIDs[messageID] = struct{}{}
	s.SeenThreads[threadID] = struct{}{}
}

// Watermark returns the time the process last shut down cleanly. The zero
// time means no watermark has been recorded yet.
func (s *State) Watermark() time.Time {
	return s.LastShutdown
}

// RecordShutdown persists the current time as the resume watermark, so the
// next startup can fetch "messages after this time" instead of "messages
// after today". This closes the gap where mail arriving between shutdown
// and the next startup would be missed, and removes the need for the old
// daily reset of the seen sets.
func (s *State) RecordShutdown() error {
	s.LastShutdown = time.Now()
	return s.Save()
}

// Save writes the state to its file, creating parent directories as needed.
func (s *State) Save() error {
	p := persisted{
		SeenIDs:      make([]string, 0, len(s.SeenIDs)),
		SeenThreads:  make([]string, 0, len(s.SeenThreads)),
		LastShutdown: s.LastShutdown,
	}
	for id := range s.SeenIDs {
		p.SeenIDs = append(p.SeenIDs, id)
	}
	for id := range s.SeenThreads {
		p.SeenThreads = append(p.SeenThreads, id)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding email state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating email state dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing email state: %w", err)
	}
	return nil
}
