// Package store persists world snapshots as JSON files.
//
// A snapshot is an operator artifact: the engine always cold-starts, so the
// file exists for post-crash inspection and offline analysis rather than
// recovery. Writes use atomic file replacement (write to .tmp, then rename)
// to prevent corruption from partial writes or crashes mid-save. The runtime
// calls Save on a timer and once more during shutdown.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"aiverse/pkg/types"
)

// Snapshot is the on-disk world image.
type Snapshot struct {
	TakenAt     time.Time       `json:"taken_at"`
	Tick        int64           `json:"tick"`
	TotalTrades int             `json:"total_trades"`
	Agents      []types.Agent   `json:"agents"`
	Companies   []types.Company `json:"companies"`
}

// Store persists snapshots to a single JSON file.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	path string     // snapshot file location
	mu   sync.Mutex // serializes all file operations
}

// Open creates a store backed by the given file path, creating the parent
// directory if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// Save atomically persists a snapshot. It writes to a .tmp file first, then
// renames over the target so the file is never left in a partial state.
// Agents and companies are sorted so consecutive snapshots diff cleanly.
func (s *Store) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.Slice(snap.Agents, func(i, j int) bool { return snap.Agents[i].ID < snap.Agents[j].ID })
	sort.Slice(snap.Companies, func(i, j int) bool { return snap.Companies[i].Ticker < snap.Companies[j].Ticker })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load restores the last snapshot from disk.
// Returns nil, nil if no snapshot exists yet.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
