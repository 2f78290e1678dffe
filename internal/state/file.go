// Package state persists the DJ engine's schedule, last applied signature and
// request history in a YAML file so they survive restarts.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"aidj/internal/core"
)

const (
	// FilePermission is the permission for state files
	FilePermission = 0600
	// DefaultHistorySize caps the remembered requests.
	DefaultHistorySize = core.DefaultPromptHistorySize
)

type document struct {
	Schedule      []core.ScheduleItem `yaml:"schedule"`
	LastSignature string              `yaml:"last_signature,omitempty"`
	History       []string            `yaml:"history,omitempty"`
}

// FileStore implements core.StateStore. Every mutation rewrites the whole file
// through a temporary file and a rename.
type FileStore struct {
	path        string
	historySize int

	mu  sync.Mutex
	doc document
}

// Open loads path if it exists. A missing file starts an empty store.
func Open(path string, historySize int) (*FileStore, error) {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	s := &FileStore{path: path, historySize: historySize}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Load() (*core.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &core.StateSnapshot{
		Schedule:      slices.Clone(s.doc.Schedule),
		LastSignature: s.doc.LastSignature,
		History:       slices.Clone(s.doc.History),
	}, nil
}

func (s *FileStore) SaveSchedule(items []core.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Schedule = slices.Clone(items)
	return s.writeLocked()
}

func (s *FileStore) SaveSignature(signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.LastSignature = signature
	return s.writeLocked()
}

func (s *FileStore) ClearSignature() error {
	return s.SaveSignature("")
}

// AppendHistory records request as the newest entry. An earlier identical
// request moves to the front instead of being repeated.
func (s *FileStore) AppendHistory(request string) error {
	if request == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]string, 0, len(s.doc.History)+1)
	history = append(history, request)
	for _, previous := range s.doc.History {
		if previous != request {
			history = append(history, previous)
		}
	}
	if len(history) > s.historySize {
		history = history[:s.historySize]
	}

	s.doc.History = history
	return s.writeLocked()
}

// History returns the remembered requests, newest first.
func (s *FileStore) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.History)
}

func (s *FileStore) writeLocked() error {
	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, FilePermission); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
