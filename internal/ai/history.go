package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
)

// TranscriptStore manages persistent storage of session transcripts
type TranscriptStore interface {
	// Get returns the transcript stored at the given key, or nil if there is nothing stored at that key
	Get(key string) (*Transcript, error)
	// Set stores a transcript with a key
	Set(key string, value Transcript) error
}

// FileSystemTranscriptStore implements TranscriptStore using the OS file system
type FileSystemTranscriptStore struct {
	dir string // The directory keys will be relative to
}

func NewFileSystemTranscriptStore(dir string) FileSystemTranscriptStore {
	return FileSystemTranscriptStore{
		dir: dir,
	}
}

func (fsts FileSystemTranscriptStore) Get(key string) (*Transcript, error) {
	b, err := os.ReadFile(fsts.path(key))
	if errors.Is(err, os.ErrNotExist) {
		// The file doesn't exist so nothing is stored at this key
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var value Transcript
	err = json.Unmarshal(b, &value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &value, nil
}

func (fsts FileSystemTranscriptStore) Set(key string, value Transcript) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	err = os.MkdirAll(fsts.dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}
	err = os.WriteFile(fsts.path(key), b, 0644)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (fsts FileSystemTranscriptStore) path(key string) string {
	return path.Join(fsts.dir, path.Base(key)+".json")
}
