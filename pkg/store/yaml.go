package store

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a snapshot file and builds a MemoryStore from it
func LoadYAML(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s, err := DecodeYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DecodeYAML builds a MemoryStore from a YAML snapshot document. Unknown
// fields are rejected so typos in hand-written fixtures surface early.
func DecodeYAML(r io.Reader) (*MemoryStore, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return NewMemoryStore(snap)
}
