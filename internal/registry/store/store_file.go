// Package store persists the plugin registry as a flat key=value file.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"certgate/internal/platform/props"
)

// File reads and writes the registry property file. Writes go through a
// temp file plus rename so a crash mid-write never leaves a torn store.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// EnsureExists creates the backing file when absent. An existing file is
// left untouched; a zero-length file is a valid empty registry.
func (f *File) EnsureExists() error {
	handle, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create registry store %s: %w", f.path, err)
	}
	return handle.Close()
}

// Load parses the whole store into a property map.
func (f *File) Load() (map[string]string, error) {
	handle, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open registry store %s: %w", f.path, err)
	}
	defer handle.Close()

	properties, err := props.Parse(handle)
	if err != nil {
		return nil, fmt.Errorf("parse registry store %s: %w", f.path, err)
	}
	return properties, nil
}

// Save atomically replaces the store with the given property map.
func (f *File) Save(properties map[string]string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp registry store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := props.Write(tmp, properties); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync registry store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp registry store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace registry store %s: %w", f.path, err)
	}
	return nil
}
