package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// schemaVersion is written into every collection file. Version 0 is the
// legacy bare JSON array; it is accepted on read and upgraded on write.
const schemaVersion = 1

type envelope[T any] struct {
	SchemaVersion int `json:"schemaVersion"`
	Records       []T `json:"records"`
}

// collection is one JSON file holding every record of one entity type.
// All access goes through mu so that read-modify-write cycles of
// concurrent requests never interleave.
type collection[T any] struct {
	mu   sync.Mutex
	path string
	// seed builds the initial records when the file does not exist yet.
	// A nil seed starts from an empty collection.
	seed func() []T
}

func newCollection[T any](path string, seed func() []T) *collection[T] {
	return &collection[T]{path: path, seed: seed}
}

// view runs fn over a fresh read of the file.
func (c *collection[T]) view(fn func(records []T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.load()
	if err != nil {
		return err
	}
	return fn(records)
}

// mutate runs fn over a fresh read and persists the slice it returns.
// If fn fails nothing is written.
func (c *collection[T]) mutate(fn func(records []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.load()
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return c.write(next)
}

// replace overwrites the collection without reading it first.
func (c *collection[T]) replace(records []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(records)
}

// load reads the whole file. Caller holds mu.
func (c *collection[T]) load() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		var initial []T
		if c.seed != nil {
			initial = c.seed()
		}
		if err := c.write(initial); err != nil {
			return nil, err
		}
		return initial, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Path: c.path, Err: err}
	}
	return c.decode(data)
}

func (c *collection[T]) decode(data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var legacy []T
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, &StorageError{Op: "decode", Path: c.path, Err: err}
		}
		return legacy, nil
	}
	var env envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &StorageError{Op: "decode", Path: c.path, Err: err}
	}
	if env.SchemaVersion > schemaVersion {
		return nil, &StorageError{Op: "decode", Path: c.path,
			Err: fmt.Errorf("unsupported schema version %d", env.SchemaVersion)}
	}
	if env.Records == nil {
		env.Records = []T{}
	}
	return env.Records, nil
}

// write replaces the file with records via a temp file in the same
// directory followed by a rename. Caller holds mu.
func (c *collection[T]) write(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(envelope[T]{SchemaVersion: schemaVersion, Records: records}, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: c.path, Err: err}
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write", Path: c.path, Err: err}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "write", Path: c.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &StorageError{Op: "sync", Path: c.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write", Path: c.path, Err: err}
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return &StorageError{Op: "rename", Path: c.path, Err: err}
	}
	success = true
	return nil
}
