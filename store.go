package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var errNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore keeps the single latest snapshot. Save overwrites; there
// is no history.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (CardFields, error)
}

// fileStore persists the snapshot as a YAML document.
type fileStore struct {
	path string
	log  *zap.Logger
}

func newFileStore(path string, log *zap.Logger) *fileStore {
	return &fileStore{path: path, log: log}
}

func (s *fileStore) Save(_ context.Context, snap Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *fileStore) Load(context.Context) (CardFields, error) {
	doc, err := readYAMLMap(s.path, s.log)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNoSnapshot
	}
	return CardFields(doc), nil
}
