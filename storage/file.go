package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/logger"
)

// FileStore keeps each slot as a data file plus a JSON metadata file.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) dataPath(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("slot_%d.qds", slot))
}

func (s *FileStore) metaPath(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("slot_%d.json", slot))
}

// Put writes the data through a temporary file so a crash never leaves a
// truncated save behind.
func (s *FileStore) Put(_ context.Context, slot int, data []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	tmp := s.dataPath(slot) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: writing slot %d: %w", slot, err)
	}
	if err := os.Rename(tmp, s.dataPath(slot)); err != nil {
		return fmt.Errorf("storage: writing slot %d: %w", slot, err)
	}

	meta, err := json.Marshal(newSlot(slot, len(data)))
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.metaPath(slot), meta, 0o644); err != nil {
		return fmt.Errorf("storage: writing slot %d metadata: %w", slot, err)
	}
	logger.Log.WithFields(logrus.Fields{"slot": slot, "dir": s.dir}).Debug("slot written")
	return nil
}

func (s *FileStore) Get(_ context.Context, slot int) ([]byte, error) {
	data, err := os.ReadFile(s.dataPath(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotNotFound)
	}
	return data, err
}

func (s *FileStore) List(_ context.Context) ([]Slot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var slots []Slot
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "slot_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "slot_"), ".json")); err != nil {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		var sl Slot
		if err := json.Unmarshal(b, &sl); err != nil {
			logger.Log.WithFields(logrus.Fields{"file": name, "error": err}).Warn("skipping unreadable slot metadata")
			continue
		}
		slots = append(slots, sl)
	}
	sortSlots(slots)
	return slots, nil
}

func (s *FileStore) Delete(_ context.Context, slot int) error {
	err := os.Remove(s.dataPath(slot))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotNotFound)
	}
	if err != nil {
		return err
	}
	if err := os.Remove(s.metaPath(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
