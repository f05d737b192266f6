// Package storage keeps session saves in numbered slots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/qdcore/config"
)

// ErrSlotNotFound is returned by Get and Delete for an empty slot.
var ErrSlotNotFound = errors.New("storage: slot not found")

// Slot describes one stored save.
type Slot struct {
	Number  int       `json:"slot"`
	ID      uuid.UUID `json:"id"`
	Size    int       `json:"size"`
	SavedAt time.Time `json:"saved_at"`
}

// Store is a save-slot backend. It satisfies engine.Store.
type Store interface {
	Put(ctx context.Context, slot int, data []byte) error
	Get(ctx context.Context, slot int) ([]byte, error)
	List(ctx context.Context) ([]Slot, error)
	Delete(ctx context.Context, slot int) error
	Close() error
}

// Open builds the store the configuration selects.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return NewFileStore(cfg.Storage.Dir)
	case "redis":
		return NewRedisStore(ctx, cfg.Storage.RedisURL, cfg.Storage.TTL)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

func newSlot(number, size int) Slot {
	return Slot{Number: number, ID: uuid.New(), Size: size, SavedAt: time.Now().UTC()}
}

func checkSlot(slot int) error {
	if slot < 0 {
		return fmt.Errorf("storage: invalid slot %d", slot)
	}
	return nil
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Number < slots[j].Number })
}
