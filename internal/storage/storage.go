// Package storage defines the persistence seam for encoded game
// statuses. The engine treats a status as an opaque byte blob; stores
// persist it per (story, slot) and hand it back unchanged.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested save slot does not exist.
var ErrNotFound = errors.New("save not found")

// SaveRecord is one persisted status blob.
type SaveRecord struct {
	Story     string
	Slot      string
	Status    []byte
	UpdatedAt time.Time
}

// SaveStore persists encoded statuses. Implementations must return the
// stored blob byte-identical to what was put.
type SaveStore interface {
	PutSave(ctx context.Context, record SaveRecord) error
	GetSave(ctx context.Context, story, slot string) (SaveRecord, error)
	ListSaves(ctx context.Context, story string) ([]SaveRecord, error)
	DeleteSave(ctx context.Context, story, slot string) error
}
