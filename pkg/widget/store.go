package widget

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no definition exists under an ID.
	ErrNotFound = errors.New("widget: not found")
)

// Store persists widget definitions.
type Store interface {
	// Put validates and stores a definition, assigning an ID and timestamps
	// when missing. Overwrites any existing record with the same ID.
	Put(ctx context.Context, d *Definition) error

	// Get retrieves the definition for id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Definition, error)

	// List returns all definitions sorted by name, then ID.
	List(ctx context.Context) ([]*Definition, error)

	// Delete removes the definition for id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// recordPrefix namespaces widget records in the key space.
const recordPrefix = "widget:"

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

// prepare stamps bookkeeping fields before a definition is persisted.
func prepare(d *Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return nil
}

func encodeRecord(d *Definition) ([]byte, error) {
	data, err := msgpack.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode widget %s: %w", d.ID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Definition, error) {
	var d Definition
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode widget record: %w", err)
	}
	return &d, nil
}

func sortDefinitions(defs []*Definition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Name != defs[j].Name {
			return defs[i].Name < defs[j].Name
		}
		return defs[i].ID < defs[j].ID
	})
}
