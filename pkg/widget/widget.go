// Package widget defines the stored widget model and its persistence: a
// definition carries the script text, the refresh cadence and bookkeeping
// metadata. Definitions persist in a badger-backed store as msgpack records
// and travel between machines as JSON files.
package widget

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Definition is one stored widget. Script holds the user's source verbatim;
// the store never interprets it. Timestamps are Unix milliseconds.
type Definition struct {
	ID        string          `json:"id" msgpack:"id"`
	Name      string          `json:"name" msgpack:"name"`
	Script    string          `json:"script" msgpack:"script"`
	Refresh   RefreshInterval `json:"refresh,omitempty" msgpack:"refresh"`
	Notes     string          `json:"notes,omitempty" msgpack:"notes"`
	CreatedAt int64           `json:"created_at" msgpack:"created_at"`
	UpdatedAt int64           `json:"updated_at" msgpack:"updated_at"`
}

// New builds a definition with a fresh ID and current timestamps.
func New(name, script string) *Definition {
	now := time.Now().UnixMilli()
	return &Definition{
		ID:        uuid.NewString(),
		Name:      name,
		Script:    script,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the fields a definition cannot live without.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("widget: name is required")
	}
	if d.Script == "" {
		return errors.New("widget: script is required")
	}
	if d.Refresh < 0 {
		return fmt.Errorf("widget: refresh interval %s is negative", d.Refresh)
	}
	return nil
}

// Clone returns a copy that shares no mutable state with d.
func (d *Definition) Clone() *Definition {
	cp := *d
	return &cp
}
