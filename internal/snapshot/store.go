// Package snapshot holds the single process-wide published scan result.
package snapshot

import (
	"sync/atomic"

	"github.com/HerbHall/lanscan/pkg/models"
)

// Store publishes immutable snapshots to any number of concurrent readers.
// Publish replaces the whole value with one atomic pointer swap, so a
// reader sees either the old snapshot or the new one, never a mix.
type Store struct {
	current atomic.Pointer[models.Snapshot]
	version atomic.Uint64
}

// NewStore returns a store holding the startup placeholder.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(models.Placeholder())
	return s
}

// Publish makes snap the current snapshot. snap must not be modified
// afterwards. A nil snap is ignored.
func (s *Store) Publish(snap *models.Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
	s.version.Add(1)
}

// Current returns the most recently published snapshot. It never blocks
// and never returns nil.
func (s *Store) Current() *models.Snapshot {
	return s.current.Load()
}

// Version returns the number of snapshots published so far.
func (s *Store) Version() uint64 {
	return s.version.Load()
}
