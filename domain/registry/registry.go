// Package registry owns speaker identities and their lifecycle.
// No caller-side authentication happens here; the kernel façade enforces
// that before reaching the registry.
package registry

import (
	"sort"
	"time"
)

// SpeakerStatus is the lifecycle state of a speaker.
type SpeakerStatus string

const (
	StatusAlive     SpeakerStatus = "alive"
	StatusSuspended SpeakerStatus = "suspended"
)

// RootID is the identity created at kernel boot.
const RootID = 0

// Speaker is an authenticated identity. Speakers are never destroyed, only
// suspended.
type Speaker struct {
	ID        int
	Name      string
	CreatedAt time.Time
	Status    SpeakerStatus
}

// Registry allocates monotonically increasing speaker ids.
type Registry struct {
	speakers map[int]*Speaker
	nextID   int
	now      func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		speakers: make(map[int]*Speaker),
		now:      time.Now,
	}
}

// Create allocates the next id and stores a new alive speaker.
// Ids are never reused.
func (r *Registry) Create(name string) *Speaker {
	s := &Speaker{
		ID:        r.nextID,
		Name:      name,
		CreatedAt: r.now(),
		Status:    StatusAlive,
	}
	r.speakers[s.ID] = s
	r.nextID++
	return s
}

// Get returns the speaker record, if any.
func (r *Registry) Get(id int) (*Speaker, bool) {
	s, ok := r.speakers[id]
	return s, ok
}

// Authenticate reports whether the record exists and is alive.
func (r *Registry) Authenticate(id int) bool {
	s, ok := r.speakers[id]
	return ok && s.Status == StatusAlive
}

// Suspend marks the speaker suspended. Returns whether the record existed.
func (r *Registry) Suspend(id int) bool {
	s, ok := r.speakers[id]
	if !ok {
		return false
	}
	s.Status = StatusSuspended
	return true
}

// ListAll returns every record ordered by id.
func (r *Registry) ListAll() []*Speaker {
	out := make([]*Speaker, 0, len(r.speakers))
	for _, s := range r.speakers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
