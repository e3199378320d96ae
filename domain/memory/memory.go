// Package memory implements the per-speaker variable partitions.
//
// The store never compares the caller to anything other than the partition
// index: write ownership holds because kernel clients always pass the
// caller's own identity as the partition key, and the façade rejects
// cross-partition writes before they reach here.
package memory

import "sort"

// Memory is partitioned storage keyed by owner id.
type Memory struct {
	partitions map[int]map[string]interface{}
}

// New creates an empty memory.
func New() *Memory {
	return &Memory{partitions: make(map[int]map[string]interface{})}
}

// CreatePartition ensures an empty map exists for the owner. Idempotent:
// a second call leaves existing variables untouched.
func (m *Memory) CreatePartition(owner int) {
	if _, ok := m.partitions[owner]; !ok {
		m.partitions[owner] = make(map[string]interface{})
	}
}

// HasPartition reports whether the owner has a partition.
func (m *Memory) HasPartition(owner int) bool {
	_, ok := m.partitions[owner]
	return ok
}

// Read returns the value and whether it was present. No authorization is
// applied here; that lives at the kernel façade.
func (m *Memory) Read(owner int, name string) (interface{}, bool) {
	p, ok := m.partitions[owner]
	if !ok {
		return nil, false
	}
	v, ok := p[name]
	return v, ok
}

// Write stores a value in the caller's own partition. Returns whether the
// write happened and the prior value, if any.
func (m *Memory) Write(caller int, name string, value interface{}) (bool, interface{}) {
	p, ok := m.partitions[caller]
	if !ok {
		return false, nil
	}
	prior := p[name]
	p[name] = value
	return true, prior
}

// List returns the variable names in the owner's partition, sorted.
func (m *Memory) List(owner int) []string {
	p, ok := m.partitions[owner]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
