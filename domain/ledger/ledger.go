// Package ledger implements the append-only, hash-chained record of kernel
// operations. Every state transition lands here exactly once; the chain is
// independently verifiable from the documented hash input format.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/logica-lang/logica/domain/expression"
)

// GenesisHash is the prev_hash of the first entry.
const GenesisHash = "genesis"

// HashWidth is the number of hex characters kept from the digest.
const HashWidth = 16

// Entry is one immutable ledger record.
type Entry struct {
	EntryID         int
	SpeakerID       int
	Operation       string
	Condition       string
	ConditionResult *bool
	Action          string
	Status          expression.Status
	StateBefore     map[string]interface{}
	StateAfter      map[string]interface{}
	Timestamp       time.Time
	PrevHash        string
	EntryHash       string
	BreakReason     string
}

// HashInput renders the canonical digest input for an entry:
// "{entry_id}:{speaker_id}:{operation}:{action}:{timestamp}:{prev_hash}"
// with the timestamp as integer Unix nanoseconds. Independent verifiers
// reproduce this byte-for-byte.
func HashInput(e Entry) string {
	return fmt.Sprintf("%d:%d:%s:%s:%d:%s",
		e.EntryID, e.SpeakerID, e.Operation, e.Action,
		e.Timestamp.UnixNano(), e.PrevHash)
}

// ComputeHash digests the canonical input and truncates to HashWidth hex
// characters.
func ComputeHash(e Entry) string {
	sum := sha256.Sum256([]byte(HashInput(e)))
	return hex.EncodeToString(sum[:])[:HashWidth]
}

// Fields carries the caller-supplied parts of a new entry. The ledger fills
// in entry id, timestamp, and the hash linkage.
type Fields struct {
	SpeakerID       int
	Operation       string
	Condition       string
	ConditionResult *bool
	Action          string
	Status          expression.Status
	StateBefore     map[string]interface{}
	StateAfter      map[string]interface{}
	BreakReason     string
}

// Query filters a ledger search. Nil / zero-value filters are ignored;
// supplied filters are conjoined.
type Query struct {
	SpeakerID *int
	Operation string
	Action    string
	FromTime  *time.Time
	ToTime    *time.Time
}

// Ledger is the append-only store. Not safe for concurrent use; the kernel
// is single-threaded and synchronous.
type Ledger struct {
	entries  []Entry
	lastHash string
	now      func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		lastHash: GenesisHash,
		now:      time.Now,
	}
}

// Append constructs the next entry, links it to the chain, and returns it.
// Nothing ever updates or removes an appended entry.
func (l *Ledger) Append(f Fields) Entry {
	e := Entry{
		EntryID:         len(l.entries),
		SpeakerID:       f.SpeakerID,
		Operation:       f.Operation,
		Condition:       f.Condition,
		ConditionResult: f.ConditionResult,
		Action:          f.Action,
		Status:          f.Status,
		StateBefore:     f.StateBefore,
		StateAfter:      f.StateAfter,
		Timestamp:       l.now(),
		PrevHash:        l.lastHash,
		BreakReason:     f.BreakReason,
	}
	e.EntryHash = ComputeHash(e)
	l.entries = append(l.entries, e)
	l.lastHash = e.EntryHash
	return e
}

// Read returns the half-open range [from, to), clamped to the ledger.
func (l *Ledger) Read(from, to int) []Entry {
	if from < 0 {
		from = 0
	}
	if to > len(l.entries) {
		to = len(l.entries)
	}
	if from >= to {
		return nil
	}
	out := make([]Entry, to-from)
	copy(out, l.entries[from:to])
	return out
}

// Search returns entries matching every supplied filter.
func (l *Ledger) Search(q Query) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if q.SpeakerID != nil && e.SpeakerID != *q.SpeakerID {
			continue
		}
		if q.Operation != "" && e.Operation != q.Operation {
			continue
		}
		if q.Action != "" && !strings.Contains(e.Action, q.Action) {
			continue
		}
		if q.FromTime != nil && e.Timestamp.Before(*q.FromTime) {
			continue
		}
		if q.ToTime != nil && e.Timestamp.After(*q.ToTime) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Last returns the most recent entry.
func (l *Ledger) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Verify walks the chain and checks, for every entry, that prev_hash equals
// the running expected value and entry_hash matches the recomputation.
// An empty ledger verifies true.
func (l *Ledger) Verify() bool {
	expected := GenesisHash
	for i, e := range l.entries {
		if e.EntryID != i {
			return false
		}
		if e.PrevHash != expected {
			return false
		}
		if e.EntryHash != ComputeHash(e) {
			return false
		}
		expected = e.EntryHash
	}
	return true
}
