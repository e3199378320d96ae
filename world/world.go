// Package world implements named multi-member containers over the kernel:
// scoped membership, per-member permissions, namespaced variables, and audit
// views. The layer is a policy overlay only: every call is gated by
// membership and permission checks and then routed through kernel
// operations, so partitioning is never weakened.
package world

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/logica-lang/logica/domain/bus"
	"github.com/logica-lang/logica/domain/expression"
	"github.com/logica-lang/logica/domain/ledger"
	"github.com/logica-lang/logica/infrastructure/errors"
	"github.com/logica-lang/logica/infrastructure/logging"
	"github.com/logica-lang/logica/kernel"
)

// Status is the lifecycle state of a world.
type Status string

const (
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// Permissions is the per-member capability record.
type Permissions struct {
	Read      bool
	Write     bool
	Submit    bool
	Request   bool
	Invite    bool
	Configure bool
}

// FullPermissions grants everything; the creator receives these.
func FullPermissions() Permissions {
	return Permissions{Read: true, Write: true, Submit: true, Request: true, Invite: true, Configure: true}
}

// Member records one speaker's standing in a world.
type Member struct {
	Permissions Permissions
	JoinedAt    time.Time
	Role        string
}

// World is one container record.
type World struct {
	WorldID   int
	Name      string
	Creator   int
	CreatedAt time.Time
	Status    Status
	Members   map[int]*Member
}

// AuditEntry is one row of the audit view.
type AuditEntry struct {
	EntryID     int
	Speaker     string
	Operation   string
	Action      string
	Status      expression.Status
	Timestamp   time.Time
	BreakReason string
}

// Manager owns the world records and routes every mutation through the
// kernel.
type Manager struct {
	kernel *kernel.Kernel
	worlds map[int]*World
	nextID int
	logger *logging.Logger
	now    func() time.Time
}

// New creates a world manager over a kernel.
func New(k *kernel.Kernel, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		kernel: k,
		worlds: make(map[int]*World),
		nextID: 1,
		logger: logger,
		now:    time.Now,
	}
}

// VarKey is the physical storage key for a world variable: the world layer
// never writes outside the owner's partition, only under this prefix.
func VarKey(worldID, owner int, name string) string {
	return fmt.Sprintf("%d.%d.%s", worldID, owner, name)
}

// CreateWorld allocates a world, grants the creator full permissions, and
// receipts the creation through the kernel.
func (m *Manager) CreateWorld(creator int, name string) (*World, error) {
	w := &World{
		WorldID:   m.nextID,
		Name:      name,
		Creator:   creator,
		CreatedAt: m.now(),
		Status:    StatusOpen,
		Members:   map[int]*Member{},
	}

	_, status := m.kernel.Submit(kernel.SubmitInput{
		Speaker:        creator,
		ConditionLabel: "world",
		Action:         fmt.Sprintf("world:%d:create:%s", w.WorldID, name),
		ActionFn:       func() (bool, error) { return true, nil },
	})
	if status != expression.StatusActive {
		return nil, errors.NotAuthenticated(creator)
	}

	w.Members[creator] = &Member{
		Permissions: FullPermissions(),
		JoinedAt:    m.now(),
		Role:        "creator",
	}
	m.worlds[w.WorldID] = w
	m.nextID++
	m.kernel.Metrics().WorldsTotal.Inc()
	m.logger.WithFields(map[string]interface{}{
		"world_id": w.WorldID,
		"creator":  creator,
	}).Info("world created")
	return w, nil
}

// InviteToWorld admits the target with the given permissions. Requires the
// inviter's invite permission and an open world.
func (m *Manager) InviteToWorld(inviter, target, worldID int, perms Permissions) error {
	w, member, err := m.requireMember(worldID, inviter)
	if err != nil {
		return err
	}
	if !member.Permissions.Invite {
		return errors.PermissionDenied(worldID, inviter, "invite")
	}
	if _, ok := w.Members[target]; ok {
		return errors.New(errors.ErrCodeAlreadyMember, "target is already a member").
			WithDetails("world", worldID).
			WithDetails("target", target)
	}

	_, status := m.kernel.Submit(kernel.SubmitInput{
		Speaker:        inviter,
		ConditionLabel: "world",
		Action:         fmt.Sprintf("world:%d:invite:%d", worldID, target),
		ActionFn:       func() (bool, error) { return true, nil },
	})
	if status != expression.StatusActive {
		return errors.NotAuthenticated(inviter)
	}

	w.Members[target] = &Member{Permissions: perms, JoinedAt: m.now(), Role: "member"}
	return nil
}

// JoinWorld admits a speaker who joins on their own initiative.
func (m *Manager) JoinWorld(speaker, worldID int, perms Permissions) error {
	w, err := m.requireOpen(worldID)
	if err != nil {
		return err
	}
	if _, ok := w.Members[speaker]; ok {
		return errors.New(errors.ErrCodeAlreadyMember, "speaker is already a member").
			WithDetails("world", worldID).
			WithDetails("speaker", speaker)
	}

	_, status := m.kernel.Submit(kernel.SubmitInput{
		Speaker:        speaker,
		ConditionLabel: "world",
		Action:         fmt.Sprintf("world:%d:join", worldID),
		ActionFn:       func() (bool, error) { return true, nil },
	})
	if status != expression.StatusActive {
		return errors.NotAuthenticated(speaker)
	}

	w.Members[speaker] = &Member{Permissions: perms, JoinedAt: m.now(), Role: "member"}
	return nil
}

// LeaveWorld removes a member. The creator cannot leave their own world.
func (m *Manager) LeaveWorld(speaker, worldID int) error {
	w, _, err := m.requireMember(worldID, speaker)
	if err != nil {
		return err
	}
	if speaker == w.Creator {
		return errors.New(errors.ErrCodeNotWorldCreator, "the creator cannot leave their world").
			WithDetails("world", worldID)
	}

	_, status := m.kernel.Submit(kernel.SubmitInput{
		Speaker:        speaker,
		ConditionLabel: "world",
		Action:         fmt.Sprintf("world:%d:leave", worldID),
		ActionFn:       func() (bool, error) { return true, nil },
	})
	if status != expression.StatusActive {
		return errors.NotAuthenticated(speaker)
	}

	delete(w.Members, speaker)
	return nil
}

// ArchiveWorld ends a world. Creator-only; an archived world rejects every
// mutating operation thereafter.
func (m *Manager) ArchiveWorld(caller, worldID int) error {
	w, ok := m.worlds[worldID]
	if !ok {
		return errors.New(errors.ErrCodeWorldNotFound, "no such world").
			WithDetails("world", worldID)
	}
	if caller != w.Creator {
		return errors.New(errors.ErrCodeNotWorldCreator, "only the creator may archive").
			WithDetails("world", worldID).
			WithDetails("caller", caller)
	}

	_, status := m.kernel.Submit(kernel.SubmitInput{
		Speaker:        caller,
		ConditionLabel: "world",
		Action:         fmt.Sprintf("world:%d:archive", worldID),
		ActionFn:       func() (bool, error) { return true, nil },
	})
	if status != expression.StatusActive {
		return errors.NotAuthenticated(caller)
	}

	w.Status = StatusArchived
	return nil
}

// WorldWrite writes a namespaced variable into the speaker's own partition.
func (m *Manager) WorldWrite(speaker, worldID int, name string, value interface{}) error {
	w, member, err := m.requireMember(worldID, speaker)
	if err != nil {
		return err
	}
	if w.Status != StatusOpen {
		return errors.New(errors.ErrCodeWorldClosed, "world does not accept writes").
			WithDetails("world", worldID).
			WithDetails("status", string(w.Status))
	}
	if !member.Permissions.Write {
		return errors.PermissionDenied(worldID, speaker, "write")
	}

	if !m.kernel.Write(speaker, VarKey(worldID, speaker, name), value) {
		return errors.New(errors.ErrCodeInternal, "kernel rejected the write").
			WithDetails("world", worldID).
			WithDetails("variable", name)
	}
	return nil
}

// WorldRead reads another member's namespaced variable through the kernel.
func (m *Manager) WorldRead(caller, worldID, owner int, name string) (interface{}, error) {
	_, member, err := m.requireMember(worldID, caller)
	if err != nil {
		return nil, err
	}
	if !member.Permissions.Read {
		return nil, errors.PermissionDenied(worldID, caller, "read")
	}
	return m.kernel.Read(caller, owner, VarKey(worldID, owner, name)), nil
}

// WorldRequest sends a directed request between two members.
func (m *Manager) WorldRequest(caller, target, worldID int, action string, data interface{}) (*bus.Request, error) {
	w, member, err := m.requireMember(worldID, caller)
	if err != nil {
		return nil, err
	}
	if !member.Permissions.Request {
		return nil, errors.PermissionDenied(worldID, caller, "request")
	}
	if _, ok := w.Members[target]; !ok {
		return nil, errors.New(errors.ErrCodeNotMember, "target is not a member").
			WithDetails("world", worldID).
			WithDetails("target", target)
	}

	r, ok := m.kernel.Request(caller, target, fmt.Sprintf("world:%d:%s", worldID, action), data, 0)
	if !ok {
		return nil, errors.NotAuthenticated(caller)
	}
	return r, nil
}

// Audit returns the world's slice of the ledger: entries by members plus
// entries whose action mentions the world id, optionally bounded in time.
func (m *Manager) Audit(caller, worldID int, fromTime, toTime *time.Time) ([]AuditEntry, error) {
	w, member, err := m.requireMember(worldID, caller)
	if err != nil {
		return nil, err
	}
	if !member.Permissions.Read {
		return nil, errors.PermissionDenied(worldID, caller, "read")
	}

	entries := m.kernel.LedgerSearch(caller, ledger.Query{FromTime: fromTime, ToTime: toTime})
	var out []AuditEntry
	for _, e := range entries {
		_, isMember := w.Members[e.SpeakerID]
		if !isMember && !mentionsWorld(e.Action, worldID) {
			continue
		}
		out = append(out, AuditEntry{
			EntryID:     e.EntryID,
			Speaker:     m.kernel.SpeakerName(e.SpeakerID),
			Operation:   e.Operation,
			Action:      e.Action,
			Status:      e.Status,
			Timestamp:   e.Timestamp,
			BreakReason: e.BreakReason,
		})
	}
	m.logger.WithFields(map[string]interface{}{
		"world_id": worldID,
		"caller":   caller,
		"entries":  len(out),
	}).Info("world audit")
	return out, nil
}

// Get returns a world record.
func (m *Manager) Get(worldID int) (*World, bool) {
	w, ok := m.worlds[worldID]
	return w, ok
}

// ListWorlds returns the worlds visible to the caller, ordered by id.
func (m *Manager) ListWorlds(caller int) []*World {
	var out []*World
	for _, w := range m.worlds {
		if _, ok := w.Members[caller]; ok {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorldID < out[j].WorldID })
	return out
}

// SpeakerName resolves a display name through the kernel registry.
func (m *Manager) SpeakerName(id int) string {
	return m.kernel.SpeakerName(id)
}

// mentionsWorld matches actions that contain "world:{id}" anywhere (a plain
// substring test, so "world:30" also matches id 3) or that are memory ops on
// a "{id}." variable key.
func mentionsWorld(action string, worldID int) bool {
	if strings.Contains(action, fmt.Sprintf("world:%d", worldID)) {
		return true
	}
	prefix := fmt.Sprintf("%d.", worldID)
	for _, op := range []string{"write:", "read:", "seal:"} {
		if strings.HasPrefix(action, op+prefix) {
			return true
		}
	}
	return false
}

func (m *Manager) requireOpen(worldID int) (*World, error) {
	w, ok := m.worlds[worldID]
	if !ok {
		return nil, errors.New(errors.ErrCodeWorldNotFound, "no such world").
			WithDetails("world", worldID)
	}
	if w.Status == StatusArchived {
		return nil, errors.New(errors.ErrCodeWorldClosed, "world is archived").
			WithDetails("world", worldID)
	}
	return w, nil
}

func (m *Manager) requireMember(worldID, speaker int) (*World, *Member, error) {
	w, err := m.requireOpen(worldID)
	if err != nil {
		return nil, nil, err
	}
	member, ok := w.Members[speaker]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeNotMember, "speaker is not a member").
			WithDetails("world", worldID).
			WithDetails("speaker", speaker)
	}
	return w, member, nil
}
