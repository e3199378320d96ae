// Package kernel implements the trust root: the only legitimate entry point
// over the speaker registry, partitioned memory, request bus, expression
// evaluator, and hash-chained ledger. Every operation authenticates its
// caller; failures are logged as broken ledger entries and returned as
// failure values, never raised.
//
// The kernel is single-threaded and synchronous. Entry points complete
// before another may begin; re-entry is permitted only through expression
// action callbacks, whose nested entries land between the outer evaluation's
// intermediate and terminal entries.
package kernel

import (
	"fmt"
	"time"

	"github.com/logica-lang/logica/domain/bus"
	"github.com/logica-lang/logica/domain/expression"
	"github.com/logica-lang/logica/domain/ledger"
	"github.com/logica-lang/logica/domain/memory"
	"github.com/logica-lang/logica/domain/registry"
	"github.com/logica-lang/logica/domain/value"
	"github.com/logica-lang/logica/infrastructure/logging"
	"github.com/logica-lang/logica/infrastructure/metrics"
)

// RootName is the display name of speaker 0.
const RootName = "root"

// Kernel orchestrates the five subsystems behind one authenticated surface.
type Kernel struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	memory   *memory.Memory
	bus      *bus.Bus

	expressions []*expression.Expression
	nextExprID  int
	sealed      map[string]bool

	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a kernel at construction.
type Option func(*Kernel)

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(k *Kernel) { k.logger = l }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(k *Kernel) { k.metrics = m }
}

// WithClock sets the time source. Tests pin this for deterministic
// scope and timeout behavior.
func WithClock(now func() time.Time) Option {
	return func(k *Kernel) { k.now = now }
}

// New boots a kernel: subsystems initialized, root speaker (id 0) created
// with its partition, and a single boot entry appended.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		ledger:   ledger.New(),
		registry: registry.New(),
		memory:   memory.New(),
		bus:      bus.New(),
		sealed:   make(map[string]bool),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.logger == nil {
		k.logger = logging.Default()
	}
	if k.metrics == nil {
		k.metrics = metrics.New()
	}

	root := k.registry.Create(RootName)
	k.memory.CreatePartition(root.ID)
	k.append(ledger.Fields{
		SpeakerID: root.ID,
		Operation: "boot",
		Action:    "boot",
		Status:    expression.StatusActive,
	})
	return k
}

// Bus exposes the request bus for host-side sweeping.
func (k *Kernel) Bus() *bus.Bus {
	return k.bus
}

// Metrics exposes the kernel's collectors.
func (k *Kernel) Metrics() *metrics.Metrics {
	return k.metrics
}

// append writes one entry and feeds logging and metrics.
func (k *Kernel) append(f ledger.Fields) ledger.Entry {
	e := k.ledger.Append(f)
	k.metrics.LedgerEntriesTotal.Inc()
	k.metrics.RecordOperation(e.Operation, string(e.Status))
	if e.BreakReason != "" {
		k.metrics.RecordBreak(e.BreakReason)
		k.logger.WithSpeaker(e.SpeakerID).WithFields(map[string]interface{}{
			"operation":    e.Operation,
			"break_reason": e.BreakReason,
		}).Warn("kernel break")
	} else {
		k.logger.WithSpeaker(e.SpeakerID).WithFields(map[string]interface{}{
			"entry_id":  e.EntryID,
			"operation": e.Operation,
			"action":    e.Action,
		}).Debug("ledger append")
	}
	return e
}

// authenticate logs a broken entry for the operation when the caller is not
// an alive speaker.
func (k *Kernel) authenticate(caller int, operation string) bool {
	if k.registry.Authenticate(caller) {
		return true
	}
	k.append(ledger.Fields{
		SpeakerID:   caller,
		Operation:   operation,
		Action:      operation,
		Status:      expression.StatusBroken,
		BreakReason: BreakCallerNotAuth,
	})
	return false
}

func (k *Kernel) sealKey(owner int, name string) string {
	return fmt.Sprintf("%d.%s", owner, name)
}

// ── Speakers ──────────────────────────────────────────────────────────

// CreateSpeaker allocates the next speaker id for an authenticated caller
// and creates the new speaker's partition.
func (k *Kernel) CreateSpeaker(caller int, name string) (*registry.Speaker, bool) {
	if !k.authenticate(caller, "create_speaker") {
		return nil, false
	}
	s := k.registry.Create(name)
	k.memory.CreatePartition(s.ID)
	k.append(ledger.Fields{
		SpeakerID:  caller,
		Operation:  "create_speaker",
		Action:     fmt.Sprintf("create_speaker:%s", name),
		Status:     expression.StatusActive,
		StateAfter: map[string]interface{}{"speaker_id": s.ID},
	})
	return s, true
}

// SuspendSpeaker suspends the target. Root-only.
func (k *Kernel) SuspendSpeaker(caller, target int) bool {
	if !k.authenticate(caller, "suspend_speaker") {
		return false
	}
	if caller != registry.RootID {
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "suspend_speaker",
			Action:      fmt.Sprintf("suspend_speaker:%d", target),
			Status:      expression.StatusBroken,
			BreakReason: BreakNotRoot,
		})
		return false
	}
	if !k.registry.Suspend(target) {
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "suspend_speaker",
			Action:      fmt.Sprintf("suspend_speaker:%d", target),
			Status:      expression.StatusBroken,
			BreakReason: BreakTargetNotFound,
		})
		return false
	}
	k.append(ledger.Fields{
		SpeakerID: caller,
		Operation: "suspend_speaker",
		Action:    fmt.Sprintf("suspend_speaker:%d", target),
		Status:    expression.StatusActive,
	})
	return true
}

// ListSpeakers returns every speaker record for an authenticated caller.
func (k *Kernel) ListSpeakers(caller int) []*registry.Speaker {
	if !k.authenticate(caller, "list_speakers") {
		return nil
	}
	return k.registry.ListAll()
}

// SetSpeaker receipts an execution-context switch to the caller: hosts that
// run operations "as" a speaker record the switch before acting under it.
func (k *Kernel) SetSpeaker(caller int) bool {
	if !k.authenticate(caller, "set_speaker") {
		return false
	}
	k.append(ledger.Fields{
		SpeakerID: caller,
		Operation: "set_speaker",
		Action:    fmt.Sprintf("set_speaker:%s", k.SpeakerName(caller)),
		Status:    expression.StatusActive,
	})
	return true
}

// SpeakerName resolves a display name, for renderers.
func (k *Kernel) SpeakerName(id int) string {
	if s, ok := k.registry.Get(id); ok {
		return s.Name
	}
	return fmt.Sprintf("speaker_%d", id)
}

// ── Memory ────────────────────────────────────────────────────────────

// Read returns the owner's variable, or nil when unset. Reads are
// unrestricted among authenticated speakers; each one leaves a read entry.
func (k *Kernel) Read(caller, owner int, name string) interface{} {
	if !k.authenticate(caller, "read") {
		return nil
	}
	v, _ := k.memory.Read(owner, name)
	k.append(ledger.Fields{
		SpeakerID: caller,
		Operation: "read",
		Action:    fmt.Sprintf("read:%s", name),
		Status:    expression.StatusActive,
		StateAfter: map[string]interface{}{
			"owner": owner,
			"value": value.Repr(v),
		},
	})
	return v
}

// Write stores a value in the caller's own partition.
func (k *Kernel) Write(caller int, name string, v interface{}) bool {
	if !k.authenticate(caller, "write") {
		return false
	}
	if k.sealed[k.sealKey(caller, name)] {
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "write",
			Action:      fmt.Sprintf("write:%s", name),
			Status:      expression.StatusBroken,
			BreakReason: BreakWriteFailed,
		})
		return false
	}
	ok, prior := k.memory.Write(caller, name, v)
	if !ok {
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "write",
			Action:      fmt.Sprintf("write:%s", name),
			Status:      expression.StatusBroken,
			BreakReason: BreakWriteFailed,
		})
		return false
	}
	k.append(ledger.Fields{
		SpeakerID:   caller,
		Operation:   "write",
		Action:      fmt.Sprintf("write:%s", name),
		Status:      expression.StatusActive,
		StateBefore: map[string]interface{}{"value": value.Repr(prior)},
		StateAfter:  map[string]interface{}{"value": value.Repr(v)},
	})
	return true
}

// WriteTo exists to make cross-partition attempts observable: a caller
// naming any target other than itself gets a write_violation receipt.
func (k *Kernel) WriteTo(caller, target int, name string, v interface{}) bool {
	if !k.authenticate(caller, "write_to") {
		return false
	}
	if caller != target {
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "write_violation",
			Action:      fmt.Sprintf("write_to:%d.%s", target, name),
			Status:      expression.StatusBroken,
			BreakReason: BreakWriteOwnership,
		})
		return false
	}
	return k.Write(caller, name, v)
}

// Seal makes one of the caller's variables permanently immutable.
// A seal is never released.
func (k *Kernel) Seal(caller int, name string) bool {
	if !k.authenticate(caller, "seal") {
		return false
	}
	k.sealed[k.sealKey(caller, name)] = true
	k.append(ledger.Fields{
		SpeakerID: caller,
		Operation: "seal",
		Action:    fmt.Sprintf("seal:%s", name),
		Status:    expression.StatusActive,
	})
	return true
}

// ListVars returns the names in the owner's partition.
func (k *Kernel) ListVars(caller, owner int) []string {
	if !k.authenticate(caller, "list_vars") {
		return nil
	}
	return k.memory.List(owner)
}

// ── Communication ─────────────────────────────────────────────────────

// Request creates a directed pending request. Fails closed when either
// party is not an alive speaker.
func (k *Kernel) Request(caller, target int, action string, data interface{}, timeout time.Duration) (*bus.Request, bool) {
	if !k.authenticate(caller, "request") {
		return nil, false
	}
	if !k.registry.Authenticate(target) {
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "request",
			Action:      fmt.Sprintf("request:%d:%s", target, action),
			Status:      expression.StatusBroken,
			BreakReason: BreakTargetNotFound,
		})
		return nil, false
	}

	var expiresAt *time.Time
	if timeout > 0 {
		t := k.now().Add(timeout)
		expiresAt = &t
	}
	r := k.bus.Create(caller, target, action, data, expiresAt)
	k.metrics.RecordRequest(string(bus.StatusPending))
	k.append(ledger.Fields{
		SpeakerID:  caller,
		Operation:  "request",
		Action:     fmt.Sprintf("request:%d:%s", target, action),
		Status:     expression.StatusActive,
		StateAfter: map[string]interface{}{"request_id": r.RequestID},
	})
	return r, true
}

// Respond resolves a pending request addressed to the caller.
func (k *Kernel) Respond(caller, requestID int, accept bool, responseData interface{}) (*bus.Request, bool) {
	if !k.authenticate(caller, "respond") {
		return nil, false
	}
	r, err := k.bus.Respond(requestID, caller, accept, responseData)
	if err != nil {
		reason := BreakRequestNotFound
		if existing, ok := k.bus.Get(requestID); ok && existing.Status == bus.StatusPending {
			reason = BreakNotTargetSpeaker
		}
		k.append(ledger.Fields{
			SpeakerID:   caller,
			Operation:   "respond",
			Action:      fmt.Sprintf("respond:%d", requestID),
			Status:      expression.StatusBroken,
			BreakReason: reason,
		})
		return nil, false
	}
	k.metrics.RecordRequest(string(r.Status))
	verdict := "refused"
	if accept {
		verdict = "accepted"
	}
	k.append(ledger.Fields{
		SpeakerID: caller,
		Operation: "respond",
		Action:    fmt.Sprintf("respond:%d:%s", requestID, verdict),
		Status:    expression.StatusActive,
		StateAfter: map[string]interface{}{
			"request_id": r.RequestID,
			"from":       r.FromSpeaker,
		},
	})
	return r, true
}

// PendingRequests returns pending requests addressed to the caller, FIFO.
func (k *Kernel) PendingRequests(caller int) []*bus.Request {
	if !k.authenticate(caller, "pending_requests") {
		return nil
	}
	return k.bus.PendingFor(caller)
}

// CheckTimeouts sweeps the bus once against the kernel clock and records
// each expiration. Hosts call this; the kernel never advances time itself.
func (k *Kernel) CheckTimeouts() []*bus.Request {
	expired := k.bus.CheckTimeouts(k.now())
	for _, r := range expired {
		k.metrics.RecordRequest(string(bus.StatusExpired))
		k.append(ledger.Fields{
			SpeakerID: r.FromSpeaker,
			Operation: "request_expire",
			Action:    fmt.Sprintf("request_expire:%d", r.RequestID),
			StateAfter: map[string]interface{}{
				"request_id": r.RequestID,
				"to":         r.ToSpeaker,
			},
		})
	}
	return expired
}

// ── Ledger views ──────────────────────────────────────────────────────

// LedgerRead returns the clamped half-open range [from, to).
func (k *Kernel) LedgerRead(caller, from, to int) []ledger.Entry {
	if !k.authenticate(caller, "ledger_read") {
		return nil
	}
	return k.ledger.Read(from, to)
}

// LedgerSearch returns entries matching every supplied filter.
func (k *Kernel) LedgerSearch(caller int, q ledger.Query) []ledger.Entry {
	if !k.authenticate(caller, "ledger_search") {
		return nil
	}
	return k.ledger.Search(q)
}

// LedgerCount returns the entry count.
func (k *Kernel) LedgerCount(caller int) (int, bool) {
	if !k.authenticate(caller, "ledger_count") {
		return 0, false
	}
	return k.ledger.Len(), true
}

// LedgerVerify checks the full hash chain. Callable without a principal:
// it is a pure function of the ledger.
func (k *Kernel) LedgerVerify() bool {
	return k.ledger.Verify()
}

// ── Inspection ────────────────────────────────────────────────────────

// ExpressionSummary is one row of a speaker's expression history.
type ExpressionSummary struct {
	ID      int
	Action  string
	Status  expression.Status
	Version expression.Version
}

// SpeakerInfo is the inspection view of one speaker.
type SpeakerInfo struct {
	Speaker         *registry.Speaker
	Variables       []string
	PendingRequests int
	Expressions     []ExpressionSummary
}

// InspectSpeaker returns identity, variable names, pending-request count,
// and an expression summary for the target.
func (k *Kernel) InspectSpeaker(caller, target int) (*SpeakerInfo, bool) {
	if !k.authenticate(caller, "inspect_speaker") {
		return nil, false
	}
	s, ok := k.registry.Get(target)
	if !ok {
		return nil, false
	}
	info := &SpeakerInfo{
		Speaker:         s,
		Variables:       k.memory.List(target),
		PendingRequests: len(k.bus.PendingFor(target)),
	}
	for _, e := range k.expressions {
		if e.Speaker == target {
			info.Expressions = append(info.Expressions, ExpressionSummary{
				ID:      e.ID,
				Action:  e.Action,
				Status:  e.Status,
				Version: e.Version,
			})
		}
	}
	return info, true
}

// VariableInfo is the inspection view of one variable: its current value
// and every write receipt for it.
type VariableInfo struct {
	CurrentValue interface{}
	History      []ledger.Entry
}

// InspectVariable returns the variable history: current value plus all
// write entries for that owner and name.
func (k *Kernel) InspectVariable(caller, owner int, name string) (*VariableInfo, bool) {
	if !k.authenticate(caller, "inspect_variable") {
		return nil, false
	}
	v, _ := k.memory.Read(owner, name)
	info := &VariableInfo{CurrentValue: v}
	action := fmt.Sprintf("write:%s", name)
	for _, e := range k.ledger.Search(ledger.Query{SpeakerID: &owner, Operation: "write"}) {
		if e.Action == action {
			info.History = append(info.History, e)
		}
	}
	return info, true
}
