// Package expression defines the three-valued expression model evaluated by
// the kernel.
package expression

import "time"

// Status is the three-valued result of an expression evaluation.
// The absence of any status ("silence") is represented by StatusNone and is
// never produced by evaluation.
type Status string

const (
	StatusNone     Status = ""
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBroken   Status = "broken"
)

// Terminal reports whether the status is a produced evaluation result.
func (s Status) Terminal() bool {
	return s == StatusActive || s == StatusInactive || s == StatusBroken
}

// Version is the lifecycle state of an expression record.
type Version string

const (
	VersionCurrent    Version = "current"
	VersionSuperseded Version = "superseded"
	VersionExpired    Version = "expired"
)

// Condition is a kernel-side closure deciding whether an action runs.
// A returned error means the condition failed to evaluate; the evaluator
// treats that as false.
type Condition func() (bool, error)

// Action is a kernel-side closure performing an expression's effect.
// A returned error marks the expression broken; a false result without an
// error is the explicit not-fulfilled sentinel.
type Action func() (bool, error)

// Expression is a submitted expression record. The kernel owns the store;
// status and version evolve as evaluations and supersessions happen.
type Expression struct {
	ID             int
	Speaker        int
	Condition      Condition
	ConditionLabel string
	Action         string
	ActionFn       Action
	CreatedAt      time.Time
	Version        Version
	Status         Status
	IsRefusal      bool
	ScopeUntil     *time.Time
	LoopCondition  Condition
	LoopMax        int
}

// SameClass reports whether two expressions belong to the same supersession
// equivalence class: identical (speaker, condition_label, action). The rule
// keys on the human-readable condition label, which is fragile but part of
// the compatibility surface.
func (e *Expression) SameClass(other *Expression) bool {
	return e.Speaker == other.Speaker &&
		e.ConditionLabel == other.ConditionLabel &&
		e.Action == other.Action
}
