package kernel

import (
	"time"

	"github.com/logica-lang/logica/domain/expression"
	"github.com/logica-lang/logica/domain/ledger"
)

// SubmitInput carries a new expression. Condition and ActionFn are
// kernel-side closures; no user-supplied native callbacks cross the kernel
// boundary; the runtime bridge closes over syntax subtrees.
type SubmitInput struct {
	Speaker        int
	Condition      expression.Condition
	ConditionLabel string
	Action         string
	ActionFn       expression.Action
	IsRefusal      bool
	ScopeUntil     *time.Time
}

// Submit authenticates the speaker, supersedes any current expression in the
// same (speaker, condition_label, action) class, stores the new expression,
// and evaluates it immediately. The returned status is the terminal result;
// StatusNone means the expression expired before evaluating.
func (k *Kernel) Submit(in SubmitInput) (*expression.Expression, expression.Status) {
	e := k.admit(in, nil, 0)
	if e == nil {
		return nil, expression.StatusBroken
	}
	return e, k.evaluate(e)
}

// SubmitLoop is Submit for a bounded loop: the expression is evaluated
// repeatedly while loopCondition holds, at most loopMax times. Returns the
// terminal status and the number of completed iterations.
func (k *Kernel) SubmitLoop(in SubmitInput, loopCondition expression.Condition, loopMax int) (*expression.Expression, expression.Status, int) {
	e := k.admit(in, loopCondition, loopMax)
	if e == nil {
		return nil, expression.StatusBroken, 0
	}
	status, iterations := k.evaluateLoop(e)
	return e, status, iterations
}

// ExpressionStatus returns the observable status of a stored expression.
func (k *Kernel) ExpressionStatus(caller, id int) (expression.Status, bool) {
	if !k.authenticate(caller, "expression_status") {
		return expression.StatusNone, false
	}
	for _, e := range k.expressions {
		if e.ID == id {
			return e.Status, true
		}
	}
	return expression.StatusNone, false
}

// admit runs the authentication and supersession phases of a submit and
// stores the expression. A nil return means the speaker failed
// authentication (already receipted).
func (k *Kernel) admit(in SubmitInput, loopCondition expression.Condition, loopMax int) *expression.Expression {
	if !k.registry.Authenticate(in.Speaker) {
		k.append(ledger.Fields{
			SpeakerID:   in.Speaker,
			Operation:   "evaluate",
			Condition:   in.ConditionLabel,
			Action:      in.Action,
			Status:      expression.StatusBroken,
			BreakReason: BreakSpeakerNotFound,
		})
		k.metrics.RecordEvaluation(string(expression.StatusBroken))
		return nil
	}

	e := &expression.Expression{
		ID:             k.nextExprID,
		Speaker:        in.Speaker,
		Condition:      in.Condition,
		ConditionLabel: in.ConditionLabel,
		Action:         in.Action,
		ActionFn:       in.ActionFn,
		CreatedAt:      k.now(),
		Version:        expression.VersionCurrent,
		IsRefusal:      in.IsRefusal,
		ScopeUntil:     in.ScopeUntil,
		LoopCondition:  loopCondition,
		LoopMax:        loopMax,
	}
	k.nextExprID++

	// Supersession scans only the current set at submit time.
	for _, prior := range k.expressions {
		if prior.Version == expression.VersionCurrent && prior.SameClass(e) {
			prior.Version = expression.VersionSuperseded
			k.append(ledger.Fields{
				SpeakerID: e.Speaker,
				Operation: "supersede",
				Condition: e.ConditionLabel,
				Action:    e.Action,
				StateAfter: map[string]interface{}{
					"old": prior.ID,
					"new": e.ID,
				},
			})
		}
	}

	k.expressions = append(k.expressions, e)
	k.append(ledger.Fields{
		SpeakerID: e.Speaker,
		Operation: "submit",
		Condition: e.ConditionLabel,
		Action:    e.Action,
		StateAfter: map[string]interface{}{
			"expression_id": e.ID,
		},
	})
	return e
}

// evaluate reduces an expression to a status and appends its ledger entry.
// Deterministic: the same speaker state, memory, condition, and action
// produce the same status and the same entry sequence.
func (k *Kernel) evaluate(e *expression.Expression) expression.Status {
	// Authentication: the speaker may have been suspended since submit.
	if !k.registry.Authenticate(e.Speaker) {
		k.append(ledger.Fields{
			SpeakerID:   e.Speaker,
			Operation:   "evaluate",
			Condition:   e.ConditionLabel,
			Action:      e.Action,
			Status:      expression.StatusBroken,
			BreakReason: BreakSpeakerNotFound,
		})
		k.metrics.RecordEvaluation(string(expression.StatusBroken))
		return expression.StatusBroken
	}

	// Version gate: superseded and expired expressions stay silent.
	if e.Version != expression.VersionCurrent {
		return expression.StatusNone
	}

	// Scope gate.
	if e.ScopeUntil != nil && k.now().After(*e.ScopeUntil) {
		e.Version = expression.VersionExpired
		k.append(ledger.Fields{
			SpeakerID: e.Speaker,
			Operation: "expire",
			Condition: e.ConditionLabel,
			Action:    e.Action,
		})
		return expression.StatusNone
	}

	// Condition: absent means true; a failure to evaluate counts as false.
	var condResult *bool
	if e.Condition != nil {
		held, err := e.Condition()
		held = held && err == nil
		condResult = &held
		if !held {
			e.Status = expression.StatusInactive
			k.append(ledger.Fields{
				SpeakerID:       e.Speaker,
				Operation:       "evaluate",
				Condition:       e.ConditionLabel,
				ConditionResult: condResult,
				Action:          e.Action,
				Status:          expression.StatusInactive,
			})
			k.metrics.RecordEvaluation(string(expression.StatusInactive))
			return expression.StatusInactive
		}
	}

	// Action: an error is a break; false is the not-fulfilled sentinel.
	fulfilled := true
	if e.ActionFn != nil {
		ok, err := e.ActionFn()
		if err != nil {
			e.Status = expression.StatusBroken
			k.append(ledger.Fields{
				SpeakerID:       e.Speaker,
				Operation:       "evaluate",
				Condition:       e.ConditionLabel,
				ConditionResult: condResult,
				Action:          e.Action,
				Status:          expression.StatusBroken,
				BreakReason:     err.Error(),
			})
			k.metrics.RecordEvaluation(string(expression.StatusBroken))
			return expression.StatusBroken
		}
		fulfilled = ok
	}

	// Refusal inversion.
	if e.IsRefusal {
		fulfilled = !fulfilled
	}

	if fulfilled {
		e.Status = expression.StatusActive
		k.append(ledger.Fields{
			SpeakerID:       e.Speaker,
			Operation:       "evaluate",
			Condition:       e.ConditionLabel,
			ConditionResult: condResult,
			Action:          e.Action,
			Status:          expression.StatusActive,
		})
		k.metrics.RecordEvaluation(string(expression.StatusActive))
		return expression.StatusActive
	}

	e.Status = expression.StatusBroken
	k.append(ledger.Fields{
		SpeakerID:       e.Speaker,
		Operation:       "evaluate",
		Condition:       e.ConditionLabel,
		ConditionResult: condResult,
		Action:          e.Action,
		Status:          expression.StatusBroken,
		BreakReason:     BreakActionNotFulfilled,
	})
	k.metrics.RecordEvaluation(string(expression.StatusBroken))
	return expression.StatusBroken
}

// evaluateLoop runs the bounded loop protocol. A loop bound of zero is an
// immediately terminated loop: zero iterations, one loop_end receipt.
func (k *Kernel) evaluateLoop(e *expression.Expression) (expression.Status, int) {
	count := 0
	for count < e.LoopMax {
		if e.LoopCondition != nil {
			held, err := e.LoopCondition()
			if err != nil || !held {
				return k.loopEnd(e, count)
			}
		}
		status := k.evaluate(e)
		if status == expression.StatusBroken || status == expression.StatusInactive {
			return status, count
		}
		count++
	}

	if e.LoopMax <= 0 {
		return k.loopEnd(e, 0)
	}

	e.Status = expression.StatusBroken
	k.append(ledger.Fields{
		SpeakerID:   e.Speaker,
		Operation:   "loop_bound_exceeded",
		Condition:   e.ConditionLabel,
		Action:      e.Action,
		Status:      expression.StatusBroken,
		BreakReason: BreakMaxIterations(e.LoopMax),
		StateAfter:  map[string]interface{}{"iterations": count},
	})
	k.metrics.RecordEvaluation(string(expression.StatusBroken))
	return expression.StatusBroken, count
}

// loopEnd receipts a loop whose condition stopped holding.
func (k *Kernel) loopEnd(e *expression.Expression, iterations int) (expression.Status, int) {
	e.Status = expression.StatusInactive
	k.append(ledger.Fields{
		SpeakerID:  e.Speaker,
		Operation:  "loop_end",
		Condition:  e.ConditionLabel,
		Action:     e.Action,
		Status:     expression.StatusInactive,
		StateAfter: map[string]interface{}{"iterations": iterations},
	})
	k.metrics.RecordEvaluation(string(expression.StatusInactive))
	return expression.StatusInactive, iterations
}
