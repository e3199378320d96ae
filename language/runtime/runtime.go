// Package runtime executes compiled operation lists by calling kernel
// operations on behalf of the active speaker. It is the bridge between the
// language and the trust root: every variable write goes through the kernel,
// every operation leaves a ledger receipt, every speaker is authenticated.
//
// Function locals never touch kernel memory. They live only in the bridge's
// scope stack, so audits and variable history show partition state alone.
package runtime

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/logica-lang/logica/domain/expression"
	"github.com/logica-lang/logica/domain/registry"
	"github.com/logica-lang/logica/domain/value"
	"github.com/logica-lang/logica/infrastructure/errors"
	"github.com/logica-lang/logica/infrastructure/logging"
	"github.com/logica-lang/logica/kernel"
	"github.com/logica-lang/logica/language/ast"
	"github.com/logica-lang/logica/language/compiler"
	"github.com/logica-lang/logica/world"
)

// Environment is the mutable state of one program run.
type Environment struct {
	Kernel *kernel.Kernel
	Worlds *world.Manager

	SpeakerIDs       map[string]int
	WorldIDs         map[string]int
	CurrentSpeaker   string
	CurrentSpeakerID int

	Functions   map[string]compiler.FunctionDef
	LocalScopes []map[string]interface{}
	Sealed      map[string]bool

	Output      []string
	ReturnValue interface{}
	Returning   bool
}

// Runtime executes a compiled program through the kernel.
type Runtime struct {
	env    *Environment
	logger *logging.Logger
	quiet  bool
	out    io.Writer
}

// Option configures a runtime.
type Option func(*Runtime)

// WithKernel runs against an existing kernel instead of booting a fresh one.
func WithKernel(k *kernel.Kernel) Option {
	return func(r *Runtime) { r.env.Kernel = k }
}

// WithQuiet suppresses program output; it stays captured in the environment.
func WithQuiet() Option {
	return func(r *Runtime) { r.quiet = true }
}

// WithOutput redirects program output.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// New creates a runtime with a booted kernel and world manager.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		env: &Environment{
			SpeakerIDs:       make(map[string]int),
			WorldIDs:         make(map[string]int),
			Functions:        make(map[string]compiler.FunctionDef),
			Sealed:           make(map[string]bool),
			CurrentSpeakerID: -1,
		},
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	if r.env.Kernel == nil {
		r.env.Kernel = kernel.New(kernel.WithLogger(r.logger))
	}
	r.env.Worlds = world.New(r.env.Kernel, r.logger)
	return r
}

// Env exposes the run state for hosts and the CLI footer.
func (r *Runtime) Env() *Environment {
	return r.env
}

// Execute runs a compiled program. The returned error is fatal for the run:
// an explicit fail statement, an exhausted loop bound, or a rejected
// operation such as a write to a sealed variable or a request to an unknown
// speaker.
func (r *Runtime) Execute(compiled *compiler.CompiledProgram) error {
	for key, def := range compiled.Functions {
		r.env.Functions[key] = def
	}
	for _, op := range compiled.Operations {
		if r.env.Returning {
			break
		}
		if err := r.executeOp(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) executeOp(op compiler.Operation) error {
	switch op.Op {
	case compiler.OpCreateSpeaker:
		return r.opCreateSpeaker(op)
	case compiler.OpSetSpeaker:
		return r.opSetSpeaker(op)
	case compiler.OpWriteVar:
		return r.writeVar(op.Name, op.Value)
	case compiler.OpSpeakOutput:
		return r.speak(op.Value)
	case compiler.OpWhenEval:
		return r.execWhen(op.Condition, op.Body, op.OtherwiseBody, op.BrokenBody)
	case compiler.OpIfEval:
		return r.execIf(op.Condition, op.Body, op.ElifClauses, op.ElseBody)
	case compiler.OpLoop:
		return r.execLoop(op.Condition, op.MaxExpr, op.Body, op.Line)
	case compiler.OpFnDefine:
		r.defineFn(op.Name, op.Params, op.Body)
		return nil
	case compiler.OpReturn:
		return r.execReturn(op.Value)
	case compiler.OpRequest:
		return r.execRequest(op.Target, op.Value)
	case compiler.OpRespond:
		return r.execRespond(op.Accept)
	case compiler.OpInspect:
		return r.execInspect(op.Value)
	case compiler.OpHistory:
		return r.execHistory(op.Value)
	case compiler.OpLedgerRead:
		return r.execLedgerRead(op.CountExpr)
	case compiler.OpLedgerVerify:
		r.execLedgerVerify()
		return nil
	case compiler.OpSeal:
		return r.execSeal(op.Name)
	case compiler.OpFail:
		return r.execFail(op.Value)
	case compiler.OpPass:
		return nil
	case compiler.OpCreateWorld:
		return r.opCreateWorld(op)
	case compiler.OpEvalExpr:
		_, err := r.evalExpr(op.Value)
		return err
	}
	return nil
}

// ── Operation handlers ────────────────────────────────────────────────

func (r *Runtime) opCreateSpeaker(op compiler.Operation) error {
	s, ok := r.env.Kernel.CreateSpeaker(registry.RootID, op.Name)
	if !ok {
		return errors.New(errors.ErrCodeInternal, "kernel rejected speaker creation").
			WithDetails("name", op.Name)
	}
	r.env.SpeakerIDs[op.Name] = s.ID
	return nil
}

func (r *Runtime) opSetSpeaker(op compiler.Operation) error {
	id, ok := r.env.SpeakerIDs[op.Name]
	if !ok {
		return errors.New(errors.ErrCodeInternal, "unknown speaker in set_speaker").
			WithDetails("name", op.Name)
	}
	r.env.CurrentSpeaker = op.Name
	r.env.CurrentSpeakerID = id
	r.env.Kernel.SetSpeaker(id)
	return nil
}

func (r *Runtime) opCreateWorld(op compiler.Operation) error {
	creator := r.env.CurrentSpeakerID
	if creator < 0 {
		creator = registry.RootID
	}
	w, err := r.env.Worlds.CreateWorld(creator, op.Name)
	if err != nil {
		return err
	}
	r.env.WorldIDs[op.Name] = w.WorldID
	r.say(fmt.Sprintf("  [%s] world created: %s", r.speakerLabel(), op.Name))
	return nil
}

func (r *Runtime) writeVar(name string, valueExpr ast.Expression) error {
	v, err := r.evalExpr(valueExpr)
	if err != nil {
		return err
	}

	sid := r.env.CurrentSpeakerID
	if sid < 0 {
		return errors.New(errors.ErrCodeInternal, "no active speaker for write")
	}

	if r.env.Sealed[fmt.Sprintf("%s.%s", r.env.CurrentSpeaker, name)] {
		return errors.New(errors.ErrCodeWriteViolation,
			fmt.Sprintf("variable '%s' is sealed and cannot be modified", name))
	}

	// Function locals stay in the scope stack; kernel memory never sees them.
	if len(r.env.LocalScopes) > 0 {
		r.env.LocalScopes[len(r.env.LocalScopes)-1][name] = v
		return nil
	}

	if !r.env.Kernel.Write(sid, name, v) {
		return errors.New(errors.ErrCodeInternal,
			fmt.Sprintf("write failed for variable '%s'", name))
	}
	return nil
}

func (r *Runtime) speak(valueExpr ast.Expression) error {
	v, err := r.evalExpr(valueExpr)
	if err != nil {
		return err
	}

	r.env.Kernel.Submit(kernel.SubmitInput{
		Speaker:        r.env.CurrentSpeakerID,
		ConditionLabel: "speak",
		Action:         fmt.Sprintf("speak:%s", value.Repr(v)),
		ActionFn:       func() (bool, error) { return true, nil },
	})

	r.say(fmt.Sprintf("  [%s] %s", r.speakerLabel(), value.Render(v)))
	return nil
}

// execWhen is the three-valued conditional: the condition picks the active
// or inactive arm; a failed condition or a failed body lands on broken.
func (r *Runtime) execWhen(condition ast.Expression, body, otherwiseBody, brokenBody []ast.Statement) error {
	sid := r.env.CurrentSpeakerID

	condVal, condErr := r.evalExpr(condition)

	switch {
	case condErr == nil && value.Truthy(condVal):
		if err := r.executeStatements(body); err != nil {
			r.env.Kernel.Submit(kernel.SubmitInput{
				Speaker:        sid,
				Condition:      func() (bool, error) { return true, nil },
				ConditionLabel: "when:broken",
				Action:         "when_block",
				ActionFn:       func() (bool, error) { return false, nil },
			})
			return r.executeStatements(brokenBody)
		}
		r.env.Kernel.Submit(kernel.SubmitInput{
			Speaker:        sid,
			Condition:      func() (bool, error) { return true, nil },
			ConditionLabel: "when:active",
			Action:         "when_block",
			ActionFn:       func() (bool, error) { return true, nil },
		})
		return nil

	case condErr == nil:
		r.env.Kernel.Submit(kernel.SubmitInput{
			Speaker:        sid,
			Condition:      func() (bool, error) { return false, nil },
			ConditionLabel: "when:inactive",
			Action:         "when_block",
		})
		return r.executeStatements(otherwiseBody)

	default:
		r.env.Kernel.Submit(kernel.SubmitInput{
			Speaker:        sid,
			Condition:      func() (bool, error) { return true, nil },
			ConditionLabel: "when:broken",
			Action:         "when_block",
			ActionFn:       func() (bool, error) { return false, nil },
		})
		return r.executeStatements(brokenBody)
	}
}

func (r *Runtime) execIf(condition ast.Expression, body []ast.Statement, elifClauses []ast.ElifClause, elseBody []ast.Statement) error {
	condVal, err := r.evalExpr(condition)
	if err != nil {
		return err
	}
	if value.Truthy(condVal) {
		return r.executeStatements(body)
	}

	for _, clause := range elifClauses {
		clauseVal, err := r.evalExpr(clause.Condition)
		if err != nil {
			return err
		}
		if value.Truthy(clauseVal) {
			return r.executeStatements(clause.Body)
		}
	}

	return r.executeStatements(elseBody)
}

// execLoop drives the kernel's bounded loop protocol with closures over the
// condition subtree and the body statements.
func (r *Runtime) execLoop(condition ast.Expression, maxExpr ast.Expression, body []ast.Statement, line int) error {
	maxVal, err := r.evalExpr(maxExpr)
	if err != nil {
		return err
	}
	maxIter, ok := toInt(maxVal)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "loop max must be a number").
			WithDetails("line", line)
	}

	var execErr error
	loopCondition := func() (bool, error) {
		if r.env.Returning {
			return false, nil
		}
		condVal, err := r.evalExpr(condition)
		if err != nil {
			execErr = err
			return false, err
		}
		return value.Truthy(condVal), nil
	}
	runBody := func() (bool, error) {
		if err := r.executeStatements(body); err != nil {
			execErr = err
			return false, err
		}
		return true, nil
	}

	_, status, _ := r.env.Kernel.SubmitLoop(kernel.SubmitInput{
		Speaker:        r.env.CurrentSpeakerID,
		ConditionLabel: fmt.Sprintf("while:L%d", line),
		Action:         fmt.Sprintf("loop:L%d", line),
		ActionFn:       runBody,
	}, loopCondition, maxIter)

	if execErr != nil {
		return execErr
	}
	if status == expression.StatusBroken {
		// Bound exhaustion is fatal for the run.
		return errors.LoopExceeded(maxIter)
	}
	return nil
}

func (r *Runtime) defineFn(name string, params []string, body []ast.Statement) {
	key := fmt.Sprintf("%s.%s", r.env.CurrentSpeaker, name)
	r.env.Functions[key] = compiler.FunctionDef{
		Speaker: r.env.CurrentSpeaker,
		Params:  params,
		Body:    body,
	}
}

func (r *Runtime) execReturn(valueExpr ast.Expression) error {
	if valueExpr != nil {
		v, err := r.evalExpr(valueExpr)
		if err != nil {
			return err
		}
		r.env.ReturnValue = v
	} else {
		r.env.ReturnValue = nil
	}
	r.env.Returning = true
	return nil
}

func (r *Runtime) execRequest(targetName string, actionExpr ast.Expression) error {
	actionVal, err := r.evalExpr(actionExpr)
	if err != nil {
		return err
	}
	action := value.Render(actionVal)

	targetID, ok := r.env.SpeakerIDs[targetName]
	if !ok {
		return errors.New(errors.ErrCodeTargetNotFound,
			fmt.Sprintf("target speaker '%s' not found", targetName))
	}

	if _, ok := r.env.Kernel.Request(r.env.CurrentSpeakerID, targetID, action, nil, 0); !ok {
		return errors.New(errors.ErrCodeInternal, "kernel rejected the request")
	}
	r.say(fmt.Sprintf("  [%s] request -> %s: %s", r.speakerLabel(), targetName, action))
	return nil
}

// execRespond answers the oldest pending request addressed to the active
// speaker. No pending request is a quiet no-op.
func (r *Runtime) execRespond(accept bool) error {
	sid := r.env.CurrentSpeakerID
	pending := r.env.Kernel.PendingRequests(sid)
	if len(pending) == 0 {
		return nil
	}
	req := pending[0]
	if _, ok := r.env.Kernel.Respond(sid, req.RequestID, accept, nil); !ok {
		return nil
	}
	verdict := "refused"
	if accept {
		verdict = "accepted"
	}
	r.say(fmt.Sprintf("  [%s] %s request #%d", r.speakerLabel(), verdict, req.RequestID))
	return nil
}

func (r *Runtime) execInspect(target ast.Expression) error {
	sid := r.env.CurrentSpeakerID

	if speakerName, varName, ok := r.inspectTarget(target); ok {
		ownerID, known := r.env.SpeakerIDs[speakerName]
		if !known {
			ownerID = sid
		}
		v := r.env.Kernel.Read(sid, ownerID, varName)
		r.say(fmt.Sprintf("  --- inspect %s.%s ---", speakerName, varName))
		r.say(fmt.Sprintf("  value: %s", value.Render(v)))
		r.say("  ---")
		return nil
	}

	if ident, ok := target.(*ast.Identifier); ok {
		if targetID, known := r.env.SpeakerIDs[ident.Name]; known {
			info, ok := r.env.Kernel.InspectSpeaker(sid, targetID)
			if !ok {
				return nil
			}
			r.say(fmt.Sprintf("  --- inspect %s ---", ident.Name))
			r.say(fmt.Sprintf("  speaker: %s (#%d)", info.Speaker.Name, info.Speaker.ID))
			r.say(fmt.Sprintf("  status:  %s", info.Speaker.Status))
			r.say(fmt.Sprintf("  vars:    %v", info.Variables))
			r.say(fmt.Sprintf("  exprs:   %d", len(info.Expressions)))
			tail := info.Expressions
			if len(tail) > 5 {
				tail = tail[len(tail)-5:]
			}
			for _, e := range tail {
				r.say(fmt.Sprintf("    #%d: %s -> %s", e.ID, e.Action, statusLabel(e.Status)))
			}
			r.say("  ---")
		}
	}
	return nil
}

func (r *Runtime) execHistory(target ast.Expression) error {
	speakerName, varName, ok := r.inspectTarget(target)
	if !ok {
		return nil
	}
	sid := r.env.CurrentSpeakerID
	ownerID, known := r.env.SpeakerIDs[speakerName]
	if !known {
		ownerID = sid
	}

	info, found := r.env.Kernel.InspectVariable(sid, ownerID, varName)
	if !found {
		return nil
	}
	r.say(fmt.Sprintf("  --- history %s.%s ---", speakerName, varName))
	r.say(fmt.Sprintf("  current: %s", value.Render(info.CurrentValue)))
	for _, e := range info.History {
		r.say(fmt.Sprintf("    #%d: %v -> %v", e.EntryID, e.StateBefore["value"], e.StateAfter["value"]))
	}
	r.say("  ---")
	return nil
}

func (r *Runtime) execLedgerRead(countExpr ast.Expression) error {
	sid := r.env.CurrentSpeakerID
	total, ok := r.env.Kernel.LedgerCount(sid)
	if !ok {
		return nil
	}

	count := total
	if countExpr != nil {
		countVal, err := r.evalExpr(countExpr)
		if err != nil {
			return err
		}
		if n, ok := toInt(countVal); ok && n < count {
			count = n
		}
	}

	entries := r.env.Kernel.LedgerRead(sid, total-count, total)
	r.say(fmt.Sprintf("  --- ledger (last %d of %d) ---", count, total))
	for _, e := range entries {
		r.say(fmt.Sprintf("    #%d [%8s] %s: %s",
			e.EntryID, statusLabel(e.Status), r.env.Kernel.SpeakerName(e.SpeakerID), e.Action))
	}
	r.say("  ---")
	return nil
}

func (r *Runtime) execLedgerVerify() {
	if r.env.Kernel.LedgerVerify() {
		r.say("  ledger integrity: VALID")
	} else {
		r.say("  ledger integrity: BROKEN")
	}
}

func (r *Runtime) execSeal(name string) error {
	r.env.Sealed[fmt.Sprintf("%s.%s", r.env.CurrentSpeaker, name)] = true
	r.env.Kernel.Seal(r.env.CurrentSpeakerID, name)
	r.say(fmt.Sprintf("  [%s] sealed: %s", r.speakerLabel(), name))
	return nil
}

func (r *Runtime) execFail(reasonExpr ast.Expression) error {
	reason := "explicit fail"
	if reasonExpr != nil {
		v, err := r.evalExpr(reasonExpr)
		if err != nil {
			return err
		}
		reason = value.Render(v)
	}

	r.env.Kernel.Submit(kernel.SubmitInput{
		Speaker:        r.env.CurrentSpeakerID,
		Condition:      func() (bool, error) { return true, nil },
		ConditionLabel: "fail",
		Action:         fmt.Sprintf("fail:%s", reason),
		ActionFn:       func() (bool, error) { return false, nil },
	})
	return errors.ExplicitFail(reason)
}

// ── Statement execution for nested blocks ─────────────────────────────

func (r *Runtime) executeStatements(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if r.env.Returning {
			return nil
		}
		if err := r.executeStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) executeStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		return r.writeVar(s.Name, s.Value)
	case *ast.SpeakStatement:
		return r.speak(s.Value)
	case *ast.WhenBlock:
		return r.execWhen(s.Condition, s.Body, s.OtherwiseBody, s.BrokenBody)
	case *ast.IfStatement:
		return r.execIf(s.Condition, s.Body, s.ElifClauses, s.ElseBody)
	case *ast.WhileLoop:
		line, _ := s.Pos()
		return r.execLoop(s.Condition, s.MaxIterations, s.Body, line)
	case *ast.ReturnStatement:
		return r.execReturn(s.Value)
	case *ast.RequestStatement:
		return r.execRequest(s.Target, s.Action)
	case *ast.RespondStatement:
		return r.execRespond(s.Accept)
	case *ast.InspectStatement:
		return r.execInspect(s.Target)
	case *ast.HistoryStatement:
		return r.execHistory(s.Target)
	case *ast.LedgerStatement:
		return r.execLedgerRead(s.Count)
	case *ast.VerifyStatement:
		r.execLedgerVerify()
		return nil
	case *ast.SealStatement:
		return r.execSeal(s.Target)
	case *ast.FnDecl:
		r.defineFn(s.Name, s.Params, s.Body)
		return nil
	case *ast.AsBlock:
		priorName, priorID := r.env.CurrentSpeaker, r.env.CurrentSpeakerID
		if err := r.opSetSpeaker(compiler.Operation{Op: compiler.OpSetSpeaker, Name: s.SpeakerName}); err != nil {
			return err
		}
		err := r.executeStatements(s.Body)
		r.env.CurrentSpeaker, r.env.CurrentSpeakerID = priorName, priorID
		return err
	case *ast.PassStatement:
		return nil
	case *ast.FailStatement:
		return r.execFail(s.Reason)
	case *ast.ExpressionStatement:
		_, err := r.evalExpr(s.Expr)
		return err
	}
	return nil
}

// ── Expression evaluation ─────────────────────────────────────────────

func (r *Runtime) evalExpr(node ast.Expression) (interface{}, error) {
	switch n := node.(type) {
	case nil:
		return nil, nil
	case *ast.IntegerLiteral:
		return n.Value, nil
	case *ast.FloatLiteral:
		return n.Value, nil
	case *ast.StringLiteral:
		return n.Value, nil
	case *ast.BooleanLiteral:
		return n.Value, nil
	case *ast.NoneLiteral:
		return nil, nil
	case *ast.StatusLiteral:
		return expression.Status(n.Value), nil
	case *ast.Identifier:
		return r.resolveIdentifier(n.Name), nil
	case *ast.MemberAccess:
		return r.evalMemberAccess(n)
	case *ast.BinaryOp:
		left, err := r.evalExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.evalExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return value.Binary(n.Op, left, right), nil
	case *ast.UnaryOp:
		operand, err := r.evalExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		if n.Op == "not" {
			return !value.Truthy(operand), nil
		}
		return value.Negate(operand), nil
	case *ast.FnCall:
		return r.evalFnCall(n)
	case *ast.ReadExpr:
		return r.evalExpr(n.Target)
	case *ast.IndexAccess:
		obj, err := r.evalExpr(n.Object)
		if err != nil {
			return nil, err
		}
		idx, err := r.evalExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return value.Index(obj, idx), nil
	}
	return nil, nil
}

// resolveIdentifier checks local scopes innermost first, then the speaker's
// own partition, then speaker names.
func (r *Runtime) resolveIdentifier(name string) interface{} {
	for i := len(r.env.LocalScopes) - 1; i >= 0; i-- {
		if v, ok := r.env.LocalScopes[i][name]; ok {
			return v
		}
	}

	sid := r.env.CurrentSpeakerID
	if sid >= 0 {
		if v := r.env.Kernel.Read(sid, sid, name); v != nil {
			return v
		}
	}

	if _, ok := r.env.SpeakerIDs[name]; ok {
		return name
	}
	return nil
}

// evalMemberAccess reads another speaker's partition when the object is a
// speaker name; otherwise it is plain field access on a compound value.
func (r *Runtime) evalMemberAccess(n *ast.MemberAccess) (interface{}, error) {
	if ident, ok := n.Object.(*ast.Identifier); ok {
		if ownerID, known := r.env.SpeakerIDs[ident.Name]; known {
			return r.env.Kernel.Read(r.env.CurrentSpeakerID, ownerID, n.Member), nil
		}
	}

	obj, err := r.evalExpr(n.Object)
	if err != nil {
		return nil, err
	}
	return value.Member(obj, n.Member), nil
}

func (r *Runtime) evalFnCall(n *ast.FnCall) (interface{}, error) {
	var fnName string
	switch fn := n.Function.(type) {
	case *ast.Identifier:
		fnName = fn.Name
	case *ast.MemberAccess:
		obj, err := r.evalExpr(fn.Object)
		if err != nil {
			return nil, err
		}
		fnName = fmt.Sprintf("%s.%s", value.Render(obj), fn.Member)
	default:
		return nil, nil
	}

	def, ok := r.lookupFn(fnName)
	if !ok {
		return nil, nil
	}

	scope := make(map[string]interface{}, len(def.Params))
	for i, param := range def.Params {
		if i < len(n.Args) {
			arg, err := r.evalExpr(n.Args[i])
			if err != nil {
				return nil, err
			}
			scope[param] = arg
		}
	}

	r.env.LocalScopes = append(r.env.LocalScopes, scope)
	r.env.Returning = false
	r.env.ReturnValue = nil

	err := r.executeStatements(def.Body)

	r.env.LocalScopes = r.env.LocalScopes[:len(r.env.LocalScopes)-1]
	result := r.env.ReturnValue
	r.env.Returning = false
	r.env.ReturnValue = nil

	if err != nil {
		return nil, err
	}
	return result, nil
}

// lookupFn resolves "{speaker}.{name}" first, then any declared "*.{name}".
func (r *Runtime) lookupFn(name string) (compiler.FunctionDef, bool) {
	key := fmt.Sprintf("%s.%s", r.env.CurrentSpeaker, name)
	if def, ok := r.env.Functions[key]; ok {
		return def, true
	}
	if def, ok := r.env.Functions[name]; ok {
		return def, true
	}
	for key, def := range r.env.Functions {
		if strings.HasSuffix(key, "."+name) {
			return def, true
		}
	}
	return compiler.FunctionDef{}, false
}

// ── Helpers ───────────────────────────────────────────────────────────

// inspectTarget reduces an inspect/history target to (speaker, variable).
func (r *Runtime) inspectTarget(target ast.Expression) (string, string, bool) {
	member, ok := target.(*ast.MemberAccess)
	if !ok {
		return "", "", false
	}
	ident, ok := member.Object.(*ast.Identifier)
	if !ok {
		return "", "", false
	}
	return ident.Name, member.Member, true
}

func (r *Runtime) speakerLabel() string {
	if r.env.CurrentSpeaker != "" {
		return r.env.CurrentSpeaker
	}
	return "logica"
}

func (r *Runtime) say(line string) {
	r.env.Output = append(r.env.Output, line)
	if !r.quiet {
		fmt.Fprintln(r.out, line)
	}
}

func statusLabel(s expression.Status) string {
	if s == expression.StatusNone {
		return "-"
	}
	return string(s)
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}
