// Package compiler walks the syntax tree, enforces the static axioms, and
// emits the operation list the runtime bridge executes. A program that
// violates an axiom does not compile: no operations are emitted.
package compiler

import (
	"fmt"
	"strings"

	"github.com/logica-lang/logica/language/ast"
)

// Axiom numbers and names used in diagnostics.
const (
	AxiomSpeakerRequirement = 1
	AxiomSealImmutability   = 5
	AxiomWriteOwnership     = 8
	AxiomBoundedLoops       = 9
)

var axiomNames = map[int]string{
	AxiomSpeakerRequirement: "Speaker Requirement",
	AxiomSealImmutability:   "Seal Immutability",
	AxiomWriteOwnership:     "Write Ownership",
	AxiomBoundedLoops:       "Bounded Loops",
}

// AxiomViolation is a proof failure: the program cannot be expressed.
type AxiomViolation struct {
	Axiom   int
	Name    string
	Line    int
	Message string
}

func (v *AxiomViolation) Error() string {
	return fmt.Sprintf("axiom %d violation (line %d) — %s: %s", v.Axiom, v.Line, v.Name, v.Message)
}

func violation(axiom, line int, format string, args ...interface{}) *AxiomViolation {
	return &AxiomViolation{
		Axiom:   axiom,
		Name:    axiomNames[axiom],
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

// OpType identifies an emitted operation.
type OpType string

const (
	OpCreateSpeaker OpType = "create_speaker"
	OpSetSpeaker    OpType = "set_speaker"
	OpWriteVar      OpType = "write_var"
	OpSpeakOutput   OpType = "speak_output"
	OpWhenEval      OpType = "when_eval"
	OpIfEval        OpType = "if_eval"
	OpLoop          OpType = "loop"
	OpFnDefine      OpType = "fn_define"
	OpReturn        OpType = "return"
	OpRequest       OpType = "request"
	OpRespond       OpType = "respond"
	OpInspect       OpType = "inspect"
	OpHistory       OpType = "history"
	OpLedgerRead    OpType = "ledger_read"
	OpLedgerVerify  OpType = "ledger_verify"
	OpSeal          OpType = "seal"
	OpFail          OpType = "fail"
	OpPass          OpType = "pass"
	OpCreateWorld   OpType = "create_world"
	OpEvalExpr      OpType = "eval_expr"
)

// Operation is one executable step. Speaker is the name the op is attributed
// to, or empty at the pre-speaker top level. Payload fields are used per
// opcode; the rest stay zero.
type Operation struct {
	Op      OpType
	Speaker string
	Line    int

	Name   string
	Target string
	Accept bool
	Params []string

	Value     ast.Expression
	Condition ast.Expression
	MaxExpr   ast.Expression
	CountExpr ast.Expression

	Body          []ast.Statement
	OtherwiseBody []ast.Statement
	BrokenBody    []ast.Statement
	ElifClauses   []ast.ElifClause
	ElseBody      []ast.Statement
}

// FunctionDef records a compiled function signature.
type FunctionDef struct {
	Speaker string
	Params  []string
	Body    []ast.Statement
}

// CompiledProgram is the validated operation list plus the symbol tables the
// checks accumulated.
type CompiledProgram struct {
	Operations []Operation
	Speakers   []string
	Functions  map[string]FunctionDef
	Sealed     []string
}

// Compiler validates one program. DeclaredSpeakers and CurrentSpeaker may be
// pre-seeded by an embedding host carrying state across units.
type Compiler struct {
	DeclaredSpeakers map[string]bool
	CurrentSpeaker   string

	operations []Operation
	functions  map[string]FunctionDef
	sealed     map[string]bool
	speakers   []string
}

// New creates a compiler.
func New() *Compiler {
	return &Compiler{
		DeclaredSpeakers: make(map[string]bool),
		functions:        make(map[string]FunctionDef),
		sealed:           make(map[string]bool),
	}
}

// Compile checks every axiom over the tree and emits the operation list.
func (c *Compiler) Compile(program *ast.Program) (*CompiledProgram, error) {
	for _, stmt := range program.Statements {
		if err := c.compileStatement(stmt, true); err != nil {
			return nil, err
		}
	}
	return &CompiledProgram{
		Operations: c.operations,
		Speakers:   c.speakers,
		Functions:  c.functions,
		Sealed:     c.sealedNames(),
	}, nil
}

func (c *Compiler) sealedNames() []string {
	out := make([]string, 0, len(c.sealed))
	for name := range c.sealed {
		out = append(out, name)
	}
	return out
}

// compileStatement validates one statement and, when emit is set, appends
// its operation. Nested blocks re-apply the same checks without re-emitting:
// their statements execute through the parent op.
func (c *Compiler) compileStatement(stmt ast.Statement, emit bool) error {
	switch s := stmt.(type) {
	case *ast.SpeakerDecl:
		c.DeclaredSpeakers[s.Name] = true
		c.speakers = append(c.speakers, s.Name)
		if emit {
			c.emit(Operation{Op: OpCreateSpeaker, Line: s.Line, Name: s.Name})
		}
		return nil

	case *ast.WorldDecl:
		if emit {
			c.emit(Operation{Op: OpCreateWorld, Line: s.Line, Name: s.Name})
		}
		return nil

	case *ast.AsBlock:
		if !c.DeclaredSpeakers[s.SpeakerName] {
			return violation(AxiomSpeakerRequirement, s.Line,
				"cannot act as undeclared speaker '%s'", s.SpeakerName)
		}
		prior := c.CurrentSpeaker
		c.CurrentSpeaker = s.SpeakerName
		if emit {
			c.emit(Operation{Op: OpSetSpeaker, Line: s.Line, Name: s.SpeakerName})
		}
		for _, inner := range s.Body {
			if err := c.compileStatement(inner, emit); err != nil {
				return err
			}
		}
		c.CurrentSpeaker = prior
		return nil

	case *ast.LetStatement:
		if err := c.requireSpeaker(s.Line, "let"); err != nil {
			return err
		}
		if err := c.checkWriteOwnership(s.Name, s.Line); err != nil {
			return err
		}
		if err := c.checkSeal(s.Name, s.Line); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpWriteVar, Line: s.Line, Name: s.Name, Value: s.Value})
		}
		return nil

	case *ast.SpeakStatement:
		if err := c.requireSpeaker(s.Line, "speak"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpSpeakOutput, Line: s.Line, Value: s.Value})
		}
		return nil

	case *ast.WhenBlock:
		if err := c.requireSpeaker(s.Line, "when"); err != nil {
			return err
		}
		for _, body := range [][]ast.Statement{s.Body, s.OtherwiseBody, s.BrokenBody} {
			if err := c.compileBody(body); err != nil {
				return err
			}
		}
		if emit {
			c.emit(Operation{
				Op: OpWhenEval, Line: s.Line, Condition: s.Condition,
				Body: s.Body, OtherwiseBody: s.OtherwiseBody, BrokenBody: s.BrokenBody,
			})
		}
		return nil

	case *ast.IfStatement:
		if err := c.requireSpeaker(s.Line, "if"); err != nil {
			return err
		}
		if err := c.compileBody(s.Body); err != nil {
			return err
		}
		for _, clause := range s.ElifClauses {
			if err := c.compileBody(clause.Body); err != nil {
				return err
			}
		}
		if err := c.compileBody(s.ElseBody); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{
				Op: OpIfEval, Line: s.Line, Condition: s.Condition,
				Body: s.Body, ElifClauses: s.ElifClauses, ElseBody: s.ElseBody,
			})
		}
		return nil

	case *ast.WhileLoop:
		if err := c.requireSpeaker(s.Line, "while"); err != nil {
			return err
		}
		if s.MaxIterations == nil {
			return violation(AxiomBoundedLoops, s.Line,
				"while loop has no max clause; every loop must be bounded")
		}
		if err := c.compileBody(s.Body); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{
				Op: OpLoop, Line: s.Line, Condition: s.Condition,
				MaxExpr: s.MaxIterations, Body: s.Body,
			})
		}
		return nil

	case *ast.FnDecl:
		if err := c.requireSpeaker(s.Line, "fn"); err != nil {
			return err
		}
		if err := c.compileBody(s.Body); err != nil {
			return err
		}
		key := fmt.Sprintf("%s.%s", c.CurrentSpeaker, s.Name)
		c.functions[key] = FunctionDef{Speaker: c.CurrentSpeaker, Params: s.Params, Body: s.Body}
		if emit {
			c.emit(Operation{Op: OpFnDefine, Line: s.Line, Name: s.Name, Params: s.Params, Body: s.Body})
		}
		return nil

	case *ast.ReturnStatement:
		if err := c.requireSpeaker(s.Line, "return"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpReturn, Line: s.Line, Value: s.Value})
		}
		return nil

	case *ast.RequestStatement:
		if err := c.requireSpeaker(s.Line, "request"); err != nil {
			return err
		}
		if !c.DeclaredSpeakers[s.Target] {
			return violation(AxiomSpeakerRequirement, s.Line,
				"request target '%s' is not a declared speaker", s.Target)
		}
		if emit {
			c.emit(Operation{Op: OpRequest, Line: s.Line, Target: s.Target, Value: s.Action})
		}
		return nil

	case *ast.RespondStatement:
		if err := c.requireSpeaker(s.Line, "respond"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpRespond, Line: s.Line, Accept: s.Accept})
		}
		return nil

	case *ast.InspectStatement:
		if err := c.requireSpeaker(s.Line, "inspect"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpInspect, Line: s.Line, Value: s.Target})
		}
		return nil

	case *ast.HistoryStatement:
		if err := c.requireSpeaker(s.Line, "history"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpHistory, Line: s.Line, Value: s.Target})
		}
		return nil

	case *ast.LedgerStatement:
		if err := c.requireSpeaker(s.Line, "ledger"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpLedgerRead, Line: s.Line, CountExpr: s.Count})
		}
		return nil

	case *ast.VerifyStatement:
		if err := c.requireSpeaker(s.Line, "verify"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpLedgerVerify, Line: s.Line})
		}
		return nil

	case *ast.SealStatement:
		if err := c.requireSpeaker(s.Line, "seal"); err != nil {
			return err
		}
		c.sealed[fmt.Sprintf("%s.%s", c.CurrentSpeaker, s.Target)] = true
		if emit {
			c.emit(Operation{Op: OpSeal, Line: s.Line, Name: s.Target})
		}
		return nil

	case *ast.PassStatement:
		if err := c.requireSpeaker(s.Line, "pass"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpPass, Line: s.Line})
		}
		return nil

	case *ast.FailStatement:
		if err := c.requireSpeaker(s.Line, "fail"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpFail, Line: s.Line, Value: s.Reason})
		}
		return nil

	case *ast.ExpressionStatement:
		if err := c.requireSpeaker(stmtLine(s), "expression"); err != nil {
			return err
		}
		if emit {
			c.emit(Operation{Op: OpEvalExpr, Line: stmtLine(s), Value: s.Expr})
		}
		return nil
	}

	return nil
}

// compileBody validates nested statements without emitting operations.
func (c *Compiler) compileBody(body []ast.Statement) error {
	for _, stmt := range body {
		if err := c.compileStatement(stmt, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) emit(op Operation) {
	op.Speaker = c.CurrentSpeaker
	c.operations = append(c.operations, op)
}

// requireSpeaker enforces the speaker requirement: no operation without an
// enclosing as block.
func (c *Compiler) requireSpeaker(line int, what string) error {
	if c.CurrentSpeaker == "" {
		return violation(AxiomSpeakerRequirement, line,
			"'%s' outside any 'as' block: every operation has a speaker", what)
	}
	return nil
}

// checkWriteOwnership rejects a let whose dotted target names a declared
// speaker other than the current one.
func (c *Compiler) checkWriteOwnership(name string, line int) error {
	for _, segment := range strings.Split(name, ".") {
		if c.DeclaredSpeakers[segment] && segment != c.CurrentSpeaker {
			return violation(AxiomWriteOwnership, line,
				"'%s' cannot write to '%s': only %s can write %s's variables",
				c.CurrentSpeaker, name, segment, segment)
		}
	}
	return nil
}

// checkSeal rejects a let whose fully qualified target was sealed earlier by
// the same speaker.
func (c *Compiler) checkSeal(name string, line int) error {
	key := fmt.Sprintf("%s.%s", c.CurrentSpeaker, name)
	if c.sealed[key] {
		return violation(AxiomSealImmutability, line,
			"variable '%s' was sealed and cannot be written again", name)
	}
	return nil
}

func stmtLine(s ast.Statement) int {
	line, _ := s.Pos()
	return line
}
