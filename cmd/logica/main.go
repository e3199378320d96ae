// Package main provides the language front-end CLI.
//
// Usage:
//
//	logica run [--ledger] [--where path=value] <file>  - Run a source file
//	logica check <file>                                - Check axioms without executing
//	logica tokens <file>                               - Emit the token stream
//	logica ast <file>                                  - Emit the syntax tree
//
// Exit code 0 iff the run (or check) completed without an axiom violation or
// runtime break.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/logica-lang/logica/domain/bus"
	"github.com/logica-lang/logica/domain/registry"
	"github.com/logica-lang/logica/infrastructure/config"
	"github.com/logica-lang/logica/infrastructure/logging"
	"github.com/logica-lang/logica/language/ast"
	"github.com/logica-lang/logica/language/compiler"
	"github.com/logica-lang/logica/language/lexer"
	"github.com/logica-lang/logica/language/parser"
	"github.com/logica-lang/logica/language/runtime"
	"github.com/logica-lang/logica/language/token"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New("logica", cfg.LogLevel, cfg.LogFormat)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		cmdRun(cfg, logger, args)
	case "check":
		cmdCheck(args)
	case "tokens":
		cmdTokens(args)
	case "ast":
		cmdAST(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		// A bare path runs the file.
		if _, err := os.Stat(cmd); err == nil {
			cmdRun(cfg, logger, os.Args[1:])
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Logica - a language whose programs cannot violate their axioms

Usage:
  logica run [--ledger] [--where path=value] <file>
  logica check <file>
  logica tokens <file>
  logica ast <file>

Commands:
  run     Execute a source file through the kernel
  check   Lex, parse, and axiom-check without executing
  tokens  Print the token stream
  ast     Print the parsed syntax tree

Environment Variables:
  LOG_LEVEL              Logger level (default error)
  LOG_FORMAT             Logger format: text or json
  LOGICA_CONFIG          Optional YAML config file
  LOGICA_METRICS         Dump kernel metrics after a run
  LOGICA_SWEEP_SCHEDULE  Cron schedule for request timeout sweeps

Examples:
  logica run program.logica
  logica run --ledger --where operation=write program.logica
  logica check program.logica`)
}

func readSource(args []string, usage string) (string, string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: file not found: %s\n", path)
		os.Exit(1)
	}
	return string(data), path
}

func compileSource(source string) (*compiler.CompiledProgram, error) {
	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		return nil, err
	}
	program, err := parser.New(tokens).Parse()
	if err != nil {
		return nil, err
	}
	return compiler.New().Compile(program)
}

func cmdRun(cfg config.Config, logger *logging.Logger, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dumpLedger := fs.Bool("ledger", false, "Dump the ledger as JSON lines after the run")
	where := fs.String("where", "", "Filter dumped entries: <json path>=<value>")
	fs.Parse(args)

	source, path := readSource(fs.Args(), "Usage: logica run [--ledger] [--where path=value] <file>")

	compiled, err := compileSource(source)
	if err != nil {
		if v, ok := err.(*compiler.AxiomViolation); ok {
			fmt.Fprintln(os.Stderr, "COMPILE ERROR")
			fmt.Fprintf(os.Stderr, "%v\n", v)
			fmt.Fprintln(os.Stderr, "The program violates an axiom. It cannot be expressed.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	runID := logging.NewRunID()
	logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"file":   path,
	}).Info("run starting")

	rt := runtime.New(runtime.WithLogger(logger))

	// Timeout enforcement is host policy: sweeps fire only when configured,
	// and the manual sweep stays available regardless.
	if cfg.SweepSchedule != "" {
		sweeper, err := bus.NewSweeper(rt.Env().Kernel.Bus(), cfg.SweepSchedule, logger, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	runErr := rt.Execute(compiled)

	printSummary(rt)
	if *dumpLedger {
		dumpLedgerJSON(rt, *where)
	}
	if cfg.Metrics {
		dumpMetrics(rt)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", runErr)
		os.Exit(1)
	}
}

func printSummary(rt *runtime.Runtime) {
	env := rt.Env()
	total, _ := env.Kernel.LedgerCount(registry.RootID)
	integrity := "BROKEN"
	if env.Kernel.LedgerVerify() {
		integrity = "VALID"
	}

	names := make([]string, 0, len(env.SpeakerIDs))
	for name := range env.SpeakerIDs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Println("  ---")
	fmt.Printf("  ledger: %d entries, integrity: %s\n", total, integrity)
	fmt.Printf("  speakers: %v\n", names)
	fmt.Println("  ---")
}

func dumpLedgerJSON(rt *runtime.Runtime, where string) {
	env := rt.Env()
	var wherePath, whereValue string
	if where != "" {
		parts := strings.SplitN(where, "=", 2)
		if len(parts) != 2 {
			fmt.Fprintln(os.Stderr, "Error: --where takes <json path>=<value>")
			os.Exit(1)
		}
		wherePath, whereValue = parts[0], parts[1]
	}

	for _, e := range env.Kernel.LedgerRead(registry.RootID, 0, 1<<30) {
		record := map[string]interface{}{
			"entry_id":     e.EntryID,
			"speaker_id":   e.SpeakerID,
			"speaker":      env.Kernel.SpeakerName(e.SpeakerID),
			"operation":    e.Operation,
			"condition":    e.Condition,
			"action":       e.Action,
			"status":       string(e.Status),
			"state_before": e.StateBefore,
			"state_after":  e.StateAfter,
			"timestamp":    e.Timestamp.UnixNano(),
			"prev_hash":    e.PrevHash,
			"entry_hash":   e.EntryHash,
			"break_reason": e.BreakReason,
		}
		line, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if wherePath != "" && gjson.GetBytes(line, wherePath).String() != whereValue {
			continue
		}
		fmt.Println(string(line))
	}
}

func dumpMetrics(rt *runtime.Runtime) {
	dump, err := rt.Env().Kernel.Metrics().Dump()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println()
	fmt.Println("  --- metrics ---")
	for _, line := range strings.Split(strings.TrimSpace(dump), "\n") {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println("  ---")
}

func cmdCheck(args []string) {
	source, path := readSource(args, "Usage: logica check <file>")

	compiled, err := compileSource(source)
	if err != nil {
		if v, ok := err.(*compiler.AxiomViolation); ok {
			fmt.Fprintf(os.Stderr, "AXIOM VIOLATION: %v\n", v)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	fns := make([]string, 0, len(compiled.Functions))
	for name := range compiled.Functions {
		fns = append(fns, name)
	}
	sort.Strings(fns)

	fmt.Printf("  %s: ALL AXIOMS HOLD\n", path)
	fmt.Printf("  speakers: %v\n", compiled.Speakers)
	fmt.Printf("  operations: %d\n", len(compiled.Operations))
	fmt.Printf("  functions: %v\n", fns)
}

func cmdTokens(args []string) {
	source, _ := readSource(args, "Usage: logica tokens <file>")

	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, t := range tokens {
		if t.Type != token.NEWLINE {
			fmt.Printf("  %s\n", t)
		}
	}
}

func cmdAST(args []string) {
	source, _ := readSource(args, "Usage: logica ast <file>")

	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	program, err := parser.New(tokens).Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Program:")
	for _, stmt := range program.Statements {
		printStatement(stmt, 1)
	}
}

func printStatement(stmt ast.Statement, indent int) {
	pad := strings.Repeat("  ", indent)
	switch s := stmt.(type) {
	case *ast.SpeakerDecl:
		fmt.Printf("%sSpeakerDecl(%s)\n", pad, s.Name)
	case *ast.WorldDecl:
		fmt.Printf("%sWorldDecl(%s)\n", pad, s.Name)
	case *ast.AsBlock:
		fmt.Printf("%sAsBlock(%s):\n", pad, s.SpeakerName)
		printBody(s.Body, indent+1)
	case *ast.LetStatement:
		fmt.Printf("%sLet(%s = %s)\n", pad, s.Name, renderExpr(s.Value))
	case *ast.SpeakStatement:
		fmt.Printf("%sSpeak(%s)\n", pad, renderExpr(s.Value))
	case *ast.WhenBlock:
		fmt.Printf("%sWhen(%s):\n", pad, renderExpr(s.Condition))
		printBody(s.Body, indent+1)
		if len(s.OtherwiseBody) > 0 {
			fmt.Printf("%sOtherwise:\n", pad)
			printBody(s.OtherwiseBody, indent+1)
		}
		if len(s.BrokenBody) > 0 {
			fmt.Printf("%sBroken:\n", pad)
			printBody(s.BrokenBody, indent+1)
		}
	case *ast.IfStatement:
		fmt.Printf("%sIf(%s):\n", pad, renderExpr(s.Condition))
		printBody(s.Body, indent+1)
		for _, clause := range s.ElifClauses {
			fmt.Printf("%sElif(%s):\n", pad, renderExpr(clause.Condition))
			printBody(clause.Body, indent+1)
		}
		if len(s.ElseBody) > 0 {
			fmt.Printf("%sElse:\n", pad)
			printBody(s.ElseBody, indent+1)
		}
	case *ast.WhileLoop:
		fmt.Printf("%sWhile(%s, max %s):\n", pad, renderExpr(s.Condition), renderExpr(s.MaxIterations))
		printBody(s.Body, indent+1)
	case *ast.FnDecl:
		fmt.Printf("%sFn(%s(%s)):\n", pad, s.Name, strings.Join(s.Params, ", "))
		printBody(s.Body, indent+1)
	case *ast.ReturnStatement:
		fmt.Printf("%sReturn(%s)\n", pad, renderExpr(s.Value))
	case *ast.RequestStatement:
		fmt.Printf("%sRequest(%s, %s)\n", pad, s.Target, renderExpr(s.Action))
	case *ast.RespondStatement:
		verdict := "refuse"
		if s.Accept {
			verdict = "accept"
		}
		fmt.Printf("%sRespond(%s)\n", pad, verdict)
	case *ast.InspectStatement:
		fmt.Printf("%sInspect(%s)\n", pad, renderExpr(s.Target))
	case *ast.HistoryStatement:
		fmt.Printf("%sHistory(%s)\n", pad, renderExpr(s.Target))
	case *ast.LedgerStatement:
		fmt.Printf("%sLedger(%s)\n", pad, renderExpr(s.Count))
	case *ast.VerifyStatement:
		fmt.Printf("%sVerify(ledger)\n", pad)
	case *ast.SealStatement:
		fmt.Printf("%sSeal(%s)\n", pad, s.Target)
	case *ast.PassStatement:
		fmt.Printf("%sPass\n", pad)
	case *ast.FailStatement:
		fmt.Printf("%sFail(%s)\n", pad, renderExpr(s.Reason))
	case *ast.ExpressionStatement:
		fmt.Printf("%sExpr(%s)\n", pad, renderExpr(s.Expr))
	}
}

func printBody(body []ast.Statement, indent int) {
	for _, stmt := range body {
		printStatement(stmt, indent)
	}
}

func renderExpr(expr ast.Expression) string {
	switch e := expr.(type) {
	case nil:
		return ""
	case *ast.IntegerLiteral:
		return fmt.Sprintf("%d", e.Value)
	case *ast.FloatLiteral:
		return fmt.Sprintf("%g", e.Value)
	case *ast.StringLiteral:
		return fmt.Sprintf("%q", e.Value)
	case *ast.BooleanLiteral:
		return fmt.Sprintf("%t", e.Value)
	case *ast.NoneLiteral:
		return "none"
	case *ast.StatusLiteral:
		return e.Value
	case *ast.Identifier:
		return e.Name
	case *ast.MemberAccess:
		return fmt.Sprintf("%s.%s", renderExpr(e.Object), e.Member)
	case *ast.BinaryOp:
		return fmt.Sprintf("(%s %s %s)", renderExpr(e.Left), e.Op, renderExpr(e.Right))
	case *ast.UnaryOp:
		return fmt.Sprintf("(%s %s)", e.Op, renderExpr(e.Operand))
	case *ast.FnCall:
		args := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			args = append(args, renderExpr(arg))
		}
		return fmt.Sprintf("%s(%s)", renderExpr(e.Function), strings.Join(args, ", "))
	case *ast.ReadExpr:
		return fmt.Sprintf("read %s", renderExpr(e.Target))
	case *ast.IndexAccess:
		return fmt.Sprintf("%s[%s]", renderExpr(e.Object), renderExpr(e.Index))
	}
	return "?"
}
