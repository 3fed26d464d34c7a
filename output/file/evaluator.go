package file

import (
	"fmt"
	"path"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
)

// Evaluator computes a string from an expression and a message's payload
// and headers. The sink resolver depends only on this interface.
type Evaluator interface {
	Evaluate(expression string, payload []byte, headers message.Headers) (string, error)
}

// exprEnv is the scope of an expression. payload is the payload as a string
// and headers the message headers.
type exprEnv struct {
	Payload string            `expr:"payload"`
	Headers map[string]string `expr:"headers"`
}

// ExprEvaluator evaluates expr-lang expressions. Besides the expr builtins
// (upper, lower, trim, split, ...) it offers substring(s, start[, end]) and
// basename(p).
type ExprEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

var _ Evaluator = (*ExprEvaluator)(nil)

// NewExprEvaluator creates an evaluator with the given expressions compiled
// up front. Empty expressions are skipped.
func NewExprEvaluator(expressions ...string) (*ExprEvaluator, error) {
	e := &ExprEvaluator{programs: make(map[string]*vm.Program)}
	for _, expression := range expressions {
		if expression == "" {
			continue
		}
		if _, err := e.program(expression); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Evaluate implements Evaluator. The result must be a string.
func (e *ExprEvaluator) Evaluate(expression string, payload []byte, headers message.Headers) (string, error) {
	program, err := e.program(expression)
	if err != nil {
		return "", err
	}

	if headers == nil {
		headers = message.Headers{}
	}
	out, err := expr.Run(program, exprEnv{Payload: string(payload), Headers: headers})
	if err != nil {
		return "", errors.WrapInvalid(err, "ExprEvaluator", "Evaluate", "run expression")
	}
	s, ok := out.(string)
	if !ok {
		return "", errors.WrapInvalid(fmt.Errorf("expression returned %T, not string", out),
			"ExprEvaluator", "Evaluate", "result check")
	}
	return s, nil
}

func (e *ExprEvaluator) program(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(exprEnv{}),
		expr.Function("substring", substringFunc,
			new(func(string, int) string),
			new(func(string, int, int) string)),
		expr.Function("basename", basenameFunc,
			new(func(string) string)),
	)
	if err != nil {
		return nil, errors.WrapInvalid(err, "ExprEvaluator", "compile", fmt.Sprintf("compile %q", expression))
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()
	return program, nil
}

func substringFunc(params ...any) (any, error) {
	s := params[0].(string)
	start := params[1].(int)
	end := len([]rune(s))
	if len(params) == 3 {
		end = params[2].(int)
	}
	return substring(s, start, end), nil
}

// substring returns the runes of s in [start, end), clamped to s
func substring(s string, start, end int) string {
	runes := []rune(s)
	start = max(0, min(start, len(runes)))
	end = max(start, min(end, len(runes)))
	return string(runes[start:end])
}

func basenameFunc(params ...any) (any, error) {
	return path.Base(params[0].(string)), nil
}
