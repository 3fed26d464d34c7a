package file

import (
	"path/filepath"
	"strings"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
)

// Target is the file a message is written to
type Target struct {
	Dir    string
	Name   string
	Suffix string
}

// Filename returns Name with Suffix appended after a dot, unless Name
// already ends with it
func (t Target) Filename() string {
	if t.Suffix == "" || strings.HasSuffix(t.Name, "."+t.Suffix) {
		return t.Name
	}
	return t.Name + "." + t.Suffix
}

// Path returns the full target path
func (t Target) Path() string {
	return filepath.Join(t.Dir, t.Filename())
}

// Resolver computes the target of each message from static settings or
// expressions. It is a pure function of the message and its configuration.
type Resolver struct {
	dir      string
	dirExpr  string
	name     string
	nameExpr string
	suffix   string
	eval     Evaluator
}

// NewResolver creates a resolver for cfg. A nil evaluator gets an
// ExprEvaluator with cfg's expressions compiled; compile failures are
// returned as invalid-class errors.
func NewResolver(cfg Config, eval Evaluator) (*Resolver, error) {
	if eval == nil {
		ev, err := NewExprEvaluator(cfg.DirectoryExpression, cfg.NameExpression)
		if err != nil {
			return nil, err
		}
		eval = ev
	}

	r := &Resolver{
		dir:      cfg.Directory,
		dirExpr:  cfg.DirectoryExpression,
		name:     cfg.Name,
		nameExpr: cfg.NameExpression,
		suffix:   strings.TrimPrefix(cfg.Suffix, "."),
		eval:     eval,
	}
	if r.dir == "" && r.dirExpr == "" {
		r.dir = DefaultDirectory()
	}
	if r.name == "" && r.nameExpr == "" {
		r.name = DefaultName
	}
	return r, nil
}

// Resolve returns the target for msg. Failures are ResolutionErrors.
func (r *Resolver) Resolve(msg *message.Message) (Target, error) {
	dir := r.dir
	if r.dirExpr != "" {
		v, err := r.eval.Evaluate(r.dirExpr, msg.Payload(), msg.Headers())
		if err != nil {
			return Target{}, &errors.ResolutionError{Expression: r.dirExpr, Reason: "directory expression failed", Err: err}
		}
		if v == "" {
			return Target{}, &errors.ResolutionError{Expression: r.dirExpr, Reason: "empty directory"}
		}
		dir = v
	}

	name := r.name
	if r.nameExpr != "" {
		v, err := r.eval.Evaluate(r.nameExpr, msg.Payload(), msg.Headers())
		if err != nil {
			return Target{}, &errors.ResolutionError{Expression: r.nameExpr, Reason: "name expression failed", Err: err}
		}
		name = v
	}
	switch {
	case name == "":
		return Target{}, &errors.ResolutionError{Expression: r.nameExpr, Reason: "empty filename"}
	case name == "." || name == "..":
		return Target{}, &errors.ResolutionError{Expression: r.nameExpr, Reason: "filename " + name + " is not a file"}
	case strings.ContainsAny(name, `/\`):
		return Target{}, &errors.ResolutionError{Expression: r.nameExpr, Reason: "filename " + name + " contains a path separator"}
	}

	return Target{Dir: dir, Name: name, Suffix: r.suffix}, nil
}
