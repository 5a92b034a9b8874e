package factory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownOption indicates a lookup for a name the section does not declare.
	ErrUnknownOption = errors.New("factory: unknown option")
	// ErrUnknownKey indicates an override key that matches no declared name.
	ErrUnknownKey = errors.New("factory: unknown override key")
	// ErrCycle indicates a circular default-expression dependency.
	ErrCycle = errors.New("factory: circular default definition")
	// ErrRequired indicates an option with no override and no default.
	ErrRequired = errors.New("factory: option requires a value")
	// ErrNotAnOption indicates a leaf operation attempted on a subsection name.
	ErrNotAnOption = errors.New("factory: name refers to a section")

	// ErrTypeMismatch indicates a value outside the permitted type set.
	ErrTypeMismatch = errors.New("factory: value type not permitted")
	// ErrNotAllowed indicates a value outside the allowed set.
	ErrNotAllowed = errors.New("factory: value not in allowed set")
	// ErrCheckAllFailed indicates at least one check_all predicate rejected the value.
	ErrCheckAllFailed = errors.New("factory: check_all predicate failed")
	// ErrCheckAnyFailed indicates every check_any predicate rejected the value.
	ErrCheckAnyFailed = errors.New("factory: no check_any predicate passed")
)

// DefinitionError reports an invalid spec-tree declaration. It is raised while
// the factory is built and never deferred to resolution time.
type DefinitionError struct {
	Path   string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return fmt.Sprintf("factory: invalid definition: %s", e.Reason)
	}
	return fmt.Sprintf("factory: invalid definition of %s: %s", e.Path, e.Reason)
}

func definitionErrorf(path, format string, args ...any) error {
	return &DefinitionError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ResolutionError reports a failure to produce a value for an option: an
// unknown override key, a missing required value, or a dependency cycle.
type ResolutionError struct {
	Path  string
	Cycle []string
	Err   error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("%v: at least one of [%s] must have a definite value",
			e.Err, strings.Join(e.Cycle, ", "))
	}
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError reports a resolved or supplied value rejected by the
// option's constraints. Unwrap yields the matching kind sentinel so callers
// can branch with errors.Is.
type ValidationError struct {
	Path   string
	Value  any
	Detail string
	kind   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%v: %v for option %s", e.kind, e.Value, e.Path)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.kind
}

// Kind returns the sentinel identifying which constraint rejected the value.
func (e *ValidationError) Kind() error {
	if e == nil {
		return nil
	}
	return e.kind
}

func validationError(kind error, path string, value any, detail string) error {
	return &ValidationError{Path: path, Value: value, Detail: detail, kind: kind}
}

// EvaluationError captures rule-engine metadata alongside the originating
// error raised while evaluating a string default expression.
type EvaluationError struct {
	Engine string
	Expr   string
	Path   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: %s evaluator %s path=%s: %v", e.Engine, describeExpression(e.Expr), e.Path, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "factory:") {
		return err
	}
	return fmt.Errorf("factory: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, path string, err error) error {
	if err == nil {
		return nil
	}

	// Resolution and validation failures surfaced through a rule's scope
	// lookups must keep their identity for errors.Is/errors.As callers.
	var resErr *ResolutionError
	var valErr *ValidationError
	if errors.As(err, &resErr) || errors.As(err, &valErr) {
		return err
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Path == "" {
			evalErr.Path = path
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Path:   path,
		Err:    err,
	}
}
