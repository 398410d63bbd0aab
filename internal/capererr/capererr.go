// Package capererr holds the generator-time error kinds of the grammar
// compiler pipeline. It contains Error, which can be created with one or
// more 'cause' errors; calling errors.Is on an Error with any of its causes
// as the argument returns true. It also holds the sentinel error values for
// each named error kind, created via errors.New.
package capererr

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicatedSymbol                = errors.New("symbol already declared")
	ErrUndefinedSymbol                 = errors.New("symbol not declared")
	ErrDuplicatedRule                  = errors.New("rule already exists in grammar")
	ErrDuplicatedSemanticActionArgument = errors.New("argument slot already bound")
	ErrSkippedSemanticActionArgument   = errors.New("argument slot gap")
	ErrUntypedTerminal                 = errors.New("terminal used as an argument has no declared type")
	ErrUnallowedEBNF                   = errors.New("EBNF extension used without %allow_ebnf")
)

// Error is a typed error returned by the grammar compiler pipeline. It
// contains a message explaining what happened along with one or more error
// values it considers its causes. Error is compatible with errors.Is: calling
// errors.Is on an Error along with any of its causes returns true.
//
// Error should not be constructed directly; call New or one of the kind
// constructors below.
type Error struct {
	msg   string
	cause []error
}

func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}
	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}
	return e.msg
}

func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

func (e Error) Is(target error) bool {
	if errTarget, ok := target.(Error); ok {
		if e.msg == errTarget.msg && len(e.cause) == len(errTarget.cause) {
			allEqual := true
			for i := range e.cause {
				if e.cause[i] != errTarget.cause[i] {
					allEqual = false
					break
				}
			}
			if allEqual {
				return true
			}
		}
	}

	for i := range e.cause {
		if e.cause[i] == target {
			return true
		}
	}
	return false
}

// New creates a new Error with the given message and causes.
func New(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

// DuplicatedSymbol reports that name was declared more than once as a
// terminal or nonterminal (spec.md §4.1).
func DuplicatedSymbol(name string) error {
	return New(fmt.Sprintf("symbol %q already declared", name), ErrDuplicatedSymbol)
}

// UndefinedSymbol reports that name was referenced on a rule's right-hand
// side but never declared as a terminal or nonterminal (spec.md §4.1).
func UndefinedSymbol(name string) error {
	return New(fmt.Sprintf("undefined symbol %q", name), ErrUndefinedSymbol)
}

// DuplicatedRule reports that the exact (left, right) rule already exists in
// the grammar (spec.md §3, §4.3).
func DuplicatedRule(left string, right []string) error {
	return New(fmt.Sprintf("rule %q already exists in grammar", left), ErrDuplicatedRule)
}

// DuplicatedSemanticActionArgument reports that two RHS elements of a rule
// bind the same argument slot (spec.md §4.3).
func DuplicatedSemanticActionArgument(action string, index int) error {
	return New(fmt.Sprintf("action %q: argument slot %d bound more than once", action, index), ErrDuplicatedSemanticActionArgument)
}

// SkippedSemanticActionArgument reports a gap in an action's argument slots
// 0..max (spec.md §4.3).
func SkippedSemanticActionArgument(action string, index int) error {
	return New(fmt.Sprintf("action %q: argument slot %d is never bound", action, index), ErrSkippedSemanticActionArgument)
}

// UntypedTerminal reports a terminal bound as a semantic action argument
// with no declared value type (spec.md §4.3).
func UntypedTerminal(name string) error {
	return New(fmt.Sprintf("terminal %q used as an argument has no declared type", name), ErrUntypedTerminal)
}

// UnallowedEBNF reports an EBNF-suffixed rule element used without
// %allow_ebnf (spec.md §4.2).
func UnallowedEBNF(element string) error {
	return New(fmt.Sprintf("EBNF extension on %q not allowed; declare %%allow_ebnf first", element), ErrUnallowedEBNF)
}
