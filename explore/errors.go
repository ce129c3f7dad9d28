package explore

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is for each error kind.
var (
	ErrFormula   = errors.New("formula error")
	ErrFit       = errors.New("fit error")
	ErrSelection = errors.New("selection error")
	ErrSettings  = errors.New("invalid view settings")
)

// FormulaError reports a formula that cannot be turned into a design
// matrix.
type FormulaError struct {
	Formula string

	// The offending term or column, if known
	Term string

	Reason string
}

func (e *FormulaError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("formula %q: %s: %s", e.Formula, e.Term, e.Reason)
	}
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Reason)
}

// Is reports whether target is ErrFormula.
func (e *FormulaError) Is(target error) bool {
	return target == ErrFormula
}

// FitError reports a model that could not be fit.
type FitError struct {
	Family Family
	Reason string

	// The underlying error, may be nil
	Err error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s fit failed: %s", e.Family, e.Reason)
}

// Is reports whether target is ErrFit.
func (e *FitError) Is(target error) bool {
	return target == ErrFit
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// SelectionError reports an invalid variable or level selection.
type SelectionError struct {
	Reason string
}

func (e *SelectionError) Error() string {
	return "invalid selection: " + e.Reason
}

// Is reports whether target is ErrSelection.
func (e *SelectionError) Is(target error) bool {
	return target == ErrSelection
}

func selectionErrorf(format string, args ...interface{}) error {
	return &SelectionError{Reason: fmt.Sprintf(format, args...)}
}
