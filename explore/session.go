// Package explore fits generalized linear models to tabular data and
// supports interactive exploration of the fit: refitting with a new
// formula or family, grouped predicted-vs-actual aggregates, and an
// immutable state store driven by user actions.
package explore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/kshedden/glmexplore/bins"
	"github.com/kshedden/glmexplore/glm"
	"github.com/kshedden/glmexplore/logging"
	"github.com/kshedden/glmexplore/table"
)

// Names of the columns added to the augmented table.
const (
	PredictedName = "Predicted"
	ActualName    = "Actual"
)

// Session is a fitted model together with the data it was fit to.  A
// Session is never modified, refitting returns a new Session.
type Session struct {
	regressors *table.Table
	response   table.Column
	formula    string
	family     Family

	design    *Design
	results   *glm.GLMResults
	augmented *table.Table
	summary   string

	revision    uuid.UUID
	fingerprint uint64
}

// Fit fits a GLM of the given family, with design matrix given by
// formula, to the response and regressors.  Formula problems are
// reported as a *FormulaError, estimation problems as a *FitError.
func Fit(regressors *table.Table, response table.Column, formula string, family Family) (*Session, error) {

	if regressors == nil {
		return nil, &FitError{Family: family, Reason: "no regressors"}
	}
	if response.Kind() != table.Numeric {
		return nil, &FitError{Family: family, Reason: fmt.Sprintf("response %q is not numeric", response.Name())}
	}
	if response.Len() != regressors.NumRows() {
		return nil, &FitError{Family: family,
			Reason: fmt.Sprintf("response has %d rows, regressors have %d", response.Len(), regressors.NumRows())}
	}
	for _, na := range []string{PredictedName, ActualName} {
		if regressors.Has(na) {
			return nil, &FitError{Family: family, Reason: fmt.Sprintf("regressor name %q is reserved", na)}
		}
	}

	gfam, err := family.glmFamily()
	if err != nil {
		return nil, &FitError{Family: family, Reason: err.Error(), Err: err}
	}

	design, err := BuildDesign(formula, regressors)
	if err != nil {
		return nil, err
	}

	// Response values outside the support of the family are rejected
	// before fitting.
	y := response.Floats()
	if err := gfam.Check(y); err != nil {
		return nil, &FitError{Family: family, Reason: err.Error(), Err: err}
	}

	data := append([][]float64{y}, design.Cols...)
	names := append([]string{response.Name()}, design.Names...)

	model, err := glm.NewGLM(data, names, response.Name()).Family(gfam).Log(logging.Logger()).Done()
	if err != nil {
		return nil, &FitError{Family: family, Reason: err.Error(), Err: err}
	}

	results, err := model.Fit()
	if err != nil {
		return nil, &FitError{Family: family, Reason: fitReason(err), Err: err}
	}

	augmented, err := regressors.With(
		table.NewNumeric(PredictedName, results.Mean()),
		table.NewNumeric(ActualName, y),
	)
	if err != nil {
		return nil, &FitError{Family: family, Reason: err.Error(), Err: err}
	}

	s := &Session{
		regressors: regressors,
		response:   response,
		formula:    formula,
		family:     family,
		design:     design,
		results:    results,
		augmented:  augmented,
		revision:   uuid.New(),
	}
	s.summary = s.buildSummary()
	s.fingerprint = s.computeFingerprint()

	logging.Logger().Debug("model fit",
		"formula", formula,
		"family", family.String(),
		"terms", len(design.Names),
		"iterations", results.Iterations(),
		"revision", s.revision.String())

	return s, nil
}

func fitReason(err error) string {
	switch {
	case errors.Is(err, glm.ErrNotConverged):
		return "estimation did not converge"
	case errors.Is(err, glm.ErrSingular):
		return "the design matrix is singular"
	default:
		return err.Error()
	}
}

// Refit fits the model again with a new formula.  The receiver is not
// changed.
func (s *Session) Refit(formula string) (*Session, error) {
	return Fit(s.regressors, s.response, formula, s.family)
}

// RefitFamily fits the model again with a new family.  The receiver is
// not changed.
func (s *Session) RefitFamily(family Family) (*Session, error) {
	return Fit(s.regressors, s.response, s.formula, family)
}

func (s *Session) buildSummary() string {

	fml := strings.TrimSpace(s.formula)
	if fml == "" {
		fml = "1"
	}

	sum := s.results.Summary().
		AddTop("Response", s.response.Name()).
		AddTop("Formula", fml)
	for _, na := range s.design.Dropped {
		sum.AddMessage(fmt.Sprintf("Term %s was dropped because it is collinear with earlier terms.", na))
	}

	return sum.String()
}

func (s *Session) computeFingerprint() uint64 {

	h := xxhash.New()
	h.WriteString(s.formula)
	h.Write([]byte{0})
	h.WriteString(s.family.String())
	h.Write([]byte{0})

	var b [8]byte
	for _, v := range s.results.Params() {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		h.Write(b[:])
	}

	return h.Sum64()
}

// SummaryText returns the fixed-width report of the fit.
func (s *Session) SummaryText() string {
	return s.summary
}

// Regressors returns the regressor table.
func (s *Session) Regressors() *table.Table {
	return s.regressors
}

// Response returns the response column.
func (s *Session) Response() table.Column {
	return s.response
}

// Formula returns the formula the session was fit with.
func (s *Session) Formula() string {
	return s.formula
}

// Family returns the family the session was fit with.
func (s *Session) Family() Family {
	return s.family
}

// Augmented returns the regressors with the Predicted and Actual
// columns appended.
func (s *Session) Augmented() *table.Table {
	return s.augmented
}

// TermNames returns the names of the design columns.
func (s *Session) TermNames() []string {
	return append([]string(nil), s.design.Names...)
}

// Dropped returns the names of design columns left out as collinear.
func (s *Session) Dropped() []string {
	return append([]string(nil), s.design.Dropped...)
}

// Params returns the estimated coefficients, aligned with TermNames.
func (s *Session) Params() []float64 {
	return append([]float64(nil), s.results.Params()...)
}

// Results returns the GLM results.
func (s *Session) Results() *glm.GLMResults {
	return s.results
}

// Revision identifies this fit.
func (s *Session) Revision() uuid.UUID {
	return s.revision
}

// Fingerprint is a hash of the formula, family and coefficients.  Two
// sessions with equal fingerprints describe the same fit.
func (s *Session) Fingerprint() uint64 {
	return s.fingerprint
}

// Key returns the grouping of a regressor under the view settings.
func (s *Session) Key(name string, settings ViewSettings) (*bins.Grouping, error) {

	if name == "" {
		return nil, selectionErrorf("no variable selected")
	}
	col, ok := s.regressors.Column(name)
	if !ok {
		return nil, selectionErrorf("unknown variable %q", name)
	}

	return bins.Key(col, settings.MaxLevels, settings.BinMethod)
}
