package explore

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/kshedden/glmexplore/logging"
	"github.com/kshedden/glmexplore/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	yCont = []float64{1.2, 2.3, 2.1, 3.9, 4.2, 3.5, 5.1, 5.8, 4.9, 6.7, 6.1, 7.4}
	yBin  = []float64{0, 0, 1, 0, 1, 0, 1, 1, 0, 1, 1, 1}
)

func regressors(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(
		table.NewNumeric("x1", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
		table.NewNumeric("x2", []float64{2.1, 3.3, 1.2, 4.8, 5.1, 2.2, 3.9, 4.4, 1.7, 2.8, 3.1, 4.2}),
		table.NewCategorical("g", []string{"a", "b", "c", "a", "b", "c", "a", "b", "c", "a", "b", "c"}),
	)
	require.NoError(t, err)
	return tb
}

func fitSession(t *testing.T, y []float64, fml string, fam Family) *Session {
	t.Helper()
	s, err := Fit(regressors(t), table.NewNumeric("y", y), fml, fam)
	require.NoError(t, err)
	return s
}

func TestFitAugmented(t *testing.T) {

	s := fitSession(t, yCont, "x1 + x2", Gaussian)
	aug := s.Augmented()

	assert.Equal(t, s.Regressors().NumRows(), aug.NumRows())
	assert.Equal(t, []string{"x1", "x2", "g", PredictedName, ActualName}, aug.Names())

	act, _ := aug.Column(ActualName)
	assert.Equal(t, yCont, act.Floats())

	// Least squares residuals sum to zero when there is an intercept.
	pred, _ := aug.Column(PredictedName)
	assert.InDelta(t, floats.Sum(yCont), floats.Sum(pred.Floats()), 1e-8)

	assert.Equal(t, []string{InterceptName, "x1", "x2"}, s.TermNames())
	assert.Len(t, s.Params(), 3)
	assert.Equal(t, "x1 + x2", s.Formula())
	assert.Equal(t, Gaussian, s.Family())
	assert.Equal(t, "y", s.Response().Name())
}

func TestFitMatchesLeastSquares(t *testing.T) {

	s := fitSession(t, yCont, "x1", Gaussian)
	x1, _ := s.Regressors().Column("x1")

	alpha, beta := stat.LinearRegression(x1.Floats(), yCont, nil, false)
	assert.InDeltaSlice(t, []float64{alpha, beta}, s.Params(), 1e-6)
}

func TestInterceptOnly(t *testing.T) {

	s := fitSession(t, yCont, "", Gaussian)
	assert.Equal(t, []string{InterceptName}, s.TermNames())

	mean := floats.Sum(yCont) / float64(len(yCont))
	assert.InDelta(t, mean, s.Params()[0], 1e-8)

	pred, _ := s.Augmented().Column(PredictedName)
	for _, v := range pred.Floats() {
		assert.InDelta(t, mean, v, 1e-8)
	}
}

func TestBinomialAndGamma(t *testing.T) {

	s := fitSession(t, yBin, "x1", Binomial)
	pred, _ := s.Augmented().Column(PredictedName)
	for _, v := range pred.Floats() {
		assert.True(t, v > 0 && v < 1, "binomial mean %v", v)
	}

	s, err := s.RefitFamily(Gaussian)
	require.NoError(t, err)
	assert.Equal(t, Gaussian, s.Family())

	g := fitSession(t, yCont, "x1", Gamma)
	assert.Contains(t, g.SummaryText(), "Gamma")
	assert.Contains(t, g.SummaryText(), "Log")
}

func TestRefitIdempotent(t *testing.T) {

	s1 := fitSession(t, yCont, "x1 + x2", Gaussian)
	s2, err := s1.Refit(s1.Formula())
	require.NoError(t, err)

	assert.Equal(t, s1.Params(), s2.Params())
	assert.Equal(t, s1.SummaryText(), s2.SummaryText())
	assert.Equal(t, s1.Fingerprint(), s2.Fingerprint())
	assert.NotEqual(t, s1.Revision(), s2.Revision())

	s3, err := s1.Refit("x1")
	require.NoError(t, err)
	assert.NotEqual(t, s1.Fingerprint(), s3.Fingerprint())
	assert.Equal(t, "x1 + x2", s1.Formula(), "receiver is unchanged")
}

func TestRefitUnknownColumn(t *testing.T) {

	s := fitSession(t, yCont, "x1", Gaussian)
	params := s.Params()
	summary := s.SummaryText()

	_, err := s.Refit("x1 + nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormula))

	var fe *FormulaError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "nope", fe.Term)

	assert.Equal(t, params, s.Params())
	assert.Equal(t, summary, s.SummaryText())
}

func TestFamilyMismatch(t *testing.T) {

	s := fitSession(t, yCont, "x1", Gaussian)

	_, err := s.RefitFamily(Binomial)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFit))

	var fe *FitError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, Binomial, fe.Family)
	assert.Contains(t, fe.Reason, "[0, 1]")

	yz := append([]float64(nil), yCont...)
	yz[3] = 0
	_, err = Fit(regressors(t), table.NewNumeric("y", yz), "x1", Gamma)
	assert.ErrorIs(t, err, ErrFit)
}

func TestFitErrors(t *testing.T) {

	regs := regressors(t)

	_, err := Fit(regs, table.NewNumeric("y", []float64{1, 2}), "x1", Gaussian)
	assert.ErrorIs(t, err, ErrFit, "row mismatch")

	_, err = Fit(regs, table.NewCategorical("y", make([]string, 12)), "x1", Gaussian)
	assert.ErrorIs(t, err, ErrFit, "categorical response")

	reserved, err := regs.With(table.NewNumeric(ActualName, yCont))
	require.NoError(t, err)
	_, err = Fit(reserved, table.NewNumeric("y", yCont), "x1", Gaussian)
	assert.ErrorIs(t, err, ErrFit, "reserved name")
}

func TestSummaryText(t *testing.T) {

	s := fitSession(t, yCont, "", Gaussian)
	txt := s.SummaryText()

	for _, v := range []string{"Generalized linear model analysis", "Gaussian", "Identity",
		"Formula:  1", "Response: y", InterceptName, "P-value"} {
		assert.Contains(t, txt, v)
	}
}

func TestTransformTermNames(t *testing.T) {

	s := fitSession(t, yCont, "log(x1)", Gaussian)
	assert.Equal(t, []string{InterceptName, "log(x1)"}, s.TermNames())

	txt := s.SummaryText()
	assert.Contains(t, txt, "log(x1)")
	assert.NotContains(t, txt, "log(log(")
}

func TestParseFamily(t *testing.T) {

	for s, f := range map[string]Family{"gaussian": Gaussian, "BINOMIAL": Binomial, " Gamma ": Gamma} {
		g, err := ParseFamily(s)
		require.NoError(t, err)
		assert.Equal(t, f, g)
	}

	_, err := ParseFamily("poisson")
	assert.Error(t, err)

	var f Family
	require.NoError(t, f.UnmarshalText([]byte("gamma")))
	assert.Equal(t, Gamma, f)
}

func TestFitLogsDebug(t *testing.T) {

	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { logging.SetLogger(nil) })

	fitSession(t, yCont, "x1", Gaussian)
	assert.Contains(t, buf.String(), "model fit")
	assert.Contains(t, buf.String(), "formula=x1")
}
