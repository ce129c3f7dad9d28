package glm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/kshedden/glmexplore/statmodel"
)

// ErrNotConverged is returned by Fit when the optimizer reaches its
// iteration limit before the deviance stabilizes.
var ErrNotConverged = errors.New("glm: fitting did not converge")

// ErrSingular is returned by Fit when the weighted design matrix
// cannot be inverted.
var ErrSingular = errors.New("glm: singular design")

// GLM represents a generalized linear model.
type GLM struct {

	// Column-major data, all columns have the same length.
	data [][]float64

	// Names of the data columns
	names []string

	// Positions of the covariates
	xpos []int

	// Name and position of the outcome variable
	yname string
	ypos  int

	// The GLM family
	fam *Family

	// The GLM link function
	link *Link

	// The GLM variance function
	vari *Variance

	// Either irls (default) or gradient.
	fitMethod string

	// Starting values, optional
	start []float64

	// Maximum number of IRLS iterations
	maxIter int

	// Convergence tolerance for the deviance
	dtol float64

	// Optimization settings for gradient fitting
	settings *optimize.Settings

	// Optimization method for gradient fitting
	method optimize.Method

	// If not nil, write log messages here
	log *slog.Logger
}

// GLMParams represents the model parameters for a GLM.
type GLMParams struct {
	coeff []float64
	scale float64
}

// GetCoeff returns the coefficients (slopes for individual
// covariates) from the parameter.
func (p *GLMParams) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the coefficients (slopes for individual covariates)
// for the parameter.
func (p *GLMParams) SetCoeff(coeff []float64) {
	p.coeff = coeff
}

// Clone produces a deep copy of the parameter value.
func (p *GLMParams) Clone() statmodel.Parameter {
	coeff := make([]float64, len(p.coeff))
	copy(coeff, p.coeff)
	return &GLMParams{
		coeff: coeff,
		scale: p.scale,
	}
}

// NewGLM creates a new GLM for the given data.  data[j] is the j^th
// column, named names[j].  The column named yname is the response,
// all other columns are covariates.
func NewGLM(data [][]float64, names []string, yname string) *GLM {

	return &GLM{
		data:      data,
		names:     names,
		yname:     yname,
		fitMethod: "irls",
		maxIter:   20,
		dtol:      1e-8,
	}
}

// Log takes a Logger value that will be used to log the progress of the fit.
func (glm *GLM) Log(log *slog.Logger) *GLM {
	glm.log = log
	return glm
}

// Family sets the GLM family.
func (glm *GLM) Family(fam *Family) *GLM {
	glm.fam = fam
	return glm
}

// Link sets the link function.  If not set, the family's default link
// is used.
func (glm *GLM) Link(link *Link) *GLM {
	glm.link = link
	return glm
}

// VarFunc sets the GLM variance function.
func (glm *GLM) VarFunc(va *Variance) *GLM {
	glm.vari = va
	return glm
}

// FitMethod sets the fitting method, either IRLS or gradient.
func (glm *GLM) FitMethod(method string) *GLM {
	glm.fitMethod = strings.ToLower(method)
	return glm
}

// MaxIter sets the maximum number of IRLS iterations.
func (glm *GLM) MaxIter(n int) *GLM {
	glm.maxIter = n
	return glm
}

// Start sets starting values for the fitting algorithm.
func (glm *GLM) Start(start []float64) *GLM {
	glm.start = start
	return glm
}

// OptSettings allows the caller to provide an optimization settings
// value for gradient fitting.
func (glm *GLM) OptSettings(s *optimize.Settings) *GLM {
	glm.settings = s
	return glm
}

// OptMethod sets the optimization method from gonum.Optimize.
func (glm *GLM) OptMethod(method optimize.Method) *GLM {
	glm.method = method
	return glm
}

// NumParams returns the number of covariates in the model.
func (glm *GLM) NumParams() int {
	return len(glm.xpos)
}

// NumObs returns the number of observations.
func (glm *GLM) NumObs() int {
	if len(glm.data) == 0 {
		return 0
	}
	return len(glm.data[0])
}

// Xpos returns the positions of the covariates in the model's data.
func (glm *GLM) Xpos() []int {
	return glm.xpos
}

// Dataset returns the data columns used to fit the model.
func (glm *GLM) Dataset() [][]float64 {
	return glm.data
}

// FamilyName returns the name of the model's family.
func (glm *GLM) FamilyName() string {
	return glm.fam.Name
}

// LinkName returns the name of the model's link function.
func (glm *GLM) LinkName() string {
	return glm.link.Name
}

func (glm *GLM) findvars() error {

	if len(glm.names) != len(glm.data) {
		return fmt.Errorf("glm: %d column names for %d columns", len(glm.names), len(glm.data))
	}

	glm.ypos = -1
	glm.xpos = glm.xpos[0:0]

	for k, na := range glm.names {
		if na == glm.yname {
			glm.ypos = k
		} else {
			glm.xpos = append(glm.xpos, k)
		}
	}

	if glm.ypos == -1 {
		return fmt.Errorf("glm: outcome variable '%s' not found", glm.yname)
	}

	n := len(glm.data[glm.ypos])
	for k, x := range glm.data {
		if len(x) != n {
			return fmt.Errorf("glm: column '%s' has length %d, expected %d", glm.names[k], len(x), n)
		}
	}

	return nil
}

// Done completes definition of a GLM.  After calling Done the GLM can
// be fit by calling the Fit method.
func (glm *GLM) Done() (*GLM, error) {

	if glm.fam == nil {
		return nil, errors.New("glm: the family must be defined before calling Done")
	}

	if err := glm.findvars(); err != nil {
		return nil, err
	}

	if glm.link == nil {
		glm.link = glm.fam.DefaultLink()
	}
	if !glm.fam.IsValidLink(glm.link) {
		return nil, fmt.Errorf("glm: link %s is not valid for the %s family", glm.link.Name, glm.fam.Name)
	}

	if glm.vari == nil {
		glm.vari = NewVariance(glm.fam.variance)
	}

	if glm.fitMethod != "irls" && glm.fitMethod != "gradient" {
		return nil, fmt.Errorf("glm: fitting method %s not allowed", glm.fitMethod)
	}

	if glm.start != nil && len(glm.start) != glm.NumParams() {
		return nil, fmt.Errorf("glm: %d starting values for %d covariates", len(glm.start), glm.NumParams())
	}

	return glm, nil
}

// linpred computes the linear predictor at the given coefficients.
func (glm *GLM) linpred(coeff, lp []float64) {
	zero(lp)
	for j, k := range glm.xpos {
		floats.AddScaled(lp, coeff[j], glm.data[k])
	}
}

// LogLike returns the log-likelihood value for the generalized linear
// model at the given parameter values.
func (glm *GLM) LogLike(params statmodel.Parameter, exact bool) float64 {

	gpar := params.(*GLMParams)

	n := glm.NumObs()
	lp := make([]float64, n)
	mn := make([]float64, n)

	glm.linpred(gpar.coeff, lp)
	glm.link.InvLink(lp, mn)

	return glm.fam.LogLike(glm.data[glm.ypos], mn, gpar.scale, exact)
}

func scoreFactor(yda, mn, deriv, va, sfac []float64) {
	for i, y := range yda {
		sfac[i] = (y - mn[i]) / (deriv[i] * va[i])
	}
}

// Score returns the score vector for the generalized linear model at
// the given parameter values.  The score is not divided by the scale
// parameter.
func (glm *GLM) Score(params statmodel.Parameter, score []float64) {

	gpar := params.(*GLMParams)

	n := glm.NumObs()
	lp := make([]float64, n)
	mn := make([]float64, n)
	deriv := make([]float64, n)
	va := make([]float64, n)
	fac := make([]float64, n)

	yda := glm.data[glm.ypos]

	glm.linpred(gpar.coeff, lp)
	glm.link.InvLink(lp, mn)
	glm.link.Deriv(mn, deriv)
	glm.vari.Var(mn, va)
	scoreFactor(yda, mn, deriv, va, fac)

	for j, k := range glm.xpos {
		score[j] = floats.Dot(fac, glm.data[k])
	}
}

// Hessian returns the Hessian matrix for the model.  The Hessian is
// returned as a one-dimensional array, which is the vectorized form
// of the Hessian matrix.  Either the observed or expected Hessian can
// be calculated.
func (glm *GLM) Hessian(param statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	gpar := param.(*GLMParams)

	n := glm.NumObs()
	nvar := glm.NumParams()
	lp := make([]float64, n)
	mn := make([]float64, n)
	lderiv := make([]float64, n)
	va := make([]float64, n)
	fac := make([]float64, n)

	yda := glm.data[glm.ypos]

	glm.linpred(gpar.coeff, lp)
	glm.link.InvLink(lp, mn)
	glm.link.Deriv(mn, lderiv)
	glm.vari.Var(mn, va)

	// Factor for the expected Hessian
	for i := range lderiv {
		fac[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
	}

	// Adjust the factor for the observed Hessian
	if ht == statmodel.ObsHess {
		lderiv2 := make([]float64, n)
		vad := make([]float64, n)
		sfac := make([]float64, n)
		glm.link.Deriv2(mn, lderiv2)
		glm.vari.Deriv(mn, vad)
		scoreFactor(yda, mn, lderiv, va, sfac)

		for i := range fac {
			h := va[i]*lderiv2[i] + lderiv[i]*vad[i]
			fac[i] *= 1 + h*sfac[i]
		}
	}

	zero(hess)
	for j1, k1 := range glm.xpos {
		x1 := glm.data[k1]
		for j2 := 0; j2 <= j1; j2++ {
			x2 := glm.data[glm.xpos[j2]]
			var u float64
			for i := range x1 {
				u += fac[i] * x1[i] * x2[i]
			}
			hess[j1*nvar+j2] = -u
			hess[j2*nvar+j1] = -u
		}
	}
}

// GLMResults describes the results of a fitted generalized linear model.
type GLMResults struct {
	statmodel.BaseResults

	scale    float64
	deviance float64
	mean     []float64
	linpred  []float64
	iter     int
}

// Scale returns the estimated scale parameter.
func (rslt *GLMResults) Scale() float64 {
	return rslt.scale
}

// Deviance returns the deviance of the fitted model.
func (rslt *GLMResults) Deviance() float64 {
	return rslt.deviance
}

// Mean returns the fitted mean response for every observation.
func (rslt *GLMResults) Mean() []float64 {
	return rslt.mean
}

// LinearPredictor returns the fitted linear predictor for every observation.
func (rslt *GLMResults) LinearPredictor() []float64 {
	return rslt.linpred
}

// Iterations returns the number of iterations used by IRLS, or zero
// for gradient fitting.
func (rslt *GLMResults) Iterations() int {
	return rslt.iter
}

// Fit estimates the parameters of the GLM and returns a results
// object.
func (glm *GLM) Fit() (*GLMResults, error) {

	nvar := glm.NumParams()
	if nvar == 0 {
		return nil, errors.New("glm: the model has no covariates")
	}
	if glm.NumObs() <= nvar {
		return nil, fmt.Errorf("glm: %d observations is too few for %d covariates", glm.NumObs(), nvar)
	}

	if err := glm.fam.Check(glm.data[glm.ypos]); err != nil {
		return nil, err
	}

	var params []float64
	var iter int
	var err error

	if glm.fitMethod == "gradient" {
		if glm.log != nil {
			glm.log.Debug("unregularized fitting using gradient optimization")
		}
		params, err = glm.fitGradient(glm.start)
	} else {
		if glm.log != nil {
			glm.log.Debug("unregularized fitting using IRLS")
		}
		params, iter, err = glm.fitIRLS(glm.start, glm.maxIter)
	}
	if err != nil {
		return nil, err
	}

	for j, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("glm: estimate for %s is not finite", glm.names[glm.xpos[j]])
		}
	}

	scale := glm.EstimateScale(params)
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return nil, fmt.Errorf("glm: invalid scale estimate %v", scale)
	}

	vcov, err := statmodel.GetVcov(glm, &GLMParams{params, scale})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	floats.Scale(scale, vcov)

	ll := glm.LogLike(&GLMParams{params, scale}, true)

	n := glm.NumObs()
	lp := make([]float64, n)
	mn := make([]float64, n)
	glm.linpred(params, lp)
	glm.link.InvLink(lp, mn)

	xna := make([]string, 0, nvar)
	for _, j := range glm.xpos {
		xna = append(xna, glm.names[j])
	}

	results := &GLMResults{
		BaseResults: statmodel.NewBaseResults(glm, ll, params, xna, vcov),
		scale:       scale,
		deviance:    glm.fam.Deviance(glm.data[glm.ypos], mn, 1),
		mean:        mn,
		linpred:     lp,
		iter:        iter,
	}

	return results, nil
}

// fitGradient uses gradient-based optimization to obtain the fitted
// GLM parameters.
func (glm *GLM) fitGradient(start []float64) ([]float64, error) {

	if start == nil {
		start = make([]float64, glm.NumParams())
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -glm.LogLike(&GLMParams{x, 1}, false)
		},
		Grad: func(grad, x []float64) {
			glm.Score(&GLMParams{x, 1}, grad)
			floats.Scale(-1, grad)
		},
	}

	settings := glm.settings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-6,
		}
	}

	method := glm.method
	if method == nil {
		method = &optimize.BFGS{}
	}

	optrslt, err := optimize.Minimize(p, start, settings, method)
	if err != nil {
		glm.failMessage(optrslt)
		return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	if err = optrslt.Status.Err(); err != nil {
		glm.failMessage(optrslt)
		return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}

	params := make([]float64, len(optrslt.X))
	copy(params, optrslt.X)

	return params, nil
}

// failMessage logs information that can help diagnose optimization failures.
func (glm *GLM) failMessage(optrslt *optimize.Result) {

	if glm.log == nil || optrslt == nil {
		return
	}

	for j, x := range optrslt.X {
		var g float64
		if j < len(optrslt.Gradient) {
			g = optrslt.Gradient[j]
		}
		glm.log.Warn("optimization failed",
			"variable", glm.names[glm.xpos[j]], "point", x, "gradient", g)
	}
}

// EstimateScale returns an estimate of the GLM scale parameter at the
// given parameter values.  The scale is fixed at 1 for the binomial
// family, otherwise it is the Pearson chi-square statistic divided by
// the residual degrees of freedom.
func (glm *GLM) EstimateScale(params []float64) float64 {

	if glm.fam.fixedScale {
		return 1
	}

	n := glm.NumObs()
	lp := make([]float64, n)
	mn := make([]float64, n)
	va := make([]float64, n)

	glm.linpred(params, lp)
	glm.link.InvLink(lp, mn)
	glm.vari.Var(mn, va)

	var scale float64
	for i, y := range glm.data[glm.ypos] {
		r := y - mn[i]
		scale += r * r / va[i]
	}

	return scale / float64(n-glm.NumParams())
}

// zero sets all elements of the slice to 0
func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
