package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// fitIRLS fits the model using iteratively reweighted least squares.
// It returns the estimated coefficients and the number of iterations.
func (glm *GLM) fitIRLS(start []float64, maxiter int) ([]float64, int, error) {

	n := glm.NumObs()
	nvar := glm.NumParams()

	linpred := make([]float64, n)
	mn := make([]float64, n)
	va := make([]float64, n)
	lderiv := make([]float64, n)
	irlsw := make([]float64, n)
	adjy := make([]float64, n)

	xty := make([]float64, nvar)
	xtx := make([]float64, nvar*nvar)

	params := make([]float64, nvar)
	if start != nil {
		copy(params, start)
	}

	xdat := make([][]float64, nvar)
	for j, k := range glm.xpos {
		xdat[j] = glm.data[k]
	}
	yda := glm.data[glm.ypos]

	var nparam mat.VecDense
	var dev []float64

	for iter := 0; iter < maxiter; iter++ {

		if iter == 0 && start == nil {
			glm.startingMu(yda, mn)
			glm.link.Link(mn, linpred)
		} else {
			glm.linpred(params, linpred)
			glm.link.InvLink(linpred, mn)
		}

		glm.link.Deriv(mn, lderiv)
		glm.vari.Var(mn, va)

		devi := glm.fam.Deviance(yda, mn, 1)
		if math.IsNaN(devi) || math.IsInf(devi, 0) {
			return nil, iter, fmt.Errorf("%w: deviance is not finite at iteration %d", ErrNotConverged, iter+1)
		}

		// Check convergence
		dev = append(dev, devi)
		if len(dev) > 3 && math.Abs(dev[len(dev)-1]-dev[len(dev)-2]) < glm.dtol {
			if glm.log != nil {
				glm.log.Debug("IRLS converged", "iterations", iter, "deviance", devi)
			}
			return params, iter, nil
		}

		if glm.log != nil {
			glm.log.Debug("IRLS iteration", "iteration", iter+1, "deviance", devi)
		}

		// Weights and adjusted response for WLS
		for i := range yda {
			irlsw[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
			adjy[i] = linpred[i] + lderiv[i]*(yda[i]-mn[i])
		}

		irlsXprod(xdat, adjy, irlsw, xty, xtx)

		// Update the parameters
		xtxm := mat.NewDense(nvar, nvar, xtx)
		xtyv := mat.NewVecDense(nvar, xty)
		if err := nparam.SolveVec(xtxm, xtyv); err != nil {
			return nil, iter, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		copy(params, nparam.RawVector().Data)
	}

	return nil, maxiter, fmt.Errorf("%w after %d iterations", ErrNotConverged, maxiter)
}

// irlsXprod computes the weighted moment matrices x' w x and x' w y.
func irlsXprod(xdat [][]float64, adjy, irlsw, xty, xtx []float64) {

	nvar := len(xdat)

	for j1, xda := range xdat {

		// Update x' w yadj
		var u float64
		for i := range adjy {
			u += adjy[i] * xda[i] * irlsw[i]
		}
		xty[j1] = u

		// Update x' w x
		for j2 := 0; j2 <= j1; j2++ {
			xdb := xdat[j2]
			var v float64
			for i := range xda {
				v += xda[i] * xdb[i] * irlsw[i]
			}
			xtx[j1*nvar+j2] = v
			xtx[j2*nvar+j1] = v
		}
	}
}

// startingMu sets the mean values used for the first IRLS iteration.
func (glm *GLM) startingMu(y []float64, mn []float64) {

	switch glm.fam.TypeCode {
	case BinomialFamily:
		for i := range mn {
			mn[i] = (y[i] + 0.5) / 2
		}
	case GaussianFamily:
		copy(mn, y)
		if glm.link.TypeCode != IdentityLink {
			// The log link needs positive means.
			var q float64
			for _, v := range y {
				q += v
			}
			q /= float64(len(y))
			for i := range mn {
				mn[i] = (y[i] + q) / 2
				if mn[i] < 0.1 {
					mn[i] = 0.1
				}
			}
		}
	default:
		var q float64
		for _, v := range y {
			q += v
		}
		q /= float64(len(y))
		for i := range mn {
			mn[i] = (y[i] + q) / 2
		}
	}
}
