package glm

import (
	"fmt"
	"math"
)

// FamilyType is the type of GLM family used in a model.
type FamilyType uint8

// BinomialFamily, GaussianFamily and GammaFamily are the supported
// families for a GLM.
const (
	BinomialFamily FamilyType = iota
	GaussianFamily
	GammaFamily
)

// LogLikeFunc evaluates and returns the log-likelihood for a GLM.  The arguments
// are the data, the mean values, the scale parameter, and the 'exact flag'.
// If the exact flag is false, terms that are constant with respect to
// the mean may be omitted.
type LogLikeFunc func(y, mn []float64, scale float64, exact bool) float64

// DevianceFunc evaluates and returns the deviance for a GLM.  The arguments
// are the data, the mean values, and the scale parameter.
type DevianceFunc func(y, mn []float64, scale float64) float64

// CheckFunc reports whether the response values are in the support of
// the family.
type CheckFunc func(y []float64) error

// Family represents a generalized linear model family.
type Family struct {

	// The name of the family
	Name string

	// The numeric code for the family
	TypeCode FamilyType

	// The log-likelihood function for the family
	LogLike LogLikeFunc

	// The deviance function for the family
	Deviance DevianceFunc

	// Check validates the response before fitting
	Check CheckFunc

	// Whether the scale parameter is fixed at 1
	fixedScale bool

	// The links that are valid for this family.  The first listed
	// link is the default link.
	validLinks []LinkType

	// The default variance function
	variance VarianceType
}

// NewFamily returns a family object corresponding to the given type.
func NewFamily(fam FamilyType) *Family {

	switch fam {
	case BinomialFamily:
		return &binomial
	case GaussianFamily:
		return &gaussian
	case GammaFamily:
		return &gamma
	default:
		panic(fmt.Sprintf("Unknown family: %v", fam))
	}
}

var binomial = Family{
	Name:       "Binomial",
	TypeCode:   BinomialFamily,
	LogLike:    binomialLogLike,
	Deviance:   binomialDeviance,
	Check:      binomialCheck,
	fixedScale: true,
	validLinks: []LinkType{LogitLink, LogLink},
	variance:   BinomialVar,
}

var gaussian = Family{
	Name:       "Gaussian",
	TypeCode:   GaussianFamily,
	LogLike:    gaussianLogLike,
	Deviance:   gaussianDeviance,
	Check:      finiteCheck,
	validLinks: []LinkType{IdentityLink, LogLink},
	variance:   ConstantVar,
}

// The gamma family defaults to the log link, which keeps the fitted
// means positive.
var gamma = Family{
	Name:       "Gamma",
	TypeCode:   GammaFamily,
	LogLike:    gammaLogLike,
	Deviance:   gammaDeviance,
	Check:      gammaCheck,
	validLinks: []LinkType{LogLink, IdentityLink},
	variance:   SquaredVar,
}

// IsValidLink returns true or false based on whether the link is
// valid for the family.
func (fam *Family) IsValidLink(link *Link) bool {

	for _, q := range fam.validLinks {
		if link.TypeCode == q {
			return true
		}
	}

	return false
}

// DefaultLink returns the link used when none is set explicitly.
func (fam *Family) DefaultLink() *Link {
	return NewLink(fam.validLinks[0])
}

func finiteCheck(y []float64) error {
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("response value %v at row %d is not finite", v, i)
		}
	}
	return nil
}

func binomialCheck(y []float64) error {
	for i, v := range y {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("binomial response must lie in [0, 1], found %v at row %d", v, i)
		}
	}
	return nil
}

func gammaCheck(y []float64) error {
	for i, v := range y {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("gamma response must be positive, found %v at row %d", v, i)
		}
	}
	return nil
}

func binomialLogLike(y, mn []float64, scale float64, exact bool) float64 {
	var ll float64
	for i := range y {
		r := mn[i]/(1-mn[i]) + 1e-200
		ll += y[i]*math.Log(r) + math.Log(1-mn[i])
	}
	return ll
}

func gaussianLogLike(y, mn []float64, scale float64, exact bool) float64 {
	var ll float64
	for i := range y {
		r := y[i] - mn[i]
		ll -= r * r / (2 * scale)
	}
	ll -= float64(len(y)) * math.Log(2*math.Pi*scale) / 2
	return ll
}

func gammaLogLike(y, mn []float64, scale float64, exact bool) float64 {

	var ll float64
	for i := range y {
		v := y[i]/mn[i] + math.Log(mn[i])
		ll -= v / scale
	}

	if exact {
		g, _ := math.Lgamma(1 / scale)
		for i := range y {
			v := (scale-1)*math.Log(y[i]) + math.Log(scale) + scale*g
			ll -= v / scale
		}
	}

	return ll
}

func binomialDeviance(y, mn []float64, scale float64) float64 {

	var dev float64
	for i := range y {
		// Treat 0*log(0) as 0 so that binary responses are handled.
		if y[i] > 0 {
			dev += 2 * y[i] * math.Log(y[i]/mn[i])
		}
		if y[i] < 1 {
			dev += 2 * (1 - y[i]) * math.Log((1-y[i])/(1-mn[i]))
		}
	}

	return dev / scale
}

func gammaDeviance(y, mn []float64, scale float64) float64 {

	var dev float64
	for i := range y {
		dev += 2 * ((y[i]-mn[i])/mn[i] - math.Log(y[i]/mn[i]))
	}

	return dev / scale
}

func gaussianDeviance(y, mn []float64, scale float64) float64 {

	var dev float64
	for i := range y {
		r := y[i] - mn[i]
		dev += r * r
	}

	return dev / scale
}
