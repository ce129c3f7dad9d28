package glm

import "fmt"

// VarianceType is used to specify a GLM variance function.
type VarianceType uint8

// BinomialVar, ConstantVar and SquaredVar are the variance functions of
// the binomial, Gaussian and gamma families.
const (
	BinomialVar VarianceType = iota
	ConstantVar
	SquaredVar
)

// Variance relates the variance of the response to its mean.
type Variance struct {
	Name string

	// Var and Deriv give V(mu) and V'(mu).
	Var   VecFunc
	Deriv VecFunc
}

// NewVariance returns the variance function of the given type.
func NewVariance(vartype VarianceType) *Variance {

	switch vartype {
	case BinomialVar:
		return &Variance{
			Name:  "Binomial",
			Var:   vec(func(p float64) float64 { return p * (1 - p) }),
			Deriv: vec(func(p float64) float64 { return 1 - 2*p }),
		}
	case ConstantVar:
		return &Variance{
			Name:  "Constant",
			Var:   vec(func(float64) float64 { return 1 }),
			Deriv: vec(func(float64) float64 { return 0 }),
		}
	case SquaredVar:
		return &Variance{
			Name:  "Squared",
			Var:   vec(func(m float64) float64 { return m * m }),
			Deriv: vec(func(m float64) float64 { return 2 * m }),
		}
	default:
		panic(fmt.Sprintf("Unknown variance function: %d", vartype))
	}
}
