package glm

import (
	"fmt"
	"math"
)

// VecFunc is a function with two float64 array arguments, it writes
// f(x[i]) into y[i].
type VecFunc func(x, y []float64)

// vec lifts a scalar function to a VecFunc.
func vec(f func(float64) float64) VecFunc {
	return func(x, y []float64) {
		for i, v := range x {
			y[i] = f(v)
		}
	}
}

// Link specifies a GLM link function.
type Link struct {
	Name string

	TypeCode LinkType

	// Link maps the mean to the linear predictor.
	Link VecFunc

	// InvLink maps the linear predictor to the mean.
	InvLink VecFunc

	// Deriv and Deriv2 are the first and second derivatives of
	// the link with respect to the mean.
	Deriv  VecFunc
	Deriv2 VecFunc
}

// LinkType is used to specify a GLM link function.
type LinkType uint8

// LogLink, IdentityLink and LogitLink are the supported links.
const (
	LogLink LinkType = iota
	IdentityLink
	LogitLink
)

// NewLink returns the link of the given type.
func NewLink(link LinkType) *Link {

	switch link {
	case LogLink:
		return &logLink
	case IdentityLink:
		return &idLink
	case LogitLink:
		return &logitLink
	default:
		panic(fmt.Sprintf("Link unknown: %v", link))
	}
}

var logLink = Link{
	Name:     "Log",
	TypeCode: LogLink,
	Link:     vec(math.Log),
	InvLink:  vec(math.Exp),
	Deriv:    vec(func(m float64) float64 { return 1 / m }),
	Deriv2:   vec(func(m float64) float64 { return -1 / (m * m) }),
}

var idLink = Link{
	Name:     "Identity",
	TypeCode: IdentityLink,
	Link:     vec(func(m float64) float64 { return m }),
	InvLink:  vec(func(lp float64) float64 { return lp }),
	Deriv:    vec(func(float64) float64 { return 1 }),
	Deriv2:   vec(func(float64) float64 { return 0 }),
}

var logitLink = Link{
	Name:     "Logit",
	TypeCode: LogitLink,
	Link:     vec(func(p float64) float64 { return math.Log(p / (1 - p)) }),
	InvLink:  vec(func(lp float64) float64 { return 1 / (1 + math.Exp(-lp)) }),
	Deriv:    vec(func(p float64) float64 { return 1 / (p * (1 - p)) }),
	Deriv2: vec(func(p float64) float64 {
		u := p * (1 - p)
		return (2*p - 1) / (u * u)
	}),
}
