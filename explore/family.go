package explore

import (
	"fmt"
	"strings"

	"github.com/kshedden/glmexplore/glm"
)

// Family selects the error distribution of the model.  Each family is
// fit with its default link: identity for Gaussian, logit for Binomial
// and log for Gamma.
type Family uint8

// The families offered by the tool.
const (
	Gaussian Family = iota
	Binomial
	Gamma
)

// Families lists the supported families in menu order.
func Families() []Family {
	return []Family{Gaussian, Binomial, Gamma}
}

func (f Family) String() string {
	switch f {
	case Gaussian:
		return "Gaussian"
	case Binomial:
		return "Binomial"
	case Gamma:
		return "Gamma"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// ParseFamily returns the family named by s, ignoring case.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families() {
		if strings.EqualFold(strings.TrimSpace(s), f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown family %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	g, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = g
	return nil
}

func (f Family) glmFamily() (*glm.Family, error) {
	switch f {
	case Gaussian:
		return glm.NewFamily(glm.GaussianFamily), nil
	case Binomial:
		return glm.NewFamily(glm.BinomialFamily), nil
	case Gamma:
		return glm.NewFamily(glm.GammaFamily), nil
	default:
		return nil, fmt.Errorf("unknown family %v", f)
	}
}
