package explore

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kshedden/glmexplore/bins"
)

// DefaultMaxLevels is the number of distinct values above which a
// numeric column is binned.
const DefaultMaxLevels = 10

// ViewSettings control how columns are grouped for plotting.  They do
// not affect the model.
type ViewSettings struct {

	// Numeric columns with more distinct values are binned into this
	// many buckets
	MaxLevels int `validate:"gte=2"`

	BinMethod bins.Method `validate:"oneof=uniform quantile"`
}

// DefaultViewSettings returns ten uniform buckets.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		MaxLevels: DefaultMaxLevels,
		BinMethod: bins.MethodUniform,
	}
}

var validate = validator.New()

// Validate checks the settings.  The error matches ErrSettings.
func (s ViewSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrSettings, err)
	}
	return nil
}
