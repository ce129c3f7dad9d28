package glm

import (
	"fmt"

	"github.com/kshedden/glmexplore/statmodel"
)

// GLMSummary summarizes a fitted generalized linear model.
type GLMSummary struct {

	// The GLM
	glm *GLM

	// The results structure
	results *GLMResults

	// Extra values shown in the top part of the table
	top []string

	// Messages that are appended to the table
	messages []string
}

// Summary returns a summary of the model results, call String to
// render it.
func (rslt *GLMResults) Summary() *GLMSummary {

	glm := rslt.Model().(*GLM)

	return &GLMSummary{
		glm:     glm,
		results: rslt,
	}
}

// AddTop appends a "label: value" entry to the top part of the table.
func (gs *GLMSummary) AddTop(label string, value string) *GLMSummary {
	gs.top = append(gs.top, fmt.Sprintf("%-9s %s", label+":", value))
	return gs
}

// AddMessage appends a message below the table.
func (gs *GLMSummary) AddMessage(msg string) *GLMSummary {
	gs.messages = append(gs.messages, msg)
	return gs
}

// String returns a string representation of a summary table for the model.
func (gs *GLMSummary) String() string {

	sum := &statmodel.SummaryTable{
		Title: "Generalized linear model analysis",
		Msg:   gs.messages,
	}

	sum.Top = []string{
		fmt.Sprintf("Family:   %s", gs.glm.fam.Name),
		fmt.Sprintf("Link:     %s", gs.glm.link.Name),
		fmt.Sprintf("Variance: %s", gs.glm.vari.Name),
		fmt.Sprintf("Num obs:  %d", gs.glm.NumObs()),
		fmt.Sprintf("Scale:    %f", gs.results.scale),
		fmt.Sprintf("LogLike:  %.4f", gs.results.LogLike()),
		fmt.Sprintf("Deviance: %.4f", gs.results.deviance),
		fmt.Sprintf("Df resid: %d", gs.glm.NumObs()-gs.glm.NumParams()),
	}
	sum.Top = append(sum.Top, gs.top...)

	sum.ColNames = []string{"Variable", "Parameter", "SE", "LCB", "UCB", "Z-score", "P-value"}
	sum.ColFmt = []statmodel.Fmter{statmodel.StringFmt, statmodel.FloatFmt, statmodel.FloatFmt,
		statmodel.FloatFmt, statmodel.FloatFmt, statmodel.FloatFmt, statmodel.FloatFmt}

	// Estimates and approximate 95% confidence intervals
	pax := gs.results.Params()
	se := gs.results.StdErr()
	lcb := make([]float64, len(pax))
	ucb := make([]float64, len(pax))
	for j := range pax {
		lcb[j] = pax[j] - 2*se[j]
		ucb[j] = pax[j] + 2*se[j]
	}

	sum.Cols = []interface{}{
		gs.results.Names(),
		pax,
		se,
		lcb,
		ucb,
		gs.results.ZScores(),
		gs.results.PValues(),
	}

	return sum.String()
}
