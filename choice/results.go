package choice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// MNLogitResults describes the results of a fitted multinomial logit model.
type MNLogitResults struct {
	statmodel.BaseResults

	status     optimize.Status
	iterations int
	cond       float64
	nullLL     float64
	converged  bool
	warnings   []string
}

var _ statmodel.BaseResultser = (*MNLogitResults)(nil)

// CoefRow is one line of the coefficient table of a fitted model.
type CoefRow struct {
	Name     string
	Estimate float64
	StdErr   float64
	Lower    float64
	Upper    float64
}

// Status returns the optimizer termination status.
func (rslt *MNLogitResults) Status() optimize.Status {
	return rslt.status
}

// Iterations returns the number of major optimizer iterations.
func (rslt *MNLogitResults) Iterations() int {
	return rslt.iterations
}

// Converged reports whether the optimizer reached a minimum.
func (rslt *MNLogitResults) Converged() bool {
	return rslt.converged
}

// HessCond returns the condition number of the Hessian at the estimate.
func (rslt *MNLogitResults) HessCond() float64 {
	return rslt.cond
}

// NullLogLike returns the log-likelihood of the model with all
// coefficients equal to zero.
func (rslt *MNLogitResults) NullLogLike() float64 {
	return rslt.nullLL
}

// PseudoR2 returns McFadden's pseudo R-squared, 1 - ll / ll0.
func (rslt *MNLogitResults) PseudoR2() float64 {
	return 1 - rslt.LogLike()/rslt.nullLL
}

// FittedProbs returns the fitted choice probability of every row of
// the data used to fit the model.
func (rslt *MNLogitResults) FittedProbs() []float64 {
	pr := rslt.FittedValues(nil)
	rslt.Model().(*MNLogit).softmax(pr)
	return pr
}

// Warnings returns diagnostics about the covariance estimate.
func (rslt *MNLogitResults) Warnings() []string {
	return rslt.warnings
}

// Table returns the estimates with standard errors and 95% Wald
// confidence intervals.  The standard errors and bounds are NaN if the
// covariance is unavailable.
func (rslt *MNLogitResults) Table() []CoefRow {

	params := rslt.Params()
	se := rslt.StdErr()
	lcb, ucb := rslt.ConfInt(statmodel.Z95)

	rows := make([]CoefRow, len(params))
	for j, na := range rslt.Names() {
		rows[j] = CoefRow{
			Name:     na,
			Estimate: params[j],
			StdErr:   nan(se, j),
			Lower:    nan(lcb, j),
			Upper:    nan(ucb, j),
		}
	}

	return rows
}

func nan(x []float64, j int) float64 {
	if x == nil {
		return math.NaN()
	}
	return x[j]
}

// MNLogitSummary summarizes a fitted multinomial logit model.
type MNLogitSummary struct {

	// The results structure
	results *MNLogitResults

	// Messages that are appended to the table
	messages []string
}

// Summary displays a summary table of the model results.
func (rslt *MNLogitResults) Summary() *MNLogitSummary {
	return &MNLogitSummary{
		results:  rslt,
		messages: rslt.warnings,
	}
}

// String returns a string representation of a summary table for the model.
func (ms *MNLogitSummary) String() string {

	rslt := ms.results
	m := rslt.Model().(*MNLogit)
	cd := m.Data()

	sum := &statmodel.SummaryTable{
		Title: "Multinomial logit analysis",
		Msg:   append([]string(nil), ms.messages...),
	}

	conv := "yes"
	if !rslt.converged {
		conv = "no"
		sum.Msg = append(sum.Msg, fmt.Sprintf("Optimizer did not converge (status %v)", rslt.status))
	}

	sum.Top = []string{
		fmt.Sprintf("  Tasks:        %10d", cd.NumTasks()),
		fmt.Sprintf("  Alternatives: %10d", cd.NumAlt()),
		fmt.Sprintf("  Log-like:     %10.3f", rslt.LogLike()),
		fmt.Sprintf("  Null LL:      %10.3f", rslt.nullLL),
		fmt.Sprintf("  Pseudo R2:    %10.4f", rslt.PseudoR2()),
		fmt.Sprintf("  Iterations:   %10d", rslt.iterations),
		fmt.Sprintf("  Converged:    %10s", conv),
	}

	if rslt.StdErr() != nil {
		lcb, ucb := rslt.ConfInt(statmodel.Z95)
		sum.ColNames = []string{"Variable   ", "Coefficient", "SE", "LCB", "UCB", "Z-score", "P-value"}
		sum.ColFmt = []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats, statmodel.FmtFloats,
			statmodel.FmtFloats, statmodel.FmtFloats, statmodel.FmtFloats, statmodel.FmtFloats}
		sum.Cols = []interface{}{rslt.Names(), rslt.Params(), rslt.StdErr(), lcb, ucb,
			rslt.ZScores(), rslt.PValues()}
	} else {
		sum.ColNames = []string{"Variable   ", "Coefficient"}
		sum.ColFmt = []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats}
		sum.Cols = []interface{}{rslt.Names(), rslt.Params()}
	}

	return sum.String()
}
