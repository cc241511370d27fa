package bayes

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// Acceptance rates outside of these bounds indicate a badly scaled
// proposal.
const (
	MinAcceptance = 0.1
	MaxAcceptance = 0.9
)

// PosteriorRow summarizes the post burn-in draws of one coefficient.
type PosteriorRow struct {
	Name string

	// Sample mean and standard deviation (n-1 denominator)
	Mean float64
	SD   float64

	// Equal-tailed credible interval from empirical percentiles
	Lower float64
	Upper float64

	// Effective sample size
	ESS float64
}

// PosteriorSummary summarizes a Metropolis-Hastings trace.
type PosteriorSummary struct {
	rows       []PosteriorRow
	level      float64
	numiter    int
	burnin     int
	acceptance float64
	warnings   []string
}

// Summarize computes the posterior mean, standard deviation, credible
// interval with the given coverage level, and effective sample size of
// every coefficient from the post burn-in draws.
func Summarize(trace *Trace, level float64) (*PosteriorSummary, error) {

	if !(level > 0 && level < 1) {
		return nil, fmt.Errorf("bayes: credible level %v outside (0, 1)", level)
	}

	n := trace.NumIter() - trace.BurnIn()
	if n < 2 {
		return nil, fmt.Errorf("bayes: %d draws after burn-in, at least 2 are needed", n)
	}

	ps := &PosteriorSummary{
		level:      level,
		numiter:    trace.NumIter(),
		burnin:     trace.BurnIn(),
		acceptance: trace.AcceptanceRate(),
	}

	lp := 100 * (1 - level) / 2
	up := 100 * (1 + level) / 2
	for j, na := range trace.Names() {
		col := trace.Column(j)
		mn, sd := stat.MeanStdDev(col, nil)
		ps.rows = append(ps.rows, PosteriorRow{
			Name:  na,
			Mean:  mn,
			SD:    sd,
			Lower: percentile(col, lp),
			Upper: percentile(col, up),
			ESS:   ESS(col),
		})
	}

	if ps.acceptance < MinAcceptance || ps.acceptance > MaxAcceptance {
		ps.warnings = append(ps.warnings,
			fmt.Sprintf("Acceptance rate %.3f is outside [%.2f, %.2f], consider rescaling the proposal",
				ps.acceptance, MinAcceptance, MaxAcceptance))
	}

	return ps, nil
}

// percentile returns the pct percentile of x.  Percentiles too close to
// the ends for the averaging rule fall back to the empirical quantile.
func percentile(x []float64, pct float64) float64 {

	v, err := stats.Percentile(x, pct)
	if err == nil {
		return v
	}

	s := append([]float64(nil), x...)
	sort.Float64s(s)
	return stat.Quantile(pct/100, stat.Empirical, s, nil)
}

// ESS returns the effective sample size of a chain, n / tau, where the
// integrated autocorrelation time tau is estimated with Geyer's initial
// positive sequence.  ESS is NaN for a constant chain.
func ESS(x []float64) float64 {

	n := len(x)
	d := make([]float64, n)
	copy(d, x)
	floats.AddConst(-stat.Mean(x, nil), d)

	c0 := floats.Dot(d, d) / float64(n)
	if c0 == 0 {
		return math.NaN()
	}

	rho := func(k int) float64 {
		return floats.Dot(d[:n-k], d[k:]) / float64(n) / c0
	}

	// tau = -1 + 2 sum_m (rho_2m + rho_2m+1), summed while the pair
	// sums stay positive.
	tau := -1.0
	for m := 0; 2*m+1 < n; m++ {
		g := rho(2*m) + rho(2*m+1)
		if g <= 0 {
			break
		}
		tau += 2 * g
	}

	if tau < 1 {
		tau = 1
	}

	return float64(n) / tau
}

// Rows returns the per-coefficient summaries.
func (ps *PosteriorSummary) Rows() []PosteriorRow {
	return ps.rows
}

// Level returns the coverage level of the credible intervals.
func (ps *PosteriorSummary) Level() float64 {
	return ps.level
}

// AcceptanceRate returns the acceptance rate of the chain.
func (ps *PosteriorSummary) AcceptanceRate() float64 {
	return ps.acceptance
}

// Warnings returns diagnostics about the chain.
func (ps *PosteriorSummary) Warnings() []string {
	return ps.warnings
}

// Means returns the posterior means, in coefficient order.
func (ps *PosteriorSummary) Means() []float64 {
	m := make([]float64, len(ps.rows))
	for j, r := range ps.rows {
		m[j] = r.Mean
	}
	return m
}

// String renders the summary as a table.
func (ps *PosteriorSummary) String() string {

	var names []string
	var mean, sd, lcb, ucb, ess []float64
	for _, r := range ps.rows {
		names = append(names, r.Name)
		mean = append(mean, r.Mean)
		sd = append(sd, r.SD)
		lcb = append(lcb, r.Lower)
		ucb = append(ucb, r.Upper)
		ess = append(ess, r.ESS)
	}

	lo := fmt.Sprintf("%.1f%%", 100*(1-ps.level)/2)
	hi := fmt.Sprintf("%.1f%%", 100*(1+ps.level)/2)

	sum := &statmodel.SummaryTable{
		Title:    "Posterior summary (Metropolis-Hastings)",
		ColNames: []string{"Variable   ", "Mean", "SD", lo, hi, "ESS"},
		ColFmt: []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats, statmodel.FmtFloats,
			statmodel.FmtFloats, statmodel.FmtFloats, fmtCounts},
		Cols: []interface{}{names, mean, sd, lcb, ucb, ess},
		Top: []string{
			fmt.Sprintf("  Iterations:  %10d", ps.numiter),
			fmt.Sprintf("  Burn-in:     %10d", ps.burnin),
			fmt.Sprintf("  Draws kept:  %10d", ps.numiter-ps.burnin),
			fmt.Sprintf("  Acceptance:  %10.3f", ps.acceptance),
		},
		Msg: append([]string(nil), ps.warnings...),
	}

	return sum.String()
}

func fmtCounts(x interface{}, h string) []string {
	y := x.([]float64)
	s := make([]string, len(y))
	for i := range y {
		s[i] = fmt.Sprintf("%10.0f", y[i])
	}
	return s
}
