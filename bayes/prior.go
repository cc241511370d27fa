package bayes

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Default prior variances for the coefficients of a conjoint model.
const (
	DefaultVariance      = 5
	DefaultPriceVariance = 1
)

// DefaultPriceVar names the price covariate unless told otherwise.
const DefaultPriceVar = "price"

// NormalPrior places independent normal distributions on the
// coefficients.
type NormalPrior struct {
	dists    []distuv.Normal
	variance []float64
}

// NewNormalPrior returns a prior with the given means and variances,
// one per coefficient.
func NewNormalPrior(mean, variance []float64) (*NormalPrior, error) {

	if len(mean) != len(variance) {
		return nil, fmt.Errorf("bayes: %d prior means but %d variances", len(mean), len(variance))
	}

	dists := make([]distuv.Normal, len(mean))
	for j := range mean {
		if !(variance[j] > 0) || math.IsInf(variance[j], 1) {
			return nil, fmt.Errorf("bayes: prior variance %v at position %d is not positive and finite", variance[j], j)
		}
		if math.IsNaN(mean[j]) || math.IsInf(mean[j], 0) {
			return nil, fmt.Errorf("bayes: prior mean %v at position %d is not finite", mean[j], j)
		}
		dists[j] = distuv.Normal{Mu: mean[j], Sigma: math.Sqrt(variance[j])}
	}

	return &NormalPrior{
		dists:    dists,
		variance: append([]float64(nil), variance...),
	}, nil
}

// DefaultNormalPrior returns the zero-mean prior for a conjoint model
// with the given covariates.  The coefficient named priceVar (compared
// without regard to case, DefaultPriceVar if empty) has variance
// DefaultPriceVariance, all others DefaultVariance.
func DefaultNormalPrior(names []string, priceVar string) *NormalPrior {

	variance := make([]float64, len(names))
	for j, na := range names {
		if isPrice(na, priceVar) {
			variance[j] = DefaultPriceVariance
		} else {
			variance[j] = DefaultVariance
		}
	}

	p, err := NewNormalPrior(make([]float64, len(names)), variance)
	if err != nil {
		panic(err)
	}

	return p
}

func isPrice(name, priceVar string) bool {
	if priceVar == "" {
		priceVar = DefaultPriceVar
	}
	return strings.EqualFold(name, priceVar)
}

// Dim returns the number of coefficients.
func (p *NormalPrior) Dim() int {
	return len(p.dists)
}

// Mean returns the prior means.
func (p *NormalPrior) Mean() []float64 {
	m := make([]float64, len(p.dists))
	for j, d := range p.dists {
		m[j] = d.Mu
	}
	return m
}

// Variance returns the prior variances.
func (p *NormalPrior) Variance() []float64 {
	return append([]float64(nil), p.variance...)
}

// LogProb returns the log prior density at theta.
func (p *NormalPrior) LogProb(theta []float64) float64 {

	if len(theta) != len(p.dists) {
		panic(fmt.Sprintf("bayes: %d coefficients for a prior of dimension %d", len(theta), len(p.dists)))
	}

	var lp float64
	for j, d := range p.dists {
		lp += d.LogProb(theta[j])
	}

	return lp
}

// L2Weights returns 1/(2 sigma^2) for each coefficient.  Up to a
// constant, the log prior of a zero-mean prior is -sum w b^2 with these
// weights.
func (p *NormalPrior) L2Weights() []float64 {
	w := make([]float64, len(p.variance))
	for j, v := range p.variance {
		w[j] = 1 / (2 * v)
	}
	return w
}
