package bayes

import (
	"fmt"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// Likelihood is a regression model whose coefficients can be sampled.
type Likelihood interface {
	statmodel.RegFitter

	// NewParameter wraps a coefficient vector as a parameter value of
	// the model.
	NewParameter(coeff []float64) statmodel.Parameter
}

// Posterior is the unnormalized posterior density of a regression
// model's coefficients under a normal prior.
type Posterior struct {
	model Likelihood
	prior *NormalPrior
	names []string
}

// NewPosterior combines the likelihood of model with prior.  The prior
// must have one component per model coefficient.  Models carrying an L2
// penalty are rejected, the prior takes that role.
func NewPosterior(model Likelihood, prior *NormalPrior) (*Posterior, error) {

	if prior == nil {
		return nil, fmt.Errorf("bayes: nil prior")
	}

	if pm, ok := model.(interface{ L2Weights() []float64 }); ok {
		for _, w := range pm.L2Weights() {
			if w != 0 {
				return nil, fmt.Errorf("bayes: model has an L2 penalty, which would count the prior twice")
			}
		}
	}

	p := model.NumParams()
	if prior.Dim() != p {
		return nil, fmt.Errorf("bayes: prior has dimension %d, model has %d coefficients", prior.Dim(), p)
	}

	var names []string
	if nm, ok := model.(interface{ Names() []string }); ok {
		names = nm.Names()
	} else {
		for j := 0; j < p; j++ {
			names = append(names, fmt.Sprintf("x%d", j+1))
		}
	}

	return &Posterior{
		model: model,
		prior: prior,
		names: names,
	}, nil
}

// Dim returns the number of coefficients.
func (post *Posterior) Dim() int {
	return post.prior.Dim()
}

// Names returns the coefficient names.
func (post *Posterior) Names() []string {
	return post.names
}

// Model returns the model providing the likelihood.
func (post *Posterior) Model() Likelihood {
	return post.model
}

// Prior returns the prior.
func (post *Posterior) Prior() *NormalPrior {
	return post.prior
}

// LogPost returns the log-likelihood plus the log prior density at
// theta, up to an additive constant.  theta is not modified.
func (post *Posterior) LogPost(theta []float64) float64 {
	return post.model.LogLike(post.model.NewParameter(theta), false) + post.prior.LogProb(theta)
}
