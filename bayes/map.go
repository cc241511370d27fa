package bayes

import (
	"fmt"

	"github.com/rsm-haz047/choicemodel/choice"
)

// MAP returns the posterior mode of a multinomial logit model under a
// zero-mean normal prior.  A zero-mean normal prior is a ridge penalty,
// so the mode is found by refitting the model with L2 weights
// 1/(2 sigma^2).  The covariance of the returned results is the inverse
// of the negated posterior Hessian, a Laplace approximation to the
// posterior covariance.
func MAP(model *choice.MNLogit, prior *NormalPrior) (*choice.MNLogitResults, error) {

	names := model.Names()
	if prior.Dim() != len(names) {
		return nil, fmt.Errorf("bayes: prior has dimension %d, model has %d coefficients", prior.Dim(), len(names))
	}

	for j, mn := range prior.Mean() {
		if mn != 0 {
			return nil, fmt.Errorf("bayes: MAP requires a zero prior mean, '%s' has mean %v", names[j], mn)
		}
	}

	l2wgt := make(map[string]float64)
	for j, w := range prior.L2Weights() {
		l2wgt[names[j]] = w
	}

	pm, err := model.Penalized(l2wgt)
	if err != nil {
		return nil, err
	}

	return pm.Fit()
}
