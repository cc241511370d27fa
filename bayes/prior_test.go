package bayes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/rsm-haz047/choicemodel/choice"
	"github.com/rsm-haz047/choicemodel/internal/simulate"
	"github.com/rsm-haz047/choicemodel/statmodel"
)

// quadModel has log-likelihood -|b|^2/2.  It optionally returns NaN,
// everywhere or for a positive first coefficient.
type quadModel struct {
	k      int
	nanAll bool
	nanPos bool
}

func (m *quadModel) NumParams() int { return m.k }

func (m *quadModel) NumObs() int { return 1 }

func (m *quadModel) Xpos() []int { return nil }

func (m *quadModel) Dataset() [][]statmodel.Dtype { return nil }

func (m *quadModel) LogLike(p statmodel.Parameter, exact bool) float64 {
	c := p.GetCoeff()
	if m.nanAll || (m.nanPos && c[0] > 0) {
		return math.NaN()
	}
	var ll float64
	for _, x := range c {
		ll -= x * x / 2
	}
	return ll
}

func (m *quadModel) Score(p statmodel.Parameter, score []float64) {}

func (m *quadModel) NewParameter(coeff []float64) statmodel.Parameter {
	return &quadParam{coeff}
}

type quadParam struct {
	coeff []float64
}

func (p *quadParam) GetCoeff() []float64 { return p.coeff }

func (p *quadParam) SetCoeff(x []float64) { p.coeff = x }

func (p *quadParam) Clone() statmodel.Parameter {
	return &quadParam{append([]float64(nil), p.coeff...)}
}

func (m *quadModel) Hessian(p statmodel.Parameter, ht statmodel.HessType, hess []float64) {}

func simLogit(t *testing.T, ntask int, seed uint64) *choice.MNLogit {

	da := simulate.Conjoint(simulate.Design{NumTasks: ntask, NumAlt: 3, Seed: seed})
	cd, err := choice.NewChoiceData(da, "task", "choice", simulate.Names, nil)
	require.NoError(t, err)

	model, err := choice.NewMNLogit(cd, nil)
	require.NoError(t, err)

	return model
}

func TestNormalPrior(t *testing.T) {

	p, err := NewNormalPrior([]float64{0, 1}, []float64{4, 0.25})
	require.NoError(t, err)

	// Normal log densities at 1 and 0.5
	want := -0.5*math.Log(2*math.Pi*4) - 1.0/8
	want += -0.5*math.Log(2*math.Pi*0.25) - 0.25/0.5
	assert.InDelta(t, want, p.LogProb([]float64{1, 0.5}), 1e-12)

	assert.InDeltaSlice(t, []float64{1.0 / 8, 2}, p.L2Weights(), 1e-12)
	assert.InDeltaSlice(t, []float64{4, 0.25}, p.Variance(), 1e-12)
	assert.Equal(t, []float64{0, 1}, p.Mean())

	_, err = NewNormalPrior([]float64{0}, []float64{1, 1})
	assert.Error(t, err)
	_, err = NewNormalPrior([]float64{0}, []float64{0})
	assert.Error(t, err)
	_, err = NewNormalPrior([]float64{math.NaN()}, []float64{1})
	assert.Error(t, err)
}

func TestDefaultNormalPrior(t *testing.T) {

	p := DefaultNormalPrior([]string{"netflix", "Price", "ads"}, "")
	assert.Equal(t, []float64{0, 0, 0}, p.Mean())
	assert.InDeltaSlice(t, []float64{5, 1, 5}, p.Variance(), 1e-12)

	p = DefaultNormalPrior([]string{"netflix", "cost"}, "COST")
	assert.InDeltaSlice(t, []float64{5, 1}, p.Variance(), 1e-12)
}

func TestLogPost(t *testing.T) {

	model := simLogit(t, 50, 1)
	prior := DefaultNormalPrior(model.Names(), "price")
	post, err := NewPosterior(model, prior)
	require.NoError(t, err)

	assert.Equal(t, simulate.Names, post.Names())

	theta := []float64{0.5, 0.2, -0.3, -0.05}
	want := model.LogLike(choice.NewMNLParameter(theta), false) + prior.LogProb(theta)
	assert.Equal(t, want, post.LogPost(theta))

	_, err = NewPosterior(model, DefaultNormalPrior([]string{"a"}, ""))
	assert.Error(t, err)

	// A ridge-penalized model would apply the prior twice.
	pm, err := model.Penalized(map[string]float64{"price": 0.5})
	require.NoError(t, err)
	_, err = NewPosterior(pm, prior)
	assert.ErrorContains(t, err, "L2 penalty")

	// A zero penalty leaves the likelihood unchanged.
	pm, err = model.Penalized(map[string]float64{"price": 0})
	require.NoError(t, err)
	post, err = NewPosterior(pm, prior)
	require.NoError(t, err)
	assert.Equal(t, want, post.LogPost(theta))
}

func TestMAP(t *testing.T) {

	model := simLogit(t, 300, 2)

	mle, err := model.Fit()
	require.NoError(t, err)

	// A vague prior barely moves the estimate.
	vague, err := NewNormalPrior(make([]float64, 4), []float64{1e6, 1e6, 1e6, 1e6})
	require.NoError(t, err)
	mp, err := MAP(model, vague)
	require.NoError(t, err)
	assert.InDeltaSlice(t, mle.Params(), mp.Params(), 1e-3)

	// A tight prior shrinks the estimate toward zero.
	tight, err := NewNormalPrior(make([]float64, 4), []float64{0.01, 0.01, 0.01, 0.01})
	require.NoError(t, err)
	mp, err = MAP(model, tight)
	require.NoError(t, err)
	assert.Less(t, floats.Norm(mp.Params(), 2), floats.Norm(mle.Params(), 2))

	// The mode maximizes the log-posterior.
	post, err := NewPosterior(model, tight)
	require.NoError(t, err)
	lp := post.LogPost(mp.Params())
	assert.True(t, mp.Converged())
	for j := range mp.Params() {
		for _, h := range []float64{-0.01, 0.01} {
			x := append([]float64(nil), mp.Params()...)
			x[j] += h
			assert.Less(t, post.LogPost(x), lp)
		}
	}

	shifted, err := NewNormalPrior([]float64{1, 0, 0, 0}, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	_, err = MAP(model, shifted)
	assert.Error(t, err)
}
