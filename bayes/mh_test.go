package bayes

import (
	"bytes"
	"encoding/csv"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

func quadPosterior(t *testing.T, m *quadModel) *Posterior {
	prior, err := NewNormalPrior(make([]float64, m.k), []float64{100, 100})
	require.NoError(t, err)
	post, err := NewPosterior(m, prior)
	require.NoError(t, err)
	return post
}

func TestSamplerConfig(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2})

	cases := []struct {
		title  string
		config SamplerConfig
	}{
		{"burn-in equals iterations", SamplerConfig{NumIter: 100, BurnIn: 100, ProposalSD: []float64{1, 1}}},
		{"no iterations", SamplerConfig{NumIter: 0, ProposalSD: []float64{1, 1}}},
		{"negative burn-in", SamplerConfig{NumIter: 10, BurnIn: -1, ProposalSD: []float64{1, 1}}},
		{"proposal length", SamplerConfig{NumIter: 10, ProposalSD: []float64{1}}},
		{"zero proposal", SamplerConfig{NumIter: 10, ProposalSD: []float64{1, 0}}},
		{"start length", SamplerConfig{NumIter: 10, ProposalSD: []float64{1, 1}, Start: []float64{0}}},
	}

	for _, c := range cases {
		config := c.config
		_, err := NewSampler(post, &config)
		assert.Error(t, err, c.title)
	}

	// Defaults fill in a missing proposal.
	_, err := NewSampler(post, &SamplerConfig{NumIter: 10})
	assert.NoError(t, err)

	config := DefaultSamplerConfig([]string{"netflix", "PRICE"}, "price")
	assert.Equal(t, 11000, config.NumIter)
	assert.Equal(t, 1000, config.BurnIn)
	assert.Equal(t, []float64{0.05, 0.005}, config.ProposalSD)
}

func TestTraceShape(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2})
	s, err := NewSampler(post, &SamplerConfig{NumIter: 500, BurnIn: 100, ProposalSD: []float64{1, 1}, Seed: 3})
	require.NoError(t, err)

	trace, err := s.Run()
	require.NoError(t, err)

	assert.Equal(t, 500, trace.NumIter())
	assert.Len(t, trace.PostBurnIn(), 400)
	assert.Len(t, trace.Column(1), 400)
	assert.Equal(t, []string{"x1", "x2"}, trace.Names())

	for i, row := range trace.PostBurnIn() {
		assert.Equal(t, trace.Row(100+i), row)
	}

	rate := trace.AcceptanceRate()
	assert.Greater(t, rate, 0.1)
	assert.Less(t, rate, 0.95)
}

// A rejected step repeats the previous state, an accepted step moves.
func TestRejectedRepeats(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2})
	s, err := NewSampler(post, &SamplerConfig{NumIter: 300, ProposalSD: []float64{2, 2}, Seed: 5})
	require.NoError(t, err)

	trace, err := s.Run()
	require.NoError(t, err)

	var nrej int
	for i := 1; i < trace.NumIter(); i++ {
		if trace.Accepted(i) {
			assert.NotEqual(t, trace.Row(i-1), trace.Row(i))
		} else {
			nrej++
			assert.Equal(t, trace.Row(i-1), trace.Row(i))
			assert.Equal(t, trace.LogPost(i-1), trace.LogPost(i))
		}
	}
	assert.Greater(t, nrej, 0)
}

func TestSeedDeterminism(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2})

	run := func(seed uint64) *Trace {
		s, err := NewSampler(post, &SamplerConfig{NumIter: 200, BurnIn: 10, ProposalSD: []float64{1, 1}, Seed: seed})
		require.NoError(t, err)
		trace, err := s.Run()
		require.NoError(t, err)
		return trace
	}

	a, b, c := run(7), run(7), run(8)
	assert.Equal(t, a.draws, b.draws)
	assert.Equal(t, a.accepted, b.accepted)
	assert.NotEqual(t, a.draws, c.draws)

	// An explicit source takes precedence over the seed.
	s, err := NewSampler(post, &SamplerConfig{NumIter: 200, BurnIn: 10, ProposalSD: []float64{1, 1},
		Seed: 8, Src: rand.NewSource(7)})
	require.NoError(t, err)
	d, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, a.draws, d.draws)
}

func TestNaNProposal(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2, nanPos: true})
	s, err := NewSampler(post, &SamplerConfig{NumIter: 500, ProposalSD: []float64{1, 1}, Seed: 1})
	require.NoError(t, err)

	trace, err := s.Run()
	require.NoError(t, err)

	for i := 0; i < trace.NumIter(); i++ {
		assert.LessOrEqual(t, trace.Row(i)[0], 0.0)
		assert.False(t, math.IsNaN(trace.LogPost(i)))
	}

	post = quadPosterior(t, &quadModel{k: 2, nanAll: true})
	s, err = NewSampler(post, &SamplerConfig{NumIter: 10, ProposalSD: []float64{1, 1}})
	require.NoError(t, err)
	_, err = s.Run()
	assert.Error(t, err)
}

// The chain targets the posterior: with a flat-ish prior and the
// log-likelihood -|b|^2/2 the draws are close to standard normal.
func TestQuadTarget(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2})
	s, err := NewSampler(post, &SamplerConfig{NumIter: 40000, BurnIn: 1000, ProposalSD: []float64{1.5, 1.5}, Seed: 11})
	require.NoError(t, err)

	trace, err := s.Run()
	require.NoError(t, err)

	sum, err := Summarize(trace, 0.95)
	require.NoError(t, err)

	for _, r := range sum.Rows() {
		assert.InDelta(t, 0, r.Mean, 0.1, r.Name)
		assert.InDelta(t, 1, r.SD, 0.1, r.Name)
		assert.InDelta(t, -1.96, r.Lower, 0.25, r.Name)
		assert.InDelta(t, 1.96, r.Upper, 0.25, r.Name)
	}
}

func TestWriteCSV(t *testing.T) {

	post := quadPosterior(t, &quadModel{k: 2})
	s, err := NewSampler(post, &SamplerConfig{NumIter: 50, BurnIn: 20, ProposalSD: []float64{1, 1}, Seed: 2})
	require.NoError(t, err)
	trace, err := s.Run()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, trace.WriteCSV(&buf))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 31)
	assert.Equal(t, []string{"x1", "x2", "logpost", "accepted"}, recs[0])
	for _, r := range recs[1:] {
		assert.Len(t, r, 4)
		assert.Contains(t, []string{"true", "false"}, r[3])
	}
}

func TestProgressLog(t *testing.T) {

	var buf bytes.Buffer
	post := quadPosterior(t, &quadModel{k: 2})
	s, err := NewSampler(post, &SamplerConfig{NumIter: 100, ProposalSD: []float64{1, 1},
		Log: log.New(&buf, "", 0), LogEvery: 25})
	require.NoError(t, err)
	_, err = s.Run()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "25: "))
	assert.Contains(t, lines[4], "acceptance rate")
}

func TestSummarize(t *testing.T) {

	// All proposals rejected
	tr := newTrace([]string{"a"}, 10, 2)
	for i := 0; i < 10; i++ {
		tr.append([]float64{float64(i % 3)}, -1, false)
	}

	sum, err := Summarize(tr, 0.95)
	require.NoError(t, err)
	require.Len(t, sum.Warnings(), 1)
	assert.Contains(t, sum.String(), "Acceptance rate")

	r := sum.Rows()[0]
	col := tr.Column(0)
	assert.InDelta(t, floats.Sum(col)/8, r.Mean, 1e-12)
	assert.Equal(t, floats.Min(col), r.Lower)
	assert.Equal(t, floats.Max(col), r.Upper)

	_, err = Summarize(tr, 1.5)
	assert.Error(t, err)

	short := newTrace([]string{"a"}, 3, 2)
	for i := 0; i < 3; i++ {
		short.append([]float64{1}, -1, true)
	}
	_, err = Summarize(short, 0.95)
	assert.Error(t, err)
}

func TestESS(t *testing.T) {

	src := rand.NewSource(99)
	rng := rand.New(src)

	n := 20000
	iid := make([]float64, n)
	ar := make([]float64, n)
	phi := 0.9
	for i := range iid {
		iid[i] = rng.NormFloat64()
		if i > 0 {
			ar[i] = phi*ar[i-1] + rng.NormFloat64()
		}
	}

	e := ESS(iid)
	assert.InDelta(t, float64(n), e, 0.25*float64(n))

	// tau = (1 + phi) / (1 - phi) for an AR(1) chain
	want := float64(n) * (1 - phi) / (1 + phi)
	assert.InDelta(t, want, ESS(ar), 0.4*want)

	assert.True(t, math.IsNaN(ESS([]float64{1, 1, 1})))
}
