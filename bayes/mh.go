package bayes

import (
	"fmt"
	"log"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Default sampler settings.
const (
	DefaultNumIter         = 11000
	DefaultBurnIn          = 1000
	DefaultProposalSD      = 0.05
	DefaultPriceProposalSD = 0.005
)

// SamplerConfig configures a random-walk Metropolis-Hastings sampler.
type SamplerConfig struct {

	// NumIter is the total number of iterations, including burn-in.
	NumIter int

	// BurnIn is the number of initial draws to discard, it must be
	// less than NumIter.
	BurnIn int

	// ProposalSD holds the standard deviation of the normal random
	// walk step for each coefficient.  The defaults for the model's
	// covariates are used if nil.
	ProposalSD []float64

	// Start is the initial state of the chain, zero if nil.
	Start []float64

	// Seed initializes the random source when Src is nil.  Runs with
	// the same seed produce the same chain.
	Seed uint64

	// Src is the source of randomness, optional.
	Src rand.Source

	// Log receives progress and a final acceptance rate, optional.
	Log *log.Logger

	// LogEvery is the number of iterations between progress lines,
	// zero for no progress lines.
	LogEvery int
}

// DefaultSamplerConfig returns the default configuration for a model
// with the given covariates.  The proposal standard deviation is
// DefaultPriceProposalSD for the price coefficient (named priceVar,
// compared without regard to case) and DefaultProposalSD for all others.
func DefaultSamplerConfig(names []string, priceVar string) *SamplerConfig {
	return &SamplerConfig{
		NumIter:    DefaultNumIter,
		BurnIn:     DefaultBurnIn,
		ProposalSD: defaultProposalSD(names, priceVar),
		Seed:       1,
	}
}

func defaultProposalSD(names []string, priceVar string) []float64 {
	sd := make([]float64, len(names))
	for j, na := range names {
		if isPrice(na, priceVar) {
			sd[j] = DefaultPriceProposalSD
		} else {
			sd[j] = DefaultProposalSD
		}
	}
	return sd
}

// Sampler draws from a posterior distribution using a single
// random-walk Metropolis-Hastings chain.
type Sampler struct {
	post     *Posterior
	numiter  int
	burnin   int
	sd       []float64
	start    []float64
	seed     uint64
	src      rand.Source
	log      *log.Logger
	logevery int
}

// NewSampler returns a sampler for post.  If config is nil, the default
// configuration for the posterior's coefficient names is used.
func NewSampler(post *Posterior, config *SamplerConfig) (*Sampler, error) {

	if config == nil {
		config = DefaultSamplerConfig(post.Names(), "")
	}

	k := post.Dim()

	if config.NumIter <= 0 {
		return nil, fmt.Errorf("bayes: number of iterations %d is not positive", config.NumIter)
	}
	if config.BurnIn < 0 || config.BurnIn >= config.NumIter {
		return nil, fmt.Errorf("bayes: burn-in %d must be in [0, %d)", config.BurnIn, config.NumIter)
	}

	sd := config.ProposalSD
	if sd == nil {
		sd = defaultProposalSD(post.Names(), "")
	}
	if len(sd) != k {
		return nil, fmt.Errorf("bayes: %d proposal standard deviations for %d coefficients", len(sd), k)
	}
	for j, s := range sd {
		if !(s > 0) || math.IsInf(s, 1) {
			return nil, fmt.Errorf("bayes: proposal standard deviation %v for '%s' is not positive and finite",
				s, post.Names()[j])
		}
	}

	start := make([]float64, k)
	if config.Start != nil {
		if len(config.Start) != k {
			return nil, fmt.Errorf("bayes: %d starting values for %d coefficients", len(config.Start), k)
		}
		copy(start, config.Start)
	}

	return &Sampler{
		post:     post,
		numiter:  config.NumIter,
		burnin:   config.BurnIn,
		sd:       append([]float64(nil), sd...),
		start:    start,
		seed:     config.Seed,
		src:      config.Src,
		log:      config.Log,
		logevery: config.LogEvery,
	}, nil
}

// Run runs the chain and returns every draw.  Each iteration proposes a
// normal step for all coefficients jointly, and accepts it with
// probability min(1, exp(lp' - lp)).  The current state is recorded
// whether or not the step was accepted, so the trace has exactly NumIter
// rows.  A proposal with an undefined log-posterior is rejected.
func (s *Sampler) Run() (*Trace, error) {

	k := s.post.Dim()

	src := s.src
	if src == nil {
		src = rand.NewSource(s.seed)
	}

	steps := make([]distuv.Normal, k)
	for j := range steps {
		steps[j] = distuv.Normal{Mu: 0, Sigma: s.sd[j], Src: src}
	}
	unif := distuv.Uniform{Min: 0, Max: 1, Src: src}

	theta := append([]float64(nil), s.start...)
	lp := s.post.LogPost(theta)
	if math.IsNaN(lp) || math.IsInf(lp, 0) {
		return nil, fmt.Errorf("bayes: log-posterior at the starting point is %v", lp)
	}

	trace := newTrace(s.post.Names(), s.numiter, s.burnin)
	cand := make([]float64, k)

	var naccept int
	for i := 0; i < s.numiter; i++ {

		for j := range cand {
			cand[j] = theta[j] + steps[j].Rand()
		}

		accept := false
		lpc := s.post.LogPost(cand)
		if !math.IsNaN(lpc) {
			r := math.Exp(lpc - lp)
			if unif.Rand() < r {
				accept = true
				theta, cand = cand, theta
				lp = lpc
				naccept++
			}
		}

		trace.append(theta, lp, accept)

		if s.log != nil && s.logevery > 0 && (i+1)%s.logevery == 0 {
			s.log.Printf("%d: log-posterior %f, acceptance rate %.3f", i+1, lp, float64(naccept)/float64(i+1))
		}
	}

	if s.log != nil {
		s.log.Printf("Finished MCMC, %d iterations, acceptance rate %.3f", s.numiter, trace.AcceptanceRate())
	}

	return trace, nil
}
