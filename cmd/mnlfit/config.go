package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gopkg.in/yaml.v3"

	"github.com/rsm-haz047/choicemodel/bayes"
	"github.com/rsm-haz047/choicemodel/choice"
)

// RunConfig holds the estimation settings read from a YAML file.
// Fields missing from the file keep their defaults.
type RunConfig struct {
	MLE   MLEConfig   `yaml:"mle"`
	MCMC  MCMCConfig  `yaml:"mcmc"`
	Prior PriorConfig `yaml:"prior"`
}

// MLEConfig configures the maximum likelihood fit.
type MLEConfig struct {
	GradTol     float64       `yaml:"grad_tol"`
	MaxIter     int           `yaml:"max_iter"`
	NumericGrad bool          `yaml:"numeric_grad"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MCMCConfig configures the Metropolis-Hastings sampler.
type MCMCConfig struct {
	Iterations        int                `yaml:"iterations"`
	BurnIn            int                `yaml:"burn_in"`
	Seed              uint64             `yaml:"seed"`
	LogEvery          int                `yaml:"log_every"`
	Level             float64            `yaml:"level"`
	ProposalSD        map[string]float64 `yaml:"proposal_sd"`
	DefaultProposalSD float64            `yaml:"default_proposal_sd"`
}

// PriorConfig configures the normal prior.
type PriorConfig struct {
	Variance        map[string]float64 `yaml:"variance"`
	DefaultVariance float64            `yaml:"default_variance"`
}

// DefaultRunConfig returns the settings used when no file is given.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		MLE: MLEConfig{
			GradTol: 1e-6,
			MaxIter: 1000,
		},
		MCMC: MCMCConfig{
			Iterations:        bayes.DefaultNumIter,
			BurnIn:            bayes.DefaultBurnIn,
			Seed:              1,
			Level:             0.95,
			DefaultProposalSD: bayes.DefaultProposalSD,
		},
		Prior: PriorConfig{
			DefaultVariance: bayes.DefaultVariance,
		},
	}
}

// LoadRunConfig reads a YAML run configuration.  An empty path returns
// the defaults.
func LoadRunConfig(path string) (*RunConfig, error) {

	cfg := DefaultRunConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (cfg *RunConfig) validate() error {

	if cfg.MLE.GradTol <= 0 {
		return fmt.Errorf("mle.grad_tol must be positive, got %v", cfg.MLE.GradTol)
	}
	if cfg.MLE.MaxIter < 0 {
		return fmt.Errorf("mle.max_iter must not be negative, got %d", cfg.MLE.MaxIter)
	}
	if cfg.MCMC.Iterations <= 0 {
		return fmt.Errorf("mcmc.iterations must be positive, got %d", cfg.MCMC.Iterations)
	}
	if cfg.MCMC.BurnIn < 0 || cfg.MCMC.BurnIn >= cfg.MCMC.Iterations {
		return fmt.Errorf("mcmc.burn_in must be in [0, %d), got %d", cfg.MCMC.Iterations, cfg.MCMC.BurnIn)
	}
	if !(cfg.MCMC.Level > 0 && cfg.MCMC.Level < 1) {
		return fmt.Errorf("mcmc.level must be in (0, 1), got %v", cfg.MCMC.Level)
	}
	if cfg.MCMC.DefaultProposalSD <= 0 {
		return fmt.Errorf("mcmc.default_proposal_sd must be positive, got %v", cfg.MCMC.DefaultProposalSD)
	}
	if cfg.Prior.DefaultVariance <= 0 {
		return fmt.Errorf("prior.default_variance must be positive, got %v", cfg.Prior.DefaultVariance)
	}

	return nil
}

// mnlogitConfig returns the model configuration for the maximum
// likelihood fit.
func (cfg *RunConfig) mnlogitConfig(logger *log.Logger) *choice.MNLogitConfig {

	config := choice.DefaultMNLogitConfig()
	config.Log = logger
	config.GradTol = cfg.MLE.GradTol
	config.MaxIter = cfg.MLE.MaxIter
	config.NumericGrad = cfg.MLE.NumericGrad

	if cfg.MLE.Timeout > 0 {
		config.OptSettings = &optimize.Settings{
			GradientThreshold: cfg.MLE.GradTol,
			MajorIterations:   cfg.MLE.MaxIter,
			Runtime:           cfg.MLE.Timeout,
		}
	}

	return config
}

// perCoef resolves per-coefficient values: an entry of byName if there
// is one, otherwise priceVal for the price coefficient and defVal for
// the rest.  Names in byName that are not covariates are an error.
func perCoef(names []string, priceVar string, byName map[string]float64, priceVal, defVal float64, what string) ([]float64, error) {

	known := make(map[string]bool)
	for _, na := range names {
		known[na] = true
	}
	for na := range byName {
		if !known[na] {
			return nil, fmt.Errorf("%s given for unknown covariate '%s'", what, na)
		}
	}

	vals := make([]float64, len(names))
	for j, na := range names {
		v, ok := byName[na]
		switch {
		case ok:
			vals[j] = v
		case strings.EqualFold(na, priceVar):
			vals[j] = priceVal
		default:
			vals[j] = defVal
		}
		if !(vals[j] > 0) {
			return nil, fmt.Errorf("%s for '%s' must be positive, got %v", what, na, vals[j])
		}
	}

	return vals, nil
}

// prior returns the zero-mean normal prior for the covariates.
func (cfg *RunConfig) prior(names []string, priceVar string) (*bayes.NormalPrior, error) {

	variance, err := perCoef(names, priceVar, cfg.Prior.Variance, bayes.DefaultPriceVariance,
		cfg.Prior.DefaultVariance, "prior variance")
	if err != nil {
		return nil, err
	}

	return bayes.NewNormalPrior(make([]float64, len(names)), variance)
}

// samplerConfig returns the sampler configuration for the covariates.
func (cfg *RunConfig) samplerConfig(names []string, priceVar string, logger *log.Logger) (*bayes.SamplerConfig, error) {

	sd, err := perCoef(names, priceVar, cfg.MCMC.ProposalSD, bayes.DefaultPriceProposalSD,
		cfg.MCMC.DefaultProposalSD, "proposal standard deviation")
	if err != nil {
		return nil, err
	}

	return &bayes.SamplerConfig{
		NumIter:    cfg.MCMC.Iterations,
		BurnIn:     cfg.MCMC.BurnIn,
		ProposalSD: sd,
		Seed:       cfg.MCMC.Seed,
		Log:        logger,
		LogEvery:   cfg.MCMC.LogEvery,
	}, nil
}
