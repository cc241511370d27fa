package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	cfg, err := LoadRunConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), cfg)
	assert.Equal(t, 11000, cfg.MCMC.Iterations)
	assert.Equal(t, 1000, cfg.MCMC.BurnIn)
	assert.Equal(t, 1e-6, cfg.MLE.GradTol)
	assert.Equal(t, 5.0, cfg.Prior.DefaultVariance)

	// An empty file keeps the defaults too.
	p := writeFile(t, t.TempDir(), "empty.yaml", "")
	cfg, err = LoadRunConfig(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), cfg)
}

func TestLoadRunConfig_Overrides(t *testing.T) {
	p := writeFile(t, t.TempDir(), "run.yaml", `
mle:
  grad_tol: 1e-8
  numeric_grad: true
  timeout: 30s
mcmc:
  iterations: 2000
  burn_in: 0
  seed: 9
  proposal_sd: {netflix: 0.1}
prior:
  variance: {price: 2}
  default_variance: 10
`)

	cfg, err := LoadRunConfig(p)
	require.NoError(t, err)

	assert.Equal(t, 1e-8, cfg.MLE.GradTol)
	assert.Equal(t, 1000, cfg.MLE.MaxIter)
	assert.True(t, cfg.MLE.NumericGrad)
	assert.Equal(t, 30*time.Second, cfg.MLE.Timeout)
	assert.Equal(t, 2000, cfg.MCMC.Iterations)
	assert.Equal(t, 0, cfg.MCMC.BurnIn)
	assert.Equal(t, uint64(9), cfg.MCMC.Seed)
	assert.Equal(t, 0.95, cfg.MCMC.Level)
	assert.Equal(t, map[string]float64{"netflix": 0.1}, cfg.MCMC.ProposalSD)

	names := []string{"netflix", "prime", "price"}

	prior, err := cfg.prior(names, "price")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 2}, prior.Variance())

	sc, err := cfg.samplerConfig(names, "price", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.05, 0.005}, sc.ProposalSD)
	assert.Equal(t, 2000, sc.NumIter)
	assert.Equal(t, uint64(9), sc.Seed)

	mc := cfg.mnlogitConfig(nil)
	assert.True(t, mc.NumericGrad)
	require.NotNil(t, mc.OptSettings)
	assert.Equal(t, 30*time.Second, mc.OptSettings.Runtime)
}

func TestRunConfig_PriceIgnoresCase(t *testing.T) {
	cfg := DefaultRunConfig()

	prior, err := cfg.prior([]string{"ads", "PRICE"}, "price")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1}, prior.Variance())

	sc, err := cfg.samplerConfig([]string{"ads", "Cost"}, "cost", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05, 0.005}, sc.ProposalSD)
}

func TestLoadRunConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "mle:\n  tolerance: 1\n"},
		{"burn-in too large", "mcmc:\n  iterations: 10\n  burn_in: 10\n"},
		{"negative variance", "prior:\n  default_variance: -1\n"},
		{"bad level", "mcmc:\n  level: 1.5\n"},
		{"not yaml", "mle: [1, 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, "bad.yaml", tt.content)
			_, err := LoadRunConfig(p)
			assert.Error(t, err)
		})
	}

	_, err := LoadRunConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestPerCoef_UnknownName(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Prior.Variance = map[string]float64{"hulu": 1}
	_, err := cfg.prior([]string{"netflix", "price"}, "price")
	assert.ErrorContains(t, err, "hulu")

	cfg = DefaultRunConfig()
	cfg.MCMC.ProposalSD = map[string]float64{"price": 0}
	_, err = cfg.samplerConfig([]string{"netflix", "price"}, "price", nil)
	assert.Error(t, err)
}
