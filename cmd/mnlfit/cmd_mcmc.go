package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsm-haz047/choicemodel/bayes"
	"github.com/rsm-haz047/choicemodel/choice"
)

func newMCMCCommand(opts *options) *cobra.Command {

	var tracePath string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "mcmc",
		Short: "Sample the posterior with Metropolis-Hastings",
		Long: `Sample the posterior distribution of the coefficients under independent
normal priors with a random-walk Metropolis-Hastings chain, and print the
posterior means, standard deviations and credible intervals.

The post burn-in draws can be written to a CSV file for trace plots.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				r.cfg.MCMC.Seed = seed
			}

			sum, trace, err := sampleMCMC(r)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), sum.String())

			if tracePath != "" {
				return writeTrace(tracePath, trace)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tracePath, "trace", "", "Write the post burn-in draws to this CSV file")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed, overrides the configuration")

	return cmd
}

// sampleMCMC runs the sampler and summarizes the draws.
func sampleMCMC(r *run) (*bayes.PosteriorSummary, *bayes.Trace, error) {

	names := r.data.Names()

	model, err := choice.NewMNLogit(r.data, nil)
	if err != nil {
		return nil, nil, err
	}

	prior, err := r.cfg.prior(names, r.price)
	if err != nil {
		return nil, nil, err
	}

	post, err := bayes.NewPosterior(model, prior)
	if err != nil {
		return nil, nil, err
	}

	config, err := r.cfg.samplerConfig(names, r.price, r.logger)
	if err != nil {
		return nil, nil, err
	}

	sampler, err := bayes.NewSampler(post, config)
	if err != nil {
		return nil, nil, err
	}

	trace, err := sampler.Run()
	if err != nil {
		return nil, nil, err
	}

	sum, err := bayes.Summarize(trace, r.cfg.MCMC.Level)
	if err != nil {
		return nil, nil, err
	}

	return sum, trace, nil
}

func writeTrace(path string, trace *bayes.Trace) error {

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}

	if err := trace.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("writing trace: %w", err)
	}

	return f.Close()
}
