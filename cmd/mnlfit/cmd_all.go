package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rsm-haz047/choicemodel/bayes"
	"github.com/rsm-haz047/choicemodel/choice"
	"github.com/rsm-haz047/choicemodel/statmodel"
)

func newAllCommand(opts *options) *cobra.Command {

	var seed uint64

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run maximum likelihood and Metropolis-Hastings side by side",
		Long: `Fit the model by maximum likelihood and sample its posterior at the same
time, print both tables, and compare the estimates with the posterior means.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				r.cfg.MCMC.Seed = seed
			}

			// Both estimators only read the choice data.
			var mle *choice.MNLogitResults
			var mleErr error
			var sum *bayes.PosteriorSummary
			var g errgroup.Group
			g.Go(func() error {
				mle, mleErr = fitMLE(r)
				return nil
			})
			g.Go(func() error {
				var err error
				sum, _, err = sampleMCMC(r)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if mle != nil {
				fmt.Fprint(out, mle.Summary().String())
				fmt.Fprintln(out)
			}
			fmt.Fprint(out, sum.String())

			if mleErr != nil {
				return mleErr
			}

			fmt.Fprintln(out)
			printComparison(out, mle, sum)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed, overrides the configuration")

	return cmd
}

// printComparison prints the maximum likelihood estimates next to the
// posterior means.
func printComparison(out io.Writer, mle *choice.MNLogitResults, sum *bayes.PosteriorSummary) {

	est := mle.Params()
	pm := sum.Means()
	diff := make([]float64, len(est))
	for j := range est {
		diff[j] = pm[j] - est[j]
	}

	tab := &statmodel.SummaryTable{
		Title:    "Maximum likelihood vs posterior mean",
		ColNames: []string{"Variable   ", "MLE", "Post. mean", "Difference"},
		ColFmt:   []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats, statmodel.FmtFloats, statmodel.FmtFloats},
		Cols:     []interface{}{mle.Names(), est, pm, diff},
	}

	fmt.Fprint(out, tab.String())
}
