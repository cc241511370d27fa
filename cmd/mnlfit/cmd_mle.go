package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsm-haz047/choicemodel/choice"
)

func newMLECommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mle",
		Short: "Fit the model by maximum likelihood",
		Long: `Fit the model by maximum likelihood and print the estimates with
standard errors and 95% Wald confidence intervals.

If the optimizer does not converge, the last iterate is printed and the
command exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.load()
			if err != nil {
				return err
			}

			rslt, err := fitMLE(r)
			if rslt != nil {
				fmt.Fprint(cmd.OutOrStdout(), rslt.Summary().String())
			}
			return err
		},
	}
}

// fitMLE fits the model, partial results are returned when the
// optimizer does not converge.
func fitMLE(r *run) (*choice.MNLogitResults, error) {

	model, err := choice.NewMNLogit(r.data, r.cfg.mnlogitConfig(r.logger))
	if err != nil {
		return nil, err
	}

	return model.Fit()
}
