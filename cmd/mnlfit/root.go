package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsm-haz047/choicemodel/choice"
)

var version = "dev"

// options holds the flags shared by all subcommands.
type options struct {
	data      string
	config    string
	taskVar   string
	choiceVar string
	xvars     string
	priceVar  string
	debug     bool
}

// run is the validated input of an estimation command.
type run struct {
	cfg    *RunConfig
	data   *choice.ChoiceData
	logger *log.Logger
	price  string
}

func newRootCommand() *cobra.Command {

	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mnlfit",
		Short: "Fit multinomial logit models to grouped choice data",
		Long: `mnlfit estimates the part-worths of a multinomial logit model from
choice data with one row per alternative, such as a conjoint survey.

Coefficients are estimated by maximum likelihood, by random-walk
Metropolis-Hastings sampling of the posterior under a normal prior, or both.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.data, "data", "", "CSV file with one row per alternative (required)")
	pf.StringVar(&opts.config, "config", "", "YAML run configuration")
	pf.StringVar(&opts.taskVar, "task", "task", "Column identifying the choice task")
	pf.StringVar(&opts.choiceVar, "choice", "choice", "Column holding the 0/1 outcome")
	pf.StringVar(&opts.xvars, "x", "", "Comma-separated covariates (default: all other numeric columns)")
	pf.StringVar(&opts.priceVar, "price", "price", "Covariate that receives the price prior and proposal scale")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newMLECommand(opts))
	cmd.AddCommand(newMCMCCommand(opts))
	cmd.AddCommand(newAllCommand(opts))

	return cmd
}

// load reads the configuration and the data.
func (opts *options) load() (*run, error) {

	if opts.data == "" {
		return nil, fmt.Errorf("--data is required")
	}

	cfg, err := LoadRunConfig(opts.config)
	if err != nil {
		return nil, err
	}

	tab, err := loadCSV(opts.data)
	if err != nil {
		return nil, err
	}

	for _, na := range []string{opts.taskVar, opts.choiceVar} {
		if tab.nonNumeric[na] {
			return nil, fmt.Errorf("column '%s' is not numeric", na)
		}
	}

	xnames, err := tab.covariates(opts.xvars, opts.taskVar, opts.choiceVar)
	if err != nil {
		return nil, err
	}

	cd, err := choice.NewChoiceData(tab, opts.taskVar, opts.choiceVar, xnames, nil)
	if err != nil {
		return nil, err
	}

	var logger *log.Logger
	if opts.debug {
		logger = log.New(os.Stderr, "mnlfit: ", log.LstdFlags)
		logger.Printf("Read %d rows, %d tasks of %d alternatives, covariates %v",
			cd.NumObs(), cd.NumTasks(), cd.NumAlt(), cd.Names())
	}

	return &run{
		cfg:    cfg,
		data:   cd,
		logger: logger,
		price:  opts.priceVar,
	}, nil
}

func execute() error {
	return executeArgs(os.Args[1:], os.Stdout)
}

func executeArgs(args []string, out io.Writer) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	return cmd.Execute()
}
