// +build ignore

/*
This simulation repeatedly generates conjoint choice data from known
part-worths, fits a multinomial logit model to each data set, and reports
the bias of the estimates and the coverage of the 95% Wald intervals.
*/

package main

import (
	"flag"
	"fmt"

	"github.com/rsm-haz047/choicemodel/choice"
	"github.com/rsm-haz047/choicemodel/internal/simulate"
)

func main() {

	nrep := flag.Int("nrep", 200, "number of replications")
	ntask := flag.Int("tasks", 1000, "number of tasks per data set")
	nalt := flag.Int("alts", 3, "number of alternatives per task")
	flag.Parse()

	p := len(simulate.Names)
	bias := make([]float64, p)
	cover := make([]float64, p)
	var nfail int

	for r := 0; r < *nrep; r++ {

		da := simulate.Conjoint(simulate.Design{NumTasks: *ntask, NumAlt: *nalt, Seed: uint64(r + 1)})
		cd, err := choice.NewChoiceData(da, "task", "choice", simulate.Names, nil)
		if err != nil {
			panic(err)
		}

		model, err := choice.NewMNLogit(cd, nil)
		if err != nil {
			panic(err)
		}

		rslt, err := model.Fit()
		if err != nil {
			nfail++
			continue
		}

		for j, row := range rslt.Table() {
			b := simulate.PartWorths[j]
			bias[j] += row.Estimate - b
			if row.Lower <= b && b <= row.Upper {
				cover[j]++
			}
		}
	}

	n := float64(*nrep - nfail)
	fmt.Printf("%d replications, %d failed to converge\n", *nrep, nfail)
	fmt.Printf("%-10s %10s %10s %10s\n", "Variable", "True", "Bias", "Coverage")
	for j, na := range simulate.Names {
		fmt.Printf("%-10s %10.4f %10.4f %10.3f\n", na, simulate.PartWorths[j], bias[j]/n, cover[j]/n)
	}
}
