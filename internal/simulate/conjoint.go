// Package simulate generates synthetic conjoint choice tasks from known
// part-worths.  It is used to check that the estimators recover the
// values the data were generated from.
package simulate

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// Names are the covariates of a streaming-service conjoint design.
// Hulu is the reference brand.
var Names = []string{"netflix", "prime", "ads", "price"}

// PartWorths are the default true coefficients, in the order of Names.
var PartWorths = []float64{1.0, 0.5, -0.8, -0.1}

// Prices are the monthly price levels shown to respondents.
var Prices = []float64{8, 12, 16, 20, 24, 28, 32}

// Design describes a simulated conjoint study.
type Design struct {

	// Number of choice tasks and alternatives per task
	NumTasks int
	NumAlt   int

	// True coefficients, PartWorths if nil
	Coeff []float64

	Seed uint64
}

// Conjoint simulates a conjoint study.  Each alternative is a random
// brand (netflix, prime or hulu), ad-supported or not, at a random
// price level.  The chosen alternative maximizes x'b plus an extreme
// value error, so the choices follow a multinomial logit.  The returned
// dataset has columns task, choice, then Names.
func Conjoint(d Design) statmodel.Dataset {

	if d.NumTasks <= 0 || d.NumAlt < 2 {
		panic(fmt.Sprintf("simulate: invalid design %d tasks x %d alternatives", d.NumTasks, d.NumAlt))
	}

	coeff := d.Coeff
	if coeff == nil {
		coeff = PartWorths
	}
	if len(coeff) != len(Names) {
		panic(fmt.Sprintf("simulate: %d coefficients, expected %d", len(coeff), len(Names)))
	}

	src := rand.NewSource(d.Seed)
	rng := rand.New(src)
	gum := distuv.GumbelRight{Mu: 0, Beta: 1, Src: src}

	n := d.NumTasks * d.NumAlt
	cols := make([][]statmodel.Dtype, 2+len(Names))
	for j := range cols {
		cols[j] = make([]statmodel.Dtype, n)
	}
	task, choice := cols[0], cols[1]
	x := cols[2:]

	xrow := make([]float64, len(Names))
	for t := 0; t < d.NumTasks; t++ {
		best, bestu := -1, 0.0
		for k := 0; k < d.NumAlt; k++ {
			i := t*d.NumAlt + k
			task[i] = float64(t + 1)

			zero(xrow)
			switch rng.Intn(3) {
			case 0:
				xrow[0] = 1
			case 1:
				xrow[1] = 1
			}
			xrow[2] = float64(rng.Intn(2))
			xrow[3] = Prices[rng.Intn(len(Prices))]

			for j := range xrow {
				x[j][i] = xrow[j]
			}

			u := floats.Dot(xrow, coeff) + gum.Rand()
			if best == -1 || u > bestu {
				best, bestu = i, u
			}
		}
		choice[best] = 1
	}

	varnames := append([]string{"task", "choice"}, Names...)

	return statmodel.NewDataset(cols, varnames)
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
