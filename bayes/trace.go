package bayes

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Trace holds the states visited by a Metropolis-Hastings chain.  Row i
// is the state after iteration i.
type Trace struct {
	names  []string
	burnin int

	// Draws stored row-major, one row of len(names) per iteration
	draws []float64

	logpost  []float64
	accepted []bool
}

func newTrace(names []string, numiter, burnin int) *Trace {
	return &Trace{
		names:    names,
		burnin:   burnin,
		draws:    make([]float64, 0, numiter*len(names)),
		logpost:  make([]float64, 0, numiter),
		accepted: make([]bool, 0, numiter),
	}
}

func (tr *Trace) append(theta []float64, lp float64, accepted bool) {
	tr.draws = append(tr.draws, theta...)
	tr.logpost = append(tr.logpost, lp)
	tr.accepted = append(tr.accepted, accepted)
}

// Names returns the coefficient names.
func (tr *Trace) Names() []string {
	return tr.names
}

// NumIter returns the number of rows in the trace.
func (tr *Trace) NumIter() int {
	return len(tr.logpost)
}

// BurnIn returns the number of initial rows that are discarded.
func (tr *Trace) BurnIn() int {
	return tr.burnin
}

// Row returns the state after iteration i.  The slice must not be
// modified.
func (tr *Trace) Row(i int) []float64 {
	k := len(tr.names)
	return tr.draws[i*k : (i+1)*k]
}

// LogPost returns the log-posterior after iteration i.
func (tr *Trace) LogPost(i int) float64 {
	return tr.logpost[i]
}

// Accepted reports whether the proposal of iteration i was accepted.
func (tr *Trace) Accepted(i int) bool {
	return tr.accepted[i]
}

// PostBurnIn returns copies of the rows that follow the burn-in.
func (tr *Trace) PostBurnIn() [][]float64 {
	var rows [][]float64
	for i := tr.burnin; i < tr.NumIter(); i++ {
		rows = append(rows, append([]float64(nil), tr.Row(i)...))
	}
	return rows
}

// Column returns the post burn-in draws of coefficient j.
func (tr *Trace) Column(j int) []float64 {
	k := len(tr.names)
	if j < 0 || j >= k {
		panic(fmt.Sprintf("bayes: column %d out of range [0, %d)", j, k))
	}
	var col []float64
	for i := tr.burnin; i < tr.NumIter(); i++ {
		col = append(col, tr.draws[i*k+j])
	}
	return col
}

// AcceptanceRate returns the share of iterations, burn-in included, in
// which the proposal was accepted.
func (tr *Trace) AcceptanceRate() float64 {
	if len(tr.accepted) == 0 {
		return 0
	}
	var n int
	for _, a := range tr.accepted {
		if a {
			n++
		}
	}
	return float64(n) / float64(len(tr.accepted))
}

// WriteCSV writes the post burn-in rows as CSV, with a header holding
// the coefficient names followed by logpost and accepted.
func (tr *Trace) WriteCSV(w io.Writer) error {

	wtr := csv.NewWriter(w)

	head := append(append([]string(nil), tr.names...), "logpost", "accepted")
	if err := wtr.Write(head); err != nil {
		return err
	}

	rec := make([]string, len(head))
	k := len(tr.names)
	for i := tr.burnin; i < tr.NumIter(); i++ {
		for j, x := range tr.Row(i) {
			rec[j] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		rec[k] = strconv.FormatFloat(tr.logpost[i], 'g', -1, 64)
		rec[k+1] = strconv.FormatBool(tr.accepted[i])
		if err := wtr.Write(rec); err != nil {
			return err
		}
	}

	wtr.Flush()
	return wtr.Error()
}
