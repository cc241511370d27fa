package choice

import (
	"errors"
	"fmt"
	"math"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// Data-integrity failures.  Every error returned while building a
// ChoiceData wraps exactly one of these, so callers can use errors.Is.
var (
	ErrVarNotFound        = errors.New("variable not found")
	ErrEmpty              = errors.New("no observations")
	ErrDimension          = errors.New("inconsistent dimensions")
	ErrNonFinite          = errors.New("non-finite value")
	ErrOutcomeValue       = errors.New("outcome is not 0 or 1")
	ErrTooFewAlternatives = errors.New("task has fewer than two alternatives")
	ErrAltCount           = errors.New("task has the wrong number of alternatives")
	ErrNoChoice           = errors.New("task has no chosen alternative")
	ErrMultipleChoice     = errors.New("task has more than one chosen alternative")
)

// DataError describes a structural problem in choice data.  Row and
// Task are -1 / NaN when the problem is not specific to a row or task.
type DataError struct {
	Task float64
	Row  int
	Msg  string
	Err  error
}

func (e *DataError) Error() string {
	var loc string
	switch {
	case e.Row >= 0:
		loc = fmt.Sprintf(" (row %d)", e.Row)
	case !math.IsNaN(e.Task):
		loc = fmt.Sprintf(" (task %v)", e.Task)
	}
	if e.Msg == "" {
		return fmt.Sprintf("choice data: %v%s", e.Err, loc)
	}
	return fmt.Sprintf("choice data: %v%s: %s", e.Err, loc, e.Msg)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func dataErr(err error, task float64, row int, format string, args ...interface{}) *DataError {
	return &DataError{
		Task: task,
		Row:  row,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// Record is a single alternative presented within a choice task.
type Record struct {

	// Task identifies the choice task the alternative belongs to.
	Task int

	// X holds the covariates of the alternative.
	X []float64

	// Chosen is true for the alternative that was selected.
	Chosen bool
}

// DataConfig controls the validation of choice data.
type DataConfig struct {

	// NumAlt is the required number of alternatives per task.  If
	// zero, every task must have as many alternatives as the first
	// task.
	NumAlt int
}

// ChoiceData holds grouped choice observations.  It is immutable once
// built and may be shared by concurrent estimation runs.
type ChoiceData struct {

	// Column names, the order agrees with data: task, choice,
	// then the covariates.
	varnames []string

	// Private copy of the columns, with rows grouped by task.
	data [][]statmodel.Dtype

	// Positions of the covariates in data
	xpos []int

	// taskix[t] holds the half-open row range of task t
	taskix [][2]int

	// The original identifier of each task
	taskid []float64

	// chosen[t] is the row index of the chosen alternative in task t
	chosen []int

	// Number of alternatives per task
	numalt int
}

const (
	taskpos   = 0
	choicepos = 1
)

// NewChoiceData builds choice data from a column-oriented dataset.
// taskVar identifies the task of each row, choiceVar is the 0/1
// outcome and xnames are the covariates, in model order.  The dataset
// is copied and not retained.
func NewChoiceData(data statmodel.Dataset, taskVar, choiceVar string, xnames []string, config *DataConfig) (*ChoiceData, error) {

	pos := statmodel.VarPos(data)
	cols := data.Data()

	get := func(name, role string) ([]statmodel.Dtype, error) {
		j, ok := pos[name]
		if !ok {
			return nil, dataErr(ErrVarNotFound, math.NaN(), -1, "%s variable '%s'", role, name)
		}
		return cols[j], nil
	}

	task, err := get(taskVar, "task")
	if err != nil {
		return nil, err
	}

	choice, err := get(choiceVar, "choice")
	if err != nil {
		return nil, err
	}

	if len(xnames) == 0 {
		return nil, dataErr(ErrDimension, math.NaN(), -1, "no covariates")
	}

	var xcols [][]statmodel.Dtype
	for _, na := range xnames {
		x, err := get(na, "covariate")
		if err != nil {
			return nil, err
		}
		xcols = append(xcols, x)
	}

	return build(task, choice, xcols, xnames, config)
}

// NewChoiceDataFromRecords builds choice data from alternative records.
// Every record must have len(xnames) covariates.
func NewChoiceDataFromRecords(records []Record, xnames []string, config *DataConfig) (*ChoiceData, error) {

	if len(xnames) == 0 {
		return nil, dataErr(ErrDimension, math.NaN(), -1, "no covariates")
	}

	n := len(records)
	task := make([]statmodel.Dtype, n)
	choice := make([]statmodel.Dtype, n)
	xcols := make([][]statmodel.Dtype, len(xnames))
	for j := range xcols {
		xcols[j] = make([]statmodel.Dtype, n)
	}

	for i, r := range records {
		if len(r.X) != len(xnames) {
			return nil, dataErr(ErrDimension, math.NaN(), i, "%d covariates, expected %d", len(r.X), len(xnames))
		}
		task[i] = statmodel.Dtype(r.Task)
		if r.Chosen {
			choice[i] = 1
		}
		for j, x := range r.X {
			xcols[j][i] = x
		}
	}

	return build(task, choice, xcols, xnames, config)
}

func build(task, choice []statmodel.Dtype, xcols [][]statmodel.Dtype, xnames []string, config *DataConfig) (*ChoiceData, error) {

	if config == nil {
		config = &DataConfig{}
	}

	nobs := len(task)
	if nobs == 0 {
		return nil, dataErr(ErrEmpty, math.NaN(), -1, "")
	}

	if len(choice) != nobs {
		return nil, dataErr(ErrDimension, math.NaN(), -1, "choice column has length %d, expected %d", len(choice), nobs)
	}
	for j, x := range xcols {
		if len(x) != nobs {
			return nil, dataErr(ErrDimension, math.NaN(), -1, "covariate '%s' has length %d, expected %d",
				xnames[j], len(x), nobs)
		}
	}

	for i := 0; i < nobs; i++ {
		if math.IsNaN(task[i]) || math.IsInf(task[i], 0) {
			return nil, dataErr(ErrNonFinite, math.NaN(), i, "task identifier")
		}
		if choice[i] != 0 && choice[i] != 1 {
			return nil, dataErr(ErrOutcomeValue, math.NaN(), i, "value %v", choice[i])
		}
		for j, x := range xcols {
			if math.IsNaN(x[i]) || math.IsInf(x[i], 0) {
				return nil, dataErr(ErrNonFinite, math.NaN(), i, "covariate '%s'", xnames[j])
			}
		}
	}

	// Group rows by task, tasks ordered by first appearance and rows
	// within a task kept in their original order.
	gix := make(map[float64]int)
	var groups [][]int
	var taskid []float64
	for i, id := range task {
		g, ok := gix[id]
		if !ok {
			g = len(groups)
			gix[id] = g
			groups = append(groups, nil)
			taskid = append(taskid, id)
		}
		groups[g] = append(groups[g], i)
	}

	numalt := config.NumAlt
	if numalt == 0 {
		numalt = len(groups[0])
	}

	cd := &ChoiceData{
		varnames: append([]string{"task", "choice"}, xnames...),
		data:     make([][]statmodel.Dtype, 2+len(xcols)),
		taskid:   taskid,
		numalt:   numalt,
	}
	for j := range cd.data {
		cd.data[j] = make([]statmodel.Dtype, 0, nobs)
	}
	for j := range xcols {
		cd.xpos = append(cd.xpos, 2+j)
	}

	src := append([][]statmodel.Dtype{task, choice}, xcols...)
	for g, rows := range groups {

		id := taskid[g]
		if len(rows) < 2 {
			return nil, dataErr(ErrTooFewAlternatives, id, -1, "%d alternative", len(rows))
		}
		if len(rows) != numalt {
			return nil, dataErr(ErrAltCount, id, -1, "%d alternatives, expected %d", len(rows), numalt)
		}

		i0 := len(cd.data[0])
		chosen := -1
		for k, i := range rows {
			if choice[i] == 1 {
				if chosen != -1 {
					return nil, dataErr(ErrMultipleChoice, id, -1, "")
				}
				chosen = i0 + k
			}
			for j := range src {
				cd.data[j] = append(cd.data[j], src[j][i])
			}
		}
		if chosen == -1 {
			return nil, dataErr(ErrNoChoice, id, -1, "")
		}

		cd.taskix = append(cd.taskix, [2]int{i0, len(cd.data[0])})
		cd.chosen = append(cd.chosen, chosen)
	}

	return cd, nil
}

// NumObs returns the number of alternative records.
func (cd *ChoiceData) NumObs() int {
	return len(cd.data[0])
}

// NumTasks returns the number of choice tasks.
func (cd *ChoiceData) NumTasks() int {
	return len(cd.taskix)
}

// NumAlt returns the number of alternatives in every task.
func (cd *ChoiceData) NumAlt() int {
	return cd.numalt
}

// NumCovariates returns the length of the covariate vector.
func (cd *ChoiceData) NumCovariates() int {
	return len(cd.xpos)
}

// Names returns the covariate names.
func (cd *ChoiceData) Names() []string {
	return cd.varnames[2:]
}

// Varnames returns the names of all columns returned by Columns.
func (cd *ChoiceData) Varnames() []string {
	return cd.varnames
}

// Columns returns the grouped data columns (task, choice, covariates).
// The slices must not be modified.
func (cd *ChoiceData) Columns() [][]statmodel.Dtype {
	return cd.data
}

// Xpos returns the positions of the covariates in Columns.
func (cd *ChoiceData) Xpos() []int {
	return cd.xpos
}

// X returns covariate j for every row.  The slice must not be modified.
func (cd *ChoiceData) X(j int) []statmodel.Dtype {
	return cd.data[cd.xpos[j]]
}

// Task returns the task identifier of every row.
func (cd *ChoiceData) Task() []statmodel.Dtype {
	return cd.data[taskpos]
}

// Choice returns the 0/1 outcome of every row.
func (cd *ChoiceData) Choice() []statmodel.Dtype {
	return cd.data[choicepos]
}

// TaskRange returns the half-open row range of task t.
func (cd *ChoiceData) TaskRange(t int) [2]int {
	return cd.taskix[t]
}

// TaskIDs returns the original identifier of each task.
func (cd *ChoiceData) TaskIDs() []float64 {
	return cd.taskid
}

// Chosen returns, for each task, the row index of the chosen alternative.
func (cd *ChoiceData) Chosen() []int {
	return cd.chosen
}
