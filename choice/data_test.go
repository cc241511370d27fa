package choice

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// Three tasks with two alternatives each, rows of task 2 are interleaved
// with task 1.
func data1() statmodel.Dataset {
	task := []statmodel.Dtype{1, 2, 1, 2, 3, 3}
	choice := []statmodel.Dtype{0, 1, 1, 0, 0, 1}
	x1 := []statmodel.Dtype{1, 2, 3, 4, 5, 6}
	x2 := []statmodel.Dtype{0, 1, 0, 1, 0, 1}
	return statmodel.NewDataset([][]statmodel.Dtype{task, choice, x1, x2},
		[]string{"task", "choice", "x1", "x2"})
}

func TestGrouping(t *testing.T) {

	cd, err := NewChoiceData(data1(), "task", "choice", []string{"x2", "x1"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if cd.NumObs() != 6 || cd.NumTasks() != 3 || cd.NumAlt() != 2 || cd.NumCovariates() != 2 {
		t.Fail()
	}

	if !floats.Equal(cd.Task(), []float64{1, 1, 2, 2, 3, 3}) {
		t.Fail()
	}
	if !floats.Equal(cd.Choice(), []float64{0, 1, 1, 0, 0, 1}) {
		t.Fail()
	}

	// Covariates follow the requested order.
	if cd.Names()[0] != "x2" || cd.Names()[1] != "x1" {
		t.Fail()
	}
	if !floats.Equal(cd.X(1), []float64{1, 3, 2, 4, 5, 6}) {
		t.Fail()
	}
	if !floats.Equal(cd.X(0), []float64{0, 0, 1, 1, 0, 1}) {
		t.Fail()
	}

	if !floats.Equal(cd.TaskIDs(), []float64{1, 2, 3}) {
		t.Fail()
	}

	chosen := cd.Chosen()
	if len(chosen) != 3 || chosen[0] != 1 || chosen[1] != 2 || chosen[2] != 5 {
		t.Fail()
	}

	if cd.TaskRange(1) != [2]int{2, 4} {
		t.Fail()
	}
}

func TestRecords(t *testing.T) {

	recs := []Record{
		{Task: 7, X: []float64{1, 0}},
		{Task: 7, X: []float64{0, 1}, Chosen: true},
		{Task: 7, X: []float64{0, 0}},
		{Task: 8, X: []float64{1, 1}, Chosen: true},
		{Task: 8, X: []float64{0, 1}},
		{Task: 8, X: []float64{1, 0}},
	}

	cd, err := NewChoiceDataFromRecords(recs, []string{"a", "b"}, &DataConfig{NumAlt: 3})
	if err != nil {
		t.Fatal(err)
	}
	if cd.NumTasks() != 2 || cd.NumAlt() != 3 {
		t.Fail()
	}
	if cd.Chosen()[0] != 1 || cd.Chosen()[1] != 3 {
		t.Fail()
	}
}

func TestDataErrors(t *testing.T) {

	type tcase struct {
		title  string
		task   []float64
		choice []float64
		x      []float64
		numalt int
		want   error
	}

	cases := []tcase{
		{
			title:  "no choice",
			task:   []float64{1, 1, 2, 2},
			choice: []float64{0, 1, 0, 0},
			x:      []float64{1, 2, 3, 4},
			want:   ErrNoChoice,
		},
		{
			title:  "two choices",
			task:   []float64{1, 1, 2, 2},
			choice: []float64{1, 1, 0, 1},
			x:      []float64{1, 2, 3, 4},
			want:   ErrMultipleChoice,
		},
		{
			title:  "single alternative",
			task:   []float64{1, 2, 2},
			choice: []float64{1, 0, 1},
			x:      []float64{1, 2, 3},
			want:   ErrTooFewAlternatives,
		},
		{
			title:  "unequal task sizes",
			task:   []float64{1, 1, 2, 2, 2},
			choice: []float64{1, 0, 0, 1, 0},
			x:      []float64{1, 2, 3, 4, 5},
			want:   ErrAltCount,
		},
		{
			title:  "wrong number of alternatives",
			task:   []float64{1, 1, 2, 2},
			choice: []float64{1, 0, 0, 1},
			x:      []float64{1, 2, 3, 4},
			numalt: 3,
			want:   ErrAltCount,
		},
		{
			title:  "outcome not binary",
			task:   []float64{1, 1},
			choice: []float64{2, 0},
			x:      []float64{1, 2},
			want:   ErrOutcomeValue,
		},
		{
			title:  "missing covariate",
			task:   []float64{1, 1},
			choice: []float64{1, 0},
			x:      []float64{1, math.NaN()},
			want:   ErrNonFinite,
		},
		{
			title:  "empty",
			task:   []float64{},
			choice: []float64{},
			x:      []float64{},
			want:   ErrEmpty,
		},
	}

	for _, c := range cases {
		da := statmodel.NewDataset([][]statmodel.Dtype{c.task, c.choice, c.x},
			[]string{"task", "choice", "x"})
		_, err := NewChoiceData(da, "task", "choice", []string{"x"}, &DataConfig{NumAlt: c.numalt})
		if !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.title, err, c.want)
		}
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("%s: error is not a *DataError", c.title)
		}
	}

	_, err := NewChoiceData(data1(), "task", "choice", []string{"x3"}, nil)
	if !errors.Is(err, ErrVarNotFound) {
		t.Errorf("unknown covariate: got %v", err)
	}

	_, err = NewChoiceDataFromRecords([]Record{{Task: 1, X: []float64{1}}}, []string{"a", "b"}, nil)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("record length: got %v", err)
	}
}
