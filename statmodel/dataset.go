package statmodel

import "fmt"

// Dataset is a column-oriented collection of named numeric variables.
type Dataset interface {

	// Data returns the columns; Data()[j] holds variable Names()[j].
	Data() [][]Dtype

	// Names returns the variable names.
	Names() []string
}

type basicData struct {
	data     [][]Dtype
	varnames []string
}

// NewDataset wraps the columns in data, labeled with varnames, as a
// Dataset.  It panics if the number of names does not match the number
// of columns, or if the columns have different lengths.
func NewDataset(data [][]Dtype, varnames []string) Dataset {

	if len(data) != len(varnames) {
		msg := fmt.Sprintf("NewDataset: %d columns but %d names\n", len(data), len(varnames))
		panic(msg)
	}

	for j := range data {
		if len(data[j]) != len(data[0]) {
			msg := fmt.Sprintf("NewDataset: column '%s' has length %d, expected %d\n",
				varnames[j], len(data[j]), len(data[0]))
			panic(msg)
		}
	}

	return &basicData{
		data:     data,
		varnames: varnames,
	}
}

// Data returns the data columns.
func (bd *basicData) Data() [][]Dtype {
	return bd.data
}

// Names returns the variable names.
func (bd *basicData) Names() []string {
	return bd.varnames
}

// VarPos returns a map from variable names to column positions.
func VarPos(data Dataset) map[string]int {
	pos := make(map[string]int)
	for i, v := range data.Names() {
		pos[v] = i
	}
	return pos
}
