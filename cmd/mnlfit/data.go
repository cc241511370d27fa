package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// table is a CSV file with its numeric columns parsed.
type table struct {
	statmodel.Dataset

	// Columns that contain values that are not numbers
	nonNumeric map[string]bool
}

// readCSV reads a CSV file with a header row.  Empty cells and NA are
// read as NaN.  Columns holding other non-numeric values are left out of
// the dataset and listed in nonNumeric.
func readCSV(r io.Reader) (*table, error) {

	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	head, err := rdr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV file")
	} else if err != nil {
		return nil, err
	}
	for j := range head {
		head[j] = strings.TrimSpace(head[j])
	}

	cols := make([][]float64, len(head))
	bad := make([]bool, len(head))
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for j, s := range rec {
			if bad[j] {
				continue
			}
			x, ok := parseFloat(s)
			if !ok {
				bad[j] = true
				cols[j] = nil
				continue
			}
			cols[j] = append(cols[j], x)
		}
	}

	var data [][]statmodel.Dtype
	var names []string
	nonNumeric := make(map[string]bool)
	for j, na := range head {
		if bad[j] {
			nonNumeric[na] = true
			continue
		}
		data = append(data, cols[j])
		names = append(names, na)
	}

	return &table{
		Dataset:    statmodel.NewDataset(data, names),
		nonNumeric: nonNumeric,
	}, nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" {
		return math.NaN(), true
	}
	x, err := strconv.ParseFloat(s, 64)
	return x, err == nil
}

func loadCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading data: %w", err)
	}
	defer f.Close()

	tab, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return tab, nil
}

// covariates returns the requested covariates, or all numeric columns
// other than the task and choice columns when xvars is empty.
func (tab *table) covariates(xvars, taskVar, choiceVar string) ([]string, error) {

	if strings.TrimSpace(xvars) == "" {
		var xnames []string
		for _, na := range tab.Names() {
			if na != taskVar && na != choiceVar {
				xnames = append(xnames, na)
			}
		}
		return xnames, nil
	}

	var xnames []string
	for _, na := range strings.Split(xvars, ",") {
		na = strings.TrimSpace(na)
		if na == "" {
			continue
		}
		if tab.nonNumeric[na] {
			return nil, fmt.Errorf("covariate '%s' is not numeric", na)
		}
		xnames = append(xnames, na)
	}

	return xnames, nil
}
