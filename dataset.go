/*
Copyright © 2024 the FATIMA-WRF authors.
This file is part of FATIMA-WRF.

FATIMA-WRF is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FATIMA-WRF is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FATIMA-WRF.  If not, see <http://www.gnu.org/licenses/>.
*/

package fatimawrf

import (
	"fmt"
	"sort"
	"time"

	"github.com/ctessum/sparse"
)

// timestampFormat is the format used for the PREPROCESS_TIMESTAMP
// dataset attribute.
const timestampFormat = time.RFC3339

// Variable holds information about one processed variable.
type Variable struct {
	Dims        []string           // dimension names for this variable
	Description string             // variable description
	Units       string             // variable units
	Data        *sparse.DenseArray // variable data
}

// Dataset holds processed model output variables, keyed by variable name,
// together with coordinate values and dataset-level attributes.
type Dataset struct {
	Data map[string]*Variable

	// Time holds the timestamp of each record along the time dimension.
	Time []time.Time

	// Levels holds the vertical coordinate values shared by all 3-d
	// variables, and LevelVar names the field the levels are values of
	// (geopotential height or air pressure).
	Levels   []float64
	LevelVar string

	attrNames []string
	attrs     map[string]string
}

// AddVariable adds data for a new variable to d.
func (d *Dataset) AddVariable(name string, dims []string, description, units string, data *sparse.DenseArray) {
	if d.Data == nil {
		d.Data = make(map[string]*Variable)
	}
	d.Data[name] = &Variable{
		Dims:        dims,
		Description: description,
		Units:       units,
		Data:        data,
	}
}

// VarNames returns the names of the variables in d, sorted so that
// iteration order is the same every time.
func (d *Dataset) VarNames() []string {
	names := make([]string, 0, len(d.Data))
	for n := range d.Data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetAttr sets a dataset-level attribute, preserving the order in which
// attributes were first set.
func (d *Dataset) SetAttr(key, value string) {
	if d.attrs == nil {
		d.attrs = make(map[string]string)
	}
	if _, ok := d.attrs[key]; !ok {
		d.attrNames = append(d.attrNames, key)
	}
	d.attrs[key] = value
}

// Attr returns the value of a dataset-level attribute, or "" if it is
// not set.
func (d *Dataset) Attr(key string) string { return d.attrs[key] }

// AttrNames returns the dataset-level attribute keys in the order they
// were set.
func (d *Dataset) AttrNames() []string { return d.attrNames }

// StampMetadata attaches the processing parameters and the given timestamp
// to d as dataset-level attributes.
func (d *Dataset) StampMetadata(wrfRun, caseName, filePrefix, levExpr, interpVar string, now time.Time) {
	d.SetAttr("PREPROCESS_TIMESTAMP", now.Format(timestampFormat))
	d.SetAttr("PREPROCESS_WRFRUN", wrfRun)
	d.SetAttr("PREPROCESS_CASE_NAME", caseName)
	d.SetAttr("PREPROCESS_FILE_PREFIX", filePrefix)
	d.SetAttr("PREPROCESS_LEVS", levExpr)
	d.SetAttr("PREPROCESS_INTERP_VAR", interpVar)
}

// checkShapes verifies that every 3-d variable in d shares the vertical
// coordinate length len(d.Levels) and that every variable's leading
// dimension matches the number of timestamps.
func (d *Dataset) checkShapes() error {
	nt := len(d.Time)
	for _, name := range d.VarNames() {
		v := d.Data[name]
		if len(v.Dims) == 0 || v.Dims[0] != "Time" {
			continue
		}
		if v.Data.Shape[0] != nt {
			return fmt.Errorf("fatimawrf: variable %s has %d time steps; dataset has %d", name, v.Data.Shape[0], nt)
		}
		if len(v.Data.Shape) == 4 && v.Data.Shape[1] != len(d.Levels) {
			return fmt.Errorf("fatimawrf: variable %s has %d levels; dataset has %d", name, v.Data.Shape[1], len(d.Levels))
		}
	}
	return nil
}
