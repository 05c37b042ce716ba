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
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"
	"github.com/wangsen992/fatima-wrf/zarr"
)

// timeUnits describes the encoding of the Time coordinate in the
// output store.
const timeUnits = "seconds since 1970-01-01 00:00:00"

// StorePath returns the location of the output store for the given
// processing parameters: {procDir}/{caseName}/{filePrefix}_hlevs.zarr.
func StorePath(procDir, caseName, filePrefix string) string {
	return filepath.Join(procDir, caseName, filePrefix+"_hlevs.zarr")
}

// WriteZarr writes d as a Zarr group at path. Every variable becomes one
// array; time-varying arrays are chunked one time step per chunk.
// Coordinate arrays Time and lev are written alongside the variables.
func (d *Dataset) WriteZarr(path string) error {
	store, err := zarr.Create(path, d.AttrNames(), d.attrs)
	if err != nil {
		return err
	}

	// Coordinates.
	tvals := make([]float64, len(d.Time))
	for i, t := range d.Time {
		tvals[i] = float64(t.Unix())
	}
	err = store.WriteArray("Time", []string{"Time"}, []int{len(tvals)}, len(tvals), tvals,
		[]string{"units", "calendar"}, map[string]string{"units": timeUnits, "calendar": "standard"})
	if err != nil {
		return err
	}
	levUnits := "m"
	if d.LevelVar == InterpPressure {
		levUnits = "Pa"
	}
	err = store.WriteArray("lev", []string{"lev"}, []int{len(d.Levels)}, len(d.Levels), d.Levels,
		[]string{"units", "long_name"}, map[string]string{"units": levUnits, "long_name": d.LevelVar})
	if err != nil {
		return err
	}

	for _, name := range d.VarNames() {
		v := d.Data[name]
		chunk0 := v.Data.Shape[0]
		if len(v.Dims) > 0 && v.Dims[0] == "Time" {
			chunk0 = 1
		}
		err = store.WriteArray(name, v.Dims, v.Data.Shape, chunk0, v.Data.Elements,
			[]string{"long_name", "units"},
			map[string]string{"long_name": v.Description, "units": v.Units})
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadZarr reads a Dataset back from a Zarr group written by WriteZarr.
func LoadZarr(path string) (*Dataset, error) {
	store, err := zarr.Open(path)
	if err != nil {
		return nil, err
	}
	d := new(Dataset)

	attrs, err := store.Attrs()
	if err != nil {
		return nil, err
	}
	for _, k := range []string{
		"wrf_projection",
		"PREPROCESS_TIMESTAMP", "PREPROCESS_WRFRUN", "PREPROCESS_CASE_NAME",
		"PREPROCESS_FILE_PREFIX", "PREPROCESS_LEVS", "PREPROCESS_INTERP_VAR",
	} {
		if v, ok := attrs[k]; ok {
			d.SetAttr(k, v)
		}
	}

	names, err := store.ArrayNames()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		data, shape, err := store.ReadArray(name)
		if err != nil {
			return nil, err
		}
		arrayAttrs, err := store.ArrayAttrs(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "Time":
			d.Time = make([]time.Time, len(data))
			for i, v := range data {
				d.Time[i] = time.Unix(int64(v), 0).UTC()
			}
		case "lev":
			d.Levels = data
			d.LevelVar = arrayAttrs["long_name"]
		default:
			dims := splitDims(arrayAttrs[zarr.ArrayDimsKey])
			if len(dims) != len(shape) {
				return nil, fmt.Errorf("fatimawrf: array %s in %s has %d dimension names for %d dimensions",
					name, path, len(dims), len(shape))
			}
			arr := sparse.ZerosDense(shape...)
			copy(arr.Elements, data)
			d.AddVariable(name, dims, arrayAttrs["long_name"], arrayAttrs["units"], arr)
		}
	}
	return d, nil
}

// splitDims undoes the comma-joining the store applies to string-slice
// attributes.
func splitDims(s string) []string {
	if s == "" {
		return nil
	}
	var dims []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			dims = append(dims, s[start:i])
			start = i + 1
		}
	}
	return dims
}
