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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// physical constants
const (
	g = 9.80665 // m/s2
)

// wrfTimeFormat is the format of the entries in the wrfout Times variable.
const wrfTimeFormat = "2006-01-02_15:04:05"

// NextData is a type of function that returns data for the next time step.
// If there are no more time steps, it should return the io.EOF error.
type NextData func() (*sparse.DenseArray, error)

// WRFOut reads raw wrfout files (output directly from WRF), presenting the
// matched files as a single time series of records.
type WRFOut struct {
	dir    string
	prefix string
	files  []string

	msgChan chan string
}

// OpenWRFOut matches the wrfout files in dir whose names begin with prefix.
// The files are read in sorted order; wrfout file names embed the simulation
// timestamp, so sorted order is chronological order. It is an error for no
// files to match. If msgChan is not nil, status messages will be sent to it.
func OpenWRFOut(dir, prefix string, msgChan chan string) (*WRFOut, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("fatimawrf: searching for wrfout files: %v", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("fatimawrf: no wrfout files matching '%s*' in %s", prefix, dir)
	}
	sort.Strings(files)
	return &WRFOut{dir: dir, prefix: prefix, files: files, msgChan: msgChan}, nil
}

// Files returns the matched wrfout files in the order they will be read.
func (w *WRFOut) Files() []string { return w.files }

// openNCF opens the NetCDF file at the given path.
func openNCF(path string) (*os.File, *cdf.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("fatimawrf: opening %s: %v", path, err)
	}
	return f, ff, nil
}

// numRecords returns the number of records held by the given variable.
// wrfout files normally make Time the record (unlimited) dimension, whose
// stored length is zero; in that case the count is derived from the file
// size.
func numRecords(f *os.File, ff *cdf.File, varName string) (int, error) {
	dims := ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return 0, fmt.Errorf("fatimawrf: variable %s not in file %s", varName, f.Name())
	}
	if dims[0] > 0 {
		return dims[0], nil
	}
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int(ff.Header.NumRecs(fi.Size())), nil
}

// Dims returns the unstaggered grid dimensions (bottom_top, south_north,
// west_east) of the dataset, taken from the first file.
func (w *WRFOut) Dims() (nz, ny, nx int, err error) {
	f, ff, err := openNCF(w.files[0])
	if err != nil {
		return -1, -1, -1, err
	}
	defer f.Close()
	dims := ff.Header.Lengths("T")
	if len(dims) != 4 {
		return -1, -1, -1, fmt.Errorf("fatimawrf: variable T in %s has %d dimensions; want 4", w.files[0], len(dims))
	}
	return dims[1], dims[2], dims[3], nil
}

// Has reports whether the dataset contains the given variable,
// based on the header of the first file.
func (w *WRFOut) Has(varName string) bool {
	f, ff, err := openNCF(w.files[0])
	if err != nil {
		return false
	}
	defer f.Close()
	return len(ff.Header.Lengths(varName)) != 0
}

// Times returns the timestamps of all records across all files, parsed from
// the Times character variable.
func (w *WRFOut) Times() ([]time.Time, error) {
	var out []time.Time
	for _, file := range w.files {
		f, ff, err := openNCF(file)
		if err != nil {
			return nil, err
		}
		dims := ff.Header.Lengths("Times")
		if len(dims) != 2 {
			f.Close()
			return nil, fmt.Errorf("fatimawrf: variable Times not in file %s", file)
		}
		n, err := numRecords(f, ff, "Times")
		if err != nil {
			f.Close()
			return nil, err
		}
		strLen := dims[1]
		for i := 0; i < n; i++ {
			r := ff.Reader("Times", []int{i, 0}, []int{i + 1, 0})
			buf := r.Zero(strLen)
			if _, err := r.Read(buf); err != nil {
				f.Close()
				return nil, fmt.Errorf("fatimawrf: reading Times from %s: %v", file, err)
			}
			b, ok := buf.([]byte)
			if !ok {
				f.Close()
				return nil, fmt.Errorf("fatimawrf: Times in %s is not a character variable", file)
			}
			s := strings.TrimRight(string(b), "\x00 ")
			t, err := time.Parse(wrfTimeFormat, s)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("fatimawrf: parsing timestamp %q in %s: %v", s, file, err)
			}
			out = append(out, t)
		}
		f.Close()
	}
	return out, nil
}

// Read returns a function that sequentially retrieves single-record data for
// the specified variable, iterating through all matched files in order.
func (w *WRFOut) Read(varName string) NextData {
	var f *os.File
	var ff *cdf.File
	var nrec, fileIdx, recIdx int
	return func() (*sparse.DenseArray, error) {
		for {
			if ff == nil {
				if fileIdx >= len(w.files) {
					return nil, io.EOF
				}
				var err error
				f, ff, err = openNCF(w.files[fileIdx])
				if err != nil {
					return nil, err
				}
				nrec, err = numRecords(f, ff, varName)
				if err != nil {
					f.Close()
					ff = nil
					return nil, err
				}
				recIdx = 0
			}
			if recIdx >= nrec {
				f.Close()
				ff = nil
				if w.msgChan != nil {
					w.msgChan <- fmt.Sprintf("Read %d records of %s from %s", nrec, varName, w.files[fileIdx])
				}
				fileIdx++
				continue
			}
			data, err := readNCF(varName, ff, recIdx)
			recIdx++
			if err != nil {
				return nil, err
			}
			return data, nil
		}
	}
}

// readNCF reads variable varName out of netcdf file ff at the record
// specified by index, dropping the leading (time) dimension.
func readNCF(varName string, ff *cdf.File, index int) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("fatimawrf: variable %v not in file", varName)
	}
	dims = dims[1:]
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	start[0], end[0] = index, index+1
	r := ff.Reader(varName, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("fatimawrf: reading netcdf variable %s: %v", varName, err)
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, b)
	default:
		return nil, fmt.Errorf("fatimawrf: netcdf variable %s has unsupported type %T", varName, buf)
	}
	return data, nil
}

// Pressure returns full air pressure [Pa], the sum of the baseline and
// perturbation pressure fields.
func (w *WRFOut) Pressure() NextData {
	pbFunc := w.Read("PB") // baseline pressure [Pa]
	pFunc := w.Read("P")   // perturbation pressure [Pa]
	return func() (*sparse.DenseArray, error) {
		pb, err := pbFunc()
		if err != nil {
			return nil, err
		}
		p, err := pFunc()
		if err != nil {
			return nil, err
		}
		P := pb.Copy()
		P.AddDense(p)
		return P, nil
	}
}

// PotentialTemperature returns air potential temperature [K]. The wrfout T
// variable holds the perturbation from the 300 K base state.
func (w *WRFOut) PotentialTemperature() NextData {
	tFunc := w.Read("T") // perturbation potential temperature [K]
	return func() (*sparse.DenseArray, error) {
		tp, err := tFunc()
		if err != nil {
			return nil, err
		}
		theta := sparse.ZerosDense(tp.Shape...)
		for i, v := range tp.Elements {
			theta.Elements[i] = v + 300.
		}
		return theta, nil
	}
}

// GeopotentialHeight returns geopotential height above sea level [m] on the
// unstaggered (mass) vertical grid.
func (w *WRFOut) GeopotentialHeight() NextData {
	phFunc := w.Read("PH")   // perturbation geopotential [m2/s2]
	phbFunc := w.Read("PHB") // base-state geopotential [m2/s2]
	staggered := func() (*sparse.DenseArray, error) {
		ph, err := phFunc()
		if err != nil {
			return nil, err
		}
		phb, err := phbFunc()
		if err != nil {
			return nil, err
		}
		h := sparse.ZerosDense(ph.Shape...)
		for i := range ph.Elements {
			h.Elements[i] = (ph.Elements[i] + phb.Elements[i]) / g
		}
		return h, nil
	}
	return destagger(staggered, 0)
}

// U returns West-East wind speed [m/s] on the unstaggered grid.
func (w *WRFOut) U() NextData { return destagger(w.Read("U"), 2) }

// V returns South-North wind speed [m/s] on the unstaggered grid.
func (w *WRFOut) V() NextData { return destagger(w.Read("V"), 1) }

// W returns below-above wind speed [m/s] on the unstaggered grid.
func (w *WRFOut) W() NextData { return destagger(w.Read("W"), 0) }
