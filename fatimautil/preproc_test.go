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

package fatimautil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fatimawrf "github.com/wangsen992/fatima-wrf"
	"github.com/wangsen992/fatima-wrf/zarr"
)

func TestPreprocMissingConfig(t *testing.T) {
	err := Preproc("", "case", "wrfout_d01", "out", "100", fatimawrf.InterpHeight, "", false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wrf_run")
}

func TestPreprocBadLevels(t *testing.T) {
	err := Preproc(t.TempDir(), "case", "wrfout_d01", t.TempDir(),
		"arange(bad)", fatimawrf.InterpHeight, "", false)
	assert.Error(t, err)
}

func TestPreprocNoInputFiles(t *testing.T) {
	wrfRun := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(wrfRun, "case"), os.ModePerm))
	err := Preproc(wrfRun, "case", "wrfout_d01", t.TempDir(),
		"100, 200", fatimawrf.InterpHeight, "", false)
	assert.Error(t, err)
}

func TestPreprocSkipsExistingStore(t *testing.T) {
	// When output for the case already exists, processing is skipped
	// without touching the input files.
	procDir := t.TempDir()
	outPath := fatimawrf.StorePath(procDir, "case", "wrfout_d01")
	require.NoError(t, os.MkdirAll(filepath.Dir(outPath), os.ModePerm))
	_, err := zarr.Create(outPath, nil, nil)
	require.NoError(t, err)

	err = Preproc(t.TempDir(), "case", "wrfout_d01", procDir,
		"100, 200", fatimawrf.InterpHeight, "", false)
	assert.NoError(t, err)
}

func TestDescribeZarr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zarr")
	store, err := zarr.Create(path, []string{"PREPROCESS_CASE_NAME"},
		map[string]string{"PREPROCESS_CASE_NAME": "case"})
	require.NoError(t, err)
	err = store.WriteArray("Ta", []string{"Time", "lev", "south_north", "west_east"},
		[]int{1, 1, 1, 1}, 1, []float64{300},
		[]string{"long_name", "units"},
		map[string]string{"long_name": "Air temperature", "units": "K"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Describe(&buf, path))
	out := buf.String()
	assert.Contains(t, out, "Ta(Time, lev, south_north, west_east)")
	assert.Contains(t, out, "Air temperature")
	assert.Contains(t, out, "PREPROCESS_CASE_NAME = case")
}

func TestDescribeMissingPath(t *testing.T) {
	assert.Error(t, Describe(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope")))
}
