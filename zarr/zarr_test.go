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

package zarr

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zarr")
	store, err := Create(path, []string{"title"}, map[string]string{"title": "test dataset"})
	require.NoError(t, err)

	data := make([]float64, 24)
	for i := range data {
		data[i] = float64(i) * 1.5
	}
	err = store.WriteArray("temperature", []string{"Time", "y", "x"}, []int{4, 3, 2}, 1, data,
		[]string{"units"}, map[string]string{"units": "K"})
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)

	names, err := reopened.ArrayNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, names)

	haveData, shape, err := reopened.ReadArray("temperature")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2}, shape)
	assert.Equal(t, data, haveData)

	attrs, err := reopened.Attrs()
	require.NoError(t, err)
	assert.Equal(t, "test dataset", attrs["title"])

	arrayAttrs, err := reopened.ArrayAttrs("temperature")
	require.NoError(t, err)
	assert.Equal(t, "Time,y,x", arrayAttrs[ArrayDimsKey])
	assert.Equal(t, "K", arrayAttrs["units"])
}

func TestPartialLastChunk(t *testing.T) {
	// 5 records in chunks of 2: the last chunk is padded on disk but the
	// padding must not appear when reading back.
	path := filepath.Join(t.TempDir(), "test.zarr")
	store, err := Create(path, nil, nil)
	require.NoError(t, err)

	data := []float64{1, 2, 3, 4, 5}
	err = store.WriteArray("v", []string{"Time"}, []int{5}, 2, data, nil, nil)
	require.NoError(t, err)

	haveData, shape, err := store.ReadArray("v")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, shape)
	assert.Equal(t, data, haveData)

	// Three chunk files: 0, 1, 2.
	for _, key := range []string{"0", "1", "2"} {
		_, err := os.Stat(filepath.Join(path, "v", key))
		assert.NoError(t, err, "chunk %s should exist", key)
	}
}

func TestNaNValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zarr")
	store, err := Create(path, nil, nil)
	require.NoError(t, err)

	data := []float64{1, math.NaN(), 3, math.NaN()}
	err = store.WriteArray("v", []string{"Time", "x"}, []int{2, 2}, 1, data, nil, nil)
	require.NoError(t, err)

	haveData, _, err := store.ReadArray("v")
	require.NoError(t, err)
	for i, want := range data {
		if math.IsNaN(want) {
			assert.True(t, math.IsNaN(haveData[i]), "element %d should be NaN", i)
		} else {
			assert.Equal(t, want, haveData[i])
		}
	}
}

func TestCreateExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zarr")
	_, err := Create(path, nil, nil)
	require.NoError(t, err)

	_, err = Create(path, nil, nil)
	assert.Error(t, err)
}

func TestOpenNotAStore(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestArrayMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zarr")
	store, err := Create(path, nil, nil)
	require.NoError(t, err)

	err = store.WriteArray("v", []string{"Time", "x"}, []int{4, 3}, 2, make([]float64, 12), nil, nil)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(path, "v", ".zarray"))
	require.NoError(t, err)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &meta))
	assert.Equal(t, "<f8", meta["dtype"])
	assert.Equal(t, "C", meta["order"])
	assert.Equal(t, "NaN", meta["fill_value"])
	assert.Equal(t, float64(2), meta["zarr_format"])
	assert.Equal(t, []interface{}{float64(2), float64(3)}, meta["chunks"])
	assert.Equal(t, []interface{}{float64(4), float64(3)}, meta["shape"])
	compressor := meta["compressor"].(map[string]interface{})
	assert.Equal(t, "zlib", compressor["id"])
}

func TestDeterministicOutput(t *testing.T) {
	// Two stores written from the same inputs must be byte-identical, so
	// repeated processing runs are reproducible.
	write := func(dir string) string {
		path := filepath.Join(dir, "test.zarr")
		store, err := Create(path, []string{"b", "a"}, map[string]string{"a": "1", "b": "2"})
		require.NoError(t, err)
		err = store.WriteArray("v", []string{"Time"}, []int{3}, 1, []float64{1, 2, 3},
			[]string{"units", "long_name"}, map[string]string{"units": "m", "long_name": "test"})
		require.NoError(t, err)
		return path
	}
	p1 := write(t.TempDir())
	p2 := write(t.TempDir())

	for _, rel := range []string{".zgroup", ".zattrs",
		filepath.Join("v", ".zarray"), filepath.Join("v", ".zattrs"),
		filepath.Join("v", "0"), filepath.Join("v", "1"), filepath.Join("v", "2")} {
		b1, err := os.ReadFile(filepath.Join(p1, rel))
		require.NoError(t, err)
		b2, err := os.ReadFile(filepath.Join(p2, rel))
		require.NoError(t, err)
		assert.Equal(t, b1, b2, "file %s differs between runs", rel)
	}
}

func TestInvalidWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zarr")
	store, err := Create(path, nil, nil)
	require.NoError(t, err)

	// Dimension name count must match the shape.
	err = store.WriteArray("v", []string{"Time"}, []int{2, 2}, 1, make([]float64, 4), nil, nil)
	assert.Error(t, err)

	// Element count must match the shape.
	err = store.WriteArray("v", []string{"Time", "x"}, []int{2, 2}, 1, make([]float64, 3), nil, nil)
	assert.Error(t, err)

	// Chunk length must fit the leading dimension.
	err = store.WriteArray("v", []string{"Time", "x"}, []int{2, 2}, 3, make([]float64, 4), nil, nil)
	assert.Error(t, err)
}
