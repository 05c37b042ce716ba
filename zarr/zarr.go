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

// Package zarr reads and writes Zarr version 2 directory stores holding
// float64 arrays, in the form xarray produces them: a group with a
// .zattrs file of dataset attributes and one sub-directory per array,
// each carrying an "_ARRAY_DIMENSIONS" attribute naming its dimensions.
// Chunks are compressed with zlib and may only be split along the first
// dimension.
package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

const (
	zarrFormat       = 2
	compressionLevel = 5

	// ArrayDimsKey is the attribute under which each array stores its
	// dimension names, following the xarray convention.
	ArrayDimsKey = "_ARRAY_DIMENSIONS"
)

// Store is a Zarr group rooted at a filesystem directory.
type Store struct {
	path string
}

// Create creates a new Zarr group at path with the given dataset-level
// attributes, which are written in the order of attrNames. The directory
// must not already contain a group.
func Create(path string, attrNames []string, attrs map[string]string) (*Store, error) {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return nil, fmt.Errorf("zarr: creating store %s: %v", path, err)
	}
	if _, err := os.Stat(filepath.Join(path, ".zgroup")); err == nil {
		return nil, fmt.Errorf("zarr: store %s already exists", path)
	}
	group := fmt.Sprintf("{\n    \"zarr_format\": %d\n}", zarrFormat)
	if err := os.WriteFile(filepath.Join(path, ".zgroup"), []byte(group), 0644); err != nil {
		return nil, err
	}
	if err := writeAttrs(filepath.Join(path, ".zattrs"), attrNames, attrs); err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// Open opens an existing Zarr group at path.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(filepath.Join(path, ".zgroup")); err != nil {
		return nil, fmt.Errorf("zarr: %s is not a Zarr group: %v", path, err)
	}
	return &Store{path: path}, nil
}

// Path returns the root directory of the store.
func (s *Store) Path() string { return s.path }

// zarrayMeta is the array metadata held in each .zarray file.
type zarrayMeta struct {
	Chunks     []int           `json:"chunks"`
	Compressor json.RawMessage `json:"compressor"`
	Dtype      string          `json:"dtype"`
	FillValue  json.RawMessage `json:"fill_value"`
	Filters    json.RawMessage `json:"filters"`
	Order      string          `json:"order"`
	Shape      []int           `json:"shape"`
	ZarrFormat int             `json:"zarr_format"`
}

// WriteArray writes a float64 array in row-major order to the store under
// name. dims names the dimensions of the array and must have the same
// length as shape. The array is chunked along the first dimension only,
// chunk0 records per chunk; pass 1 to make each leading-index slab its
// own chunk, or shape[0] for a single chunk. attrs holds extra array
// attributes written in the order of attrNames.
func (s *Store) WriteArray(name string, dims []string, shape []int, chunk0 int, data []float64, attrNames []string, attrs map[string]string) error {
	if len(dims) != len(shape) {
		return fmt.Errorf("zarr: array %s has %d dimension names for %d dimensions", name, len(dims), len(shape))
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		return fmt.Errorf("zarr: array %s has %d elements; shape %v needs %d", name, len(data), shape, n)
	}
	if len(shape) > 0 && (chunk0 < 1 || chunk0 > shape[0]) {
		return fmt.Errorf("zarr: array %s: invalid chunk length %d for leading dimension %d", name, chunk0, shape[0])
	}

	dir := filepath.Join(s.path, name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	chunks := append([]int{}, shape...)
	if len(chunks) > 0 {
		chunks[0] = chunk0
	}
	if err := writeArrayMeta(filepath.Join(dir, ".zarray"), shape, chunks); err != nil {
		return err
	}

	names := append([]string{ArrayDimsKey}, attrNames...)
	all := map[string]interface{}{ArrayDimsKey: dims}
	for k, v := range attrs {
		all[k] = v
	}
	if err := writeAttrsAny(filepath.Join(dir, ".zattrs"), names, all); err != nil {
		return err
	}

	// Scalars are stored as one chunk named "0".
	if len(shape) == 0 {
		return writeChunk(filepath.Join(dir, "0"), data)
	}

	slab := n / shape[0] // elements per unit of the leading dimension
	nChunks := (shape[0] + chunk0 - 1) / chunk0
	for c := 0; c < nChunks; c++ {
		lo := c * chunk0 * slab
		hi := lo + chunk0*slab
		chunk := data[lo:min(hi, n)]
		// The last chunk is padded to full size, as the format requires.
		if len(chunk) < chunk0*slab {
			padded := make([]float64, chunk0*slab)
			copy(padded, chunk)
			chunk = padded
		}
		key := strconv.Itoa(c)
		for range shape[1:] {
			key += ".0"
		}
		if err := writeChunk(filepath.Join(dir, key), chunk); err != nil {
			return err
		}
	}
	return nil
}

// ArrayNames returns the names of the arrays in the store, sorted.
func (s *Store) ArrayNames() ([]string, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.path, e.Name(), ".zarray")); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Attrs returns the dataset-level attributes of the store. Only string
// and string-slice values are returned; slices are joined with commas.
func (s *Store) Attrs() (map[string]string, error) {
	return readAttrs(filepath.Join(s.path, ".zattrs"))
}

// ArrayAttrs returns the attributes of the named array, including
// ArrayDimsKey.
func (s *Store) ArrayAttrs(name string) (map[string]string, error) {
	return readAttrs(filepath.Join(s.path, name, ".zattrs"))
}

// ReadArray reads the named array back from the store, returning its data
// in row-major order together with its shape.
func (s *Store) ReadArray(name string) ([]float64, []int, error) {
	dir := filepath.Join(s.path, name)
	metaBytes, err := os.ReadFile(filepath.Join(dir, ".zarray"))
	if err != nil {
		return nil, nil, fmt.Errorf("zarr: reading array %s: %v", name, err)
	}
	var meta zarrayMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, fmt.Errorf("zarr: parsing metadata for array %s: %v", name, err)
	}
	if meta.Dtype != "<f8" {
		return nil, nil, fmt.Errorf("zarr: array %s has unsupported dtype %s", name, meta.Dtype)
	}
	for i := 1; i < len(meta.Shape); i++ {
		if meta.Chunks[i] != meta.Shape[i] {
			return nil, nil, fmt.Errorf("zarr: array %s is chunked along dimension %d; only leading-dimension chunking is supported", name, i)
		}
	}

	if len(meta.Shape) == 0 {
		data, err := readChunk(filepath.Join(dir, "0"), 1)
		return data, nil, err
	}

	n := 1
	for _, d := range meta.Shape {
		n *= d
	}
	slab := n / meta.Shape[0]
	chunk0 := meta.Chunks[0]
	nChunks := (meta.Shape[0] + chunk0 - 1) / chunk0
	data := make([]float64, n)
	for c := 0; c < nChunks; c++ {
		key := strconv.Itoa(c)
		for range meta.Shape[1:] {
			key += ".0"
		}
		chunk, err := readChunk(filepath.Join(dir, key), chunk0*slab)
		if err != nil {
			return nil, nil, fmt.Errorf("zarr: reading array %s: %v", name, err)
		}
		lo := c * chunk0 * slab
		copy(data[lo:min(lo+chunk0*slab, n)], chunk)
	}
	return data, meta.Shape, nil
}

func writeArrayMeta(path string, shape, chunks []int) error {
	var b bytes.Buffer
	b.WriteString("{\n")
	fmt.Fprintf(&b, "    \"chunks\": %s,\n", intList(chunks))
	fmt.Fprintf(&b, "    \"compressor\": {\"id\": \"zlib\", \"level\": %d},\n", compressionLevel)
	b.WriteString("    \"dtype\": \"<f8\",\n")
	b.WriteString("    \"fill_value\": \"NaN\",\n")
	b.WriteString("    \"filters\": null,\n")
	b.WriteString("    \"order\": \"C\",\n")
	fmt.Fprintf(&b, "    \"shape\": %s,\n", intList(shape))
	fmt.Fprintf(&b, "    \"zarr_format\": %d\n", zarrFormat)
	b.WriteString("}")
	return os.WriteFile(path, b.Bytes(), 0644)
}

func intList(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// writeAttrs writes string attributes as a JSON object, preserving the
// given key order so repeated runs produce identical files.
func writeAttrs(path string, names []string, attrs map[string]string) error {
	all := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		all[k] = v
	}
	return writeAttrsAny(path, names, all)
}

func writeAttrsAny(path string, names []string, attrs map[string]interface{}) error {
	var b bytes.Buffer
	b.WriteString("{")
	written := 0
	for _, name := range names {
		v, ok := attrs[name]
		if !ok {
			continue
		}
		if written > 0 {
			b.WriteString(",")
		}
		written++
		b.WriteString("\n    ")
		kj, err := json.Marshal(name)
		if err != nil {
			return err
		}
		vj, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(kj)
		b.WriteString(": ")
		b.Write(vj)
	}
	b.WriteString("\n}")
	return os.WriteFile(path, b.Bytes(), 0644)
}

func readAttrs(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("zarr: parsing %s: %v", path, err)
	}
	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			attrs[k] = t
		case []interface{}:
			parts := make([]string, len(t))
			for i, p := range t {
				parts[i] = fmt.Sprint(p)
			}
			attrs[k] = strings.Join(parts, ",")
		default:
			attrs[k] = fmt.Sprint(v)
		}
	}
	return attrs, nil
}

// writeChunk compresses data with zlib and writes it as little-endian
// float64 values.
func writeChunk(path string, data []float64) error {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw, err := zlib.NewWriterLevel(f, compressionLevel)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := zw.Write(buf); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readChunk(path string, n int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	buf, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	if len(buf) != 8*n {
		return nil, fmt.Errorf("zarr: chunk %s holds %d bytes; expected %d", path, len(buf), 8*n)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return data, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
