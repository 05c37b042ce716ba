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
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

// testNextData returns a NextData function iterating over v.
func testNextData(v []*sparse.DenseArray) NextData {
	var i int
	return func() (*sparse.DenseArray, error) {
		if i == len(v) {
			return nil, io.EOF
		}
		i++
		return v[i-1], nil
	}
}

func arrayCompare(have, want *sparse.DenseArray, tolerance float64, name string, t *testing.T) {
	t.Helper()
	if !reflect.DeepEqual(want.Shape, have.Shape) {
		t.Errorf("%s: want shape %v but have shape %v", name, want.Shape, have.Shape)
		return
	}
	for i, wantv := range want.Elements {
		havev := have.Elements[i]
		if math.IsNaN(wantv) {
			if !math.IsNaN(havev) {
				t.Errorf("%s, element %d: want NaN but have %g", name, i, havev)
			}
			continue
		}
		if math.IsNaN(havev) || math.IsInf(havev, 0) {
			t.Errorf("%s, element %d: is %g", name, i, havev)
		}
		if math.Abs(havev-wantv)/math.Abs(havev+wantv)*2 > tolerance {
			t.Errorf("%s, element %d: want %g but have %g", name, i, wantv, havev)
		}
	}
}

func TestDestagger(t *testing.T) {
	k := sparse.ZerosDense(3, 2, 2)
	k.Elements = []float64{
		0, 1, 2, 3,
		2, 3, 4, 5,
		4, 5, 6, 7,
	}

	j := sparse.ZerosDense(2, 3, 2)
	j.Elements = []float64{
		0, 1,
		1, 2,
		2, 3,
		4, 5,
		5, 6,
		6, 7,
	}

	i := sparse.ZerosDense(2, 2, 3)
	i.Elements = []float64{
		0, 0.5, 1,
		2, 2.5, 3,
		4, 4.5, 5,
		6, 6.5, 7,
	}

	in := []*sparse.DenseArray{k, j, i}
	wantElems := [][]float64{
		{1, 2, 3, 4, 3, 4, 5, 6},
		{0.5, 1.5, 2.5, 3.5, 4.5, 5.5, 6.5, 7.5},
		{0.25, 0.75, 2.25, 2.75, 4.25, 4.75, 6.25, 6.75},
	}
	for dim := 0; dim < 3; dim++ {
		result := destaggerWorker(in[dim], dim)
		want := sparse.ZerosDense(2, 2, 2)
		want.Elements = wantElems[dim]
		arrayCompare(result, want, 1.0e-8, fmt.Sprintf("dim %d", dim), t)
	}
}

func TestDestaggerNextData(t *testing.T) {
	a := sparse.ZerosDense(2, 2, 3)
	for i := range a.Elements {
		a.Elements[i] = float64(i)
	}
	next := destagger(testNextData([]*sparse.DenseArray{a}), 2)
	result, err := next()
	if err != nil {
		t.Fatal(err)
	}
	want := sparse.ZerosDense(2, 2, 2)
	want.Elements = []float64{0.5, 1.5, 3.5, 4.5, 6.5, 7.5, 9.5, 10.5}
	arrayCompare(result, want, 1.0e-8, "destagger", t)
	if _, err := next(); err != io.EOF {
		t.Errorf("want io.EOF after last record, got %v", err)
	}
}
