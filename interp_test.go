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
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

func TestInterpToLevels(t *testing.T) {
	// One time step, three model levels, one column per grid point. The
	// vertical coordinate increases with model level, as height does.
	target := sparse.ZerosDense(1, 3, 2, 2)
	data := sparse.ZerosDense(1, 3, 2, 2)
	for k := 0; k < 3; k++ {
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				target.Set(float64(k)*100, 0, k, j, i)
				data.Set(float64(k)*10, 0, k, j, i)
			}
		}
	}

	out, err := interpToLevels(data, target, []float64{50, 100, 250})
	if err != nil {
		t.Fatal(err)
	}
	want := sparse.ZerosDense(1, 3, 2, 2)
	want.Elements = []float64{
		5, 5, 5, 5,
		10, 10, 10, 10,
		math.NaN(), math.NaN(), math.NaN(), math.NaN(),
	}
	arrayCompare(out, want, 1.0e-8, "interp increasing", t)
}

func TestInterpToLevelsDecreasing(t *testing.T) {
	// The vertical coordinate decreases with model level, as pressure does.
	target := sparse.ZerosDense(1, 3, 1, 1)
	data := sparse.ZerosDense(1, 3, 1, 1)
	zvals := []float64{100000, 85000, 70000}
	vvals := []float64{10, 20, 30}
	for k := 0; k < 3; k++ {
		target.Set(zvals[k], 0, k, 0, 0)
		data.Set(vvals[k], 0, k, 0, 0)
	}

	out, err := interpToLevels(data, target, []float64{92500, 70000, 50000})
	if err != nil {
		t.Fatal(err)
	}
	want := sparse.ZerosDense(1, 3, 1, 1)
	want.Elements = []float64{15, 30, math.NaN()}
	arrayCompare(out, want, 1.0e-8, "interp decreasing", t)
}

func TestInterpToLevelsShapeErrors(t *testing.T) {
	threeD := sparse.ZerosDense(3, 2, 2)
	if _, err := interpToLevels(threeD, threeD, []float64{100}); err == nil {
		t.Error("want error for 3-d input but have none")
	}

	data := sparse.ZerosDense(1, 3, 2, 2)
	target := sparse.ZerosDense(1, 4, 2, 2)
	if _, err := interpToLevels(data, target, []float64{100}); err == nil {
		t.Error("want error for mismatched shapes but have none")
	}

	// A coordinate with fewer dimensions than the data must produce an
	// error rather than a panic.
	if _, err := interpToLevels(data, threeD, []float64{100}); err == nil {
		t.Error("want error for low-dimensional coordinate but have none")
	}
}

func TestInterpColumn(t *testing.T) {
	z := []float64{0, 100, 300}
	v := []float64{0, 10, 30}
	cases := []struct {
		lev, want float64
	}{
		{0, 0},
		{50, 5},
		{100, 10},
		{200, 20},
		{300, 30},
	}
	for _, c := range cases {
		if have := interpColumn(z, v, c.lev); math.Abs(have-c.want) > 1e-8 {
			t.Errorf("level %g: want %g but have %g", c.lev, c.want, have)
		}
	}
	if have := interpColumn(z, v, 400); !math.IsNaN(have) {
		t.Errorf("level outside range: want NaN but have %g", have)
	}
}
