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
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// interpToLevels resamples data, which is on the native model vertical
// coordinate, onto the fixed levels levs of the interpolation variable
// target. data and target must both have shape (time, z, y, x); the result
// has shape (time, len(levs), y, x). Interpolation is linear in the target
// variable, which may increase with model level (height) or decrease
// (pressure). Levels outside the vertical range of a column are set to NaN;
// no extrapolation is performed.
func interpToLevels(data, target *sparse.DenseArray, levs []float64) (*sparse.DenseArray, error) {
	if len(data.Shape) != 4 {
		return nil, fmt.Errorf("fatimawrf: vertical interpolation needs a 4-d array instead of %d-d", len(data.Shape))
	}
	if len(target.Shape) != len(data.Shape) {
		return nil, fmt.Errorf("fatimawrf: data shape %v does not match interpolation variable shape %v", data.Shape, target.Shape)
	}
	for i, n := range data.Shape {
		if target.Shape[i] != n {
			return nil, fmt.Errorf("fatimawrf: data shape %v does not match interpolation variable shape %v", data.Shape, target.Shape)
		}
	}
	nt, nz, ny, nx := data.Shape[0], data.Shape[1], data.Shape[2], data.Shape[3]
	out := sparse.ZerosDense(nt, len(levs), ny, nx)
	for t := 0; t < nt; t++ {
		type empty struct{}
		sem := make(chan empty, ny) // semaphore pattern
		for j := 0; j < ny; j++ {
			go func(t, j int) { // concurrent processing
				zCol := make([]float64, nz)
				vCol := make([]float64, nz)
				for i := 0; i < nx; i++ {
					for k := 0; k < nz; k++ {
						zCol[k] = target.Get(t, k, j, i)
						vCol[k] = data.Get(t, k, j, i)
					}
					lo, hi := floats.Min(zCol), floats.Max(zCol)
					for li, lev := range levs {
						if lev < lo || lev > hi {
							out.Set(math.NaN(), t, li, j, i)
							continue
						}
						out.Set(interpColumn(zCol, vCol, lev), t, li, j, i)
					}
				}
				sem <- empty{}
			}(t, j)
		}
		for j := 0; j < ny; j++ { // wait for routines to finish
			<-sem
		}
	}
	return out, nil
}

// interpColumn linearly interpolates the profile v(z) to the coordinate
// value lev, which must lie within the range of z. z is assumed to be
// monotonic in either direction.
func interpColumn(z, v []float64, lev float64) float64 {
	for k := 0; k < len(z)-1; k++ {
		z0, z1 := z[k], z[k+1]
		if (lev-z0)*(lev-z1) > 0 {
			continue
		}
		if z1 == z0 {
			return v[k]
		}
		f := (lev - z0) / (z1 - z0)
		return v[k]*(1-f) + v[k+1]*f
	}
	return math.NaN()
}
