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

	"github.com/ctessum/sparse"
)

// destagger converts a grid that is staggered with regard to the given
// dimension onto the unstaggered (mass) grid.
func destagger(inFunc NextData, staggerDim int) NextData {
	return func() (*sparse.DenseArray, error) {
		in, err := inFunc()
		if err != nil {
			return nil, err
		}
		return destaggerWorker(in, staggerDim), nil
	}
}

// destaggerWorker converts a grid that is staggered with regard to the given
// dimension onto the unstaggered grid by averaging each pair of adjacent
// values along that dimension: out[n] = (in[n] + in[n+1])/2. The output
// shape is one smaller than the input shape in the staggered dimension.
func destaggerWorker(in *sparse.DenseArray, staggerDim int) *sparse.DenseArray {
	if len(in.Shape) != 3 {
		panic(fmt.Errorf("fatimawrf: destagger needs a 3-d array instead of %d-d", len(in.Shape)))
	}
	outShape := make([]int, 3)
	outShape[0], outShape[1], outShape[2] = in.Shape[0], in.Shape[1], in.Shape[2]
	outShape[staggerDim]--
	out := sparse.ZerosDense(outShape...)
	for k := 0; k < outShape[0]; k++ {
		for j := 0; j < outShape[1]; j++ {
			for i := 0; i < outShape[2]; i++ {
				var above float64
				switch staggerDim {
				case 0:
					above = in.Get(k+1, j, i)
				case 1:
					above = in.Get(k, j+1, i)
				case 2:
					above = in.Get(k, j, i+1)
				default:
					panic(fmt.Errorf("fatimawrf: invalid stagger dimension %d", staggerDim))
				}
				out.Set((in.Get(k, j, i)+above)/2, k, j, i)
			}
		}
	}
	return out
}
