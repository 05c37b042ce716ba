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
	"strconv"
	"strings"
)

// ParseLevels parses a vertical level expression. Two forms are accepted:
// a half-open range "arange(start, stop, step)" which expands to
// start, start+step, ... up to but not including stop, and an explicit
// comma-separated list "100, 200, 300". The values are interpreted in the
// units of the interpolation variable (meters or pascals). An expression
// that yields no levels is an error.
func ParseLevels(expr string) ([]float64, error) {
	s := strings.TrimSpace(expr)
	s = strings.TrimPrefix(s, "np.") // tolerate the numpy spelling
	if strings.HasPrefix(s, "arange(") {
		return parseArange(s)
	}
	return parseLevelList(s)
}

func parseArange(s string) ([]float64, error) {
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("fatimawrf: invalid level expression %q: missing ')'", s)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "arange("), ")")
	args := strings.Split(inner, ",")
	if len(args) != 3 {
		return nil, fmt.Errorf("fatimawrf: invalid level expression %q: arange needs 3 arguments", s)
	}
	vals := make([]float64, 3)
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("fatimawrf: invalid level expression %q: non-numeric argument %q", s, strings.TrimSpace(a))
		}
		vals[i] = v
	}
	start, stop, step := vals[0], vals[1], vals[2]
	if step == 0 {
		return nil, fmt.Errorf("fatimawrf: invalid level expression %q: step must be nonzero", s)
	}
	n := int(math.Ceil((stop - start) / step))
	if n <= 0 {
		return nil, fmt.Errorf("fatimawrf: level expression %q yields no levels", s)
	}
	levs := make([]float64, n)
	for i := range levs {
		levs[i] = start + float64(i)*step
	}
	return levs, nil
}

func parseLevelList(s string) ([]float64, error) {
	s = strings.Trim(s, "[]")
	var levs []float64
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("fatimawrf: invalid level value %q", a)
		}
		levs = append(levs, v)
	}
	if len(levs) == 0 {
		return nil, fmt.Errorf("fatimawrf: level expression %q yields no levels", s)
	}
	return levs, nil
}
