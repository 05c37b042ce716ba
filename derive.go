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

	"github.com/ctessum/sparse"
)

// windSpeed calculates the magnitude of the horizontal wind from its
// West-East and South-North components.
func windSpeed(u, v *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(u.Shape...)
	for i := range u.Elements {
		out.Elements[i] = math.Hypot(u.Elements[i], v.Elements[i])
	}
	return out
}

// windDirection calculates the meteorological wind direction [degrees]:
// the direction the wind is blowing from, measured clockwise from north,
// in the range (0, 360]. Calm winds (u = v = 0) are reported as 0.
func windDirection(u, v *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(u.Shape...)
	for i := range u.Elements {
		uv, vv := u.Elements[i], v.Elements[i]
		if uv == 0 && vv == 0 {
			out.Elements[i] = 0
			continue
		}
		d := 90. - math.Atan2(-vv, -uv)*180./math.Pi
		if d <= 0 {
			d += 360.
		}
		out.Elements[i] = d
	}
	return out
}

// thetaToTemperature converts potential temperature theta [K] to ambient
// temperature [K] for the given pressure p [Pa].
func thetaToTemperature(theta, p *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(theta.Shape...)
	for i := range theta.Elements {
		out.Elements[i] = theta.Elements[i] * pressureCorrection(p.Elements[i])
	}
	return out
}

// pressureCorrection is the Exner-type factor relating potential and
// ambient temperature at pressure p [Pa].
func pressureCorrection(p float64) float64 {
	const (
		po    = 100000. // Pa, reference pressure (1000 hPa)
		kappa = 0.28571 // Rd/cp for dry air
	)
	return math.Pow(p/po, kappa)
}

// relativeHumidity calculates relative humidity [fraction] from pressure
// [Pa], ambient temperature [K], and specific humidity [kg/kg], using the
// Bolton (1980) saturation vapor pressure approximation.
func relativeHumidity(p, t, q *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(p.Shape...)
	for i := range p.Elements {
		out.Elements[i] = rh(p.Elements[i], t.Elements[i], q.Elements[i])
	}
	return out
}

func rh(p, t, q float64) float64 {
	const epsilon = 0.622 // ratio of molar masses of water vapor and dry air
	es := satVaporPressure(t)
	ws := epsilon * es / (p - es) // saturation mixing ratio [kg/kg]
	w := q / (1 - q)              // mixing ratio [kg/kg]
	return w / ws
}

// satVaporPressure is the saturation water vapor pressure [Pa] at ambient
// temperature t [K] (Bolton 1980).
func satVaporPressure(t float64) float64 {
	tc := t - 273.15 // °C
	return 611.2 * math.Exp(17.67*tc/(tc+243.5))
}
