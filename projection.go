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

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom/proj"
)

// wrfEarthRadius is the radius [m] of the spherical earth WRF assumes.
const wrfEarthRadius = 6370000.

// WRF MAP_PROJ codes.
const (
	projLambert  = 1
	projPolar    = 2
	projMercator = 3
	projLatLon   = 6
)

// Proj4 constructs the Proj4 representation of the map projection of the
// wrfout files from the WRF global attributes, taken from the first file.
// The result is validated by parsing it as a spatial reference.
func (w *WRFOut) Proj4() (string, error) {
	f, ff, err := openNCF(w.files[0])
	if err != nil {
		return "", err
	}
	defer f.Close()

	mapProj, err := globalAttrFloat(ff, "MAP_PROJ")
	if err != nil {
		return "", err
	}
	truelat1, err := globalAttrFloat(ff, "TRUELAT1")
	if err != nil {
		return "", err
	}
	standLon, err := globalAttrFloat(ff, "STAND_LON")
	if err != nil {
		return "", err
	}

	var p4 string
	switch int(mapProj) {
	case projLambert:
		truelat2, err := globalAttrFloat(ff, "TRUELAT2")
		if err != nil {
			return "", err
		}
		moadCenLat, err := globalAttrFloat(ff, "MOAD_CEN_LAT")
		if err != nil {
			return "", err
		}
		p4 = fmt.Sprintf("+proj=lcc +lat_1=%g +lat_2=%g +lat_0=%g +lon_0=%g +x_0=0 +y_0=0 +a=%g +b=%g +to_meter=1",
			truelat1, truelat2, moadCenLat, standLon, wrfEarthRadius, wrfEarthRadius)
	case projPolar:
		lat0 := 90.
		if truelat1 < 0 {
			lat0 = -90.
		}
		p4 = fmt.Sprintf("+proj=stere +lat_ts=%g +lat_0=%g +lon_0=%g +x_0=0 +y_0=0 +a=%g +b=%g +to_meter=1",
			truelat1, lat0, standLon, wrfEarthRadius, wrfEarthRadius)
	case projMercator:
		p4 = fmt.Sprintf("+proj=merc +lat_ts=%g +lon_0=%g +x_0=0 +y_0=0 +a=%g +b=%g +to_meter=1",
			truelat1, standLon, wrfEarthRadius, wrfEarthRadius)
	case projLatLon:
		p4 = fmt.Sprintf("+proj=longlat +a=%g +b=%g", wrfEarthRadius, wrfEarthRadius)
	default:
		return "", fmt.Errorf("fatimawrf: unsupported WRF map projection code %d", int(mapProj))
	}

	if _, err := proj.Parse(p4); err != nil {
		return "", fmt.Errorf("fatimawrf: validating projection %q: %v", p4, err)
	}
	return p4, nil
}

// globalAttrFloat reads a numeric global attribute from a wrfout header.
func globalAttrFloat(ff *cdf.File, name string) (float64, error) {
	a := ff.Header.GetAttribute("", name)
	if a == nil {
		return 0, fmt.Errorf("fatimawrf: global attribute %s not in file", name)
	}
	switch v := a.(type) {
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), nil
		}
	case []float64:
		if len(v) > 0 {
			return v[0], nil
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), nil
		}
	}
	return 0, fmt.Errorf("fatimawrf: global attribute %s has unexpected type %T", name, a)
}
