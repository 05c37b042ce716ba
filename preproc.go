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

	"github.com/ctessum/sparse"
)

// Interpolation variable choices for the vertical coordinate of the
// processed dataset.
const (
	InterpHeight   = "geopotential_height"
	InterpPressure = "air_pressure"
)

// Dimension names of the processed dataset.
var (
	dims3D     = []string{"Time", "lev", "south_north", "west_east"}
	dims2D     = []string{"Time", "south_north", "west_east"}
	dimsStatic = []string{"south_north", "west_east"}
)

// surfaceVars lists the 2-d wrfout variables that are passed through to the
// processed dataset when present in the input files.
var surfaceVars = []struct {
	name, description, units string
}{
	{"T2", "Temperature at 2 m", "K"},
	{"Q2", "Water vapor mixing ratio at 2 m", "kg kg-1"},
	{"PSFC", "Surface pressure", "Pa"},
	{"U10", "West-East wind at 10 m", "m s-1"},
	{"V10", "South-North wind at 10 m", "m s-1"},
	{"PBLH", "Planetary boundary layer height", "m"},
	{"HFX", "Upward sensible heat flux at the surface", "W m-2"},
	{"LH", "Latent heat flux at the surface", "W m-2"},
	{"TSK", "Surface skin temperature", "K"},
	{"SWDOWN", "Downwelling shortwave radiation at the surface", "W m-2"},
	{"GLW", "Downwelling longwave radiation at the surface", "W m-2"},
}

// field pairs a processed variable with its metadata before it is added
// to the output dataset.
type field struct {
	name, description, units string
	data                     *sparse.DenseArray
}

// Preprocess runs the processing pipeline on the wrfout files in w:
// it loads and destaggers the base fields, computes derived variables,
// resamples every 3-d field onto the fixed vertical levels levs of the
// interpolation variable interpVar (InterpHeight or InterpPressure), and
// returns the result as a Dataset. If msgChan is not nil, status messages
// will be sent to it.
func Preprocess(w *WRFOut, levs []float64, interpVar string, msgChan chan string) (*Dataset, error) {
	if interpVar != InterpHeight && interpVar != InterpPressure {
		return nil, fmt.Errorf("fatimawrf: invalid interpolation variable %q; must be %q or %q",
			interpVar, InterpHeight, InterpPressure)
	}
	if len(levs) == 0 {
		return nil, fmt.Errorf("fatimawrf: no interpolation levels given")
	}

	times, err := w.Times()
	if err != nil {
		return nil, err
	}

	// Load the base 3-d fields, destaggered onto the mass grid, with a
	// leading time dimension.
	var windEast, windNorth, windVertical, pressure, theta, height, qvapor *sparse.DenseArray

	errChan := make(chan error)
	go func() {
		var err error
		windEast, err = stack(w.U())
		errChan <- err
	}()
	go func() {
		var err error
		windNorth, err = stack(w.V())
		errChan <- err
	}()
	go func() {
		var err error
		windVertical, err = stack(w.W())
		errChan <- err
	}()
	go func() {
		var err error
		pressure, err = stack(w.Pressure())
		errChan <- err
	}()
	go func() {
		var err error
		theta, err = stack(w.PotentialTemperature())
		errChan <- err
	}()
	go func() {
		var err error
		height, err = stack(w.GeopotentialHeight())
		errChan <- err
	}()
	go func() {
		var err error
		qvapor, err = stack(w.Read("QVAPOR"))
		errChan <- err
	}()
	for i := 0; i < 7; i++ {
		if err := <-errChan; err != nil {
			return nil, err
		}
	}
	if windEast.Shape[0] != len(times) {
		return nil, fmt.Errorf("fatimawrf: %d data records but %d timestamps", windEast.Shape[0], len(times))
	}

	// Derived variables.
	ta := thetaToTemperature(theta, pressure)
	fields3D := []field{
		{"wind_east", "West-East wind component", "m s-1", windEast},
		{"wind_north", "South-North wind component", "m s-1", windNorth},
		{"wind_vertical", "Vertical wind component", "m s-1", windVertical},
		{"air_pressure", "Full air pressure", "Pa", pressure},
		{"air_potential_temperature", "Air potential temperature", "K", theta},
		{"geopotential_height", "Geopotential height above sea level", "m", height},
		{"QVAPOR", "Water vapor mixing ratio", "kg kg-1", qvapor},
		{"Ta", "Air temperature", "K", ta},
		{"wind_speed", "Horizontal wind speed", "m s-1", windSpeed(windEast, windNorth)},
		{"wind_direction", "Direction the wind is blowing from", "degree", windDirection(windEast, windNorth)},
		{"RH", "Relative humidity", "1", relativeHumidity(pressure, ta, qvapor)},
	}
	if w.Has("QCLOUD") {
		qcloud, err := stack(w.Read("QCLOUD"))
		if err != nil {
			return nil, err
		}
		fields3D = append(fields3D, field{"QCLOUD", "Cloud water mixing ratio", "kg kg-1", qcloud})
	}

	// Resample every 3-d field onto the requested vertical levels.
	target := height
	if interpVar == InterpPressure {
		target = pressure
	}
	ds := &Dataset{Time: times, Levels: levs, LevelVar: interpVar}
	for _, f := range fields3D {
		if msgChan != nil {
			msgChan <- fmt.Sprintf("Interpolating %s onto %d %s levels", f.name, len(levs), interpVar)
		}
		data, err := interpToLevels(f.data, target, levs)
		if err != nil {
			return nil, fmt.Errorf("fatimawrf: interpolating %s: %v", f.name, err)
		}
		ds.AddVariable(f.name, dims3D, f.description, f.units, data)
	}

	// Surface fields pass through unchanged.
	for _, sv := range surfaceVars {
		if !w.Has(sv.name) {
			if msgChan != nil {
				msgChan <- fmt.Sprintf("Variable %s not in input; skipping", sv.name)
			}
			continue
		}
		data, err := stack(w.Read(sv.name))
		if err != nil {
			return nil, err
		}
		ds.AddVariable(sv.name, dims2D, sv.description, sv.units, data)
	}
	if u10, ok := ds.Data["U10"]; ok {
		if v10, ok := ds.Data["V10"]; ok {
			ds.AddVariable("wind_speed_10", dims2D,
				"Horizontal wind speed at 10 m", "m s-1", windSpeed(u10.Data, v10.Data))
			ds.AddVariable("wind_direction_10", dims2D,
				"Direction the wind at 10 m is blowing from", "degree", windDirection(u10.Data, v10.Data))
		}
	}

	// Static coordinate fields, taken from the first record.
	for _, name := range []string{"XLAT", "XLONG"} {
		if !w.Has(name) {
			continue
		}
		data, err := w.Read(name)()
		if err != nil {
			return nil, err
		}
		desc, units := "Latitude", "degree_north"
		if name == "XLONG" {
			desc, units = "Longitude", "degree_east"
		}
		ds.AddVariable(name, dimsStatic, desc, units, data)
	}

	// Grid projection, recorded as a dataset attribute.
	if p4, err := w.Proj4(); err == nil {
		ds.SetAttr("wrf_projection", p4)
	} else if msgChan != nil {
		msgChan <- fmt.Sprintf("Could not determine grid projection: %v", err)
	}

	if err := ds.checkShapes(); err != nil {
		return nil, err
	}
	return ds, nil
}

// stack reads all time steps from next and concatenates them along a new
// leading time dimension.
func stack(next NextData) (*sparse.DenseArray, error) {
	var frames []*sparse.DenseArray
	for {
		d, err := next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		frames = append(frames, d)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("fatimawrf: no records read")
	}
	n := len(frames[0].Elements)
	shape := append([]int{len(frames)}, frames[0].Shape...)
	out := sparse.ZerosDense(shape...)
	for t, f := range frames {
		if len(f.Elements) != n {
			return nil, fmt.Errorf("fatimawrf: record %d shape %v does not match record 0 shape %v", t, f.Shape, frames[0].Shape)
		}
		copy(out.Elements[t*n:(t+1)*n], f.Elements)
	}
	return out, nil
}
