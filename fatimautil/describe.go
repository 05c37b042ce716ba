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

package fatimautil

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/wangsen992/fatima-wrf/zarr"
)

// Describe writes a summary of the dataset at path to w. path may be a
// wrfout NetCDF file or a processed Zarr store directory.
func Describe(w io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("fatimawrf: describing %s: %v", path, err)
	}
	if info.IsDir() {
		return describeZarr(w, path)
	}
	return describeNetCDF(w, path)
}

func describeNetCDF(w io.Writer, path string) error {
	nc, err := netcdf.Open(path)
	if err != nil {
		return fmt.Errorf("fatimawrf: opening %s: %v", path, err)
	}
	defer nc.Close()

	fmt.Fprintf(w, "%s (NetCDF)\n", path)

	names := nc.ListVariables()
	sort.Strings(names)
	fmt.Fprintf(w, "variables (%d):\n", len(names))
	for _, name := range names {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return fmt.Errorf("fatimawrf: reading variable %s: %v", name, err)
		}
		line := fmt.Sprintf("  %s(%s) %s", name, strings.Join(vg.Dimensions(), ", "), vg.Type())
		if desc := attrString(vg.Attributes(), "description"); desc != "" {
			line += " - " + desc
		}
		if units := attrString(vg.Attributes(), "units"); units != "" {
			line += " [" + units + "]"
		}
		fmt.Fprintln(w, line)
	}

	attrs := nc.Attributes()
	keys := attrs.Keys()
	fmt.Fprintf(w, "attributes (%d):\n", len(keys))
	for _, k := range keys {
		if v, has := attrs.Get(k); has {
			fmt.Fprintf(w, "  %s = %v\n", k, v)
		}
	}
	return nil
}

// attrString returns a string-valued attribute, or "" if it is absent or
// not a string.
func attrString(attrs api.AttributeMap, key string) string {
	v, has := attrs.Get(key)
	if !has {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func describeZarr(w io.Writer, path string) error {
	store, err := zarr.Open(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (Zarr)\n", path)

	names, err := store.ArrayNames()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "arrays (%d):\n", len(names))
	for _, name := range names {
		arrayAttrs, err := store.ArrayAttrs(name)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("  %s(%s)", name, strings.Join(strings.Split(arrayAttrs[zarr.ArrayDimsKey], ","), ", "))
		if ln := arrayAttrs["long_name"]; ln != "" {
			line += " - " + ln
		}
		if units := arrayAttrs["units"]; units != "" {
			line += " [" + units + "]"
		}
		fmt.Fprintln(w, line)
	}

	attrs, err := store.Attrs()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "attributes (%d):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, attrs[k])
	}
	return nil
}
