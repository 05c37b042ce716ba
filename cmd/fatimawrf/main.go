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

// Command fatimawrf is a command-line interface for the FATIMA-WRF
// postprocessor.
package main

import (
	"fmt"
	"os"

	"github.com/wangsen992/fatima-wrf/fatimautil"
)

func main() {
	if err := fatimautil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
