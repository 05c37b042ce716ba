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
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	fatimawrf "github.com/wangsen992/fatima-wrf"
)

// newLogger creates a logger writing to standard output and, if logfile
// is not empty, to that file as well.
func newLogger(logfile string) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if logfile == "" {
		return log, nil, nil
	}
	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("fatimawrf: opening log file: %v", err)
	}
	log.Out = io.MultiWriter(os.Stdout, f)
	return log, f, nil
}

// Preproc processes the wrfout files of one simulation case and saves the
// result as a Zarr store at {procDir}/{caseName}/{filePrefix}_hlevs.zarr.
//
// wrfRun is the directory holding the WRF run output, with one
// sub-directory per case; the wrfout files are expected at
// {wrfRun}/{caseName}/{filePrefix}*.
//
// levExpr is the vertical level expression (see fatimawrf.ParseLevels) and
// interpVar names the variable the levels are values of.
//
// If the output store already exists, processing is skipped unless
// overwrite is set.
func Preproc(wrfRun, caseName, filePrefix, procDir, levExpr, interpVar, logfile string, overwrite bool) error {
	vars := []string{wrfRun, caseName, filePrefix, procDir, levExpr, interpVar}
	varNames := []string{"wrf_run", "case_name", "file_prefix", "proc_dir", "levs", "interp_var"}
	for i, v := range vars {
		if v == "" {
			return fmt.Errorf("fatimawrf: configuration variable %s is not specified", varNames[i])
		}
	}

	log, closer, err := newLogger(logfile)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	outPath := fatimawrf.StorePath(procDir, caseName, filePrefix)
	if _, err := os.Stat(outPath); err == nil {
		if !overwrite {
			log.WithField("path", outPath).Info("output store already exists; skipping (use --overwrite to replace)")
			return nil
		}
		log.WithField("path", outPath).Info("replacing existing output store")
		if err := os.RemoveAll(outPath); err != nil {
			return fmt.Errorf("fatimawrf: removing existing output store: %v", err)
		}
	}

	levs, err := fatimawrf.ParseLevels(levExpr)
	if err != nil {
		return err
	}

	msgChan := make(chan string)
	go func() {
		for {
			log.Info(<-msgChan)
		}
	}()

	inDir := filepath.Join(wrfRun, caseName)
	w, err := fatimawrf.OpenWRFOut(inDir, filePrefix, msgChan)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"case":  caseName,
		"files": len(w.Files()),
		"levs":  len(levs),
	}).Info("processing wrfout files")

	start := time.Now()
	ds, err := fatimawrf.Preprocess(w, levs, interpVar, msgChan)
	if err != nil {
		return err
	}
	ds.StampMetadata(wrfRun, caseName, filePrefix, levExpr, interpVar, time.Now())

	if err := os.MkdirAll(filepath.Dir(outPath), os.ModePerm); err != nil {
		return fmt.Errorf("fatimawrf: creating output directory: %v", err)
	}
	if err := ds.WriteZarr(outPath); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":    outPath,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("wrote output store")
	return nil
}
