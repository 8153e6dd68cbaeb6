// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// nbhood smooths a gridded field in a netcdf file or image, replacing
// each cell with the mean of the cells in a square neighbourhood
// around it.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/field"
	"rescribe.xyz/nbhood/neighbourhood"
)

const usage = `Usage: nbhood [-v] [-r metres] [-var name] [-sd] [-grid metres] [-g graph.png] [-pdf report.pdf] [-plane n] [-row n] in out

Smooths a gridded field, replacing each cell with the mean of the
cells in the square neighbourhood reaching -r metres from it. Cells
near the edges use only the part of the neighbourhood inside the grid.

in can be a netcdf file (.nc), in which case -var names the variable
to smooth, or a png, jpeg or tiff image, in which case -grid gives the
size of each pixel in metres. out is written in the same format as in.

The -g and -pdf flags draw a graph of one row of the field before and
after smoothing, and a PDF comparing the two.

Default settings are read from ~/.config/nbhood/settings.toml if it
exists.
`

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func isNetCDF(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".nc"
}

func main() {
	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	verbose := flag.Bool("v", false, "verbose")
	radius := flag.Float64("r", settings.Radius, "neighbourhood radius in metres")
	variable := flag.String("var", "", "netcdf variable to smooth")
	stddev := flag.Bool("sd", false, "find the neighbourhood standard deviation rather than the mean")
	grid := flag.Float64("grid", 1000, "grid spacing of images in metres")
	graph := flag.String("g", "", "save a graph of a row of the field before and after smoothing")
	pdf := flag.String("pdf", "", "save a pdf report comparing the field before and after smoothing")
	plane := flag.Int("plane", 0, "plane to use for graphs, reports and image output")
	row := flag.Int("row", -1, "row to graph (default middle row)")
	workers := flag.Int("w", settings.Workers, "number of planes to process at once (default number of CPUs)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return
	}
	in, out := flag.Arg(0), flag.Arg(1)

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", 0)
	} else {
		var n NullWriter
		verboselog = log.New(n, "", 0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var f *field.Field
	if isNetCDF(in) {
		if *variable == "" {
			r, err := os.Open(in)
			if err != nil {
				log.Fatalln(err)
			}
			vars, err := field.Variables(r)
			r.Close()
			if err != nil {
				log.Fatalln(err)
			}
			log.Fatalf("No variable given with -var, variables in %s: %s\n", in, strings.Join(vars, ", "))
		}
		verboselog.Println("Reading", *variable, "from", in)
		f, err = field.ReadNetCDFFile(in, *variable)
	} else {
		verboselog.Println("Reading image", in)
		f, err = field.ReadImage(in, field.Grid{DY: *grid, DX: *grid})
	}
	if err != nil {
		log.Fatalf("Error reading %s: %v\n", in, err)
	}

	s := neighbourhood.SquareNeighbourhood{Radius: *radius, Workers: *workers, Logger: verboselog}
	verboselog.Println("Processing with", s)
	var result *field.Field
	if *stddev {
		result, err = s.RunStdDev(ctx, f)
	} else {
		result, err = s.Run(ctx, f)
	}
	if err != nil {
		log.Fatalf("Error processing %s: %v\n", in, err)
	}

	verboselog.Println("Saving result to", out)
	if isNetCDF(out) {
		err = field.WriteNetCDFFile(out, result)
	} else {
		err = field.WriteImage(out, result, *plane)
	}
	if err != nil {
		log.Fatalf("Error saving %s: %v\n", out, err)
	}

	if *graph == "" && *pdf == "" {
		return
	}

	if *row < 0 {
		*row = f.Rows() / 2
	}
	var graphbuf bytes.Buffer
	verboselog.Println("Graphing row", *row, "of plane", *plane)
	err = nbhood.GraphProfile(f, result, *plane, *row, &graphbuf)
	if err != nil {
		log.Fatalf("Error creating graph: %v\n", err)
	}
	if *graph != "" {
		err = os.WriteFile(*graph, graphbuf.Bytes(), 0644)
		if err != nil {
			log.Fatalf("Error saving graph %s: %v\n", *graph, err)
		}
	}

	if *pdf != "" {
		verboselog.Println("Creating report", *pdf)
		var r nbhood.Report
		err = r.Setup()
		if err != nil {
			log.Fatalf("Error setting up report: %v\n", err)
		}
		what := "Neighbourhood mean"
		if *stddev {
			what = "Neighbourhood standard deviation"
		}
		err = r.AddField(f, *plane, fmt.Sprintf("Original %s, plane %d", f.Name, *plane))
		if err == nil {
			err = r.AddField(result, *plane, fmt.Sprintf("%s over %gm, plane %d", what, *radius, *plane))
		}
		if err == nil {
			err = r.AddGraph(graphbuf.Bytes(), fmt.Sprintf("Row %d", *row))
		}
		if err == nil {
			err = r.Save(*pdf)
		}
		if err != nil {
			log.Fatalf("Error creating report %s: %v\n", *pdf, err)
		}
	}
}
