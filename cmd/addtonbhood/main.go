// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// addtonbhood uploads netcdf fields to cloud storage and adds a
// smoothing job for each to the queue, ready to be processed by the
// nbhoodworker tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/internal/pipeline"
)

const usage = `Usage: addtonbhood [-c conn] [-v] [-r metres] [-sd] -var name fields [prefix]

Uploads the netcdf (.nc) files in the directory fields, or the single
file fields, to storage under prefix/, and adds a job to smooth the
variable given with -var in each of them to the smoothing queue.

If prefix is omitted the last part of fields is used, without any
extension.
`

func main() {
	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	verbose := flag.Bool("v", false, "Verbose")
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	radius := flag.Float64("r", settings.Radius, "neighbourhood radius in metres")
	variable := flag.String("var", "", "netcdf variable to smooth")
	stddev := flag.Bool("sd", false, "find the neighbourhood standard deviation rather than the mean")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 || *variable == "" {
		flag.Usage()
		return
	}

	fields := flag.Arg(0)
	var prefix string
	if flag.NArg() > 1 {
		prefix = flag.Arg(1)
	} else {
		base := filepath.Base(fields)
		prefix = base[:len(base)-len(filepath.Ext(base))]
	}

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		var n pipeline.NullWriter
		verboselog = log.New(n, "", log.LstdFlags)
	}

	var conn pipeline.Pipeliner
	switch *conntype {
	case "aws":
		a := settings.AwsConn()
		a.Logger = verboselog
		conn = a
	case "local":
		conn = &nbhood.LocalConn{Logger: verboselog}
	default:
		log.Fatalln("Unknown connection type")
	}
	err = conn.Init()
	if err != nil {
		log.Fatalln("Failed to set up cloud connection:", err)
	}

	ctx := context.Background()

	verboselog.Println("Checking that all fields are valid in", fields)
	err = pipeline.CheckFields(ctx, fields, *variable)
	if err != nil {
		log.Fatalln(err)
	}

	verboselog.Println("Checking that nothing has already been uploaded with that prefix")
	list, err := conn.ListObjects(conn.StorageId(), prefix+"/")
	if err != nil {
		log.Fatalln(err)
	}
	if len(list) > 0 {
		log.Fatalf("Error: There are already fields in storage under %s", prefix)
	}

	verboselog.Println("Uploading all fields in", fields)
	keys, err := pipeline.UploadFields(ctx, fields, prefix, conn)
	if err != nil {
		log.Fatalln(err)
	}

	err = pipeline.QueueJobs(keys, *variable, *radius, *stddev, conn)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("Uploaded %d fields to the smoothing queue\n", len(keys))
}
