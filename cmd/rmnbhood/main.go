// Copyright 2020 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// rmnbhood removes fields and their results from cloud storage.
package main

import (
	"flag"
	"fmt"
	"log"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/internal/pipeline"
)

const usage = `Usage: rmnbhood [-c conn] [-r] prefix

Removes everything under prefix/ from cloud storage, or with -r just
the results of smoothing jobs.
`

type RmPipeliner interface {
	MinimalInit() error
	StorageId() string
	DeleteObjects(bucket string, keys []string) error
	ListObjects(bucket string, prefix string) ([]string, error)
}

func main() {
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	results := flag.Bool("r", false, "only remove results")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return
	}

	var n pipeline.NullWriter
	verboselog := log.New(n, "", log.LstdFlags)

	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	var conn RmPipeliner
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

	fmt.Println("Setting up cloud connection")
	err = conn.MinimalInit()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}

	prefix := flag.Arg(0) + "/"

	fmt.Println("Getting list of files under", prefix)
	objs, err := conn.ListObjects(conn.StorageId(), prefix)
	if err != nil {
		log.Fatalln("Error in listing files:", err)
	}

	if *results {
		var r []string
		for _, o := range objs {
			if pipeline.IsResult(o) {
				r = append(r, o)
			}
		}
		objs = r
	}

	if len(objs) == 0 {
		log.Fatalln("No files found under", prefix)
	}

	fmt.Println("Deleting", len(objs), "files")
	err = conn.DeleteObjects(conn.StorageId(), objs)
	if err != nil {
		log.Fatalln("Error deleting files:", err)
	}

	fmt.Println("Finished deleting files")
}
