// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// getnbhood downloads the results of smoothing jobs from storage.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/internal/pipeline"
)

const usage = `Usage: getnbhood [-a] [-c conn] [-v] prefix [dir]

Downloads the smoothed fields uploaded under prefix/ by nbhoodworker
into dir, which is created if necessary. If dir is omitted prefix is
used.

By default only the results are downloaded; -a downloads the original
fields too.
`

func main() {
	all := flag.Bool("a", false, "Get all files under prefix")
	verbose := flag.Bool("v", false, "Verbose")
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		return
	}
	prefix := flag.Arg(0)
	dir := prefix
	if flag.NArg() > 1 {
		dir = flag.Arg(1)
	}

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		var n pipeline.NullWriter
		verboselog = log.New(n, "", log.LstdFlags)
	}

	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	var conn pipeline.MinPipeliner
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

	verboselog.Println("Setting up cloud connection")
	err = conn.MinimalInit()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		log.Fatalln("Failed to create directory", dir, err)
	}

	if *all {
		verboselog.Println("Downloading all files under", prefix)
		err = pipeline.DownloadAll(dir, prefix+"/", conn)
		if err != nil {
			log.Fatalln(err)
		}
		return
	}

	verboselog.Println("Downloading results under", prefix)
	done, err := pipeline.DownloadResults(dir, prefix+"/", conn)
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Printf("Downloaded %d results to %s\n", len(done), dir)
}
