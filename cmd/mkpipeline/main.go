// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// mkpipeline sets up the necessary bucket and queue for distributed
// neighbourhood processing.
package main

import (
	"log"
	"os"

	"rescribe.xyz/nbhood"
)

type MkPipeliner interface {
	MinimalInit() error
	MkPipeline() error
}

func main() {
	if len(os.Args) != 1 {
		log.Fatal("Usage: mkpipeline\n\nSets up the bucket and queue named in the settings for our cloud pipeline\n")
	}

	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	var conn MkPipeliner
	a := settings.AwsConn()
	a.Logger = log.New(os.Stdout, "", 0)
	conn = a
	err = conn.MinimalInit()
	if err != nil {
		log.Fatalln("Failed to set up cloud connection:", err)
	}

	err = conn.MkPipeline()
	if err != nil {
		log.Fatalln("MkPipeline failed:", err)
	}
}
