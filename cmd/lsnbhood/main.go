// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// lsnbhood lists useful things related to the smoothing pipeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/internal/pipeline"
)

const usage = `Usage: lsnbhood [-c conn] [-noprefixes]

Lists useful things related to the pipeline.

- Messages in the smoothing queue
- Prefixes with fields still to be smoothed
- Prefixes with all fields smoothed
`

type LsPipeliner interface {
	Init() error
	SmoothQueueId() string
	GetQueueDetails(url string) (string, string, error)
	ListObjectsWithMeta(bucket string, prefix string) ([]nbhood.ObjMeta, error)
	StorageId() string
}

type prefixStatus struct {
	name         string
	fields, done int
	latest       nbhood.ObjMeta
}

// getPrefixStatus groups every object in storage by its prefix,
// counting the fields and results under each. The prefixes are
// sorted by the date of their newest object.
func getPrefixStatus(conn LsPipeliner) ([]prefixStatus, error) {
	objs, err := conn.ListObjectsWithMeta(conn.StorageId(), "")
	if err != nil {
		return nil, err
	}
	prefixes := make(map[string]*prefixStatus)
	for _, o := range objs {
		i := strings.Index(o.Name, "/")
		if i == -1 {
			continue
		}
		name := o.Name[:i]
		p, ok := prefixes[name]
		if !ok {
			p = &prefixStatus{name: name}
			prefixes[name] = p
		}
		if pipeline.IsResult(o.Name) {
			p.done++
		} else {
			p.fields++
		}
		if o.Date.After(p.latest.Date) {
			p.latest = o
		}
	}

	var status []prefixStatus
	for _, p := range prefixes {
		status = append(status, *p)
	}
	sort.Slice(status, func(i, j int) bool { return status[i].latest.Date.Before(status[j].latest.Date) })
	return status, nil
}

func main() {
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	noprefixes := flag.Bool("noprefixes", false, "disable listing prefixes (which takes some time)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var n pipeline.NullWriter
	verboselog := log.New(n, "", 0)

	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	var conn LsPipeliner
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

	fmt.Println("# Queues")
	avail, inprog, err := conn.GetQueueDetails(conn.SmoothQueueId())
	if err != nil {
		log.Println("Error getting queue details:", err)
	} else {
		fmt.Printf("smooth: %s available, %s in progress\n", avail, inprog)
	}

	if *noprefixes {
		return
	}

	status, err := getPrefixStatus(conn)
	if err != nil {
		log.Fatalln("Error listing storage:", err)
	}

	fmt.Println("\n# Prefixes not completed")
	for _, p := range status {
		if p.done < p.fields {
			fmt.Printf("%s (%d of %d fields done)\n", p.name, p.done, p.fields)
		}
	}

	fmt.Println("\n# Prefixes done")
	for _, p := range status {
		if p.done >= p.fields {
			fmt.Printf("%s (%d fields, last updated %s)\n", p.name, p.fields, p.latest.Date.Format("2006-01-02 15:04"))
		}
	}
}
