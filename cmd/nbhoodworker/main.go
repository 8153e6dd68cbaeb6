// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// nbhoodworker watches the smoothing queue and runs each job that is
// added to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/internal/pipeline"
)

const usage = `Usage: nbhoodworker [-v] [-c conn] [-w workers] [-quiet duration]

Watches the smoothing queue for jobs. When one is found this general
process is followed:

- The job is hidden from the queue, and a 'heartbeat' is started
  which keeps it hidden (this will time out after 2 minutes if the
  program is terminated)
- The field is downloaded
- The variable named in the job is smoothed
- The result is uploaded next to the original, with a _nbhood suffix
- The heartbeat is stopped
- The job is removed from the queue

The bucket and queue can be created with the mkpipeline tool.
`

const PauseBetweenChecks = 30 * time.Second

func stopTimer(t *time.Timer) {
	if t == nil {
		return
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func restartTimer(t *time.Timer, d time.Duration) {
	if t == nil {
		return
	}
	stopTimer(t)
	t.Reset(d)
}

func main() {
	settings, err := nbhood.LoadSettings(nbhood.SettingsPath())
	if err != nil {
		log.Fatalln(err)
	}

	verbose := flag.Bool("v", false, "verbose")
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	workers := flag.Int("w", settings.Workers, "number of planes to process at once (default number of CPUs)")
	quiet := flag.Duration("quiet", 0, "exit if no work has been available for this long (0 to never exit)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", 0)
	} else {
		var n pipeline.NullWriter
		verboselog = log.New(n, "", 0)
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

	verboselog.Println("Setting up cloud connection")
	err = conn.Init()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}
	verboselog.Println("Finished setting up cloud connection")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkQueue := time.After(0)
	var exitIfQuiet *time.Timer
	var quietc <-chan time.Time
	if *quiet > 0 {
		exitIfQuiet = time.NewTimer(*quiet)
		quietc = exitIfQuiet.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping:", ctx.Err())
			return
		case <-quietc:
			verboselog.Println("No work for", *quiet, "so exiting")
			return
		case <-checkQueue:
			msg, err := conn.CheckQueue(conn.SmoothQueueId(), pipeline.HeartbeatSeconds*2)
			checkQueue = time.After(PauseBetweenChecks)
			if err != nil {
				log.Println("Error checking smoothing queue", err)
				continue
			}
			if msg.Handle == "" {
				verboselog.Println("No message received on smoothing queue, sleeping")
				continue
			}
			// Have the queue checked immediately after completion, as
			// chances are high that there will be more jobs waiting
			checkQueue = time.After(0)
			stopTimer(exitIfQuiet)
			verboselog.Println("Message received on smoothing queue, processing", msg.Body)
			err = pipeline.SmoothField(ctx, msg, conn, *workers)
			restartTimer(exitIfQuiet, *quiet)
			if err != nil {
				log.Println("Error during smoothing", err)
				// don't spin on a job that keeps failing with a local
				// queue, which has no visibility timeout
				checkQueue = time.After(PauseBetweenChecks)
			}
		}
	}
}
