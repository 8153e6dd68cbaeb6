// Copyright 2020 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pipeline is a package used by the nbhood commands, which handles
// the core functionality of distributed neighbourhood processing,
// using channels heavily to coordinate jobs. Note that it is
// considered an "internal" package, not intended for external use,
// and no guarantee is made of the stability of any interfaces
// provided.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rescribe.xyz/nbhood"
	"rescribe.xyz/nbhood/field"
	"rescribe.xyz/nbhood/neighbourhood"
)

const HeartbeatSeconds = 60

// ResultSuffix is added to the base name of each smoothed file, or
// StdDevSuffix for standard deviation jobs
const (
	ResultSuffix = "_nbhood"
	StdDevSuffix = "_nbhoodsd"
)

// ErrBadJob is returned if a queue message can't be understood
var ErrBadJob = errors.New("pipeline: bad job")

// removeFile is used by Smooth to clean up each file it has read
var removeFile = os.Remove

type Lister interface {
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	StorageId() string
}

type Downloader interface {
	Download(bucket string, key string, fn string) error
	Log(v ...interface{})
	StorageId() string
}

type DownloadLister interface {
	Download(bucket string, key string, fn string) error
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	StorageId() string
}

type Uploader interface {
	Log(v ...interface{})
	Upload(bucket string, key string, path string) error
	StorageId() string
}

type Queuer interface {
	AddToQueue(url string, msg string) error
	CheckQueue(url string, timeout int64) (nbhood.Qmsg, error)
	DelFromQueue(url string, handle string) error
	Log(v ...interface{})
	QueueHeartbeat(msg nbhood.Qmsg, qurl string, duration int64) (nbhood.Qmsg, error)
	SmoothQueueId() string
}

type UploadQueuer interface {
	Uploader
	Queuer
}

type Pipeliner interface {
	AddToQueue(url string, msg string) error
	CheckQueue(url string, timeout int64) (nbhood.Qmsg, error)
	DelFromQueue(url string, handle string) error
	Download(bucket string, key string, fn string) error
	GetLogger() *log.Logger
	Init() error
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	QueueHeartbeat(msg nbhood.Qmsg, qurl string, duration int64) (nbhood.Qmsg, error)
	SmoothQueueId() string
	StorageId() string
	Upload(bucket string, key string, path string) error
}

type MinPipeliner interface {
	Pipeliner
	MinimalInit() error
}

// Job is a request to smooth one variable of a netcdf file in storage
type Job struct {
	Key      string
	Variable string
	Radius   float64
	StdDev   bool
}

// String returns the job in the form it is sent to the queue:
// "key variable radius", with " sd" at the end for a standard
// deviation job.
func (j Job) String() string {
	s := fmt.Sprintf("%s %s %s", j.Key, j.Variable, strconv.FormatFloat(j.Radius, 'g', -1, 64))
	if j.StdDev {
		s += " sd"
	}
	return s
}

// ResultKey is the key the result of the job is uploaded to, next to
// the original.
func (j Job) ResultKey() string {
	suffix := ResultSuffix
	if j.StdDev {
		suffix = StdDevSuffix
	}
	ext := path.Ext(j.Key)
	return strings.TrimSuffix(j.Key, ext) + suffix + ext
}

// ParseJob parses a queue message into a Job
func ParseJob(body string) (Job, error) {
	f := strings.Fields(body)
	if len(f) < 3 || len(f) > 4 {
		return Job{}, fmt.Errorf("%w: need 3 or 4 fields, got %d in %q", ErrBadJob, len(f), body)
	}
	radius, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return Job{}, fmt.Errorf("%w: bad radius %q", ErrBadJob, f[2])
	}
	j := Job{Key: f[0], Variable: f[1], Radius: radius}
	if len(f) == 4 {
		if f[3] != "sd" {
			return Job{}, fmt.Errorf("%w: unknown option %q", ErrBadJob, f[3])
		}
		j.StdDev = true
	}
	return j, nil
}

// download reads file names from a channel and downloads them into
// dir, putting each successfully downloaded file name into the
// process channel. If an error occurs it is sent to the errc channel
// and the function returns early.
func download(ctx context.Context, dl chan string, process chan string, conn Downloader, dir string, errc chan error, logger *log.Logger) {
	for key := range dl {
		select {
		case <-ctx.Done():
			for range dl {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			close(process)
			return
		default:
		}
		fn := filepath.Join(dir, filepath.Base(key))
		logger.Println("Downloading", key)
		err := conn.Download(conn.StorageId(), key, fn)
		if err != nil {
			for range dl {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			close(process)
			return
		}
		process <- fn
	}
	close(process)
}

// up reads file names from a channel and uploads them with
// the prefix/ prefix, removing the local copy of each file
// once it has been successfully uploaded. The done channel is
// then written to to signal completion. If an error occurs it
// is sent to the errc channel and the function returns early.
func up(ctx context.Context, c chan string, done chan bool, conn Uploader, prefix string, errc chan error, logger *log.Logger) {
	for p := range c {
		select {
		case <-ctx.Done():
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			return
		default:
		}
		key := path.Join(prefix, filepath.Base(p))
		logger.Println("Uploading", key)
		err := conn.Upload(conn.StorageId(), key, p)
		if err != nil {
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			return
		}
		err = os.Remove(p)
		if err != nil {
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			return
		}
	}

	done <- true
}

// Smooth returns a processing stage which reads each netcdf file sent
// to it, runs the neighbourhood processing of the job on it, and
// sends the name of a new netcdf file holding the result on to be
// uploaded. Each original file is removed once it is processed.
func Smooth(job Job, workers int) func(context.Context, chan string, chan string, chan error, *log.Logger) {
	return func(ctx context.Context, tosmooth chan string, up chan string, errc chan error, logger *log.Logger) {
		s := neighbourhood.SquareNeighbourhood{Radius: job.Radius, Workers: workers, Logger: logger}
		run := s.Run
		if job.StdDev {
			run = s.RunStdDev
		}
		for p := range tosmooth {
			select {
			case <-ctx.Done():
				for range tosmooth {
				} // consume the rest of the receiving channel so it isn't blocked
				errc <- ctx.Err()
				close(up)
				return
			default:
			}
			logger.Println("Smoothing", job.Variable, "in", p, "with", s)
			out, err := smoothFile(ctx, p, job, run)
			if err != nil {
				for range tosmooth {
				} // consume the rest of the receiving channel so it isn't blocked
				errc <- fmt.Errorf("Error smoothing %s: %w", p, err)
				close(up)
				return
			}
			err = removeFile(p)
			if err != nil {
				logger.Println("Error removing smoothed file", p, err)
			}
			up <- out
		}
		close(up)
	}
}

func smoothFile(ctx context.Context, p string, job Job, run func(context.Context, *field.Field) (*field.Field, error)) (string, error) {
	f, err := field.ReadNetCDFFile(p, job.Variable)
	if err != nil {
		return "", err
	}
	result, err := run(ctx, f)
	if err != nil {
		return "", err
	}
	out := filepath.Join(filepath.Dir(p), path.Base(job.ResultKey()))
	err = field.WriteNetCDFFile(out, result)
	if err != nil {
		return "", err
	}
	return out, nil
}

// heartbeat keeps a message in flight on a queue until ctx is done,
// sending any replacement message handle to msgc.
func heartbeat(ctx context.Context, conn Queuer, t *time.Ticker, msg nbhood.Qmsg, queue string, msgc chan nbhood.Qmsg, errc chan error) {
	currentmsg := msg
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		m, err := conn.QueueHeartbeat(currentmsg, queue, HeartbeatSeconds*2)
		if err != nil {
			conn.Log("Error with heartbeat", err)
			errc <- err
			t.Stop()
			return
		}
		if m.Id != "" {
			conn.Log("Replaced message handle as visibilitytimeout limit was reached")
			currentmsg = m
			// drop any older replacement that wasn't picked up
			select {
			case <-msgc:
			default:
			}
			msgc <- m
		}
	}
}

// SmoothField runs the job in a queue message: downloading the field,
// smoothing it, uploading the result and finally deleting the message
// from the queue. A message that can't be parsed is deleted from the
// queue straight away, as it will never succeed.
func SmoothField(ctx context.Context, msg nbhood.Qmsg, conn Pipeliner, workers int) error {
	fromQueue := conn.SmoothQueueId()

	job, err := ParseJob(msg.Body)
	if err != nil {
		conn.Log("Deleting message from queue as it can't be parsed", fromQueue)
		err2 := conn.DelFromQueue(fromQueue, msg.Handle)
		if err2 != nil {
			conn.Log("Error deleting message from queue", err2)
		}
		return err
	}

	dl := make(chan string)
	msgc := make(chan nbhood.Qmsg, 1)
	processc := make(chan string)
	upc := make(chan string)
	// buffered so that stages can finish after an error has been
	// returned
	done := make(chan bool, 1)
	errc := make(chan error, 4)

	d, err := os.MkdirTemp("", "nbhood")
	if err != nil {
		return fmt.Errorf("Failed to create temporary directory: %s", err)
	}
	defer os.RemoveAll(d)

	hbctx, stophb := context.WithCancel(ctx)
	defer stophb()
	t := time.NewTicker(HeartbeatSeconds * time.Second)
	defer t.Stop()
	go heartbeat(hbctx, conn, t, msg, fromQueue, msgc, errc)

	// these functions will do their jobs when their channels have data
	go download(ctx, dl, processc, conn, d, errc, conn.GetLogger())
	go Smooth(job, workers)(ctx, processc, upc, errc, conn.GetLogger())
	go up(ctx, upc, done, conn, path.Dir(job.Key), errc, conn.GetLogger())

	dl <- job.Key
	close(dl)

	// wait for either the done or errc channel to be sent to
	select {
	case err = <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		// an earlier stage may have failed and closed its channel
		select {
		case err = <-errc:
			return err
		default:
		}
	}

	stophb()

	// check whether we're using a newer msg handle
	select {
	case m := <-msgc:
		msg = m
		conn.Log("Using new message handle to delete message from queue")
	default:
		conn.Log("Using original message handle to delete message from queue")
	}

	conn.Log("Deleting original message from queue", fromQueue)
	err = conn.DelFromQueue(fromQueue, msg.Handle)
	if err != nil {
		return fmt.Errorf("Error deleting message from queue: %s", err)
	}

	return nil
}
