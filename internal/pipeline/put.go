// Copyright 2021 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"rescribe.xyz/nbhood/field"
)

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

type fileWalk chan string

// Walk sends the path of all files to the channel, with the exception of
// any file which starts with "."
func (f fileWalk) Walk(path string, info os.FileInfo, err error) error {
	if err != nil {
		return err
	}
	// skip files starting with . to prevent automatically generated
	// files like .DS_Store getting in the way
	if strings.HasPrefix(filepath.Base(path), ".") {
		return nil
	}
	if !info.IsDir() {
		f <- path
	}
	return nil
}

func isNetCDF(p string) bool {
	return strings.ToLower(filepath.Ext(p)) == ".nc"
}

// CheckFields checks that all files with a ".nc" suffix in a
// directory (or the single file given) are netcdf files containing
// variable, skipping dotfiles. Files which are results of earlier
// smoothing jobs are ignored.
func CheckFields(ctx context.Context, dir string, variable string) error {
	checker := make(fileWalk)
	walkerr := make(chan error, 1)
	go func() {
		walkerr <- filepath.Walk(dir, checker.Walk)
		close(checker)
	}()

	n := 0
	var err error
	for p := range checker {
		if err != nil {
			continue // drain so the walker can finish
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			continue
		default:
		}
		if !isNetCDF(p) || IsResult(p) {
			continue
		}
		err = checkField(p, variable)
		n++
	}
	if err != nil {
		return err
	}
	if err = <-walkerr; err != nil {
		return fmt.Errorf("Failed to read %s: %v", dir, err)
	}

	if n == 0 {
		return fmt.Errorf("No netcdf files found")
	}

	return nil
}

func checkField(p string, variable string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("Opening netcdf file %s failed: %v", p, err)
	}
	defer f.Close()
	vars, err := field.Variables(f)
	if err != nil {
		return fmt.Errorf("Reading netcdf file %s failed: %v", p, err)
	}
	i := sort.SearchStrings(vars, variable)
	if i == len(vars) || vars[i] != variable {
		return fmt.Errorf("Variable %s not found in %s, found %s", variable, p, strings.Join(vars, ", "))
	}
	return nil
}

// UploadFields uploads all files with a ".nc" suffix (except those
// which start with a ".", or are smoothing results) from a directory,
// or the single file given, into conn.StorageId(), prefixed with the
// given prefix and a slash. The keys of the uploaded files are
// returned.
func UploadFields(ctx context.Context, dir string, prefix string, conn Uploader) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("Failed to read %s: %v", dir, err)
	}
	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("Failed to read directory %s: %v", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	} else {
		paths = []string{dir}
	}

	var keys []string
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return keys, ctx.Err()
		default:
		}
		if !isNetCDF(p) || IsResult(p) {
			continue
		}
		key := path.Join(prefix, filepath.Base(p))
		conn.Log("Uploading", key)
		err = conn.Upload(conn.StorageId(), key, p)
		if err != nil {
			return keys, fmt.Errorf("Failed to upload %s: %v", p, err)
		}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("No netcdf files found in %s", dir)
	}

	return keys, nil
}

// QueueJobs adds a smoothing job for each key to the smoothing queue
func QueueJobs(keys []string, variable string, radius float64, stddev bool, conn Queuer) error {
	for _, k := range keys {
		j := Job{Key: k, Variable: variable, Radius: radius, StdDev: stddev}
		conn.Log("Adding", j, "to queue", conn.SmoothQueueId())
		err := conn.AddToQueue(conn.SmoothQueueId(), j.String())
		if err != nil {
			return fmt.Errorf("Error adding %s to queue: %v", k, err)
		}
	}
	return nil
}
