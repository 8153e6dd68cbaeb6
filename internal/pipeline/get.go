// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// IsResult reports whether a key is the result of a smoothing job
func IsResult(key string) bool {
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	return strings.HasSuffix(base, ResultSuffix) || strings.HasSuffix(base, StdDevSuffix)
}

// DownloadResults downloads the results of all smoothing jobs under
// prefix into dir, returning the paths of the downloaded files.
func DownloadResults(dir string, prefix string, conn DownloadLister) ([]string, error) {
	objs, err := conn.ListObjects(conn.StorageId(), prefix)
	if err != nil {
		return nil, fmt.Errorf("Failed to get list of files for %s: %v", prefix, err)
	}
	var done []string
	for _, i := range objs {
		if !IsResult(i) {
			continue
		}
		fn := filepath.Join(dir, path.Base(i))
		conn.Log("Downloading", i)
		err = conn.Download(conn.StorageId(), i, fn)
		if err != nil {
			return done, fmt.Errorf("Failed to download file %s: %v", i, err)
		}
		done = append(done, fn)
	}
	if len(done) == 0 {
		return nil, fmt.Errorf("No results found for %s", prefix)
	}
	return done, nil
}

// DownloadAll downloads every file under prefix into dir, originals
// and results alike.
func DownloadAll(dir string, prefix string, conn DownloadLister) error {
	objs, err := conn.ListObjects(conn.StorageId(), prefix)
	if err != nil {
		return fmt.Errorf("Failed to get list of files for %s: %v", prefix, err)
	}
	for _, i := range objs {
		fn := filepath.Join(dir, path.Base(i))
		conn.Log("Downloading", i)
		err = conn.Download(conn.StorageId(), i, fn)
		if err != nil {
			return fmt.Errorf("Failed to download file %s: %v", i, err)
		}
	}
	return nil
}
