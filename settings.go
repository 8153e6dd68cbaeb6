// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Settings are the site specific values used by the commands, read
// from a TOML file like this:
//
//	region = "eu-west-2"
//	bucket = "nbhoodfields"
//	queue = "nbhoodsmooth"
//	radius = 2500.0
//	workers = 4
type Settings struct {
	Region  string  `toml:"region"`
	Bucket  string  `toml:"bucket"`
	Queue   string  `toml:"queue"`
	Radius  float64 `toml:"radius"`
	Workers int     `toml:"workers"`
}

// DefaultRadius is the neighbourhood radius in metres used when none
// is set.
const DefaultRadius = 2500

// DefaultSettings returns the settings used when there is no
// settings file.
func DefaultSettings() Settings {
	return Settings{
		Region: defaultAwsRegion,
		Bucket: storageFields,
		Queue:  queueSmooth,
		Radius: DefaultRadius,
	}
}

// SettingsPath returns the default location of the settings file,
// ~/.config/nbhood/settings.toml
func SettingsPath() string {
	d, err := os.UserConfigDir()
	if err != nil {
		d = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(d, "nbhood", "settings.toml")
}

// LoadSettings reads the settings file at path. Anything not set in
// the file keeps its default value, and if the file doesn't exist the
// defaults are returned with no error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("Error opening settings file %s: %v", path, err)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	d.DisallowUnknownFields()
	err = d.Decode(&s)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("Error parsing settings file %s: %v", path, err)
	}

	return s, nil
}

// AwsConn returns an AwsConn set up to use the region, bucket and
// queue of the settings. Init still needs to be called on it.
func (s Settings) AwsConn() *AwsConn {
	return &AwsConn{Region: s.Region, Bucket: s.Bucket, Queue: s.Queue}
}
