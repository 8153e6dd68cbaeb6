// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		expected Settings
		err      bool
	}{
		{"empty", "", DefaultSettings(), false},
		{"partial", "bucket = \"mybucket\"\nradius = 10000.0\n",
			Settings{Region: defaultAwsRegion, Bucket: "mybucket", Queue: queueSmooth, Radius: 10000}, false},
		{"full", "region = \"us-east-1\"\nbucket = \"b\"\nqueue = \"q\"\nradius = 500.0\nworkers = 3\n",
			Settings{Region: "us-east-1", Bucket: "b", Queue: "q", Radius: 500, Workers: 3}, false},
		{"unknown", "colour = \"blue\"\n", DefaultSettings(), true},
		{"bad", "radius = \"far\"\n", DefaultSettings(), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "settings.toml")
			require.NoError(t, os.WriteFile(p, []byte(c.contents), 0600))
			s, err := LoadSettings(p)
			if c.err {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, c.expected, s)
		})
	}
}

func TestLoadSettingsMissing(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "notpresent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSettingsAwsConn(t *testing.T) {
	s := Settings{Region: "us-east-1", Bucket: "b", Queue: "q"}
	conn := s.AwsConn()
	assert.Equal(t, "us-east-1", conn.Region)
	assert.Equal(t, "b", conn.StorageId())
	assert.Equal(t, "q", conn.Queue)
}
