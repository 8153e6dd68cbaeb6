// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	f, smoothed := testFields(t)

	var graph bytes.Buffer
	require.NoError(t, GraphProfile(f, smoothed, 0, 0, &graph))

	var r Report
	require.NoError(t, r.Setup())
	require.NoError(t, r.AddField(f, 0, "Original"))
	require.NoError(t, r.AddField(smoothed, 0, "Neighbourhood mean"))
	require.NoError(t, r.AddField(smoothed, 1, "Neighbourhood mean, plane 1"))
	require.NoError(t, r.AddGraph(graph.Bytes(), "Row 0"))
	assert.Equal(t, 4, r.Pages())
	assert.Error(t, r.AddField(f, 5, "Missing"))

	p := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, r.Save(p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}
