// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rescribe.xyz/nbhood/field"
	"rescribe.xyz/nbhood/neighbourhood"
)

// testFields returns a 2 plane field of a ridge on a 2km grid and its
// neighbourhood mean
func testFields(t *testing.T) (*field.Field, *field.Field) {
	rows, cols := 6, 8
	vals := make([]float64, 2*rows*cols)
	for p := 0; p < 2; p++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if c == 3 || c == 4 {
					vals[(p*rows+r)*cols+c] = float64(10 * (p + 1))
				}
			}
		}
	}
	f, err := field.New([]int{2, rows, cols}, vals, field.Grid{DY: 2000, DX: 2000})
	require.NoError(t, err)
	f.Name = "precipitation_rate"
	f.Units = "mm h-1"
	smoothed, err := neighbourhood.SquareNeighbourhood{Radius: 2500}.Run(context.Background(), f)
	require.NoError(t, err)
	return f, smoothed
}

func TestGraphProfile(t *testing.T) {
	f, smoothed := testFields(t)
	var buf bytes.Buffer
	require.NoError(t, GraphProfile(f, smoothed, 1, 2, &buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1920, img.Bounds().Dx())
	assert.Equal(t, 1080, img.Bounds().Dy())
}

func TestGraphProfileFlat(t *testing.T) {
	f, err := field.New([]int{3, 3}, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}, field.Grid{DY: 1, DX: 1})
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.NoError(t, GraphProfile(f, f, 0, 0, &buf))
}

func TestGraphProfileErrors(t *testing.T) {
	f, smoothed := testFields(t)
	narrow, err := field.New([]int{2, 1}, []float64{1, 2}, field.Grid{DY: 1, DX: 1})
	require.NoError(t, err)

	cases := []struct {
		name       string
		orig, sm   *field.Field
		plane, row int
	}{
		{"badplane", f, smoothed, 2, 0},
		{"negplane", f, smoothed, -1, 0},
		{"badrow", f, smoothed, 0, 6},
		{"narrow", narrow, narrow, 0, 0},
		{"mismatch", f, narrow, 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Error(t, GraphProfile(c.orig, c.sm, c.plane, c.row, &buf))
			assert.Equal(t, 0, buf.Len())
		})
	}
}
