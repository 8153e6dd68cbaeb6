// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package neighbourhood

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rescribe.xyz/nbhood/field"
)

func TestDistanceToGridCells(t *testing.T) {
	cases := []struct {
		distance float64
		grid     field.Grid
		cy, cx   int
		err      error
	}{
		{2500, field.Grid{DY: 2000, DX: 2000}, 1, 1, nil},
		{6000, field.Grid{DY: 2000, DX: 2000}, 3, 3, nil},
		{6000, field.Grid{DY: -2000, DX: 2000}, 3, 3, nil},
		{6000, field.Grid{DY: 2, DX: 2, Units: "km"}, 3, 3, nil},
		{6000, field.Grid{DY: 1000, DX: 2000}, 6, 3, nil},
		{1000, field.Grid{DY: 2000, DX: 2000}, 0, 0, ErrZeroCells},
		{0, field.Grid{DY: 2000, DX: 2000}, 0, 0, ErrZeroCells},
		{-2500, field.Grid{DY: 2000, DX: 2000}, 0, 0, ErrNegativeDistance},
		{2500, field.Grid{}, 0, 0, ErrNegativeDistance},
		{math.NaN(), field.Grid{DY: 2000, DX: 2000}, 0, 0, ErrNegativeDistance},
		{2500, field.Grid{DY: math.NaN(), DX: math.NaN()}, 0, 0, ErrNegativeDistance},
		{2500, field.Grid{DY: 2000, DX: -math.NaN()}, 0, 0, ErrNegativeDistance},
		{2500, field.Grid{DY: math.Inf(1), DX: 2000}, 0, 0, ErrNegativeDistance},
		{1000000, field.Grid{DY: 2000, DX: 2000}, 500, 500, nil},
		{1002000, field.Grid{DY: 2000, DX: 2000}, 0, 0, ErrTooManyCells},
		{math.Inf(1), field.Grid{DY: 2000, DX: 2000}, 0, 0, ErrTooManyCells},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%g_%g_%g_%s", c.distance, c.grid.DY, c.grid.DX, c.grid.Units), func(t *testing.T) {
			f, err := field.New([]int{3, 3}, make([]float64, 9), c.grid)
			require.NoError(t, err)
			cy, cx, err := DistanceToGridCells(c.distance, f)
			if c.err != nil {
				assert.ErrorIs(t, err, c.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.cy, cy)
			assert.Equal(t, c.cx, cx)
		})
	}
}
