// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package field

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cases := []struct {
		name  string
		shape []int
		n     int
		err   error
	}{
		{"2d", []int{3, 4}, 12, nil},
		{"3d", []int{2, 3, 4}, 24, nil},
		{"4d", []int{2, 2, 3, 4}, 48, nil},
		{"1d", []int{12}, 12, ErrBadShape},
		{"emptyaxis", []int{0, 4}, 0, ErrBadShape},
		{"wronglength", []int{3, 4}, 11, ErrBadShape},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, err := New(c.shape, make([]float64, c.n), Grid{DY: 1, DX: 1})
			if c.err != nil {
				require.True(t, errors.Is(err, c.err), "expected %v, got %v", c.err, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.shape, f.Shape())
			assert.Equal(t, 3, f.Rows())
			assert.Equal(t, 4, f.Cols())
			assert.Equal(t, 12, f.PlaneSize())
			assert.Equal(t, c.n/12, f.NumPlanes())
		})
	}
}

func TestPlane(t *testing.T) {
	vals := make([]float64, 2*2*3)
	for i := range vals {
		vals[i] = float64(i)
	}
	f, err := New([]int{2, 2, 3}, vals, Grid{})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, f.Plane(0))
	assert.Equal(t, []float64{6, 7, 8, 9, 10, 11}, f.Plane(1))

	// planes share storage with the field
	f.Plane(1)[0] = 100
	assert.Equal(t, 100.0, f.Data.Elements[6])
}

func TestCopyAndLike(t *testing.T) {
	f, err := New([]int{2, 2}, []float64{1, 2, 3, 4}, Grid{DY: 2, DX: 2, Units: "km"})
	require.NoError(t, err)
	f.Name = "temperature"
	f.Units = "K"
	f.Dims = []string{"y", "x"}
	f.Mask = []bool{false, true, false, false}

	c := f.Copy()
	c.Data.Elements[0] = 10
	c.Mask[1] = false
	c.Dims[0] = "lat"
	assert.Equal(t, 1.0, f.Data.Elements[0])
	assert.True(t, f.Mask[1])
	assert.Equal(t, "y", f.Dims[0])

	l := f.Like(c.Data)
	assert.Equal(t, "temperature", l.Name)
	assert.Equal(t, "K", l.Units)
	assert.Equal(t, f.Grid, l.Grid)
	assert.Nil(t, l.Mask)
}

func TestMaskedAndNaN(t *testing.T) {
	f, err := New([]int{2, 2}, []float64{1, 2, 3, 4}, Grid{})
	require.NoError(t, err)
	assert.False(t, f.Masked())
	assert.False(t, f.HasNaN())

	f.Mask = make([]bool, 4)
	assert.False(t, f.Masked(), "an all false mask hides nothing")
	f.Mask[3] = true
	assert.True(t, f.Masked())

	f.Data.Elements[2] = math.NaN()
	assert.True(t, f.HasNaN())
}

func TestGridMetres(t *testing.T) {
	dy, dx := Grid{DY: 2, DX: 3, Units: "km"}.Metres()
	assert.Equal(t, 2000.0, dy)
	assert.Equal(t, 3000.0, dx)

	dy, dx = Grid{DY: 2000, DX: 3000}.Metres()
	assert.Equal(t, 2000.0, dy)
	assert.Equal(t, 3000.0, dx)
}

func TestDimNames(t *testing.T) {
	f, err := New([]int{2, 3, 4, 5}, make([]float64, 120), Grid{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dim0", "dim1", "y", "x"}, f.dimNames())

	f.Dims = []string{"realization", "time", "projection_y_coordinate", "projection_x_coordinate"}
	assert.Equal(t, f.Dims, f.dimNames())
}
