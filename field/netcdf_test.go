// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package field

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetCDFRoundTrip(t *testing.T) {
	vals := make([]float64, 2*3*4)
	for i := range vals {
		vals[i] = float64(i) - 5.5
	}
	f, err := New([]int{2, 3, 4}, vals, Grid{DY: 2000, DX: 2000})
	require.NoError(t, err)
	f.Name = "air_temperature"
	f.Units = "K"
	f.Dims = []string{"time", "y", "x"}

	g := f.Copy()
	g.Name = "air_temperature_stddev"

	fn := filepath.Join(t.TempDir(), "t.nc")
	w, err := os.Create(fn)
	require.NoError(t, err)
	require.NoError(t, WriteNetCDF(w, f, g))
	require.NoError(t, w.Close())

	r, err := os.Open(fn)
	require.NoError(t, err)
	defer r.Close()

	names, err := Variables(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"air_temperature", "air_temperature_stddev"}, names)

	got, err := ReadNetCDF(r, "air_temperature")
	require.NoError(t, err)
	assert.Equal(t, "air_temperature", got.Name)
	assert.Equal(t, "K", got.Units)
	assert.Equal(t, []string{"time", "y", "x"}, got.Dims)
	assert.Equal(t, []int{2, 3, 4}, got.Shape())
	assert.Equal(t, vals, got.Data.Elements)
	assert.Equal(t, Grid{DY: 2000, DX: 2000}, got.Grid)
	assert.False(t, got.Masked())
}

// memFile is an in-memory cdf.ReaderWriterAt
type memFile struct {
	b []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.b) {
		m.b = append(m.b, make([]byte, end-len(m.b))...)
	}
	copy(m.b[off:], p)
	return len(p), nil
}

func TestNetCDFInMemory(t *testing.T) {
	f, err := New([]int{2, 3}, []float64{1, -2, 3, -4, 5, -6}, Grid{DY: 1500, DX: 1500})
	require.NoError(t, err)
	f.Name = "anomaly"

	var m memFile
	require.NoError(t, WriteNetCDF(&m, f))
	require.NotEmpty(t, m.b)

	got, err := ReadNetCDF(&m, "anomaly")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Shape())
	assert.Equal(t, f.Data.Elements, got.Data.Elements)
	assert.Equal(t, f.Grid, got.Grid)
}

func TestWriteNetCDFMismatchedDims(t *testing.T) {
	f, err := New([]int{3, 4}, make([]float64, 12), Grid{DY: 1, DX: 1})
	require.NoError(t, err)
	f.Name = "a"
	g, err := New([]int{4, 4}, make([]float64, 16), Grid{DY: 1, DX: 1})
	require.NoError(t, err)
	g.Name = "b"

	w, err := os.Create(filepath.Join(t.TempDir(), "t.nc"))
	require.NoError(t, err)
	defer w.Close()
	assert.ErrorIs(t, WriteNetCDF(w, f, g), ErrBadShape)
}

// writeFilled writes a 5x5 float32 variable with a fill value, and
// coordinate variables rather than dy/dx attributes.
func writeFilled(t *testing.T, fn string) {
	h := cdf.NewHeader([]string{"projection_y_coordinate", "projection_x_coordinate"}, []int{5, 5})
	h.AddVariable("projection_y_coordinate", []string{"projection_y_coordinate"}, []float64{0})
	h.AddAttribute("projection_y_coordinate", "units", "km")
	h.AddVariable("projection_x_coordinate", []string{"projection_x_coordinate"}, []float64{0})
	h.AddAttribute("projection_x_coordinate", "units", "km")
	h.AddVariable("precip", []string{"projection_y_coordinate", "projection_x_coordinate"}, []float32{0})
	h.AddAttribute("precip", "units", "mm h-1")
	h.AddAttribute("precip", "_FillValue", []float32{-999})
	h.Define()

	w, err := os.Create(fn)
	require.NoError(t, err)
	defer w.Close()
	f, err := cdf.Create(w, h)
	require.NoError(t, err)

	coords := []float64{-4, -2, 0, 2, 4}
	for _, c := range []string{"projection_y_coordinate", "projection_x_coordinate"} {
		_, err = f.Writer(c, []int{0}, []int{5}).Write(coords)
		require.NoError(t, err)
	}
	data := make([]float32, 25)
	for i := range data {
		data[i] = 1
	}
	data[12] = -999
	_, err = f.Writer("precip", []int{0, 0}, []int{5, 5}).Write(data)
	require.NoError(t, err)
	require.NoError(t, cdf.UpdateNumRecs(w))
}

func TestReadNetCDFFillValue(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "filled.nc")
	writeFilled(t, fn)

	r, err := os.Open(fn)
	require.NoError(t, err)
	defer r.Close()

	f, err := ReadNetCDF(r, "precip")
	require.NoError(t, err)
	assert.Equal(t, "mm h-1", f.Units)
	assert.True(t, f.Masked())
	assert.True(t, f.Mask[12])
	assert.False(t, f.Mask[0])
	assert.Equal(t, Grid{DY: 2, DX: 2, Units: "km"}, f.Grid)

	dy, dx := f.Grid.Metres()
	assert.Equal(t, 2000.0, dy)
	assert.Equal(t, 2000.0, dx)
}

func TestReadNetCDFOneDimension(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "filled.nc")
	writeFilled(t, fn)

	r, err := os.Open(fn)
	require.NoError(t, err)
	defer r.Close()

	_, err = ReadNetCDF(r, "projection_x_coordinate")
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestNetCDFFile(t *testing.T) {
	f, err := New([]int{3, 4}, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, Grid{DY: 2, DX: 2, Units: "km"})
	require.NoError(t, err)
	f.Name = "rain"

	fn := filepath.Join(t.TempDir(), "rain.nc")
	require.NoError(t, WriteNetCDFFile(fn, f))
	got, err := ReadNetCDFFile(fn, "rain")
	require.NoError(t, err)
	assert.Equal(t, f.Data.Elements, got.Data.Elements)
	assert.Equal(t, f.Grid, got.Grid)

	_, err = ReadNetCDFFile(filepath.Join(t.TempDir(), "notpresent.nc"), "rain")
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.nc")
	assert.Error(t, WriteNetCDFFile(bad))
	_, err = os.Stat(bad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
