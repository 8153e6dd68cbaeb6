// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package field holds a gridded field: an N-dimensional array whose
// last two axes are the spatial (y, x) axes, together with the
// metadata needed to process it spatially (axis names, units, grid
// spacing and an optional missing-data mask). Any leading axes, such
// as time or realization, are treated as independent batches of
// spatial planes.
package field

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrBadShape is returned when a shape can't describe a field
	// with two non-empty spatial axes, or doesn't match the values
	// given for it.
	ErrBadShape = errors.New("field: invalid shape")

	// ErrNoGrid is returned when the grid spacing of a field can't
	// be determined.
	ErrNoGrid = errors.New("field: no grid spacing found")
)

// Grid describes the physical spacing between the centres of
// neighbouring cells along the y and x axes.
type Grid struct {
	DY, DX float64
	// Units of DY and DX; metres if empty
	Units string
}

// Metres returns the grid spacing in metres.
func (g Grid) Metres() (float64, float64) {
	switch strings.ToLower(g.Units) {
	case "km", "kilometre", "kilometres", "kilometer", "kilometers":
		return g.DY * 1000, g.DX * 1000
	}
	return g.DY, g.DX
}

// Field is a gridded field. Data is stored row major, so each
// spatial plane is a contiguous run of Rows()*Cols() elements.
type Field struct {
	Name  string
	Units string
	// Dims names each axis of Data; it may be nil
	Dims []string
	Data *sparse.DenseArray
	// Mask is nil for unmasked data; otherwise it is the same length
	// as Data.Elements, with true marking a missing value
	Mask []bool
	Grid Grid
}

// New creates a field of the given shape from vals, which are copied.
func New(shape []int, vals []float64, g Grid) (*Field, error) {
	if len(shape) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 axes, got %d", ErrBadShape, len(shape))
	}
	n := 1
	for _, s := range shape {
		if s < 1 {
			return nil, fmt.Errorf("%w: axis of length %d", ErrBadShape, s)
		}
		n *= s
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrBadShape, shape, n, len(vals))
	}
	d := sparse.ZerosDense(shape...)
	copy(d.Elements, vals)
	return &Field{Data: d, Grid: g}, nil
}

// Shape returns the length of each axis.
func (f *Field) Shape() []int {
	return f.Data.Shape
}

// Rows returns the length of the y axis.
func (f *Field) Rows() int {
	return f.Data.Shape[len(f.Data.Shape)-2]
}

// Cols returns the length of the x axis.
func (f *Field) Cols() int {
	return f.Data.Shape[len(f.Data.Shape)-1]
}

// PlaneSize returns the number of cells in one spatial plane.
func (f *Field) PlaneSize() int {
	return f.Rows() * f.Cols()
}

// NumPlanes returns the number of spatial planes, which is the
// product of the lengths of all leading axes (1 if there are none).
func (f *Field) NumPlanes() int {
	return len(f.Data.Elements) / f.PlaneSize()
}

// Plane returns the n-th spatial plane. The returned slice shares
// storage with the field.
func (f *Field) Plane(n int) []float64 {
	sz := f.PlaneSize()
	return f.Data.Elements[n*sz : (n+1)*sz]
}

// Masked reports whether any value of the field is marked missing.
func (f *Field) Masked() bool {
	for _, m := range f.Mask {
		if m {
			return true
		}
	}
	return false
}

// HasNaN reports whether any value of the field is NaN.
func (f *Field) HasNaN() bool {
	return floats.HasNaN(f.Data.Elements)
}

// Copy returns a deep copy of the field.
func (f *Field) Copy() *Field {
	n := f.Like(copyDense(f.Data))
	if f.Mask != nil {
		n.Mask = append([]bool(nil), f.Mask...)
	}
	return n
}

// Like returns a new unmasked field carrying data, with the same
// metadata as f.
func (f *Field) Like(data *sparse.DenseArray) *Field {
	var dims []string
	if f.Dims != nil {
		dims = append(dims, f.Dims...)
	}
	return &Field{
		Name:  f.Name,
		Units: f.Units,
		Dims:  dims,
		Data:  data,
		Grid:  f.Grid,
	}
}

func copyDense(d *sparse.DenseArray) *sparse.DenseArray {
	c := sparse.ZerosDense(d.Shape...)
	copy(c.Elements, d.Elements)
	return c
}

// dimNames returns the axis names of the field, making up any
// which are missing.
func (f *Field) dimNames() []string {
	if len(f.Dims) == len(f.Data.Shape) {
		return f.Dims
	}
	n := len(f.Data.Shape)
	names := make([]string, n)
	for i := 0; i < n-2; i++ {
		names[i] = fmt.Sprintf("dim%d", i)
	}
	names[n-2] = "y"
	names[n-1] = "x"
	return names
}
