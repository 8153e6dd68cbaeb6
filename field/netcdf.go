// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package field

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Variables returns the names of all variables in a netcdf file which
// have at least two dimensions, and so can be read as a Field.
func Variables(rw cdf.ReaderWriterAt) ([]string, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("Error opening netcdf file: %v", err)
	}
	var names []string
	for _, v := range f.Header.Variables() {
		if len(f.Header.Lengths(v)) >= 2 {
			names = append(names, v)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadNetCDF reads a variable from a netcdf file as a Field. Any cells
// equal to the variable's _FillValue or missing_value attribute are
// marked in the field's Mask. The grid spacing is taken from the "dy"
// and "dx" global attributes if they are present, otherwise from the
// coordinate variables of the last two dimensions.
func ReadNetCDF(rw cdf.ReaderWriterAt, variable string) (*Field, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("Error opening netcdf file: %v", err)
	}

	dims := f.Header.Lengths(variable)
	if len(dims) < 2 {
		return nil, fmt.Errorf("%w: variable %s has %d dimensions", ErrBadShape, variable, len(dims))
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: variable %s has an empty dimension", ErrBadShape, variable)
	}

	vals, err := readVar(f, variable, n)
	if err != nil {
		return nil, err
	}

	data := sparse.ZerosDense(dims...)
	copy(data.Elements, vals)

	fld := &Field{
		Name: variable,
		Dims: f.Header.Dimensions(variable),
		Data: data,
	}
	if u, ok := f.Header.GetAttribute(variable, "units").(string); ok {
		fld.Units = u
	}

	for _, a := range []string{"_FillValue", "missing_value"} {
		fill, ok := attrFloat(f.Header.GetAttribute(variable, a))
		if !ok {
			continue
		}
		for i, v := range vals {
			if v == fill || (math.IsNaN(fill) && math.IsNaN(v)) {
				if fld.Mask == nil {
					fld.Mask = make([]bool, n)
				}
				fld.Mask[i] = true
			}
		}
	}

	fld.Grid, err = readGrid(f, fld.Dims)
	if err != nil {
		return nil, err
	}

	return fld, nil
}

// readVar reads all n values of a numeric variable, converting them
// to float64.
func readVar(f *cdf.File, variable string, n int) ([]float64, error) {
	buf := f.Header.ZeroValue(variable, n)
	if buf == nil {
		return nil, fmt.Errorf("Error reading variable %s: no such variable", variable)
	}
	r := f.Reader(variable, nil, nil)
	_, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("Error reading variable %s: %v", variable, err)
	}
	vals, ok := toFloats(buf)
	if !ok {
		return nil, fmt.Errorf("Error reading variable %s: type %T is not numeric", variable, buf)
	}
	return vals, nil
}

// readGrid finds the grid spacing for a variable with dimensions dims.
func readGrid(f *cdf.File, dims []string) (Grid, error) {
	var g Grid
	dy, oky := attrFloat(f.Header.GetAttribute("", "dy"))
	dx, okx := attrFloat(f.Header.GetAttribute("", "dx"))
	if oky && okx {
		g.DY, g.DX = dy, dx
		if u, ok := f.Header.GetAttribute("", "grid_units").(string); ok {
			g.Units = u
		}
		return g, nil
	}

	if len(dims) < 2 {
		return g, ErrNoGrid
	}
	spacing := make([]float64, 2)
	for i, name := range dims[len(dims)-2:] {
		l := f.Header.Lengths(name)
		if len(l) != 1 || l[0] < 2 {
			return g, fmt.Errorf("%w: no usable coordinate variable %s", ErrNoGrid, name)
		}
		c, err := readVar(f, name, l[0])
		if err != nil {
			return g, err
		}
		spacing[i] = math.Abs(c[1] - c[0])
		if u, ok := f.Header.GetAttribute(name, "units").(string); ok {
			g.Units = u
		}
	}
	g.DY, g.DX = spacing[0], spacing[1]
	return g, nil
}

// WriteNetCDF writes fields to a netcdf file. All fields must use the
// same lengths for any dimensions they share. The grid spacing of the
// first field is recorded in the "dy" and "dx" global attributes.
// There is no record dimension, so w can be any storage, not just a
// file.
func WriteNetCDF(w cdf.ReaderWriterAt, fields ...*Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("No fields to write")
	}

	var dimnames []string
	dimlens := make(map[string]int)
	for _, fld := range fields {
		for i, d := range fld.dimNames() {
			l, ok := dimlens[d]
			if !ok {
				dimnames = append(dimnames, d)
				dimlens[d] = fld.Data.Shape[i]
				continue
			}
			if l != fld.Data.Shape[i] {
				return fmt.Errorf("%w: dimension %s has length %d and %d", ErrBadShape, d, l, fld.Data.Shape[i])
			}
		}
	}
	var lengths []int
	for _, d := range dimnames {
		lengths = append(lengths, dimlens[d])
	}

	h := cdf.NewHeader(dimnames, lengths)
	h.AddAttribute("", "comment", "Neighbourhood processed fields")
	g := fields[0].Grid
	h.AddAttribute("", "dy", []float64{g.DY})
	h.AddAttribute("", "dx", []float64{g.DX})
	if g.Units != "" {
		h.AddAttribute("", "grid_units", g.Units)
	}
	for i, fld := range fields {
		name := fld.Name
		if name == "" {
			name = fmt.Sprintf("field%d", i)
		}
		h.AddVariable(name, fld.dimNames(), []float64{0})
		if fld.Units != "" {
			h.AddAttribute(name, "units", fld.Units)
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("Error creating netcdf file: %v", err)
	}

	for i, fld := range fields {
		name := fld.Name
		if name == "" {
			name = fmt.Sprintf("field%d", i)
		}
		end := f.Header.Lengths(name)
		start := make([]int, len(end))
		_, err = f.Writer(name, start, end).Write(fld.Data.Elements)
		if err != nil {
			return fmt.Errorf("Error writing variable %s to netcdf file: %v", name, err)
		}
	}

	return nil
}

// ReadNetCDFFile reads a variable from the netcdf file at path.
func ReadNetCDFFile(path string, variable string) (*Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Could not open file %s: %w", path, err)
	}
	defer f.Close()
	return ReadNetCDF(f, variable)
}

// WriteNetCDFFile writes fields to a new netcdf file at path.
func WriteNetCDFFile(path string, fields ...*Field) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Could not create file %s: %v", path, err)
	}
	err = WriteNetCDF(f, fields...)
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// toFloats converts a slice of any numeric netcdf type to float64.
func toFloats(v interface{}) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return append([]float64(nil), s...), true
	case []float32:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []int16:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []int8:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []uint8:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}

// attrFloat returns the first value of a numeric attribute.
func attrFloat(v interface{}) (float64, bool) {
	f, ok := toFloats(v)
	if !ok || len(f) == 0 {
		return 0, false
	}
	return f[0], true
}
