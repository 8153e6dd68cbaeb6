// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package field

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"
)

// ReadImage reads a png, jpeg or tiff image as a single plane field
// of grey levels.
func ReadImage(path string, g Grid) (*Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Could not open file %s: %v", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("Could not decode image %s: %v", path, err)
	}
	fld := FromImage(img, g)
	base := filepath.Base(path)
	fld.Name = strings.TrimSuffix(base, filepath.Ext(base))
	return fld, nil
}

// FromImage converts an image to a single plane field of 16 bit grey
// levels. Row 0 of the field is the top of the image.
func FromImage(img image.Image, g Grid) *Field {
	b := img.Bounds()
	d := sparse.ZerosDense(b.Dy(), b.Dx())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			d.Elements[i] = float64(c.Y)
			i++
		}
	}
	return &Field{Dims: []string{"y", "x"}, Data: d, Grid: g}
}

// ToImage renders a spatial plane of a field as a 16 bit grey image,
// linearly scaling the values of the plane so its minimum is black
// and its maximum is white.
func ToImage(f *Field, plane int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Cols(), f.Rows()))
	scalePlane(f, plane, 0xffff, func(x, y int, v float64) {
		img.SetGray16(x, y, color.Gray16{uint16(v + 0.5)})
	})
	return img
}

// ToGrayImage is like ToImage but with 8 bit grey levels, which is
// what PDF writers and most viewers expect.
func ToGrayImage(f *Field, plane int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Cols(), f.Rows()))
	scalePlane(f, plane, 0xff, func(x, y int, v float64) {
		img.SetGray(x, y, color.Gray{uint8(v + 0.5)})
	})
	return img
}

// scalePlane calls set for every cell of a plane with its value
// rescaled to lie between 0 and top.
func scalePlane(f *Field, plane int, top float64, set func(x, y int, v float64)) {
	rows, cols := f.Rows(), f.Cols()
	vals := f.Plane(plane)
	min, max := floats.Min(vals), floats.Max(vals)
	scale := 0.0
	if max > min {
		scale = top / (max - min)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			set(x, y, (vals[y*cols+x]-min)*scale)
		}
	}
}

// WriteImage saves a spatial plane of a field as an image, as tiff if
// path ends in .tif or .tiff and as png otherwise.
func WriteImage(path string, f *Field, plane int) error {
	if plane < 0 || plane >= f.NumPlanes() {
		return fmt.Errorf("Plane %d out of range; field has %d planes", plane, f.NumPlanes())
	}
	img := ToImage(f, plane)

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Could not create file %s: %v", path, err)
	}
	defer w.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("Could not encode image %s: %v", path, err)
	}
	return w.Close()
}
