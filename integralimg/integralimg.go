// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package integralimg contains methods and types for building
// Integral Images (also known as summed-area tables) of gridded
// fields, and for using them to quickly find the mean and standard
// deviation of a window around any cell.
//
// Arrays are N-dimensional, with the last two axes being the
// spatial (y, x) axes. Each spatial plane gets its own Integral
// Image; nothing is accumulated across planes.
package integralimg

import (
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// I is a stack of Integral Images, one for each spatial plane of
// the array it was made from.
type I struct {
	*sparse.DenseArray
}

// WithSq contains an Integral Image and its Square
type WithSq struct {
	Img I
	Sq  I
}

// Plane is the Integral Image of a single spatial plane, stored
// row major.
type Plane struct {
	Vals       []float64
	Rows, Cols int
}

// ToIntegralPlane fills dst with the Integral Image of the plane src,
// which has the given number of rows and columns. dst and src may
// be the same slice.
func ToIntegralPlane(dst, src []float64, rows, cols int) Plane {
	copy(dst, src)
	cumulateY(dst, rows, cols)
	cumulateX(dst, rows, cols)
	return Plane{Vals: dst, Rows: rows, Cols: cols}
}

// cumulateY replaces each row with the running total of itself and
// all rows above it.
func cumulateY(v []float64, rows, cols int) {
	for y := 1; y < rows; y++ {
		prev := v[(y-1)*cols : y*cols]
		row := v[y*cols : (y+1)*cols]
		floats.Add(row, prev)
	}
}

// cumulateX replaces each column with the running total of itself
// and all columns to its left.
func cumulateX(v []float64, rows, cols int) {
	for y := 0; y < rows; y++ {
		row := v[y*cols : (y+1)*cols]
		floats.CumSum(row, row)
	}
}

func spatial(a *sparse.DenseArray) (rows, cols, planes int) {
	n := len(a.Shape)
	rows, cols = a.Shape[n-2], a.Shape[n-1]
	if rows*cols == 0 {
		return rows, cols, 0
	}
	return rows, cols, len(a.Elements) / (rows * cols)
}

// ToIntegralImg creates an Integral Image for each spatial plane of
// a, which must have at least two axes. a is not modified.
func ToIntegralImg(a *sparse.DenseArray) I {
	integral := sparse.ZerosDense(a.Shape...)
	rows, cols, planes := spatial(a)
	sz := rows * cols
	for p := 0; p < planes; p++ {
		ToIntegralPlane(integral.Elements[p*sz:(p+1)*sz], a.Elements[p*sz:(p+1)*sz], rows, cols)
	}
	return I{integral}
}

// ToSqIntegralImg creates an Integral Image of the square of all
// values, for each spatial plane of a.
func ToSqIntegralImg(a *sparse.DenseArray) I {
	sq := sparse.ZerosDense(a.Shape...)
	floats.MulTo(sq.Elements, a.Elements, a.Elements)
	rows, cols, planes := spatial(sq)
	sz := rows * cols
	for p := 0; p < planes; p++ {
		v := sq.Elements[p*sz : (p+1)*sz]
		ToIntegralPlane(v, v, rows, cols)
	}
	return I{sq}
}

// ToAllIntegralImg creates a WithSq containing a regular and
// squared Integral Image
func ToAllIntegralImg(a *sparse.DenseArray) WithSq {
	var s WithSq
	s.Img = ToIntegralImg(a)
	s.Sq = ToSqIntegralImg(a)
	return s
}

// NumPlanes returns the number of spatial planes
func (i I) NumPlanes() int {
	_, _, planes := spatial(i.DenseArray)
	return planes
}

// Plane returns the Integral Image of the n-th spatial plane
func (i I) Plane(n int) Plane {
	rows, cols, _ := spatial(i.DenseArray)
	sz := rows * cols
	return Plane{Vals: i.Elements[n*sz : (n+1)*sz], Rows: rows, Cols: cols}
}

// MeanOverNeighbourhood returns an array of the shape of the
// original, where each value is the mean of the original values in
// a window reaching hy cells up and down and hx cells left and right
// of it, clipped to the edges of its plane.
func (i I) MeanOverNeighbourhood(hy, hx int) *sparse.DenseArray {
	out := sparse.ZerosDense(i.Shape...)
	rows, cols, planes := spatial(i.DenseArray)
	sz := rows * cols
	for p := 0; p < planes; p++ {
		i.Plane(p).Means(out.Elements[p*sz:(p+1)*sz], hy, hx)
	}
	return out
}

// StdDevOverNeighbourhood returns an array of the shape of the
// original, where each value is the standard deviation of the
// original values in the same window MeanOverNeighbourhood uses.
func (s WithSq) StdDevOverNeighbourhood(hy, hx int) *sparse.DenseArray {
	out := sparse.ZerosDense(s.Img.Shape...)
	rows, cols, planes := spatial(s.Img.DenseArray)
	sz := rows * cols
	for p := 0; p < planes; p++ {
		StdDevs(out.Elements[p*sz:(p+1)*sz], s.Img.Plane(p), s.Sq.Plane(p), hy, hx)
	}
	return out
}

// MeanStdDevWindow calculates the mean and standard deviation of
// a window around a cell of a plane
func (s WithSq) MeanStdDevWindow(plane, r, c, hy, hx int) (float64, float64) {
	return meanStdDev(s.Img.Plane(plane), s.Sq.Plane(plane), r, c, hy, hx)
}

func meanStdDev(img, sq Plane, r, c, hy, hx int) (float64, float64) {
	imean := img.GetWindow(r, c, hy, hx).Mean()
	smean := sq.GetWindow(r, c, hy, hx).Mean()

	variance := smean - (imean * imean)
	if variance < 0 {
		variance = 0
	}

	return imean, math.Sqrt(variance)
}

// StdDevs fills dst with the standard deviation of the window around
// each cell of a plane, given the plane's regular and squared
// Integral Images.
func StdDevs(dst []float64, img, sq Plane, hy, hx int) {
	for r := 0; r < img.Rows; r++ {
		for c := 0; c < img.Cols; c++ {
			_, dst[r*img.Cols+c] = meanStdDev(img, sq, r, c, hy, hx)
		}
	}
}
