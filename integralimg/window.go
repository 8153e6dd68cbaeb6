// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package integralimg

// Window is a part of an Integral Image
type Window struct {
	topleft     float64
	topright    float64
	bottomleft  float64
	bottomright float64
	width       int
	height      int
}

// at returns the value at (r, c), treating anything before the first
// row or column as 0.
func (p Plane) at(r, c int) float64 {
	if r < 0 || c < 0 {
		return 0
	}
	return p.Vals[r*p.Cols+c]
}

// GetWindow gets the values of the corners of a part of an
// Integral Image, plus the dimensions of the part, which can
// be used to quickly calculate the mean of the area. The part
// reaches hy rows above and below (r, c), and hx columns either
// side of it, clipped to the edges of the plane.
func (p Plane) GetWindow(r, c, hy, hx int) Window {
	if hy < 0 {
		hy = 0
	}
	if hx < 0 {
		hx = 0
	}
	// nothing is gained past the plane size, and r+hy must not overflow
	if hy > p.Rows {
		hy = p.Rows
	}
	if hx > p.Cols {
		hx = p.Cols
	}

	miny, minx := r-hy, c-hx
	maxy, maxx := r+hy, c+hx

	if miny < 0 {
		miny = 0
	}
	if minx < 0 {
		minx = 0
	}
	if maxy > p.Rows-1 {
		maxy = p.Rows - 1
	}
	if maxx > p.Cols-1 {
		maxx = p.Cols - 1
	}

	return Window{
		topleft:     p.at(miny-1, minx-1),
		topright:    p.at(miny-1, maxx),
		bottomleft:  p.at(maxy, minx-1),
		bottomright: p.at(maxy, maxx),
		width:       maxx - minx + 1,
		height:      maxy - miny + 1,
	}
}

// Sum returns the sum of all values in a Window
func (w Window) Sum() float64 {
	return w.bottomright - w.topright - w.bottomleft + w.topleft
}

// Size returns the number of cells in a Window
func (w Window) Size() int {
	return w.width * w.height
}

// Mean returns the average value of cells in a Window
func (w Window) Mean() float64 {
	return w.Sum() / float64(w.Size())
}

// MeanWindow calculates the mean value of a window around a cell
// of a plane
func (p Plane) MeanWindow(r, c, hy, hx int) float64 {
	return p.GetWindow(r, c, hy, hx).Mean()
}

// Means fills dst with the mean of the window around each cell of
// the plane.
func (p Plane) Means(dst []float64, hy, hx int) {
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			dst[r*p.Cols+c] = p.GetWindow(r, c, hy, hx).Mean()
		}
	}
}
