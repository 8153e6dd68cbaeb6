// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package integralimg

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const e = 8.0 / 9.0

// means of a 5x5 plane of 1s with a 0 at (2, 2), with a width of 1
var centreZeroMeans = []float64{
	1, 1, 1, 1, 1,
	1, e, e, e, 1,
	1, e, e, e, 1,
	1, e, e, e, 1,
	1, 1, 1, 1, 1,
}

func TestGetWindow(t *testing.T) {
	p := ToIntegralImg(onesWithZeros([]int{5, 5}, []int{2, 2})).Plane(0)

	cases := []struct {
		r, c, hy, hx int
		sum          float64
		size         int
	}{
		{0, 0, 1, 1, 4, 4},
		{0, 2, 1, 1, 6, 6},
		{1, 1, 1, 1, 8, 9},
		{2, 2, 1, 1, 8, 9},
		{4, 4, 1, 1, 4, 4},
		{2, 2, 0, 0, 0, 1},
		{2, 2, 2, 2, 24, 25},
		{2, 2, 10, 10, 24, 25},
		{0, 0, 0, 4, 5, 5},
		{4, 0, 4, 0, 5, 5},
		{2, 2, -1, -1, 0, 1},
		{2, 2, math.MaxInt, math.MaxInt, 24, 25},
		{4, 2, math.MaxInt, 0, 4, 5},
		{0, 4, 0, math.MaxInt, 5, 5},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%d_%d_%d_%d", c.r, c.c, c.hy, c.hx), func(t *testing.T) {
			w := p.GetWindow(c.r, c.c, c.hy, c.hx)
			assert.Equal(t, c.sum, w.Sum())
			assert.Equal(t, c.size, w.Size())
			assert.InDelta(t, c.sum/float64(c.size), w.Mean(), tol)
			assert.InDelta(t, c.sum/float64(c.size), p.MeanWindow(c.r, c.c, c.hy, c.hx), tol)
		})
	}
}

func TestMeanOverNeighbourhood(t *testing.T) {
	integral := ToIntegralImg(onesWithZeros([]int{5, 5}, []int{2, 2}))
	out := integral.MeanOverNeighbourhood(1, 1)
	assert.Equal(t, []int{5, 5}, out.Shape)
	assert.InDeltaSlice(t, centreZeroMeans, out.Elements, tol)
}

func TestMeanOverNeighbourhoodMultipleTimes(t *testing.T) {
	single := ToIntegralImg(onesWithZeros([]int{5, 5}, []int{2, 2})).MeanOverNeighbourhood(1, 1)
	both := onesWithZeros([]int{5, 5}, []int{2, 2}, []int{0, 0})
	second := ToIntegralImg(both).MeanOverNeighbourhood(1, 1)

	stacked := onesWithZeros([]int{2, 5, 5}, []int{0, 2, 2}, []int{1, 2, 2}, []int{1, 0, 0})
	out := ToIntegralImg(stacked).MeanOverNeighbourhood(1, 1)
	require.Equal(t, []int{2, 5, 5}, out.Shape)

	assert.InDeltaSlice(t, single.Elements, out.Elements[:25], tol)
	assert.InDeltaSlice(t, second.Elements, out.Elements[25:], tol)

	assert.InDelta(t, 3.0/4.0, out.Elements[25+0], tol)
	assert.InDelta(t, 5.0/6.0, out.Elements[25+1], tol)
	assert.InDelta(t, 7.0/9.0, out.Elements[25+6], tol)
	assert.InDelta(t, e, out.Elements[25+12], tol)
	assert.InDelta(t, 1.0, out.Elements[25+24], tol)
}

func TestUniformInterior(t *testing.T) {
	for _, w := range []int{0, 1, 2, 3} {
		t.Run(fmt.Sprint(w), func(t *testing.T) {
			rows, cols := 2*w+5, 2*w+8
			out := ToIntegralImg(onesWithZeros([]int{rows, cols})).MeanOverNeighbourhood(w, w)
			for r := w; r < rows-w; r++ {
				for c := w; c < cols-w; c++ {
					assert.Equal(t, 1.0, out.Elements[r*cols+c])
				}
			}
		})
	}
}

// bruteMeans averages each clipped window directly.
func bruteMeans(a *sparse.DenseArray, hy, hx int) []float64 {
	rows, cols, planes := spatial(a)
	out := make([]float64, len(a.Elements))
	for p := 0; p < planes; p++ {
		v := a.Elements[p*rows*cols:]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				var s float64
				n := 0
				for rr := r - hy; rr <= r+hy; rr++ {
					for cc := c - hx; cc <= c+hx; cc++ {
						if rr < 0 || cc < 0 || rr >= rows || cc >= cols {
							continue
						}
						s += v[rr*cols+cc]
						n++
					}
				}
				out[p*rows*cols+r*cols+c] = s / float64(n)
			}
		}
	}
	return out
}

func TestMeansMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	cases := []struct {
		shape  []int
		hy, hx int
	}{
		{[]int{1, 1}, 1, 1},
		{[]int{9, 9}, 2, 2},
		{[]int{9, 13}, 1, 3},
		{[]int{4, 6, 5}, 3, 0},
		{[]int{2, 2, 7, 7}, 1, 1},
		{[]int{3, 3}, 5, 5},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%v_%d_%d", c.shape, c.hy, c.hx), func(t *testing.T) {
			a := randomArray(rng, c.shape...)
			out := ToIntegralImg(a).MeanOverNeighbourhood(c.hy, c.hx)
			assert.Equal(t, a.Shape, out.Shape)
			assert.InDeltaSlice(t, bruteMeans(a, c.hy, c.hx), out.Elements, 1e-9)
		})
	}
}
