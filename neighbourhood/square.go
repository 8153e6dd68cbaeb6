// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package neighbourhood applies square neighbourhood processing to
// gridded fields: replacing each cell of every spatial plane with the
// mean (or standard deviation) of the cells in a square around it,
// clipped to the edges of the grid.
//
// Fields with masked or NaN values are rejected before any
// processing is done.
package neighbourhood

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"rescribe.xyz/nbhood/field"
	"rescribe.xyz/nbhood/integralimg"
)

// SquareNeighbourhood processes fields over square neighbourhoods
// reaching Radius metres from each cell.
type SquareNeighbourhood struct {
	Radius float64
	// Workers is the number of spatial planes processed at once;
	// runtime.NumCPU() if not set
	Workers int
	// Logger is optional
	Logger *log.Logger
}

func (s SquareNeighbourhood) String() string {
	return fmt.Sprintf("<SquareNeighbourhood: radius: %gm>", s.Radius)
}

func (s SquareNeighbourhood) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return s.Logger
}

// Check returns an error if a field can't be processed.
func Check(f *field.Field) error {
	if f == nil || f.Data == nil || len(f.Data.Shape) < 2 || len(f.Data.Elements) == 0 {
		return ErrNoField
	}
	if f.Masked() {
		return ErrMasked
	}
	if f.HasNaN() {
		return ErrNaN
	}
	return nil
}

// planeFunc processes the plane src into dst, using buf for any
// working space; buf is twice the length of a plane.
type planeFunc func(dst, src []float64, rows, cols, hy, hx int, buf []float64)

func meanPlane(dst, src []float64, rows, cols, hy, hx int, buf []float64) {
	sat := integralimg.ToIntegralPlane(buf[:len(src)], src, rows, cols)
	sat.Means(dst, hy, hx)
}

func stdDevPlane(dst, src []float64, rows, cols, hy, hx int, buf []float64) {
	n := len(src)
	img := integralimg.ToIntegralPlane(buf[:n], src, rows, cols)
	sq := buf[n : 2*n]
	floats.MulTo(sq, src, src)
	sqimg := integralimg.ToIntegralPlane(sq, sq, rows, cols)
	integralimg.StdDevs(dst, img, sqimg, hy, hx)
}

// Run returns a new field where each value is the mean of the values
// of f in the square neighbourhood around it. f is not modified.
func (s SquareNeighbourhood) Run(ctx context.Context, f *field.Field) (*field.Field, error) {
	return s.run(ctx, f, "mean", meanPlane)
}

// RunStdDev returns a new field where each value is the standard
// deviation of the values of f in the square neighbourhood around
// it. f is not modified.
func (s SquareNeighbourhood) RunStdDev(ctx context.Context, f *field.Field) (*field.Field, error) {
	return s.run(ctx, f, "standard deviation", stdDevPlane)
}

func (s SquareNeighbourhood) run(ctx context.Context, f *field.Field, what string, fn planeFunc) (*field.Field, error) {
	err := Check(f)
	if err != nil {
		return nil, err
	}

	hy, hx, err := DistanceToGridCells(s.Radius, f)
	if err != nil {
		return nil, err
	}

	logger := s.logger()
	logger.Printf("Finding neighbourhood %s of %s over %d by %d cells in %d planes\n", what, f.Name, 2*hy+1, 2*hx+1, f.NumPlanes())

	data, err := s.process(ctx, f, hy, hx, fn)
	if err != nil {
		return nil, err
	}

	return f.Like(data), nil
}

// process runs fn on every spatial plane of f, spreading the planes
// between the workers.
func (s SquareNeighbourhood) process(ctx context.Context, f *field.Field, hy, hx int, fn planeFunc) (*sparse.DenseArray, error) {
	out := sparse.ZerosDense(append([]int(nil), f.Shape()...)...)
	rows, cols := f.Rows(), f.Cols()
	sz := rows * cols
	nplanes := f.NumPlanes()

	workers := s.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > nplanes {
		workers = nplanes
	}

	planes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]float64, 2*sz)
			for p := range planes {
				fn(out.Elements[p*sz:(p+1)*sz], f.Plane(p), rows, cols, hy, hx, buf)
			}
		}()
	}

	var err error
	for p := 0; p < nplanes; p++ {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case planes <- p:
		}
		if err != nil {
			break
		}
	}
	close(planes)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return out, nil
}
