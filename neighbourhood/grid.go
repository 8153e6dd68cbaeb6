// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package neighbourhood

import (
	"fmt"
	"math"

	"rescribe.xyz/nbhood/field"
)

// MaxGridCells is the furthest a neighbourhood can reach from its
// centre, in grid cells.
const MaxGridCells = 500

// DistanceToGridCells converts a distance in metres to a whole number
// of grid cells along the y and x axes of a field, rounding down.
func DistanceToGridCells(distance float64, f *field.Field) (int, int, error) {
	dy, dx := f.Grid.Metres()
	dy, dx = math.Abs(dy), math.Abs(dx)
	// NaN fails every comparison, so test for what is allowed
	if !(distance >= 0) || !(dy > 0) || !(dx > 0) || math.IsInf(dy, 0) || math.IsInf(dx, 0) {
		return 0, 0, fmt.Errorf("%w: distance %gm with grid spacing %gm by %gm", ErrNegativeDistance, distance, dy, dx)
	}

	cy, cx := distance/dy, distance/dx
	if cy > MaxGridCells || cx > MaxGridCells {
		return 0, 0, fmt.Errorf("%w: distance of %gm is more than %d cells", ErrTooManyCells, distance, MaxGridCells)
	}
	if int(cy) == 0 || int(cx) == 0 {
		return 0, 0, fmt.Errorf("%w: distance of %gm with grid spacing %gm by %gm", ErrZeroCells, distance, dy, dx)
	}

	return int(cy), int(cx), nil
}
