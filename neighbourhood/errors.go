// Copyright 2026 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package neighbourhood

import "errors"

// Input errors. Callers should match these with errors.Is, as they
// are usually wrapped with more context.
var (
	// ErrMasked is returned when a field has any masked values.
	ErrMasked = errors.New("neighbourhood: masked data is not currently supported")

	// ErrNaN is returned when a field contains any NaN values.
	ErrNaN = errors.New("neighbourhood: data array contains NaNs")

	// ErrNoField is returned when there is no field, or it has no data.
	ErrNoField = errors.New("neighbourhood: no field data")

	// ErrNegativeDistance is returned when a distance or grid spacing
	// would give a negative or undefined cell extent.
	ErrNegativeDistance = errors.New("neighbourhood: distance gives a negative cell extent")

	// ErrZeroCells is returned when a distance is smaller than the
	// grid spacing.
	ErrZeroCells = errors.New("neighbourhood: distance gives zero cell extent")

	// ErrTooManyCells is returned when a distance would reach more
	// than MaxGridCells cells from the centre of a neighbourhood.
	ErrTooManyCells = errors.New("neighbourhood: distance exceeds maximum grid cell extent")
)
