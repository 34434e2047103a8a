// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qr

import (
	"github.com/gomlx/dagqr/pkg/core/tiling"
	"github.com/pkg/errors"
)

// Sentinel errors. Configuration errors are all reported before any worker starts; match them with errors.Is.
var (
	// ErrInvalidTiling is returned when the tuning constants can't produce a valid tile grid:
	// non-positive block sizes, or a row-block height that is not a multiple of the column-block width.
	ErrInvalidTiling = tiling.ErrInvalidConfig

	// ErrNonSquare is returned for rectangular matrices: the tile grid is derived from a single dimension.
	ErrNonSquare = errors.New("qr: matrix is not square")

	// ErrEmptyMatrix is returned for a nil or 0×0 matrix.
	ErrEmptyMatrix = errors.New("qr: empty matrix")

	// ErrInvalidWorkers is returned when the number of workers is not positive.
	ErrInvalidWorkers = errors.New("qr: number of workers must be > 0")

	// ErrWorkerPanic is returned when a task panicked during the run; the run is aborted and the
	// matrix is left partially factorized.
	ErrWorkerPanic = errors.New("qr: worker panicked")
)
