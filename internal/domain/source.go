package domain

import (
	"context"
	"errors"
)

// ErrNoData reports an upstream response that decoded cleanly but holds no
// usable value at the requested point (empty payload, all-NaN grid cell).
var ErrNoData = errors.New("no data at requested point")

// ScalarPoint is a single grid value extracted at a coordinate.
type ScalarPoint struct {
	Value float64
	Units string // empty when the upstream reports none
}

// ScalarSource fetches one layer's value at one coordinate. Implementations
// make exactly one upstream attempt per call (retries and fallbacks belong to
// the resolver) and honor ctx deadlines.
type ScalarSource interface {
	FetchScalar(ctx context.Context, layerID string, coord Coordinate) (ScalarPoint, error)
}
