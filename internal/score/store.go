// Package score defines where best scores are kept between runs.
package score

import (
	"context"
	"errors"
)

// ErrPersistence wraps every failure of a Store. Callers treat it as
// recoverable: a failed Load means a best score of 0, a failed Save is logged.
var ErrPersistence = errors.New("best score persistence failed")

type Store interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, best int) error
}
