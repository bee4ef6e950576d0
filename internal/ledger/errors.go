package ledger

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors returned by chain operations. None of them is fatal: the
// chain stays at its last known-valid state and the caller may retry.
var (
	// ErrNothingPending means mine was called with an empty pending queue
	ErrNothingPending = errors.New("no pending records to mine")

	// ErrStaleMine means the chain tip moved between a mine's snapshot and
	// its append attempt. The mined block is discarded, never appended.
	ErrStaleMine = errors.New("chain tip changed during mining")

	// ErrInvalidChain means a chain failed structural or proof-of-work checks
	ErrInvalidChain = errors.New("chain failed validation")

	// ErrInvalidDifficulty means a difficulty outside the usable range was
	// requested
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 64")
)
