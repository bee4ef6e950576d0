package ledger

import (
	"github.com/cockroachdb/errors"

	"github.com/openmed/ledgerd/internal/models"
)

// IsChainValid reports whether a chain is structurally sound from genesis to
// tip. Pure function over its input; safe for any number of concurrent
// callers.
func IsChainValid(chain []models.Block) bool {
	return ValidateChain(chain) == nil
}

// ValidateChain walks the chain from genesis and returns a descriptive error
// for the first violation found, or nil for a valid chain. Checks, per
// adjacent pair: previous-hash linkage against the recomputed parent hash,
// index contiguity, the block's own stored hash, and the proof-of-work
// predicate at the difficulty recorded when the block was mined. Every
// non-genesis block must record a difficulty of at least 1; a zero or
// negative recording would make the work predicate vacuous.
func ValidateChain(chain []models.Block) error {
	if len(chain) == 0 {
		return errors.Wrap(ErrInvalidChain, "chain is empty")
	}

	genesis := GenesisBlock()
	recomputed, err := chain[0].ComputeHash()
	if err != nil {
		return errors.Wrap(ErrInvalidChain, err.Error())
	}
	if chain[0].Hash != genesis.Hash || recomputed != genesis.Hash {
		return errors.Wrap(ErrInvalidChain, "genesis block does not match the canonical genesis")
	}

	for i := 1; i < len(chain); i++ {
		prev, cur := chain[i-1], chain[i]

		if cur.Index != prev.Index+1 {
			return errors.Wrapf(ErrInvalidChain, "block %d: index %d does not follow %d", i, cur.Index, prev.Index)
		}

		prevHash, err := prev.ComputeHash()
		if err != nil {
			return errors.Wrapf(ErrInvalidChain, "block %d: %v", i-1, err)
		}
		if cur.PreviousHash != prevHash {
			return errors.Wrapf(ErrInvalidChain, "block %d: broken previous-hash link", i)
		}

		curHash, err := cur.ComputeHash()
		if err != nil {
			return errors.Wrapf(ErrInvalidChain, "block %d: %v", i, err)
		}
		if cur.Hash != curHash {
			return errors.Wrapf(ErrInvalidChain, "block %d: stored hash does not match content", i)
		}

		if cur.Difficulty < 1 {
			return errors.Wrapf(ErrInvalidChain, "block %d: recorded difficulty %d is below the minimum", i, cur.Difficulty)
		}
		if !ValidProof(prev.Proof, cur.Proof, cur.Difficulty) {
			return errors.Wrapf(ErrInvalidChain, "block %d: proof %d fails the work predicate at difficulty %d", i, cur.Proof, cur.Difficulty)
		}
	}

	return nil
}
