package consensus

import (
	"github.com/openmed/ledgerd/internal/ledger"
	"github.com/openmed/ledgerd/internal/models"
)

// Outcome reports the result of a consensus round
type Outcome struct {
	Replaced    bool `json:"replaced"`
	ChainLength int  `json:"chain_length"`
}

// Resolve applies the longest-valid-chain rule over the local chain and a
// set of already-fetched peer chains. It performs no network I/O. A peer
// chain is considered only if it passes validation, no matter how long it
// claims to be; ties, including a tie with the local chain, keep the local
// chain. A strictly longer valid winner replaces the local chain atomically
// through the chain's own swap discipline. Idempotent: running it again on
// the same inputs changes nothing.
func Resolve(local *ledger.Chain, peerChains [][]models.Block) Outcome {
	bestLength := local.Length()
	var best []models.Block

	for _, candidate := range peerChains {
		if len(candidate) <= bestLength {
			continue
		}
		if !ledger.IsChainValid(candidate) {
			continue
		}
		best = candidate
		bestLength = len(candidate)
	}

	if best == nil {
		return Outcome{Replaced: false, ChainLength: local.Length()}
	}

	// ReplaceChain revalidates under its own lock; a concurrent append may
	// still legitimately win the race and keep the local chain.
	replaced := local.ReplaceChain(best)
	return Outcome{Replaced: replaced, ChainLength: local.Length()}
}
