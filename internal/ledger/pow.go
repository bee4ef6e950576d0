package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// MaxDifficulty is the number of hex characters in a sha256 digest. A
// difficulty above it can never be satisfied, so the chain refuses it.
const MaxDifficulty = 64

// powCancelCheckInterval is how many candidates the proof search tries
// between context checks. High difficulties run for minutes; the search must
// stay responsive to shutdown.
const powCancelCheckInterval = 4096

// ValidProof reports whether a candidate proof satisfies the work predicate:
// the hex digest of sha256("<lastProof><candidate>") must start with at
// least difficulty zero characters.
func ValidProof(lastProof, candidate int64, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	guess := strconv.FormatInt(lastProof, 10) + strconv.FormatInt(candidate, 10)
	sum := sha256.Sum256([]byte(guess))
	digest := hex.EncodeToString(sum[:])
	return strings.HasPrefix(digest, strings.Repeat("0", difficulty))
}

// proofOfWork searches sequentially from zero for a proof valid against the
// previous block's proof. Expected cost grows exponentially with difficulty.
func proofOfWork(ctx context.Context, lastProof int64, difficulty int) (int64, error) {
	for candidate := int64(0); ; candidate++ {
		if candidate%powCancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if ValidProof(lastProof, candidate, difficulty) {
			return candidate, nil
		}
	}
}
