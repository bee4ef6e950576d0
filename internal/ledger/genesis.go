package ledger

import (
	"github.com/openmed/ledgerd/internal/models"
)

// Canonical genesis fields. Every node builds the identical genesis block so
// chains fetched from peers share a common root. The genesis proof is a
// placeholder exempt from proof discovery.
const (
	GenesisPreviousHash = "0"
	GenesisProof        = 100
	GenesisTimestamp    = 1735689600 // 2025-01-01T00:00:00Z
	GenesisDifficulty   = 0
)

// DefaultDifficulty is the number of leading zero hex characters a mined
// proof's digest must have unless configured otherwise.
const DefaultDifficulty = 4

// GenesisBlock returns the canonical first block of every chain
func GenesisBlock() models.Block {
	data := models.NewRecord().
		SetString("patient_id", "Genesis").
		SetString("details", "First Block")

	// Construction from constants cannot fail
	block, err := models.NewBlock(0, GenesisTimestamp, []models.Record{*data}, GenesisProof, GenesisPreviousHash, GenesisDifficulty)
	if err != nil {
		panic(err)
	}
	return block
}
