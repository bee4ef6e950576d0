package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/openmed/ledgerd/internal/models"
)

// Chain owns the local ledger: the block sequence, the FIFO queue of
// not-yet-mined records, and the difficulty in force for future mining.
// AddPending, ReplaceChain, SetDifficulty and the append step of Mine share
// one mutual-exclusion domain; reads never block on an in-flight proof
// search.
type Chain struct {
	mu         sync.RWMutex
	blocks     []models.Block
	pending    []models.Record
	difficulty int
}

// NewChain creates a chain holding only the canonical genesis block
func NewChain(difficulty int) (*Chain, error) {
	if difficulty < 1 || difficulty > MaxDifficulty {
		return nil, errors.Wrapf(ErrInvalidDifficulty, "got %d", difficulty)
	}
	return &Chain{
		blocks:     []models.Block{GenesisBlock()},
		difficulty: difficulty,
	}, nil
}

// NewChainFromBlocks restores a chain from previously mined blocks, e.g.
// from the persistence layer. The blocks are validated before use.
func NewChainFromBlocks(blocks []models.Block, difficulty int) (*Chain, error) {
	if difficulty < 1 || difficulty > MaxDifficulty {
		return nil, errors.Wrapf(ErrInvalidDifficulty, "got %d", difficulty)
	}
	if err := ValidateChain(blocks); err != nil {
		return nil, err
	}
	return &Chain{
		blocks:     append([]models.Block(nil), blocks...),
		difficulty: difficulty,
	}, nil
}

// Length returns the number of blocks in the chain
func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Blocks returns a copy of the chain from genesis to tip
func (c *Chain) Blocks() []models.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Block(nil), c.blocks...)
}

// Tip returns the most recently appended block
func (c *Chain) Tip() models.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Snapshot returns the chain in its wire form
func (c *Chain) Snapshot() models.ChainSnapshot {
	blocks := c.Blocks()
	return models.ChainSnapshot{Chain: blocks, Length: len(blocks)}
}

// AddPending enqueues an opaque record for inclusion in a future block and
// returns the index the next mined block will occupy. Record content is
// never inspected.
func (c *Chain) AddPending(record models.Record) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, record)
	return int64(len(c.blocks))
}

// PendingCount returns the number of records waiting to be mined
func (c *Chain) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// Difficulty returns the difficulty that will apply to the next mine
func (c *Chain) Difficulty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.difficulty
}

// SetDifficulty changes the difficulty for future mining. Blocks already
// mined keep the difficulty recorded at their mining time and stay valid.
// Values above MaxDifficulty are rejected: no sha256 digest can carry more
// leading zeros than it has characters, so a mine at such a difficulty
// would never terminate.
func (c *Chain) SetDifficulty(difficulty int) error {
	if difficulty < 1 || difficulty > MaxDifficulty {
		return errors.Wrapf(ErrInvalidDifficulty, "got %d", difficulty)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.difficulty = difficulty
	return nil
}

// Mine snapshots the pending queue, the chain tip and the difficulty, then
// runs the proof search without holding any lock. The found block is
// appended only if the tip is unchanged since the snapshot; otherwise it is
// discarded with ErrStaleMine and the caller must reissue mining. Records
// queued while the search ran stay pending. Returns ErrNothingPending when
// the queue is empty.
func (c *Chain) Mine(ctx context.Context) (models.Block, error) {
	snapshot, tip, difficulty, err := c.mineSnapshot()
	if err != nil {
		return models.Block{}, err
	}

	proof, err := proofOfWork(ctx, tip.Proof, difficulty)
	if err != nil {
		return models.Block{}, err
	}

	block, err := models.NewBlock(tip.Index+1, time.Now().Unix(), snapshot, proof, tip.Hash, difficulty)
	if err != nil {
		return models.Block{}, err
	}

	return c.appendMined(tip, block, len(snapshot))
}

func (c *Chain) mineSnapshot() ([]models.Record, models.Block, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.pending) == 0 {
		return nil, models.Block{}, 0, ErrNothingPending
	}

	snapshot := append([]models.Record(nil), c.pending...)
	tip := c.blocks[len(c.blocks)-1]
	return snapshot, tip, c.difficulty, nil
}

// appendMined attaches a freshly mined block under the chain lock. parent is
// the tip observed at snapshot time; mined is how many pending records the
// block carries. Only those records leave the queue.
func (c *Chain) appendMined(parent, block models.Block, mined int) (models.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	if tip.Index != parent.Index || tip.Hash != parent.Hash {
		return models.Block{}, errors.Wrapf(ErrStaleMine, "tip moved from index %d to %d", parent.Index, tip.Index)
	}

	c.blocks = append(c.blocks, block)
	c.pending = append([]models.Record(nil), c.pending[mined:]...)
	return block, nil
}

// ReplaceChain atomically swaps the local chain for candidate iff candidate
// is valid and strictly longer. Pending records are unaffected. Returns
// whether the swap happened.
func (c *Chain) ReplaceChain(candidate []models.Block) bool {
	if !IsChainValid(candidate) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) <= len(c.blocks) {
		return false
	}

	c.blocks = append([]models.Block(nil), candidate...)
	return true
}
