package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/openmed/ledgerd/internal/models"
)

// metaKeyLength tracks how many blocks the persisted chain holds
const metaKeyLength = "length"

// ChainStore persists the block sequence so a node can restore its ledger
// after a restart. The in-memory chain remains authoritative; the store is
// written behind every append or replacement.
type ChainStore struct {
	db *PebbleDB
}

// NewChainStore creates a new ChainStore
func NewChainStore(db *PebbleDB) *ChainStore {
	return &ChainStore{db: db}
}

// blockKey creates a key for the blocks column family, zero-padded so keys
// sort by index
func blockKey(index int64) []byte {
	return []byte(fmt.Sprintf("%012d", index))
}

// AppendBlock persists a newly mined block and the updated chain length in
// one batch
func (s *ChainStore) AppendBlock(block models.Block, newLength int) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal block %d: %w", block.Index, err)
	}

	batch := s.db.NewBatch()
	defer batch.Destroy()

	if err := s.db.PutBatch(batch, CFBlocks, blockKey(block.Index), data); err != nil {
		return err
	}
	if err := s.db.PutBatch(batch, CFMeta, []byte(metaKeyLength), []byte(strconv.Itoa(newLength))); err != nil {
		return err
	}

	return s.db.WriteBatch(batch)
}

// SaveChain rewrites the whole persisted chain, used after a consensus
// replacement. Replacement chains are always longer than what they replace,
// so overwriting by index leaves no stale tail.
func (s *ChainStore) SaveChain(blocks []models.Block) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	for _, block := range blocks {
		data, err := json.Marshal(block)
		if err != nil {
			return fmt.Errorf("failed to marshal block %d: %w", block.Index, err)
		}
		if err := s.db.PutBatch(batch, CFBlocks, blockKey(block.Index), data); err != nil {
			return err
		}
	}
	if err := s.db.PutBatch(batch, CFMeta, []byte(metaKeyLength), []byte(strconv.Itoa(len(blocks)))); err != nil {
		return err
	}

	return s.db.WriteBatch(batch)
}

// LoadChain reads the persisted chain from genesis to tip. Returns nil with
// no error when nothing has been persisted yet.
func (s *ChainStore) LoadChain() ([]models.Block, error) {
	lengthData, err := s.db.Get(CFMeta, []byte(metaKeyLength))
	if err != nil {
		return nil, err
	}
	if lengthData == nil {
		return nil, nil
	}

	length, err := strconv.Atoi(string(lengthData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse persisted chain length: %w", err)
	}

	blocks := make([]models.Block, 0, length)
	for i := int64(0); i < int64(length); i++ {
		data, err := s.db.Get(CFBlocks, blockKey(i))
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, fmt.Errorf("persisted chain is missing block %d of %d", i, length)
		}

		var block models.Block
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, fmt.Errorf("failed to unmarshal block %d: %w", i, err)
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}
