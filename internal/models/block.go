package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Block represents one immutable entry in the ledger. Hash is derived from
// the remaining fields and is never recomputed in place; amending a record
// means mining a new block.
type Block struct {
	Index        int64    `json:"index"`
	Timestamp    int64    `json:"timestamp"`
	Data         []Record `json:"data"`
	Proof        int64    `json:"proof"`
	PreviousHash string   `json:"previous_hash"`
	Difficulty   int      `json:"difficulty"`
	Hash         string   `json:"hash"`
}

// hashEnvelope fixes the field order fed into the digest. Struct fields
// marshal in declaration order, so the serialization is stable across runs.
type hashEnvelope struct {
	Index        int64             `json:"index"`
	Timestamp    int64             `json:"timestamp"`
	Data         []json.RawMessage `json:"data"`
	Proof        int64             `json:"proof"`
	PreviousHash string            `json:"previous_hash"`
	Difficulty   int               `json:"difficulty"`
}

// NewBlock constructs a block and computes its hash. Every block except
// genesis must link to its predecessor.
func NewBlock(index, timestamp int64, data []Record, proof int64, previousHash string, difficulty int) (Block, error) {
	if index > 0 && previousHash == "" {
		return Block{}, fmt.Errorf("block %d is missing a previous hash", index)
	}

	b := Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         data,
		Proof:        proof,
		PreviousHash: previousHash,
		Difficulty:   difficulty,
	}

	hash, err := b.ComputeHash()
	if err != nil {
		return Block{}, err
	}
	b.Hash = hash
	return b, nil
}

// ComputeHash derives the SHA-256 digest of the block's canonical
// serialization. The stored Hash field is not part of the input. Pure and
// side-effect-free; safe for concurrent callers.
func (b Block) ComputeHash() (string, error) {
	canonical := make([]json.RawMessage, 0, len(b.Data))
	for i, rec := range b.Data {
		c, err := rec.Canonical()
		if err != nil {
			return "", fmt.Errorf("failed to serialize record %d of block %d: %w", i, b.Index, err)
		}
		canonical = append(canonical, c)
	}

	payload, err := json.Marshal(hashEnvelope{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Data:         canonical,
		Proof:        b.Proof,
		PreviousHash: b.PreviousHash,
		Difficulty:   b.Difficulty,
	})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// ChainSnapshot is the wire form of a node's full chain
type ChainSnapshot struct {
	Chain  []Block `json:"chain"`
	Length int     `json:"length"`
}

// NodeInfo describes a node to its peers
type NodeInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	Length     int    `json:"length"`
	Difficulty int    `json:"difficulty"`
}
