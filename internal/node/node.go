package node

import (
	"context"
	"log"
	"sync"

	"github.com/openmed/ledgerd/internal/consensus"
	"github.com/openmed/ledgerd/internal/ledger"
	"github.com/openmed/ledgerd/internal/models"
	"github.com/openmed/ledgerd/internal/peers"
	"github.com/openmed/ledgerd/internal/storage"
)

// Version is the node software version
const Version = "0.1.0"

// APIVersion is the version of the peer-facing HTTP API
const APIVersion = "1.0.0"

// ChainFetcher retrieves a peer's chain snapshot. Implementations must
// bound each fetch with their own timeout.
type ChainFetcher interface {
	FetchChain(ctx context.Context, address string) ([]models.Block, error)
}

// Node ties the ledger, the peer registry, the peer-fetch collaborator and
// the optional persistence layer into the operations the API layer exposes.
type Node struct {
	chain    *ledger.Chain
	registry *peers.Registry
	fetcher  ChainFetcher
	store    *storage.ChainStore // nil when persistence is disabled
}

// New creates a Node. store may be nil to run purely in memory.
func New(chain *ledger.Chain, registry *peers.Registry, fetcher ChainFetcher, store *storage.ChainStore) *Node {
	return &Node{
		chain:    chain,
		registry: registry,
		fetcher:  fetcher,
		store:    store,
	}
}

// SubmitRecord enqueues an opaque record and returns the index of the block
// that will hold it
func (n *Node) SubmitRecord(record models.Record) int64 {
	return n.chain.AddPending(record)
}

// MineBlock runs a proof search over the pending queue and appends the
// resulting block. Returns ledger.ErrNothingPending or ledger.ErrStaleMine
// as non-fatal outcomes.
func (n *Node) MineBlock(ctx context.Context) (models.Block, error) {
	block, err := n.chain.Mine(ctx)
	if err != nil {
		return models.Block{}, err
	}

	log.Printf("[NODE] mined block %d with proof %d at difficulty %d", block.Index, block.Proof, block.Difficulty)
	n.persistAppend(block)
	return block, nil
}

// GetChain returns the chain in its wire form
func (n *Node) GetChain() models.ChainSnapshot {
	return n.chain.Snapshot()
}

// RegisterPeer validates and registers a peer address, returning its
// normalized form. Registration is idempotent.
func (n *Node) RegisterPeer(address string) (string, error) {
	return n.registry.Register(address)
}

// RegisterPeers validates and registers a batch of peer addresses, all or
// none: a single invalid address rejects the batch and leaves the registry
// unchanged. Returns the normalized forms in input order.
func (n *Node) RegisterPeers(addresses []string) ([]string, error) {
	return n.registry.RegisterAll(addresses)
}

// ListPeers returns the known peer addresses
func (n *Node) ListPeers() []string {
	return n.registry.List()
}

// SetDifficulty updates the difficulty used by future mining
func (n *Node) SetDifficulty(difficulty int) error {
	return n.chain.SetDifficulty(difficulty)
}

// Difficulty returns the difficulty currently in force
func (n *Node) Difficulty() int {
	return n.chain.Difficulty()
}

// Info describes this node to its peers
func (n *Node) Info() models.NodeInfo {
	return models.NodeInfo{
		Version:    Version,
		APIVersion: APIVersion,
		Length:     n.chain.Length(),
		Difficulty: n.chain.Difficulty(),
	}
}

// ResolveConsensus fetches every registered peer's chain concurrently, each
// bounded by the fetcher's per-peer timeout, and applies the
// longest-valid-chain rule. Unreachable peers are logged and excluded, never
// treated as a resolver failure. Safe to call repeatedly.
func (n *Node) ResolveConsensus(ctx context.Context) consensus.Outcome {
	addresses := n.registry.List()

	var (
		mu     sync.Mutex
		chains [][]models.Block
		wg     sync.WaitGroup
	)
	for _, address := range addresses {
		wg.Add(1)
		go func(address string) {
			defer wg.Done()
			chain, err := n.fetcher.FetchChain(ctx, address)
			if err != nil {
				log.Printf("[NODE] excluding peer %s from consensus: %v", address, err)
				return
			}
			mu.Lock()
			chains = append(chains, chain)
			mu.Unlock()
		}(address)
	}
	wg.Wait()

	outcome := consensus.Resolve(n.chain, chains)
	if outcome.Replaced {
		log.Printf("[NODE] chain replaced by a peer chain of length %d", outcome.ChainLength)
		n.persistChain()
	}
	return outcome
}

// persistAppend writes a newly appended block behind the in-memory chain.
// Persistence failures are logged, not surfaced: the in-memory ledger is
// authoritative.
func (n *Node) persistAppend(block models.Block) {
	if n.store == nil {
		return
	}
	if err := n.store.AppendBlock(block, n.chain.Length()); err != nil {
		log.Printf("[NODE] failed to persist block %d: %v", block.Index, err)
	}
}

func (n *Node) persistChain() {
	if n.store == nil {
		return
	}
	if err := n.store.SaveChain(n.chain.Blocks()); err != nil {
		log.Printf("[NODE] failed to persist replaced chain: %v", err)
	}
}
