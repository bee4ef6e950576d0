package node

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/openmed/ledgerd/internal/ledger"
	"github.com/openmed/ledgerd/internal/models"
	"github.com/openmed/ledgerd/internal/peers"
	"github.com/openmed/ledgerd/internal/rpc"
)

// stubFetcher returns canned chains per address
type stubFetcher struct {
	chains map[string][]models.Block
}

func (s *stubFetcher) FetchChain(_ context.Context, address string) ([]models.Block, error) {
	chain, ok := s.chains[address]
	if !ok {
		return nil, errors.Wrapf(rpc.ErrPeerUnreachable, "peer %s", address)
	}
	return chain, nil
}

func testRecord(t *testing.T, id string) models.Record {
	t.Helper()
	return *models.NewRecord().SetString("patient_id", id).SetString("details", "visit")
}

func newTestNode(t *testing.T, fetcher ChainFetcher) *Node {
	t.Helper()
	chain, err := ledger.NewChain(1)
	if err != nil {
		t.Fatalf("chain construction failed: %v", err)
	}
	return New(chain, peers.NewRegistry(), fetcher, nil)
}

func minedChain(t *testing.T, length int) []models.Block {
	t.Helper()
	chain, err := ledger.NewChain(1)
	if err != nil {
		t.Fatalf("chain construction failed: %v", err)
	}
	for chain.Length() < length {
		chain.AddPending(testRecord(t, "p-peer"))
		if _, err := chain.Mine(context.Background()); err != nil {
			t.Fatalf("mine failed: %v", err)
		}
	}
	return chain.Blocks()
}

func TestSubmitMineAndGetChain(t *testing.T) {
	n := newTestNode(t, &stubFetcher{})

	index := n.SubmitRecord(testRecord(t, "p-11"))
	if index != 1 {
		t.Errorf("submitted record maps to index %d, want 1", index)
	}

	block, err := n.MineBlock(context.Background())
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if block.Index != 1 {
		t.Errorf("mined block index %d, want 1", block.Index)
	}

	snapshot := n.GetChain()
	if snapshot.Length != 2 || len(snapshot.Chain) != 2 {
		t.Fatalf("snapshot length %d/%d, want 2", snapshot.Length, len(snapshot.Chain))
	}
	if !ledger.IsChainValid(snapshot.Chain) {
		t.Error("snapshot chain invalid")
	}
}

func TestMineBlockNothingPending(t *testing.T) {
	n := newTestNode(t, &stubFetcher{})
	if _, err := n.MineBlock(context.Background()); !errors.Is(err, ledger.ErrNothingPending) {
		t.Errorf("got %v, want ErrNothingPending", err)
	}
}

func TestRegisterPeerValidation(t *testing.T) {
	n := newTestNode(t, &stubFetcher{})

	if _, err := n.RegisterPeer("10.0.0.9:7000"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := n.RegisterPeer("bogus"); !errors.Is(err, peers.ErrInvalidAddress) {
		t.Errorf("got %v, want ErrInvalidAddress", err)
	}
	if got := n.ListPeers(); len(got) != 1 || got[0] != "10.0.0.9:7000" {
		t.Errorf("peer list %v, want exactly the valid peer", got)
	}
}

func TestResolveConsensusReplacesAndExcludesUnreachable(t *testing.T) {
	fetcher := &stubFetcher{chains: map[string][]models.Block{
		"good.example.com:8080": minedChain(t, 5),
	}}
	n := newTestNode(t, fetcher)

	for _, address := range []string{"good.example.com:8080", "dead.example.com:8080"} {
		if _, err := n.RegisterPeer(address); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	outcome := n.ResolveConsensus(context.Background())

	if !outcome.Replaced {
		t.Fatal("reachable longer chain did not replace local")
	}
	if outcome.ChainLength != 5 {
		t.Errorf("resulting length %d, want 5", outcome.ChainLength)
	}
}

func TestResolveConsensusAllPeersUnreachable(t *testing.T) {
	n := newTestNode(t, &stubFetcher{})
	if _, err := n.RegisterPeer("dead.example.com:8080"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	outcome := n.ResolveConsensus(context.Background())

	if outcome.Replaced {
		t.Error("unreachable peers caused a replacement")
	}
	if outcome.ChainLength != 1 {
		t.Errorf("local length drifted to %d", outcome.ChainLength)
	}
}

func TestDifficultyRoundTrip(t *testing.T) {
	n := newTestNode(t, &stubFetcher{})

	if err := n.SetDifficulty(3); err != nil {
		t.Fatalf("set difficulty failed: %v", err)
	}
	if got := n.Difficulty(); got != 3 {
		t.Errorf("difficulty %d, want 3", got)
	}
	if err := n.SetDifficulty(0); !errors.Is(err, ledger.ErrInvalidDifficulty) {
		t.Errorf("got %v, want ErrInvalidDifficulty", err)
	}
}

func TestInfoReportsVersions(t *testing.T) {
	n := newTestNode(t, &stubFetcher{})

	info := n.Info()
	if info.Version != Version || info.APIVersion != APIVersion {
		t.Errorf("info versions %s/%s, want %s/%s", info.Version, info.APIVersion, Version, APIVersion)
	}
	if info.Length != 1 || info.Difficulty != 1 {
		t.Errorf("info reports length %d difficulty %d", info.Length, info.Difficulty)
	}
}
