package sync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/openmed/ledgerd/internal/consensus"
)

// ConsensusTrigger is the slice of the node the resolver loop needs
type ConsensusTrigger interface {
	ResolveConsensus(ctx context.Context) consensus.Outcome
}

// AutoResolver periodically triggers consensus resolution. The core only
// requires manual triggering; this wrapper sits outside it and simply calls
// the same idempotent operation on a timer.
type AutoResolver struct {
	node     ConsensusTrigger
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewAutoResolver creates an AutoResolver firing at the given interval
func NewAutoResolver(node ConsensusTrigger, interval time.Duration) *AutoResolver {
	return &AutoResolver{node: node, interval: interval}
}

// Start launches the resolution loop. Calling Start on a running resolver is
// a no-op.
func (a *AutoResolver) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	go a.run(ctx)
	log.Printf("[SYNC] auto-resolver started, interval %s", a.interval)
}

// Stop halts the loop and waits for the in-flight round, if any, to finish
func (a *AutoResolver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	cancel()
	<-done
	log.Printf("[SYNC] auto-resolver stopped")
}

func (a *AutoResolver) run(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			outcome := a.node.ResolveConsensus(ctx)
			if outcome.Replaced {
				log.Printf("[SYNC] consensus round replaced the local chain, new length %d", outcome.ChainLength)
			}
		}
	}
}
