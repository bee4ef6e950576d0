package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openmed/ledgerd/internal/api"
	"github.com/openmed/ledgerd/internal/config"
	"github.com/openmed/ledgerd/internal/ledger"
	"github.com/openmed/ledgerd/internal/node"
	"github.com/openmed/ledgerd/internal/peers"
	"github.com/openmed/ledgerd/internal/rpc"
	"github.com/openmed/ledgerd/internal/storage"
	"github.com/openmed/ledgerd/internal/sync"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting ledgerd node...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open persistence and restore the chain when enabled
	var db *storage.PebbleDB
	var store *storage.ChainStore
	if cfg.Storage.Enabled {
		log.Printf("Opening Pebble database at %s", cfg.Storage.Path)
		db, err = storage.NewPebbleDB(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to open Pebble database: %v", err)
		}
		store = storage.NewChainStore(db)
	}

	chain, err := restoreOrCreateChain(store, cfg.Chain.Difficulty)
	if err != nil {
		log.Fatalf("Failed to initialize chain: %v", err)
	}
	log.Printf("Chain ready at length %d, difficulty %d", chain.Length(), chain.Difficulty())

	// Register configured peers
	registry := peers.NewRegistry()
	for _, address := range cfg.Peers.Addresses {
		normalized, err := registry.Register(address)
		if err != nil {
			log.Printf("Warning: skipping configured peer %q: %v", address, err)
			continue
		}
		log.Printf("Registered peer %s", normalized)
	}

	fetcher := rpc.NewPeerClient(time.Duration(cfg.Peers.FetchTimeout) * time.Second)
	n := node.New(chain, registry, fetcher, store)

	// Persist the freshly created genesis so a restart finds it
	if store != nil && chain.Length() == 1 {
		if err := store.SaveChain(chain.Blocks()); err != nil {
			log.Printf("Warning: failed to persist genesis: %v", err)
		}
	}

	// Optional periodic consensus resolution
	var resolver *sync.AutoResolver
	if cfg.Peers.ResolveInterval > 0 {
		resolver = sync.NewAutoResolver(n, time.Duration(cfg.Peers.ResolveInterval)*time.Second)
		resolver.Start(ctx)
	}

	// Initialize API router
	router := api.NewRouter(n)

	// Create HTTP server. Mining requests can outlive any fixed write
	// deadline at high difficulty, so no WriteTimeout is set.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router.Engine(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start HTTP server in goroutine
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Cancel context to stop the resolver loop and any in-flight mining
	cancel()

	if resolver != nil {
		resolver.Stop()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	log.Println("Server stopped")
}

// restoreOrCreateChain loads the persisted chain when one exists and
// validates, otherwise starts fresh from genesis
func restoreOrCreateChain(store *storage.ChainStore, difficulty int) (*ledger.Chain, error) {
	if store != nil {
		blocks, err := store.LoadChain()
		if err != nil {
			return nil, err
		}
		if blocks != nil {
			chain, err := ledger.NewChainFromBlocks(blocks, difficulty)
			if err != nil {
				log.Printf("Warning: persisted chain failed validation, starting from genesis: %v", err)
			} else {
				log.Printf("Restored %d blocks from disk", len(blocks))
				return chain, nil
			}
		}
	}
	return ledger.NewChain(difficulty)
}
