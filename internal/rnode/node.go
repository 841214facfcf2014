// Package rnode wires the chain engine, the persistent store, and the peer
// server together into a runnable node: it owns the mining loop, forwards
// locally mined blocks to known peers, and keeps Prometheus gauges current.
package rnode

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/djkazic/rblocknode/internal/chain"
	"github.com/djkazic/rblocknode/internal/peer"
	"github.com/djkazic/rblocknode/internal/secp256k1"
	"github.com/djkazic/rblocknode/internal/store"
	"github.com/djkazic/rblocknode/pkg/metrics"
)

// Config configures a Node.
type Config struct {
	// ListenAddr is the address the peer server binds, e.g. ":9090".
	ListenAddr string

	// DBPath is the bbolt database file path.
	DBPath string

	// MinerKey is the private key mining rewards are credited to. Nil
	// disables mining; the node still serves reads and accepts pushed
	// blocks.
	MinerKey *big.Int

	// Peers is the set of peer addresses blocks are pushed to after being
	// mined locally.
	Peers []string
}

// Node is a running instance of the chain, its store, and its peer server.
type Node struct {
	cfg    Config
	logger *zap.Logger

	store    *store.Store
	server   *peer.Server
	minerKey secp256k1.Point
	started  time.Time
}

// New opens the store at cfg.DBPath (seeding a fresh genesis block if the
// database is empty) and starts the peer server.
func New(cfg Config, logger *zap.Logger) (*Node, error) {
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("rnode: open store: %w", err)
	}

	if _, err := st.GetLatestBlock(); err != nil {
		genesis := chain.Genesis(uint64(time.Now().Unix()))
		if err := st.Seed(genesis, nil); err != nil {
			st.Close()
			return nil, fmt.Errorf("rnode: seed genesis: %w", err)
		}
	}

	srv, err := peer.Listen(cfg.ListenAddr, st, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("rnode: start peer server: %w", err)
	}

	minerKey := secp256k1.Identity()
	if cfg.MinerKey != nil {
		minerKey = secp256k1.MultiplyGenerator(cfg.MinerKey)
	}

	return &Node{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		server:   srv,
		minerKey: minerKey,
		started:  time.Now(),
	}, nil
}

// Close stops the peer server and the store.
func (n *Node) Close() error {
	if err := n.server.Close(); err != nil {
		return err
	}
	return n.store.Close()
}

// Run serves peer connections and, if a miner key was configured, mines
// continuously until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.server.Serve()
	}()

	if !n.minerKey.IsIdentity() {
		go n.mineLoop(ctx)
	}
	go n.reportMetrics(ctx)

	select {
	case <-ctx.Done():
		n.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// mineLoop repeatedly builds, mines, and submits candidate blocks extending
// the current tip until ctx is canceled.
func (n *Node) mineLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := n.mineOne(); err != nil {
			n.logger.Warn("mining attempt failed", zap.Error(err))
			time.Sleep(time.Second)
		}
	}
}

func (n *Node) mineOne() error {
	tip, err := n.store.GetLatestBlock()
	if err != nil {
		return fmt.Errorf("read tip: %w", err)
	}

	now := uint64(time.Now().Unix())
	bc := chain.FromBlocks(n.logger, []chain.Block{tip})
	difficulty := bc.NextDifficulty(now)

	candidate := chain.NewBlock(tip, nil, n.minerKey, now)
	candidate.SetDifficulty(difficulty)

	if err := candidate.Mine(); err != nil {
		metrics.MiningAttempts.Add(float64(candidate.Nonce))
		return fmt.Errorf("mine: %w", err)
	}
	metrics.MiningAttempts.Add(float64(candidate.Nonce))

	if err := n.store.AddBlock(candidate); err != nil {
		metrics.BlocksRejected.WithLabelValues(rejectionReason(err)).Inc()
		return fmt.Errorf("add mined block: %w", err)
	}

	metrics.BlocksMined.Inc()
	metrics.BlocksAccepted.Inc()
	n.logger.Info("mined block", zap.Uint64("height", candidate.Height), zap.String("hash", candidate.Hash))

	n.broadcast(candidate)
	return nil
}

func (n *Node) broadcast(block chain.Block) {
	for _, addr := range n.cfg.Peers {
		status, err := peer.PushBlock(addr, block)
		if err != nil {
			n.logger.Debug("failed to push block to peer", zap.String("addr", addr), zap.Error(err))
			continue
		}
		if status != peer.StatusOK {
			n.logger.Debug("peer rejected pushed block", zap.String("addr", addr), zap.String("status", status.String()))
		}
	}
}

func (n *Node) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if tip, err := n.store.GetLatestBlock(); err == nil {
				metrics.ChainHeight.Set(float64(tip.Height))
				metrics.Difficulty.Set(float64(tip.Difficulty))
			}
			if size, err := n.store.SizeBytes(); err == nil {
				metrics.StoreSizeBytes.Set(float64(size))
			}
			metrics.PeersConnected.Set(float64(len(n.cfg.Peers)))
			metrics.UptimeSeconds.Set(time.Since(n.started).Seconds())
		}
	}
}

func rejectionReason(err error) string {
	switch err.(type) {
	case *store.ErrNotSupported:
		return "not_supported"
	case *store.ErrInvalidData:
		return "invalid_data"
	case *store.ErrAlreadyExists:
		return "already_exists"
	case *store.ErrCorruption:
		return "corruption"
	case *store.ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}
