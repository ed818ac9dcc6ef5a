package client

import (
	"context"
	"time"

	"contract_deployer/internal/app/port"
)

// ChainObserver receives the wallet chain seen by the watcher.
type ChainObserver interface {
	// ObserveConnected updates sessions that already have a connected wallet and returns how many changed hands.
	ObserveConnected(chainID uint64) int
}

// ChainWatcher polls the wallet's active chain and forwards it, standing in for a chainChanged subscription.
type ChainWatcher struct {
	reader   port.ChainReader
	observer ChainObserver
	interval time.Duration
	timeout  time.Duration
	logger   port.Logger

	lastChainID uint64
	healthy     bool
}

// NewChainWatcher creates a watcher that polls every interval.
func NewChainWatcher(reader port.ChainReader, observer ChainObserver, interval time.Duration, logger port.Logger) *ChainWatcher {
	return &ChainWatcher{
		reader:   reader,
		observer: observer,
		interval: interval,
		timeout:  interval,
		logger:   logger,
	}
}

// Run polls until ctx is done.
func (w *ChainWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Wallet chain watcher started", "interval", w.interval.String())
	for {
		w.poll(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("Wallet chain watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *ChainWatcher) poll(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	chainID, err := w.reader.ChainID(callCtx)
	if err != nil {
		if w.healthy {
			w.logger.Warn("Wallet chain poll failed", "error", err)
		}
		w.healthy = false
		return
	}
	w.healthy = true

	if chainID != w.lastChainID {
		w.logger.Info("Wallet reports chain", "chain_id", chainID, "previous_chain_id", w.lastChainID)
		w.lastChainID = chainID
	}
	if n := w.observer.ObserveConnected(chainID); n > 0 {
		w.logger.Debug("Wallet chain forwarded", "chain_id", chainID, "sessions", n)
	}
}
