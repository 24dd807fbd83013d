package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"WalletCore/internal/logger"
	"WalletCore/internal/metrics"
	"WalletCore/internal/network"
	"WalletCore/internal/remote"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// hostCmd serves the locally held factor sources to remote wallets.
var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Serve local factor sources to remote wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runHost(ctx, cfg)
	},
}

// runHost serves until ctx ends.
func runHost(ctx context.Context, cfg *Config) error {
	keys, _, err := buildKeyring(cfg)
	if err != nil {
		return fmt.Errorf("load sources:\n%w", err)
	}

	key, err := loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	allowed := make([]ed25519.PublicKey, 0, len(cfg.Host.AllowedPeers))
	for _, s := range cfg.Host.AllowedPeers {
		k, err := network.ParsePublicKey(s)
		if err != nil {
			return fmt.Errorf("allowed peer:\n%w", err)
		}
		allowed = append(allowed, k)
	}

	node, err := network.NewNode(network.Config{
		PrivateKey:   key,
		ListenAddr:   cfg.Host.ListenAddr,
		AllowedPeers: allowed,
	})
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}
	defer node.Close()

	m := metrics.New()
	remote.NewHost(keys, remote.WithHostObserver(m)).Serve(node)

	if err := node.Start(); err != nil {
		return fmt.Errorf("start node:\n%w", err)
	}

	logger.Info("signer host started",
		"addr", node.Addr(),
		"key", fmt.Sprintf("%x", node.PublicKey()),
		"sources", keys.Sources().Len(),
		"allowed_peers", len(allowed),
	)

	if cfg.Host.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.Host.MetricsAddr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	<-ctx.Done()
	logger.Info("signer host stopping")

	return nil
}

// metricsMux serves the metrics at /metrics.
func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
