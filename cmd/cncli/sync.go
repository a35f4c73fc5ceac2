package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
	"github.com/cardano-community/cncli/internal/protocol"
	"github.com/cardano-community/cncli/internal/store"
)

var syncOneShot bool

type syncResult struct {
	TipBlockNumber uint64 `json:"tipBlockNumber"`
	TipSlotNumber  uint64 `json:"tipSlotNumber"`
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Continuously chain-sync into the local store",
		Run:   cliutil.Command(runSync),
	}
	cmd.Flags().BoolVar(&syncOneShot, "one-shot", false, "terminate once the local tip reaches the peer's advertised tip")
	return cmd
}

// runSync reconnects with exponential backoff (initial 5s, cap 60s) on
// transport/protocol failure, per spec.md §7; the store's persisted tip is
// the sole recovery state, so reconnects simply re-enter chain-sync at the
// intersection step.
func runSync() (any, error) {
	cfg := cmdconfig.AppConfig.Node
	st, err := store.Open(context.Background(), cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	backoff := 5 * time.Second
	const maxBackoff = 60 * time.Second

	for {
		if ctx.Err() != nil {
			break
		}
		err := runSyncSession(ctx, cfg.Address, cfg.NetworkMagic, cfg.NodeToNode, cfg.ConnTimeoutMS, st)
		if err == nil {
			break // one-shot completed successfully
		}
		if ctx.Err() != nil {
			break
		}
		logger.WithError(err).Warn("chain-sync session ended, reconnecting")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			break
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	h, ok, err := st.Tip(context.Background())
	if err != nil {
		return nil, err
	}
	if !ok {
		return syncResult{}, nil
	}
	return syncResult{TipBlockNumber: h.BlockNumber, TipSlotNumber: h.SlotNumber}, nil
}

func runSyncSession(ctx context.Context, address string, networkMagic uint32, nodeToNode bool, connTimeoutMS int, st *store.Store) error {
	sessionID := uuid.NewString()
	sessionLog := logger.WithField("session", sessionID)

	conn, err := net.DialTimeout("tcp", address, time.Duration(connTimeoutMS)*time.Millisecond)
	if err != nil {
		return err
	}
	defer conn.Close()
	sessionLog.WithField("address", address).Info("connected")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := mux.New(conn, false)
	m.Start(sessionCtx)
	defer m.Close()

	versions := map[uint16]codec.VersionParams{
		13: {NetworkMagic: networkMagic, Diffusion: nodeToNode},
	}
	if _, err := protocol.Handshake(m, versions, 10*time.Second); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		ka := protocol.NewKeepAliveClient(m, protocol.DefaultKeepAliveInterval)
		errCh <- ka.Run(sessionCtx)
	}()
	go func() {
		cs := protocol.NewChainSyncClient(m, st, protocol.ChainSyncConfig{OneShot: syncOneShot, Logger: logger})
		errCh <- cs.Run(sessionCtx)
	}()

	err = <-errCh
	cancel()
	return err
}
