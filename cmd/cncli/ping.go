package main

import (
	"context"
	"net"
	"time"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
	"github.com/cardano-community/cncli/internal/protocol"
)

// pingResult is the `data` payload of a successful ping.
type pingResult struct {
	ConnectMS   int64  `json:"connectMs"`
	HandshakeMS int64  `json:"handshakeMs"`
	Address     string `json:"address"`
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "TCP connect and handshake against a node, reporting durations",
		Run:   cliutil.Command(runPing),
	}
}

func runPing() (any, error) {
	cfg := cmdconfig.AppConfig.Node

	connectStart := time.Now()
	conn, err := net.DialTimeout("tcp", cfg.Address, time.Duration(cfg.ConnTimeoutMS)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	connectElapsed := time.Since(connectStart)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := mux.New(conn, false)
	m.Start(ctx)
	defer m.Close()

	versions := map[uint16]codec.VersionParams{
		13: {NetworkMagic: cfg.NetworkMagic, Diffusion: cfg.NodeToNode},
	}

	handshakeStart := time.Now()
	_, err = protocol.Handshake(m, versions, 10*time.Second)
	if err != nil {
		return nil, err
	}
	handshakeElapsed := time.Since(handshakeStart)

	return pingResult{
		ConnectMS:   connectElapsed.Milliseconds(),
		HandshakeMS: handshakeElapsed.Milliseconds(),
		Address:     cfg.Address,
	}, nil
}
