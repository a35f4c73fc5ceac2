package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/store"
)

var validateHashPrefix string

type validateResult struct {
	BlockNumber uint64 `json:"blockNumber"`
	SlotNumber  uint64 `json:"slotNumber"`
	Hash        string `json:"hash"`
	PoolID      string `json:"poolId,omitempty"`
	LeaderVRF   string `json:"leaderVrf,omitempty"`
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Look up a block by hash prefix and report its orphaned status",
		Run:   cliutil.CommandEnvelope(runValidate),
	}
	cmd.Flags().StringVar(&validateHashPrefix, "hash", "", "hex-encoded block hash prefix")
	return cmd
}

func runValidate() (cliutil.Envelope, error) {
	if validateHashPrefix == "" {
		return cliutil.Envelope{}, fmt.Errorf("validate: --hash is required")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		return cliutil.Envelope{}, err
	}
	defer st.Close()

	h, orphaned, found, err := st.Lookup(ctx, validateHashPrefix)
	if err != nil {
		return cliutil.Envelope{}, err
	}
	if !found {
		return cliutil.Envelope{}, fmt.Errorf("validate: no block with hash prefix %q", validateHashPrefix)
	}

	res := validateResult{
		BlockNumber: h.BlockNumber,
		SlotNumber:  h.SlotNumber,
		Hash:        hex.EncodeToString(h.Hash[:]),
	}
	if h.PoolID != nil {
		res.PoolID = hex.EncodeToString(h.PoolID[:])
	}
	if h.LeaderVRF != nil {
		res.LeaderVRF = hex.EncodeToString(h.LeaderVRF[:])
	}

	if orphaned {
		return cliutil.Orphaned(res), nil
	}
	return cliutil.Ok(res), nil
}
