package main

import (
	"context"
	"encoding/hex"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/genesis"
	"github.com/cardano-community/cncli/internal/nonce"
	"github.com/cardano-community/cncli/internal/store"
)

var (
	nonceEpoch        uint64
	nonceGenesisPath  string
	nonceExtraEntropy string
)

type nonceResult struct {
	Epoch          uint64 `json:"epoch"`
	EpochNonce     string `json:"epochNonce"`
	PracticalNonce string `json:"practicalNonce"`
	FirstSlot      uint64 `json:"firstSlot"`
	FirstTime      int64  `json:"firstTime"`
}

func nonceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Compute and print the epoch nonce for the requested epoch",
		Run:   cliutil.Command(runNonce),
	}
	cmd.Flags().Uint64Var(&nonceEpoch, "epoch", 0, "target epoch")
	cmd.Flags().StringVar(&nonceGenesisPath, "genesis", "", "path to the flattened genesis config")
	cmd.Flags().StringVar(&nonceExtraEntropy, "extra-entropy", "", "hex-encoded governance extra entropy, if any")
	return cmd
}

func runNonce() (any, error) {
	ctx := context.Background()

	g, err := genesis.Load(nonceGenesisPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var extra []byte
	if nonceExtraEntropy != "" {
		extra, err = hex.DecodeString(nonceExtraEntropy)
		if err != nil {
			return nil, err
		}
	}

	res, err := nonce.Derive(ctx, st, g, nonceEpoch, extra)
	if err != nil {
		return nil, err
	}

	return nonceResult{
		Epoch:          res.Epoch,
		EpochNonce:     hex.EncodeToString(res.EpochNonce[:]),
		PracticalNonce: hex.EncodeToString(res.PracticalNonce[:]),
		FirstSlot:      res.FirstSlot,
		FirstTime:      res.FirstTime,
	}, nil
}
