package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/genesis"
	"github.com/cardano-community/cncli/internal/store"
)

var statusGenesisPath string

type statusResult struct {
	TipSlot       uint64 `json:"tipSlot"`
	TipBlock      uint64 `json:"tipBlock"`
	SecondsBehind int64  `json:"secondsBehind"`
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: `"ok" if the store's tip slot is within one epoch of wall-clock`,
		Run:   cliutil.Command(runStatus),
	}
	cmd.Flags().StringVar(&statusGenesisPath, "genesis", "", "path to the flattened genesis config")
	return cmd
}

func runStatus() (any, error) {
	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	h, ok, err := st.Tip(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("status: store has no blocks yet")
	}

	g, err := genesis.Load(statusGenesisPath)
	if err != nil {
		return nil, err
	}
	tipTime := g.StartTime.Add(time.Duration(h.SlotNumber) * time.Duration(g.SlotLengthSeconds) * time.Second)
	behind := time.Since(tipTime)

	res := statusResult{TipSlot: h.SlotNumber, TipBlock: h.BlockNumber, SecondsBehind: int64(behind.Seconds())}
	if behind > time.Duration(g.EpochLength)*time.Duration(g.SlotLengthSeconds)*time.Second {
		return nil, fmt.Errorf("status: tip is %s behind wall-clock, more than one epoch", behind)
	}
	return res, nil
}
