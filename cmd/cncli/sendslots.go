package main

import (
	"context"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/pooltool"
	"github.com/cardano-community/cncli/internal/store"
)

var (
	sendSlotsEpoch    uint64
	sendSlotsEndpoint string
	sendSlotsAPIKey   string
)

func sendSlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sendslots",
		Short: "Report a computed leader schedule to PoolTool (external collaborator, out of core scope)",
		Run:   cliutil.Command(runSendSlots),
	}
	cmd.Flags().Uint64Var(&sendSlotsEpoch, "epoch", 0, "epoch whose persisted schedule to report")
	cmd.Flags().StringVar(&sendSlotsEndpoint, "endpoint", "", "PoolTool-compatible endpoint (defaults to the public API)")
	cmd.Flags().StringVar(&sendSlotsAPIKey, "api-key", "", "PoolTool API key")
	return cmd
}

func runSendSlots() (any, error) {
	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	scheduled, err := st.ScheduleForEpoch(ctx, sendSlotsEpoch)
	if err != nil {
		return nil, err
	}

	slots := make([]uint64, 0, len(scheduled))
	for _, s := range scheduled {
		slots = append(slots, s.SlotNumber)
	}

	client := pooltool.New(firstNonEmpty(sendSlotsEndpoint, cmdconfig.EnvOverrides.PoolToolEndpoint), firstNonEmpty(sendSlotsAPIKey, cmdconfig.EnvOverrides.PoolToolAPIKey))
	report := pooltool.SlotsReport{
		PoolID: cmdconfig.AppConfig.Pool.ID,
		Epoch:  sendSlotsEpoch,
		Slots:  slots,
	}
	if err := client.SendSlots(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}
