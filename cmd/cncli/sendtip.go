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
	sendTipEndpoint string
	sendTipAPIKey   string
)

func sendTipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sendtip",
		Short: "Report the local chain tip to PoolTool (external collaborator, out of core scope)",
		Run:   cliutil.Command(runSendTip),
	}
	cmd.Flags().StringVar(&sendTipEndpoint, "endpoint", "", "PoolTool-compatible endpoint (defaults to the public API)")
	cmd.Flags().StringVar(&sendTipAPIKey, "api-key", "", "PoolTool API key")
	return cmd
}

func runSendTip() (any, error) {
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
		return nil, errNoTip{}
	}

	client := pooltool.New(firstNonEmpty(sendTipEndpoint, cmdconfig.EnvOverrides.PoolToolEndpoint), firstNonEmpty(sendTipAPIKey, cmdconfig.EnvOverrides.PoolToolAPIKey))
	report := pooltool.TipReport{
		PoolID:      cmdconfig.AppConfig.Pool.ID,
		BlockNumber: h.BlockNumber,
		SlotNumber:  h.SlotNumber,
		AtTip:       true,
	}
	if err := client.SendTip(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

type errNoTip struct{}

func (errNoTip) Error() string { return "sendtip: store has no blocks yet" }
