package main

import (
	"context"
	"encoding/hex"
	"math/big"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/genesis"
	"github.com/cardano-community/cncli/internal/leaderlog"
	"github.com/cardano-community/cncli/internal/nonce"
	"github.com/cardano-community/cncli/internal/store"
	"github.com/cardano-community/cncli/internal/xcrypto"
)

var (
	leaderlogEpoch         uint64
	leaderlogGenesisPath   string
	leaderlogActiveStake   string // numerator/denominator, e.g. "3/1000"
	leaderlogDecentralised string
)

type scheduledSlot struct {
	Slot        uint64 `json:"slot"`
	SlotInEpoch uint64 `json:"slotInEpoch"`
}

type leaderlogResult struct {
	Epoch     uint64          `json:"epoch"`
	Consensus string          `json:"consensus"`
	Slots     []scheduledSlot `json:"slots"`
}

func leaderlogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderlog",
		Short: "Compute and print the pool's elected slots for an epoch",
		Run:   cliutil.Command(runLeaderlog),
	}
	cmd.Flags().Uint64Var(&leaderlogEpoch, "epoch", 0, "target epoch")
	cmd.Flags().StringVar(&leaderlogGenesisPath, "genesis", "", "path to the flattened genesis config")
	cmd.Flags().StringVar(&leaderlogActiveStake, "active-stake", "", "pool active stake fraction as num/denom, e.g. 3/1000")
	cmd.Flags().StringVar(&leaderlogDecentralised, "d", "0/1", "decentralisation parameter as num/denom (tpraos only)")
	return cmd
}

func parseRat(s string) (*big.Rat, error) {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return nil, errInvalidRat(s)
	}
	return r, nil
}

type errInvalidRat string

func (e errInvalidRat) Error() string { return "leaderlog: invalid rational value " + string(e) }

func runLeaderlog() (any, error) {
	ctx := context.Background()

	variant, err := leaderlog.ParseVariant(cmdconfig.AppConfig.Consensus.Variant)
	if err != nil {
		return nil, err
	}

	g, err := genesis.Load(leaderlogGenesisPath)
	if err != nil {
		return nil, err
	}

	sigma, err := parseRat(leaderlogActiveStake)
	if err != nil {
		return nil, err
	}
	d, err := parseRat(leaderlogDecentralised)
	if err != nil {
		return nil, err
	}

	key, err := xcrypto.LoadExtendedKeyFile(cmdconfig.AppConfig.Pool.VRFKeyPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	nr, err := nonce.Derive(ctx, st, g, leaderlogEpoch, nil)
	if err != nil {
		return nil, err
	}

	in := leaderlog.ElectionInput{
		Variant:           variant,
		Eta:               nr.EpochNonce,
		ActiveSlotsCoeff:  g.ActiveSlotsCoeff,
		PoolStakeFraction: sigma,
		Decentralisation:  d,
		SigningKey:        key,
	}

	elected, err := leaderlog.Schedule(in, nr.FirstSlot, g.EpochLength)
	if err != nil {
		return nil, err
	}

	poolIDHex := cmdconfig.AppConfig.Pool.ID
	var poolID [28]byte
	if decoded, err := hex.DecodeString(poolIDHex); err == nil && len(decoded) == 28 {
		copy(poolID[:], decoded)
	}
	rows := make([]store.ScheduledSlot, 0, len(elected))
	slots := make([]scheduledSlot, 0, len(elected))
	for _, e := range elected {
		rows = append(rows, store.ScheduledSlot{Epoch: leaderlogEpoch, SlotNumber: e.Slot, PoolID: poolID, Consensus: variant.String()})
		slots = append(slots, scheduledSlot{Slot: e.Slot, SlotInEpoch: e.Slot - nr.FirstSlot})
	}
	if err := st.RecordSlots(ctx, leaderlogEpoch, rows); err != nil {
		return nil, err
	}

	return leaderlogResult{Epoch: leaderlogEpoch, Consensus: variant.String(), Slots: slots}, nil
}
