package main

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/xcrypto"
)

var signMessageHex string

type signResult struct {
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a hex-encoded message with the pool's Ed25519-extended VRF key",
		Run:   cliutil.Command(runSign),
	}
	cmd.Flags().StringVar(&signMessageHex, "message", "", "hex-encoded message to sign")
	return cmd
}

func runSign() (any, error) {
	msg, err := hex.DecodeString(signMessageHex)
	if err != nil {
		return nil, err
	}
	key, err := xcrypto.LoadExtendedKeyFile(cmdconfig.AppConfig.Pool.VRFKeyPath)
	if err != nil {
		return nil, err
	}
	sig, err := xcrypto.SignExtended(key, msg)
	if err != nil {
		return nil, err
	}
	return signResult{
		Signature: hex.EncodeToString(sig),
		PublicKey: hex.EncodeToString(key.PublicKey()),
	}, nil
}
