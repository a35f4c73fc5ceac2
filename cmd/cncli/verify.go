package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardano-community/cncli/internal/cliutil"
	"github.com/cardano-community/cncli/internal/xcrypto"
)

var (
	verifyMessageHex   string
	verifySignatureHex string
	verifyPublicKeyHex string
)

type verifyResult struct {
	Verified bool `json:"verified"`
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature produced by sign",
		Run:   cliutil.Command(runVerify),
	}
	cmd.Flags().StringVar(&verifyMessageHex, "message", "", "hex-encoded message")
	cmd.Flags().StringVar(&verifySignatureHex, "signature", "", "hex-encoded signature")
	cmd.Flags().StringVar(&verifyPublicKeyHex, "pubkey", "", "hex-encoded Ed25519 public key")
	return cmd
}

func runVerify() (any, error) {
	msg, err := hex.DecodeString(verifyMessageHex)
	if err != nil {
		return nil, err
	}
	sig, err := hex.DecodeString(verifySignatureHex)
	if err != nil {
		return nil, err
	}
	pub, err := hex.DecodeString(verifyPublicKeyHex)
	if err != nil {
		return nil, err
	}
	if len(pub) != 32 {
		return nil, fmt.Errorf("verify: public key must be 32 bytes, got %d", len(pub))
	}
	ok := xcrypto.VerifyExtended(pub, sig, msg)
	return verifyResult{Verified: ok}, nil
}
