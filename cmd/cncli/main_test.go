package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/store"
)

func testExtendedKeyHex() string {
	var key [64]byte
	for i := range key {
		key[i] = byte(i*13 + 5)
	}
	return hex.EncodeToString(key[:])
}

func TestSignVerify_RoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "vrf.skey")
	if err := os.WriteFile(keyPath, []byte(testExtendedKeyHex()), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	cmdconfig.AppConfig.Pool.VRFKeyPath = keyPath
	signMessageHex = hex.EncodeToString([]byte("block to sign"))

	signed, err := runSign()
	if err != nil {
		t.Fatalf("runSign failed: %v", err)
	}
	res := signed.(signResult)

	verifyMessageHex = signMessageHex
	verifySignatureHex = res.Signature
	verifyPublicKeyHex = res.PublicKey

	verified, err := runVerify()
	if err != nil {
		t.Fatalf("runVerify failed: %v", err)
	}
	if !verified.(verifyResult).Verified {
		t.Fatalf("expected the signature produced by runSign to verify")
	}
}

func TestVerify_RejectsWrongPublicKeyLength(t *testing.T) {
	verifyMessageHex = "aa"
	verifySignatureHex = "bb"
	verifyPublicKeyHex = "aabbcc"
	if _, err := runVerify(); err == nil {
		t.Fatalf("expected an error for a public key that is not 32 bytes")
	}
}

func openTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cncli.sqlite")
	cmdconfig.AppConfig.Store.DBPath = path
}

func TestRunValidate_RequiresHashFlag(t *testing.T) {
	validateHashPrefix = ""
	if _, err := runValidate(); err == nil {
		t.Fatalf("expected an error when --hash is not supplied")
	}
}

func TestRunValidate_FindsAppendedBlock(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	var h codec.Header
	h.BlockNumber = 1
	h.SlotNumber = 100
	h.Hash[0] = 0xAB
	if err := st.Append(ctx, h); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	st.Close()

	validateHashPrefix = hex.EncodeToString(h.Hash[:4])
	env, err := runValidate()
	if err != nil {
		t.Fatalf("runValidate failed: %v", err)
	}
	if env.Status != "ok" {
		t.Fatalf("expected status ok, got %q", env.Status)
	}
}

func TestRunValidate_UnknownHashErrors(t *testing.T) {
	openTestDB(t)
	st, err := store.Open(context.Background(), cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	validateHashPrefix = hex.EncodeToString([]byte{0x01, 0x02})
	if _, err := runValidate(); err == nil {
		t.Fatalf("expected an error looking up an unknown hash")
	}
}

func sampleGenesisJSON() string {
	return `{
  "epochLength": 100,
  "slotLength": 1,
  "systemStart": 0,
  "activeSlotsCoeffNumerator": 1,
  "activeSlotsCoeffDenominator": 20,
  "securityParam": 5,
  "initialNonce": "ab"
}`
}

func TestRunStatus_ReportsSecondsBehind(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	var h codec.Header
	h.BlockNumber = 1
	h.SlotNumber = 10
	h.Hash[0] = 0x01
	if err := st.Append(ctx, h); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	st.Close()

	// Start the chain 20s ago so the tip at slot 10 is ~10s behind
	// wall-clock, well inside the 100-slot epoch runStatus accepts.
	recentGenesis := strings.Replace(sampleGenesisJSON(), `"systemStart": 0`,
		fmt.Sprintf(`"systemStart": %d`, time.Now().Unix()-20), 1)
	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(genesisPath, []byte(recentGenesis), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	statusGenesisPath = genesisPath

	res, err := runStatus()
	if err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}
	sr := res.(statusResult)
	if sr.TipSlot != 10 || sr.TipBlock != 1 {
		t.Fatalf("unexpected status result: %+v", sr)
	}
	if sr.SecondsBehind < 0 {
		t.Fatalf("expected a non-negative seconds-behind value, got %d", sr.SecondsBehind)
	}
}

func TestRunStatus_ErrorsWhenStoreEmpty(t *testing.T) {
	openTestDB(t)
	st, err := store.Open(context.Background(), cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	statusGenesisPath = filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(statusGenesisPath, []byte(sampleGenesisJSON()), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}

	if _, err := runStatus(); err == nil {
		t.Fatalf("expected an error when the store has no blocks")
	}
}

func TestRunNonce_ComputesForEarlyEpoch(t *testing.T) {
	openTestDB(t)
	st, err := store.Open(context.Background(), cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(genesisPath, []byte(sampleGenesisJSON()), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	nonceGenesisPath = genesisPath
	nonceEpoch = 0
	nonceExtraEntropy = ""

	res, err := runNonce()
	if err != nil {
		t.Fatalf("runNonce failed: %v", err)
	}
	nr := res.(nonceResult)
	if nr.Epoch != 0 {
		t.Fatalf("unexpected epoch: %d", nr.Epoch)
	}
	if len(nr.EpochNonce) != 64 || len(nr.PracticalNonce) != 64 {
		t.Fatalf("expected 32-byte hex-encoded nonces, got %q / %q", nr.EpochNonce, nr.PracticalNonce)
	}
}

func TestRunNonce_RejectsMalformedExtraEntropy(t *testing.T) {
	openTestDB(t)
	st, err := store.Open(context.Background(), cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(genesisPath, []byte(sampleGenesisJSON()), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	nonceGenesisPath = genesisPath
	nonceEpoch = 0
	nonceExtraEntropy = "not-hex"

	if _, err := runNonce(); err == nil {
		t.Fatalf("expected an error for malformed --extra-entropy")
	}
}

func TestRunLeaderlog_ProducesAndPersistsSchedule(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(genesisPath, []byte(sampleGenesisJSON()), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "vrf.skey")
	if err := os.WriteFile(keyPath, []byte(testExtendedKeyHex()), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	cmdconfig.AppConfig.Consensus.Variant = "praos"
	cmdconfig.AppConfig.Pool.VRFKeyPath = keyPath
	cmdconfig.AppConfig.Pool.ID = hex.EncodeToString(make([]byte, 28))
	leaderlogGenesisPath = genesisPath
	leaderlogEpoch = 0
	leaderlogActiveStake = "1/2"
	leaderlogDecentralised = "0/1"

	res, err := runLeaderlog()
	if err != nil {
		t.Fatalf("runLeaderlog failed: %v", err)
	}
	lr := res.(leaderlogResult)
	if lr.Epoch != 0 || lr.Consensus != "praos" {
		t.Fatalf("unexpected leaderlog result: %+v", lr)
	}

	st2, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer st2.Close()
	persisted, err := st2.ScheduleForEpoch(ctx, 0)
	if err != nil {
		t.Fatalf("ScheduleForEpoch failed: %v", err)
	}
	if len(persisted) != len(lr.Slots) {
		t.Fatalf("expected %d persisted slots, got %d", len(lr.Slots), len(persisted))
	}
}

func TestRunLeaderlog_RejectsInvalidActiveStakeFraction(t *testing.T) {
	openTestDB(t)
	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(genesisPath, []byte(sampleGenesisJSON()), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	cmdconfig.AppConfig.Consensus.Variant = "praos"
	leaderlogGenesisPath = genesisPath
	leaderlogActiveStake = "not-a-fraction"
	leaderlogDecentralised = "0/1"

	if _, err := runLeaderlog(); err == nil {
		t.Fatalf("expected an error for a malformed active-stake fraction")
	}
}

func TestRunSendTip_ErrorsWhenStoreEmpty(t *testing.T) {
	openTestDB(t)
	st, err := store.Open(context.Background(), cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	if _, err := runSendTip(); err == nil {
		t.Fatalf("expected an error when the store has no tip to report")
	}
}

func TestRunSendSlots_ErrorsOnUnreachableEndpoint(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	st, err := store.Open(ctx, cmdconfig.AppConfig.Store.DBPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	st.Close()

	sendSlotsEndpoint = "http://127.0.0.1:0/unreachable"
	sendSlotsAPIKey = "test"
	sendSlotsEpoch = 5
	if _, err := runSendSlots(); err == nil {
		t.Fatalf("expected an error reporting to an unreachable endpoint")
	}
}

func TestRunPing_FailsFastOnUnreachableAddress(t *testing.T) {
	cmdconfig.AppConfig.Node.Address = "127.0.0.1:1"
	cmdconfig.AppConfig.Node.ConnTimeoutMS = 200

	done := make(chan error, 1)
	go func() {
		_, err := runPing()
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected an error connecting to a closed port")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runPing did not fail fast against an unreachable address")
	}
}
