// Package genesis holds the plain configuration struct that C6 (nonce
// evolution) and C7 (leader election) consume. The core only reads the
// struct; Load fills it from a single flattened JSON or YAML file, not from
// the node's separate Byron and Shelley genesis files.
package genesis

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Byron's slot/epoch shape never changed and is not configurable.
const (
	ByronSlotsPerEpoch     = 21600
	ByronSlotLengthSeconds = 20
)

// Config is the set of genesis-derived constants the core consumes, per
// spec.md §6. Values are plain — no file-parsing logic lives here beyond
// the Load convenience function below.
type Config struct {
	EpochLength                 uint64    `json:"epochLength"`
	SlotLengthSeconds           uint64    `json:"slotLength"`
	StartTime                   time.Time `json:"systemStart"`
	ActiveSlotsCoeff             *big.Rat `json:"-"`
	ActiveSlotsCoeffNumerator    int64     `json:"activeSlotsCoeffNumerator"`
	ActiveSlotsCoeffDenominator  int64     `json:"activeSlotsCoeffDenominator"`
	SecurityParameter            uint64    `json:"securityParam"`
	InitialNonce                 []byte    `json:"-"`
	InitialNonceHex               string   `json:"initialNonce"`
	ByronShelleyTransitionEpoch  uint64    `json:"byronShelleyTransitionEpoch"`
}

// jsonShape mirrors Config's wire representation; kept separate so Config
// can carry computed fields (ActiveSlotsCoeff, InitialNonce) without custom
// (Un)MarshalJSON methods scattered through the struct.
type jsonShape struct {
	EpochLength                 uint64 `json:"epochLength" yaml:"epochLength"`
	SlotLengthSeconds           uint64 `json:"slotLength" yaml:"slotLength"`
	StartTime                   int64  `json:"systemStart" yaml:"systemStart"`
	ActiveSlotsCoeffNumerator   int64  `json:"activeSlotsCoeffNumerator" yaml:"activeSlotsCoeffNumerator"`
	ActiveSlotsCoeffDenominator int64  `json:"activeSlotsCoeffDenominator" yaml:"activeSlotsCoeffDenominator"`
	SecurityParameter           uint64 `json:"securityParam" yaml:"securityParam"`
	InitialNonce                string `json:"initialNonce" yaml:"initialNonce"`
	ByronShelleyTransitionEpoch uint64 `json:"byronShelleyTransitionEpoch" yaml:"byronShelleyTransitionEpoch"`
}

// Load parses a flattened genesis configuration file (the shape an external
// loader would have already merged from Byron + Shelley genesis.json) from
// path. Both JSON and YAML are accepted, selected by file extension, since
// operators often keep genesis overrides alongside the YAML node config in
// cmd/config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis config %s: %w", path, err)
	}
	var shape jsonShape
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &shape); err != nil {
			return nil, fmt.Errorf("decode genesis config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &shape); err != nil {
			return nil, fmt.Errorf("decode genesis config %s: %w", path, err)
		}
	}
	if shape.ActiveSlotsCoeffDenominator == 0 {
		return nil, fmt.Errorf("genesis config %s: active slots coefficient has zero denominator", path)
	}
	nonce, err := hex.DecodeString(shape.InitialNonce)
	if err != nil {
		return nil, fmt.Errorf("genesis config %s: invalid initialNonce: %w", path, err)
	}
	return &Config{
		EpochLength:                 shape.EpochLength,
		SlotLengthSeconds:           shape.SlotLengthSeconds,
		StartTime:                   time.Unix(shape.StartTime, 0).UTC(),
		ActiveSlotsCoeff:            big.NewRat(shape.ActiveSlotsCoeffNumerator, shape.ActiveSlotsCoeffDenominator),
		ActiveSlotsCoeffNumerator:   shape.ActiveSlotsCoeffNumerator,
		ActiveSlotsCoeffDenominator: shape.ActiveSlotsCoeffDenominator,
		SecurityParameter:           shape.SecurityParameter,
		InitialNonce:                nonce,
		InitialNonceHex:             shape.InitialNonce,
		ByronShelleyTransitionEpoch: shape.ByronShelleyTransitionEpoch,
	}, nil
}

// StabilityWindowSlots returns 4k/f, the number of slots at the end of an
// epoch after which no more blocks can affect that epoch's nonce
// candidate (spec.md §4.6).
func (c *Config) StabilityWindowSlots() uint64 {
	k := new(big.Rat).SetInt64(int64(4 * c.SecurityParameter))
	w := new(big.Rat).Quo(k, c.ActiveSlotsCoeff)
	// Floor division in rationals: floor(w) suffices for a slot-count
	// cutoff since w is not required to be an exact integer.
	q := new(big.Int).Div(w.Num(), w.Denom())
	return q.Uint64()
}

// AbsoluteSlot converts a (byron epochs + shelley epoch, epoch-local slot)
// pair into an absolute chain slot number, composing Byron's fixed 21600
// slots/epoch with Shelley's configured epoch length, per spec.md §4.6.
func (c *Config) AbsoluteSlot(epoch uint64, slotInEpoch uint64) uint64 {
	if epoch < c.ByronShelleyTransitionEpoch {
		return epoch*ByronSlotsPerEpoch + slotInEpoch
	}
	byronSlots := c.ByronShelleyTransitionEpoch * ByronSlotsPerEpoch
	shelleyEpochs := epoch - c.ByronShelleyTransitionEpoch
	return byronSlots + shelleyEpochs*c.EpochLength + slotInEpoch
}

// FirstSlotOfEpoch returns the first absolute slot of epoch.
func (c *Config) FirstSlotOfEpoch(epoch uint64) uint64 {
	return c.AbsoluteSlot(epoch, 0)
}

// FirstTimeOfEpoch returns the wall-clock timestamp of the first slot of
// epoch, assuming a uniform Shelley+ slot length (Byron's 20s slots are
// folded into the absolute slot arithmetic by AbsoluteSlot, but wall-clock
// timestamps beyond genesis are only meaningful once Shelley's 1s slots are
// in effect for the epochs this tool is used against).
func (c *Config) FirstTimeOfEpoch(epoch uint64) time.Time {
	slot := c.FirstSlotOfEpoch(epoch)
	return c.StartTime.Add(time.Duration(slot) * time.Duration(c.SlotLengthSeconds) * time.Second)
}
