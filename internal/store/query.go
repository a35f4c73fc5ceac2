package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/pkg/utils"
)

// scanRow is the common column set every SELECT in this file returns, in
// order, matching the block table's layout.
type scanRow struct {
	blockNumber uint64
	slotNumber  uint64
	hash        []byte
	prevHash    []byte
	poolID      []byte
	leaderVRF   []byte
	blockVRF    []byte
	etaV        []byte
	nodeVKey    []byte
	orphaned    bool
}

func scan(rows *sql.Rows) (scanRow, error) {
	var r scanRow
	err := rows.Scan(&r.blockNumber, &r.slotNumber, &r.hash, &r.prevHash, &r.poolID, &r.leaderVRF, &r.blockVRF, &r.etaV, &r.nodeVKey, &r.orphaned)
	return r, err
}

const selectColumns = `block_number, slot_number, hash, prev_hash, pool_id, leader_vrf, block_vrf, eta_v, node_vkey, orphaned`

// Tip returns the header of the non-orphaned block with the greatest block
// height, or ok=false if the store holds no canonical blocks yet.
func (s *Store) Tip(ctx context.Context) (codec.Header, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM block WHERE orphaned = 0 ORDER BY block_number DESC LIMIT 1`,
	)
	var r scanRow
	err := row.Scan(&r.blockNumber, &r.slotNumber, &r.hash, &r.prevHash, &r.poolID, &r.leaderVRF, &r.blockVRF, &r.etaV, &r.nodeVKey, &r.orphaned)
	if err == sql.ErrNoRows {
		return codec.Header{}, false, nil
	}
	if err != nil {
		return codec.Header{}, false, utils.Wrap(err, "store: query tip")
	}
	h, err := rowToHeader(r.blockNumber, r.slotNumber, r.hash, r.prevHash, r.poolID, r.leaderVRF, r.blockVRF, r.etaV, r.nodeVKey, r.orphaned)
	return h, true, err
}

// Lookup returns the block whose hash starts with hashPrefix (hex-encoded)
// and whether it is orphaned. It matches exactly when hashPrefix is the
// full 64 hex characters; otherwise any row sharing the given prefix is
// returned, preferring a non-orphaned match.
func (s *Store) Lookup(ctx context.Context, hashPrefix string) (codec.Header, bool, bool, error) {
	prefix, err := hex.DecodeString(padEvenHex(hashPrefix))
	if err != nil {
		return codec.Header{}, false, false, fmt.Errorf("store: malformed hash prefix %q: %w", hashPrefix, err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM block WHERE substr(hash, 1, ?) = ? ORDER BY orphaned ASC, block_number DESC`,
		len(prefix), prefix,
	)
	if err != nil {
		return codec.Header{}, false, false, utils.Wrap(err, "store: query lookup")
	}
	defer rows.Close()
	if !rows.Next() {
		return codec.Header{}, false, false, nil
	}
	r, err := scan(rows)
	if err != nil {
		return codec.Header{}, false, false, utils.Wrap(err, "store: scan lookup row")
	}
	h, err := rowToHeader(r.blockNumber, r.slotNumber, r.hash, r.prevHash, r.poolID, r.leaderVRF, r.blockVRF, r.etaV, r.nodeVKey, r.orphaned)
	return h, r.orphaned, true, err
}

// padEvenHex left-aligns an odd-length hex string down to the nearest
// whole byte, since hash prefixes may be supplied at odd nibble lengths.
func padEvenHex(s string) string {
	if len(s)%2 == 1 {
		return s[:len(s)-1]
	}
	return s
}

// HeadersInEpoch returns every non-orphaned header whose epoch-local slot
// falls within epoch e, given the epoch's first absolute slot and length.
func (s *Store) HeadersInEpoch(ctx context.Context, epochFirstSlot, epochLength uint64) ([]codec.Header, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM block WHERE orphaned = 0 AND slot_number >= ? AND slot_number < ? ORDER BY slot_number ASC`,
		epochFirstSlot, epochFirstSlot+epochLength,
	)
	if err != nil {
		return nil, utils.Wrap(err, "store: query headers in epoch")
	}
	defer rows.Close()

	var out []codec.Header
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, utils.Wrap(err, "store: scan header row")
		}
		h, err := rowToHeader(r.blockNumber, r.slotNumber, r.hash, r.prevHash, r.poolID, r.leaderVRF, r.blockVRF, r.etaV, r.nodeVKey, r.orphaned)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, utils.Wrap(rows.Err(), "store: iterate headers in epoch")
}

// HeadersThroughSlot returns every non-orphaned header with slot_number <=
// slotLimit, in slot order. C6 folds these into the candidate-nonce hash
// chain from genesis, since η_c is never stored and is always re-derived.
func (s *Store) HeadersThroughSlot(ctx context.Context, slotLimit uint64) ([]codec.Header, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM block WHERE orphaned = 0 AND slot_number <= ? ORDER BY slot_number ASC`,
		slotLimit,
	)
	if err != nil {
		return nil, utils.Wrap(err, "store: query headers through slot")
	}
	defer rows.Close()

	var out []codec.Header
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, utils.Wrap(err, "store: scan header row")
		}
		h, err := rowToHeader(r.blockNumber, r.slotNumber, r.hash, r.prevHash, r.poolID, r.leaderVRF, r.blockVRF, r.etaV, r.nodeVKey, r.orphaned)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, utils.Wrap(rows.Err(), "store: iterate headers through slot")
}

// FindEpochLastBlock returns the highest-slot non-orphaned block with slot
// strictly less than the given bound. internal/nonce passes epoch e's
// stability-window cutoff (its first slot plus 4k/f) to locate the block
// whose hash anchors η_h(e).
func (s *Store) FindEpochLastBlock(ctx context.Context, nextEpochFirstSlot uint64) (codec.Header, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM block WHERE orphaned = 0 AND slot_number < ? ORDER BY slot_number DESC LIMIT 1`,
		nextEpochFirstSlot,
	)
	var r scanRow
	err := row.Scan(&r.blockNumber, &r.slotNumber, &r.hash, &r.prevHash, &r.poolID, &r.leaderVRF, &r.blockVRF, &r.etaV, &r.nodeVKey, &r.orphaned)
	if err == sql.ErrNoRows {
		return codec.Header{}, false, nil
	}
	if err != nil {
		return codec.Header{}, false, utils.Wrap(err, "store: query find epoch last block")
	}
	h, err := rowToHeader(r.blockNumber, r.slotNumber, r.hash, r.prevHash, r.poolID, r.leaderVRF, r.blockVRF, r.etaV, r.nodeVKey, r.orphaned)
	return h, true, err
}

// IntersectPoints returns up to 33 (slot, hash) points at logarithmically
// spaced block-height offsets from the tip (0, 1, 2, 4, 8, 16, ...),
// capped by chain length, for opening or resuming chain-sync.
func (s *Store) IntersectPoints(ctx context.Context) ([]codec.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT block_number, slot_number, hash FROM block WHERE orphaned = 0 ORDER BY block_number DESC`,
	)
	if err != nil {
		return nil, utils.Wrap(err, "store: query chain for intersect points")
	}
	defer rows.Close()

	type row struct {
		blockNumber uint64
		slotNumber  uint64
		hash        []byte
	}
	var chain []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.blockNumber, &r.slotNumber, &r.hash); err != nil {
			return nil, utils.Wrap(err, "store: scan intersect candidate")
		}
		chain = append(chain, r)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.Wrap(err, "store: iterate intersect candidates")
	}
	if len(chain) == 0 {
		return nil, nil
	}

	offsets := []int{0, 1, 2}
	for step := 4; step < len(chain) && len(offsets) < 33; step *= 2 {
		offsets = append(offsets, step)
	}
	var points []codec.Point
	seen := map[int]bool{}
	for _, off := range offsets {
		if off >= len(chain) || seen[off] || len(points) >= 33 {
			continue
		}
		seen[off] = true
		r := chain[off]
		points = append(points, codec.Point{Slot: r.slotNumber, Hash: append([]byte(nil), r.hash...)})
	}
	return points, nil
}
