package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/pkg/utils"
)

// rollbackState tracks, per Store, whether the most recent mutation was a
// Rollback whose continuation has not yet been appended. It gates the one
// case spec.md §4.5 calls out: a same-slot incumbent is only orphaned in
// favour of a new arrival when that arrival is the roll-forward
// continuing a just-applied rollback, never on an unrelated append.
type rollbackState struct {
	mu      sync.Mutex
	pending bool
}

// Append inserts h as the canonical (non-orphaned) row at its slot. If the
// store just processed a Rollback and a non-orphaned row already occupies
// h's slot, that incumbent is marked orphaned first.
func (s *Store) Append(ctx context.Context, h codec.Header) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.Wrap(err, "store: begin append transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	s.rb.mu.Lock()
	continuesRollback := s.rb.pending
	s.rb.pending = false
	s.rb.mu.Unlock()

	if continuesRollback {
		if _, err := tx.ExecContext(ctx,
			`UPDATE block SET orphaned = 1 WHERE slot_number = ? AND orphaned = 0`,
			h.SlotNumber,
		); err != nil {
			return utils.Wrap(err, "store: orphan incumbent at slot")
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO block
			(block_number, slot_number, hash, prev_hash, pool_id, leader_vrf, block_vrf, eta_v, node_vkey, orphaned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(block_number) DO UPDATE SET
			slot_number = excluded.slot_number,
			hash = excluded.hash,
			prev_hash = excluded.prev_hash,
			pool_id = excluded.pool_id,
			leader_vrf = excluded.leader_vrf,
			block_vrf = excluded.block_vrf,
			eta_v = excluded.eta_v,
			node_vkey = excluded.node_vkey,
			orphaned = 0
	`,
		h.BlockNumber, h.SlotNumber, h.Hash[:], optBytes(h.PrevHash),
		optBytes28(h.PoolID), optBytes64(h.LeaderVRF), optBytes64(h.BlockVRF), optBytes(h.EtaV), optBytes(h.NodeVKey),
	)
	if err != nil {
		return utils.Wrap(err, "store: insert block")
	}

	return utils.Wrap(tx.Commit(), "store: commit append transaction")
}

// Rollback marks every non-orphaned row with slot_number > slotLimit as
// orphaned. It is idempotent: re-running it at the same or a higher
// slotLimit touches no further rows.
func (s *Store) Rollback(ctx context.Context, slotLimit uint64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE block SET orphaned = 1 WHERE slot_number > ? AND orphaned = 0`,
		slotLimit,
	)
	if err != nil {
		return utils.Wrap(err, "store: rollback")
	}
	s.rb.mu.Lock()
	s.rb.pending = true
	s.rb.mu.Unlock()
	return nil
}

// ResetCursor clears any in-progress rollback continuation tracking; it is
// called when chain-sync abandons its local tip entirely and restarts
// intersection from genesis (spec.md §4.4).
func (s *Store) ResetCursor(ctx context.Context) error {
	s.rb.mu.Lock()
	s.rb.pending = false
	s.rb.mu.Unlock()
	return nil
}

// TipBlockNumber returns the highest block_number among non-orphaned rows.
func (s *Store) TipBlockNumber(ctx context.Context) (uint64, bool) {
	var n uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT block_number FROM block WHERE orphaned = 0 ORDER BY block_number DESC LIMIT 1`,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return n, true
}
