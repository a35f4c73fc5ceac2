package store

import (
	"context"

	"github.com/cardano-community/cncli/pkg/utils"
)

// ScheduledSlot is one row of the auxiliary slots table: a slot at which
// C7 computed that poolID leads under the given consensus variant.
type ScheduledSlot struct {
	Epoch      uint64
	SlotNumber uint64
	PoolID     [28]byte
	Consensus  string
}

// RecordSlots persists a computed leader schedule for auditability
// (spec.md §6's "small slots table"), replacing any prior schedule for the
// same epoch.
func (s *Store) RecordSlots(ctx context.Context, epoch uint64, slots []ScheduledSlot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.Wrap(err, "store: begin record-slots transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE epoch = ?`, epoch); err != nil {
		return utils.Wrap(err, "store: clear prior schedule")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO slots (epoch, slot_number, pool_id, consensus) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return utils.Wrap(err, "store: prepare slot insert")
	}
	defer stmt.Close()

	for _, sl := range slots {
		if _, err := stmt.ExecContext(ctx, sl.Epoch, sl.SlotNumber, sl.PoolID[:], sl.Consensus); err != nil {
			return utils.Wrap(err, "store: insert scheduled slot")
		}
	}
	return utils.Wrap(tx.Commit(), "store: commit record-slots transaction")
}

// ScheduleForEpoch returns the persisted schedule for epoch, if any.
func (s *Store) ScheduleForEpoch(ctx context.Context, epoch uint64) ([]ScheduledSlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT epoch, slot_number, pool_id, consensus FROM slots WHERE epoch = ? ORDER BY slot_number ASC`, epoch,
	)
	if err != nil {
		return nil, utils.Wrap(err, "store: query schedule")
	}
	defer rows.Close()

	var out []ScheduledSlot
	for rows.Next() {
		var sl ScheduledSlot
		var poolID []byte
		if err := rows.Scan(&sl.Epoch, &sl.SlotNumber, &poolID, &sl.Consensus); err != nil {
			return nil, utils.Wrap(err, "store: scan scheduled slot")
		}
		if len(poolID) == 28 {
			copy(sl.PoolID[:], poolID)
		}
		out = append(out, sl)
	}
	return out, utils.Wrap(rows.Err(), "store: iterate schedule")
}
