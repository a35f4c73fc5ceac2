// Package store implements C5: the SQLite-backed relational chain store.
// A single writer (the chain-sync task) appends and rolls back header rows
// inside transactions; readers query through the same single-connection
// pool, so reads and writes are serialised rather than run concurrently.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/pkg/utils"
)

// schemaVersion is the current forward-only migration version, tracked in
// the meta table per spec.md §6.
const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS block (
	block_number INTEGER PRIMARY KEY,
	slot_number  INTEGER NOT NULL,
	hash         BLOB NOT NULL,
	prev_hash    BLOB,
	pool_id      BLOB,
	leader_vrf   BLOB,
	block_vrf    BLOB,
	eta_v        BLOB,
	node_vkey    BLOB,
	orphaned     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_block_slot ON block(slot_number);
CREATE INDEX IF NOT EXISTS idx_block_hash ON block(hash);
CREATE INDEX IF NOT EXISTS idx_block_orphaned_slot ON block(orphaned, slot_number);

CREATE TABLE IF NOT EXISTS slots (
	epoch       INTEGER NOT NULL,
	slot_number INTEGER NOT NULL,
	pool_id     BLOB NOT NULL,
	consensus   TEXT NOT NULL,
	PRIMARY KEY (epoch, slot_number)
);
`

// Store is the SQLite-backed chain store. It holds one write connection
// (serialised internally by database/sql) used by the chain-sync task, and
// serves read-only queries over the same pool.
type Store struct {
	db *sql.DB
	rb rollbackState
}

// Open opens (creating if absent) the SQLite database at path and applies
// any pending schema migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=off")
	if err != nil {
		return nil, utils.Wrap(err, "store: open database")
	}
	// The chain-sync task is the sole writer; serialise writers at the
	// connection-pool level so SQLITE_BUSY never surfaces as an error.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return utils.Wrap(err, "store: apply schema")
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta`).Scan(&count); err != nil {
		return utils.Wrap(err, "store: read meta")
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO meta(version) VALUES (?)`, schemaVersion); err != nil {
			return utils.Wrap(err, "store: seed meta")
		}
		return nil
	}
	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM meta LIMIT 1`).Scan(&version); err != nil {
		return utils.Wrap(err, "store: read schema version")
	}
	if version > schemaVersion {
		return fmt.Errorf("store: database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	// No migrations beyond v1 exist yet; forward-only migrations would be
	// applied here in a switch on version, each bumping meta.version.
	return nil
}

// rowToHeader hydrates a codec.Header from a scanned block row. Optional
// BLOB columns arrive as nil when absent.
func rowToHeader(blockNumber, slotNumber uint64, hash, prevHash, poolID, leaderVRF, blockVRF, etaV, nodeVKey []byte, orphaned bool) (codec.Header, error) {
	h := codec.Header{
		BlockNumber: blockNumber,
		SlotNumber:  slotNumber,
	}
	if len(hash) != 32 {
		return codec.Header{}, fmt.Errorf("store: corrupt row: hash has %d bytes, want 32", len(hash))
	}
	copy(h.Hash[:], hash)
	if prevHash != nil {
		if len(prevHash) != 32 {
			return codec.Header{}, fmt.Errorf("store: corrupt row: prev_hash has %d bytes, want 32", len(prevHash))
		}
		var p [32]byte
		copy(p[:], prevHash)
		h.PrevHash = &p
	}
	if poolID != nil {
		if len(poolID) != 28 {
			return codec.Header{}, fmt.Errorf("store: corrupt row: pool_id has %d bytes, want 28", len(poolID))
		}
		var p [28]byte
		copy(p[:], poolID)
		h.PoolID = &p
	}
	if leaderVRF != nil {
		if len(leaderVRF) != 64 {
			return codec.Header{}, fmt.Errorf("store: corrupt row: leader_vrf has %d bytes, want 64", len(leaderVRF))
		}
		var v [64]byte
		copy(v[:], leaderVRF)
		h.LeaderVRF = &v
	}
	if blockVRF != nil {
		if len(blockVRF) != 64 {
			return codec.Header{}, fmt.Errorf("store: corrupt row: block_vrf has %d bytes, want 64", len(blockVRF))
		}
		var v [64]byte
		copy(v[:], blockVRF)
		h.BlockVRF = &v
	}
	if etaV != nil {
		if len(etaV) != 32 {
			return codec.Header{}, fmt.Errorf("store: corrupt row: eta_v has %d bytes, want 32", len(etaV))
		}
		var v [32]byte
		copy(v[:], etaV)
		h.EtaV = &v
	}
	if nodeVKey != nil {
		if len(nodeVKey) != 32 {
			return codec.Header{}, fmt.Errorf("store: corrupt row: node_vkey has %d bytes, want 32", len(nodeVKey))
		}
		var v [32]byte
		copy(v[:], nodeVKey)
		h.NodeVKey = &v
	}
	_ = orphaned // exposed via dedicated query results, not carried on Header
	return h, nil
}

func optBytes(p *[32]byte) []byte {
	if p == nil {
		return nil
	}
	return p[:]
}

func optBytes28(p *[28]byte) []byte {
	if p == nil {
		return nil
	}
	return p[:]
}

func optBytes64(p *[64]byte) []byte {
	if p == nil {
		return nil
	}
	return p[:]
}
