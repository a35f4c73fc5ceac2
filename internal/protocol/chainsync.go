package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
)

// ChainSyncStore is the narrow interface the chain-sync client drives; C5
// (internal/store) satisfies it. Keeping this interface here (rather than
// importing internal/store directly) avoids a protocol<->store import
// cycle, since the store package has no reason to know about the wire
// protocol.
type ChainSyncStore interface {
	// IntersectPoints returns the logarithmically-spaced points used to
	// open or resume chain-sync, per spec.md §4.4/§4.5.
	IntersectPoints(ctx context.Context) ([]codec.Point, error)
	// ResetCursor is called after an IntersectNotFound response; the
	// client retries from genesis immediately afterward.
	ResetCursor(ctx context.Context) error
	// Append persists a newly rolled-forward header.
	Append(ctx context.Context, h codec.Header) error
	// Rollback marks all headers with slot > slotLimit as orphaned.
	Rollback(ctx context.Context, slotLimit uint64) error
	// TipBlockNumber returns the local tip's block number, or ok=false if
	// the store is empty.
	TipBlockNumber(ctx context.Context) (number uint64, ok bool)
}

// ChainSyncConfig configures a ChainSyncClient.
type ChainSyncConfig struct {
	// OneShot terminates Run once the local tip equals the server's
	// advertised tip, instead of running forever (spec.md §4.4).
	OneShot      bool
	ReadTimeout  time.Duration
	Logger       *logrus.Logger
}

// ChainSyncClient drives the chain-sync mini-protocol state machine
// described in spec.md §4.4 over channel 2 of a Muxer, applying the
// resulting events to a ChainSyncStore.
type ChainSyncClient struct {
	mux *mux.Muxer
	dec *cbor.Decoder
	store ChainSyncStore
	cfg   ChainSyncConfig
}

// NewChainSyncClient constructs a client for m, applying events to store.
func NewChainSyncClient(m *mux.Muxer, store ChainSyncStore, cfg ChainSyncConfig) *ChainSyncClient {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &ChainSyncClient{
		mux:   m,
		dec:   cbor.NewDecoder(m.Reader(mux.ChannelChainSync)),
		store: store,
		cfg:   cfg,
	}
}

func (c *ChainSyncClient) send(payload []byte, err error) error {
	if err != nil {
		return fmt.Errorf("protocol: encode chain-sync message: %w", err)
	}
	return c.mux.Send(mux.ChannelChainSync, payload)
}

func (c *ChainSyncClient) recv() (codec.ChainSyncMessage, error) {
	var raw cbor.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		return codec.ChainSyncMessage{}, fmt.Errorf("protocol: read chain-sync message: %w", err)
	}
	return codec.DecodeChainSyncMessage(raw)
}

// Run executes the chain-sync loop described in spec.md §4.4 until ctx is
// cancelled, an unrecoverable protocol error occurs, or (in one-shot mode)
// the local tip catches up to the server's advertised tip.
func (c *ChainSyncClient) Run(ctx context.Context) error {
	tip, err := c.openIntersect(ctx)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.cfg.OneShot {
			if local, ok := c.store.TipBlockNumber(ctx); ok && local == tip.BlockNumber {
				return nil
			}
		}
		if err := c.send(codec.EncodeRequestNext()); err != nil {
			return fmt.Errorf("protocol: request next: %w", err)
		}
		msg, err := c.recv()
		if err != nil {
			return err
		}
		switch msg.Kind {
		case codec.KindAwaitReply:
			continue
		case codec.KindRollForward:
			h, err := codec.DecodeHeader(msg.HeaderCBOR)
			if err != nil {
				return err
			}
			if err := c.store.Append(ctx, h); err != nil {
				return fmt.Errorf("protocol: store append: %w", err)
			}
			tip = msg.Tip
			c.cfg.Logger.WithFields(logrus.Fields{
				"slot": h.SlotNumber, "block": h.BlockNumber, "era": h.Era.String(),
			}).Debug("roll forward")
		case codec.KindRollBackward:
			if err := c.store.Rollback(ctx, msg.Point.Slot); err != nil {
				return fmt.Errorf("protocol: store rollback: %w", err)
			}
			tip = msg.Tip
			c.cfg.Logger.WithField("slot", msg.Point.Slot).Info("roll backward")
		default:
			return fmt.Errorf("protocol: unexpected chain-sync message kind %d during request/reply", msg.Kind)
		}
	}
}

// openIntersect implements step 1–3 of spec.md §4.4: send FindIntersect
// with the store's logarithmic points, retry from genesis on
// IntersectNotFound, and return the server's advertised tip.
func (c *ChainSyncClient) openIntersect(ctx context.Context) (codec.Tip, error) {
	points, err := c.store.IntersectPoints(ctx)
	if err != nil {
		return codec.Tip{}, fmt.Errorf("protocol: intersect points: %w", err)
	}
	if err := c.send(codec.EncodeFindIntersect(points)); err != nil {
		return codec.Tip{}, err
	}
	msg, err := c.recv()
	if err != nil {
		return codec.Tip{}, err
	}
	if msg.Kind == codec.KindIntersectNotFound {
		if err := c.store.ResetCursor(ctx); err != nil {
			return codec.Tip{}, fmt.Errorf("protocol: reset cursor: %w", err)
		}
		if err := c.send(codec.EncodeFindIntersect([]codec.Point{{}})); err != nil {
			return codec.Tip{}, err
		}
		msg, err = c.recv()
		if err != nil {
			return codec.Tip{}, err
		}
	}
	if msg.Kind != codec.KindIntersectFound {
		return codec.Tip{}, fmt.Errorf("protocol: unexpected response to FindIntersect: kind %d", msg.Kind)
	}
	return msg.Tip, nil
}
