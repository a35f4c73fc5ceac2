package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
)

// DefaultKeepAliveInterval is the spacing between pings absent an explicit
// override, per spec.md §4.4.
const DefaultKeepAliveInterval = 30 * time.Second

// ErrKeepAliveTimeout is returned by KeepAliveClient.Run when the peer fails to
// answer within the disconnect window (2x the ping interval).
var ErrKeepAliveTimeout = fmt.Errorf("protocol: keep-alive: peer unresponsive")

// KeepAliveClient drives the keep-alive mini-protocol on channel 8: a
// periodic ping carrying an incrementing cookie, answered by a pong
// echoing the same cookie. A single reply that fails to arrive within 2x
// the ping interval ends the session, per spec.md §4.4's "roughly 2x the
// interval" disconnect framing.
type KeepAliveClient struct {
	mux      *mux.Muxer
	dec      *cbor.Decoder
	interval time.Duration
}

// NewKeepAliveClient constructs a client pinging every interval (or
// DefaultKeepAliveInterval if interval is zero).
func NewKeepAliveClient(m *mux.Muxer, interval time.Duration) *KeepAliveClient {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	return &KeepAliveClient{
		mux:      m,
		dec:      cbor.NewDecoder(m.Reader(mux.ChannelKeepAlive)),
		interval: interval,
	}
}

// Run pings the peer every interval until ctx is cancelled or a single
// ping goes unanswered for 2x the interval, in which case it returns
// ErrKeepAliveTimeout.
func (k *KeepAliveClient) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	var cookie uint16
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cookie++
			echoed, err := k.ping(ctx, cookie)
			if err != nil {
				return err
			}
			if echoed != cookie {
				return fmt.Errorf("protocol: keep-alive: cookie mismatch: sent %d, got %d", cookie, echoed)
			}
		}
	}
}

// ping sends one ping and waits up to 2x the interval for its pong.
func (k *KeepAliveClient) ping(ctx context.Context, cookie uint16) (uint16, error) {
	payload, err := codec.EncodeKeepAlive(cookie)
	if err != nil {
		return 0, fmt.Errorf("protocol: encode keep-alive: %w", err)
	}
	if err := k.mux.Send(mux.ChannelKeepAlive, payload); err != nil {
		return 0, err
	}

	type result struct {
		cookie uint16
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		var raw cbor.RawMessage
		if err := k.dec.Decode(&raw); err != nil {
			ch <- result{err: err}
			return
		}
		c, err := codec.DecodeKeepAliveResponse(raw)
		ch <- result{cookie: c, err: err}
	}()

	select {
	case r := <-ch:
		return r.cookie, r.err
	case <-time.After(2 * k.interval):
		return 0, ErrKeepAliveTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
