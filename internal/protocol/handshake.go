// Package protocol implements C4: the handshake, chain-sync and keep-alive
// mini-protocol clients that run over an internal/mux Muxer's channels.
package protocol

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
)

// ErrVersionMismatch is returned when the peer refuses the handshake,
// typically due to a network-magic mismatch (spec.md §8 scenario 5).
type ErrVersionMismatch struct {
	Reason string
}

func (e *ErrVersionMismatch) Error() string {
	return fmt.Sprintf("version data mismatch: %s", e.Reason)
}

// Handshake runs the single request/response exchange on channel 0,
// proposing versions and returning the negotiated result. It blocks for at
// most timeout.
func Handshake(m *mux.Muxer, versions map[uint16]codec.VersionParams, timeout time.Duration) (codec.HandshakeResult, error) {
	payload, err := codec.EncodeProposeVersions(versions)
	if err != nil {
		return codec.HandshakeResult{}, fmt.Errorf("protocol: encode handshake proposal: %w", err)
	}
	if err := m.Send(mux.ChannelHandshake, payload); err != nil {
		return codec.HandshakeResult{}, fmt.Errorf("protocol: send handshake proposal: %w", err)
	}

	type result struct {
		res codec.HandshakeResult
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dec := cbor.NewDecoder(m.Reader(mux.ChannelHandshake))
		var raw cbor.RawMessage
		if err := dec.Decode(&raw); err != nil {
			ch <- result{err: fmt.Errorf("protocol: read handshake response: %w", err)}
			return
		}
		res, err := codec.DecodeHandshakeResponse(raw)
		ch <- result{res: res, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return codec.HandshakeResult{}, r.err
		}
		if !r.res.Accepted {
			return r.res, &ErrVersionMismatch{Reason: r.res.RefuseReason}
		}
		return r.res, nil
	case <-time.After(timeout):
		return codec.HandshakeResult{}, fmt.Errorf("protocol: handshake timed out after %s", timeout)
	}
}
