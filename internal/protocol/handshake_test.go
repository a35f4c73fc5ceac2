package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
)

func TestHandshake_AcceptsNegotiatedVersion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, peer := pairedMuxers(t, ctx)

	go func() {
		dec := cbor.NewDecoder(peer.Reader(mux.ChannelHandshake))
		var raw cbor.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return
		}
		resp, _ := codec.EncodeAcceptVersion(13, codec.VersionParams{NetworkMagic: 764824073, Diffusion: true})
		_ = peer.Send(mux.ChannelHandshake, resp)
	}()

	res, err := Handshake(client, map[uint16]codec.VersionParams{13: {NetworkMagic: 764824073, Diffusion: true}}, time.Second)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, uint16(13), res.Version)
}

func TestHandshake_RefusalReturnsVersionMismatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, peer := pairedMuxers(t, ctx)

	go func() {
		dec := cbor.NewDecoder(peer.Reader(mux.ChannelHandshake))
		var raw cbor.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return
		}
		resp, _ := codec.EncodeRefuse("network magic mismatch")
		_ = peer.Send(mux.ChannelHandshake, resp)
	}()

	_, err := Handshake(client, map[uint16]codec.VersionParams{13: {NetworkMagic: 1}}, time.Second)
	require.Error(t, err)

	var mismatch *ErrVersionMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "network magic mismatch", mismatch.Reason)
}

func TestHandshake_TimesOutWhenPeerSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, _ := pairedMuxers(t, ctx)

	_, err := Handshake(client, map[uint16]codec.VersionParams{13: {}}, 30*time.Millisecond)
	require.Error(t, err)
}
