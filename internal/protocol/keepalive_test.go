package protocol

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/mux"
)

// pairedMuxers returns two connected, started Muxers over an in-memory
// net.Pipe, one for the client under test and one standing in for the peer.
func pairedMuxers(t *testing.T, ctx context.Context) (client, peer *mux.Muxer) {
	t.Helper()
	c1, c2 := net.Pipe()
	client = mux.New(c1, false)
	peer = mux.New(c2, true)
	client.Start(ctx)
	peer.Start(ctx)
	t.Cleanup(func() { client.Close(); peer.Close() })
	return client, peer
}

func TestKeepAlive_EchoesCookie(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, peer := pairedMuxers(t, ctx)

	// Peer echoes every ping cookie back as a pong.
	go func() {
		dec := cbor.NewDecoder(peer.Reader(mux.ChannelKeepAlive))
		for {
			var raw cbor.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return
			}
			var msg []cbor.RawMessage
			if err := cbor.Unmarshal(raw, &msg); err != nil || len(msg) < 2 {
				return
			}
			var cookie uint16
			_ = cbor.Unmarshal(msg[1], &cookie)
			resp, _ := codec.EncodeKeepAliveResponse(cookie)
			_ = peer.Send(mux.ChannelKeepAlive, resp)
		}
	}()

	ka := NewKeepAliveClient(client, 20*time.Millisecond)
	runCtx, runCancel := context.WithTimeout(ctx, 120*time.Millisecond)
	defer runCancel()
	err := ka.Run(runCtx)
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestKeepAlive_TimesOutWhenPeerSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, _ := pairedMuxers(t, ctx)

	ka := NewKeepAliveClient(client, 10*time.Millisecond)
	err := ka.Run(context.Background())
	require.Equal(t, ErrKeepAliveTimeout, err)
}
