package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Point identifies a position on chain by (slot, hash); the zero value
// represents the origin (pre-genesis intersection point).
type Point struct {
	Slot uint64
	Hash []byte
}

// Tip is the peer-advertised chain tip carried alongside most chain-sync
// responses.
type Tip struct {
	Point       Point
	BlockNumber uint64
}

// --- Handshake (channel 0) --------------------------------------------------

// VersionParams are the per-version parameters proposed/accepted during
// handshake, per spec.md §4.4. Older negotiated versions omit
// PeerSharing/Query; Encode always emits them and Decode tolerates their
// absence, matching real heterogeneous-version peers.
type VersionParams struct {
	NetworkMagic uint32
	Diffusion    bool // true = initiator-and-responder diffusion mode
	PeerSharing  bool
	Query        bool
}

const (
	msgProposeVersions = 0
	msgAcceptVersion   = 1
	msgRefuse          = 2
)

// EncodeProposeVersions encodes the client's version proposal map.
func EncodeProposeVersions(versions map[uint16]VersionParams) ([]byte, error) {
	return cbor.Marshal([]any{msgProposeVersions, versions})
}

// EncodeAcceptVersion encodes the server's chosen version and parameters.
func EncodeAcceptVersion(version uint16, params VersionParams) ([]byte, error) {
	return cbor.Marshal([]any{msgAcceptVersion, version, params})
}

// EncodeRefuse encodes a handshake refusal with a free-text reason.
func EncodeRefuse(reason string) ([]byte, error) {
	return cbor.Marshal([]any{msgRefuse, reason})
}

// HandshakeResult is the decoded outcome of a handshake response: exactly
// one of Accepted or RefuseReason is set.
type HandshakeResult struct {
	Accepted      bool
	Version       uint16
	Params        VersionParams
	RefuseReason  string
}

// DecodeHandshakeResponse decodes an accept(version, params) or
// refuse(reason) response frame.
func DecodeHandshakeResponse(raw []byte) (HandshakeResult, error) {
	var tagged []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &tagged); err != nil {
		return HandshakeResult{}, &DecodeError{Err: err}
	}
	if len(tagged) < 1 {
		return HandshakeResult{}, &DecodeError{Err: fmt.Errorf("empty handshake response")}
	}
	var kind int
	if err := cbor.Unmarshal(tagged[0], &kind); err != nil {
		return HandshakeResult{}, &DecodeError{Err: err}
	}
	switch kind {
	case msgAcceptVersion:
		var msg struct {
			_       struct{} `cbor:",toarray"`
			Kind    int
			Version uint16
			Params  VersionParams
		}
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return HandshakeResult{}, &DecodeError{Err: err}
		}
		return HandshakeResult{Accepted: true, Version: msg.Version, Params: msg.Params}, nil
	case msgRefuse:
		var msg struct {
			_      struct{} `cbor:",toarray"`
			Kind   int
			Reason string
		}
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return HandshakeResult{}, &DecodeError{Err: err}
		}
		return HandshakeResult{Accepted: false, RefuseReason: msg.Reason}, nil
	default:
		return HandshakeResult{}, &DecodeError{Err: fmt.Errorf("unexpected handshake message kind %d", kind)}
	}
}

// --- Chain-sync (channel 2) -------------------------------------------------

const (
	msgRequestNext       = 0
	msgAwaitReply        = 1
	msgRollForward       = 2
	msgRollBackward      = 3
	msgFindIntersect     = 4
	msgIntersectFound    = 5
	msgIntersectNotFound = 6
	msgDone              = 7
)

// ChainSyncMessageKind tags a decoded chain-sync message.
type ChainSyncMessageKind int

const (
	KindAwaitReply ChainSyncMessageKind = iota
	KindRollForward
	KindRollBackward
	KindIntersectFound
	KindIntersectNotFound
)

// ChainSyncMessage is the decoded result of a server response on the
// chain-sync channel. Only the fields relevant to Kind are populated.
type ChainSyncMessage struct {
	Kind       ChainSyncMessageKind
	HeaderCBOR []byte
	Point      Point
	Tip        Tip
}

// EncodeRequestNext encodes a client RequestNext message.
func EncodeRequestNext() ([]byte, error) {
	return cbor.Marshal([]any{msgRequestNext})
}

// EncodeFindIntersect encodes a client FindIntersect(points) message.
func EncodeFindIntersect(points []Point) ([]byte, error) {
	return cbor.Marshal([]any{msgFindIntersect, points})
}

// EncodeDone encodes the client's terminal Done message.
func EncodeDone() ([]byte, error) {
	return cbor.Marshal([]any{msgDone})
}

// DecodeChainSyncMessage decodes a server response on the chain-sync
// channel into a ChainSyncMessage.
func DecodeChainSyncMessage(raw []byte) (ChainSyncMessage, error) {
	var tagged []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &tagged); err != nil {
		return ChainSyncMessage{}, &DecodeError{Err: err}
	}
	if len(tagged) < 1 {
		return ChainSyncMessage{}, &DecodeError{Err: fmt.Errorf("empty chain-sync message")}
	}
	var kind int
	if err := cbor.Unmarshal(tagged[0], &kind); err != nil {
		return ChainSyncMessage{}, &DecodeError{Err: err}
	}
	switch kind {
	case msgAwaitReply:
		return ChainSyncMessage{Kind: KindAwaitReply}, nil
	case msgRollForward:
		var msg struct {
			_      struct{} `cbor:",toarray"`
			Kind   int
			Header cbor.RawMessage
			Tip    Tip
		}
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return ChainSyncMessage{}, &DecodeError{Err: err}
		}
		return ChainSyncMessage{Kind: KindRollForward, HeaderCBOR: msg.Header, Tip: msg.Tip}, nil
	case msgRollBackward:
		var msg struct {
			_     struct{} `cbor:",toarray"`
			Kind  int
			Point Point
			Tip   Tip
		}
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return ChainSyncMessage{}, &DecodeError{Err: err}
		}
		return ChainSyncMessage{Kind: KindRollBackward, Point: msg.Point, Tip: msg.Tip}, nil
	case msgIntersectFound:
		var msg struct {
			_     struct{} `cbor:",toarray"`
			Kind  int
			Point Point
			Tip   Tip
		}
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return ChainSyncMessage{}, &DecodeError{Err: err}
		}
		return ChainSyncMessage{Kind: KindIntersectFound, Point: msg.Point, Tip: msg.Tip}, nil
	case msgIntersectNotFound:
		var msg struct {
			_    struct{} `cbor:",toarray"`
			Kind int
			Tip  Tip
		}
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return ChainSyncMessage{}, &DecodeError{Err: err}
		}
		return ChainSyncMessage{Kind: KindIntersectNotFound, Tip: msg.Tip}, nil
	default:
		return ChainSyncMessage{}, &DecodeError{Err: fmt.Errorf("unexpected chain-sync message kind %d", kind)}
	}
}

// --- Keep-alive (channel 8) --------------------------------------------------

const (
	msgKeepAlive         = 0
	msgKeepAliveResponse = 1
)

// EncodeKeepAlive encodes a ping with the given cookie.
func EncodeKeepAlive(cookie uint16) ([]byte, error) {
	return cbor.Marshal([]any{msgKeepAlive, cookie})
}

// EncodeKeepAliveResponse encodes a pong echoing cookie.
func EncodeKeepAliveResponse(cookie uint16) ([]byte, error) {
	return cbor.Marshal([]any{msgKeepAliveResponse, cookie})
}

// DecodeKeepAliveResponse decodes a pong and returns its cookie.
func DecodeKeepAliveResponse(raw []byte) (uint16, error) {
	var msg struct {
		_      struct{} `cbor:",toarray"`
		Kind   int
		Cookie uint16
	}
	if err := cbor.Unmarshal(raw, &msg); err != nil {
		return 0, &DecodeError{Err: err}
	}
	if msg.Kind != msgKeepAliveResponse {
		return 0, &DecodeError{Err: fmt.Errorf("unexpected keep-alive message kind %d", msg.Kind)}
	}
	return msg.Cookie, nil
}
