// Package mux implements C3: the bit-exact length-prefixed multiplexer
// frame format that carries every mini-protocol's messages over a single
// TCP connection (spec.md §4.3).
package mux

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPayloadSize is the frame payload ceiling; larger mini-protocol
// messages are fragmented across multiple frames on the same channel and
// reassembled by the receiver.
const MaxPayloadSize = 1 << 14

// headerSize is the fixed 8-byte frame header: 4 bytes transmission time,
// 2 bytes mode+channel, 2 bytes payload length.
const headerSize = 8

// modeResponderBit, when set on a frame, marks it as sent by the protocol
// responder (server) rather than the initiator (client).
const modeResponderBit = 0x8000

// Frame is one bit-exact multiplexer frame, per spec.md §4.3.
type Frame struct {
	TransmissionTimeMS uint32
	Responder          bool
	ChannelID          uint16 // 15 bits
	Payload            []byte
}

// WriteFrame serializes f to w.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return fmt.Errorf("mux: payload of %d bytes exceeds frame ceiling of %d", len(f.Payload), MaxPayloadSize)
	}
	if f.ChannelID&modeResponderBit != 0 {
		return fmt.Errorf("mux: channel id %d does not fit in 15 bits", f.ChannelID)
	}
	buf := make([]byte, headerSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], f.TransmissionTimeMS)
	modeChan := f.ChannelID
	if f.Responder {
		modeChan |= modeResponderBit
	}
	binary.BigEndian.PutUint16(buf[4:6], modeChan)
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(f.Payload)))
	copy(buf[8:], f.Payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame deserializes one frame from r, blocking until the full frame
// (header + payload) has arrived.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	modeChan := binary.BigEndian.Uint16(header[4:6])
	length := binary.BigEndian.Uint16(header[6:8])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	return Frame{
		TransmissionTimeMS: binary.BigEndian.Uint32(header[0:4]),
		Responder:          modeChan&modeResponderBit != 0,
		ChannelID:          modeChan &^ modeResponderBit,
		Payload:            payload,
	}, nil
}

// Fragment splits payload into frames of at most MaxPayloadSize bytes, all
// tagged with channel/responder/timestamp as given.
func Fragment(channel uint16, responder bool, transmissionTimeMS uint32, payload []byte) []Frame {
	if len(payload) == 0 {
		return []Frame{{TransmissionTimeMS: transmissionTimeMS, Responder: responder, ChannelID: channel}}
	}
	var frames []Frame
	for off := 0; off < len(payload); off += MaxPayloadSize {
		end := off + MaxPayloadSize
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, Frame{
			TransmissionTimeMS: transmissionTimeMS,
			Responder:          responder,
			ChannelID:          channel,
			Payload:            payload[off:end],
		})
	}
	return frames
}

// Channel IDs recognised by this client, per spec.md §4.3.
const (
	ChannelHandshake  uint16 = 0
	ChannelChainSync  uint16 = 2
	ChannelKeepAlive  uint16 = 8
)
