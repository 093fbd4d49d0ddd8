// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package handshake

import (
	"fmt"

	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wire"
)

// sendFromHeadset and sendToHeadset encode m with the tag appropriate to
// the union it is being sent as: the headset always speaks from_headset,
// the server always speaks to_headset. CryptoHandshake and AudioData are
// declared in both, under different tags, hence the distinct encode helpers.
func sendFromHeadset(conn *transport.ReliableConn, m wire.Message) error {
	w := wire.NewWriter(nil)
	wire.Encode(w, m)
	return conn.Send(w.Bytes())
}

func sendToHeadset(conn *transport.ReliableConn, m wire.Message) error {
	w := wire.NewWriter(nil)
	wire.EncodeToHeadset(w, m)
	return conn.Send(w.Bytes())
}

func recvMessage[T wire.Message](conn *transport.ReliableConn, decode func(*wire.Reader) (wire.Message, error)) (T, error) {
	var zero T
	frame, err := conn.Receive()
	if err != nil {
		return zero, err
	}
	msg, err := decode(wire.NewReader(frame))
	if err != nil {
		return zero, err
	}
	typed, ok := msg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T", ErrUnexpectedMessage, msg)
	}
	return typed, nil
}

// sendCryptoHandshake is called by RunServer: it sends to the headset, so
// it must use the to_headset tag for crypto_handshake.
func sendCryptoHandshake(conn *transport.ReliableConn, step byte, payload []byte) error {
	return sendToHeadset(conn, &wire.CryptoHandshake{Step: step, Payload: payload})
}

// recvCryptoHandshake is called by RunServer: it receives from the
// headset, so it decodes the from_headset union.
func recvCryptoHandshake(conn *transport.ReliableConn, wantStep byte) (*wire.CryptoHandshake, error) {
	msg, err := recvMessage[*wire.CryptoHandshake](conn, wire.DecodeFromHeadset)
	if err != nil {
		return nil, err
	}
	if msg.Step != wantStep {
		return nil, fmt.Errorf("%w: expected crypto_handshake step %d, got %d", ErrUnexpectedMessage, wantStep, msg.Step)
	}
	return msg, nil
}

// sendHeadsetCryptoHandshake is called by RunHeadset: it sends to the
// server, using the from_headset tag.
func sendHeadsetCryptoHandshake(conn *transport.ReliableConn, step byte, payload []byte) error {
	return sendFromHeadset(conn, &wire.CryptoHandshake{Step: step, Payload: payload})
}

// recvHeadsetCryptoHandshake is called by RunHeadset: it receives from the
// server, so it decodes the to_headset union.
func recvHeadsetCryptoHandshake(conn *transport.ReliableConn, wantStep byte) (*wire.CryptoHandshake, error) {
	msg, err := recvMessage[*wire.CryptoHandshake](conn, wire.DecodeToHeadset)
	if err != nil {
		return nil, err
	}
	if msg.Step != wantStep {
		return nil, fmt.Errorf("%w: expected crypto_handshake step %d, got %d", ErrUnexpectedMessage, wantStep, msg.Step)
	}
	return msg, nil
}
