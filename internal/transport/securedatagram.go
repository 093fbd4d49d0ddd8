// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package transport

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

// DatagramCounterSize is the 8-byte little-endian counter spec.md section 6
// prefixes onto every post-handshake stream-channel payload; it doubles as
// the low half of the per-datagram cipher IV and as ReplayWindow's input.
const DatagramCounterSize = 8

// SecureDatagramConn wraps a DatagramConn with the encrypted, replay-guarded
// framing spec.md section 6 describes for the steady-state stream channel:
// "payloads are preceded by an 8-byte little-endian monotonically increasing
// datagram counter used as the low half of the cipher IV; receivers track a
// sliding window (size 64) and drop out-of-window duplicates/replays."
// Unlike CipherConn, which decorates net.Conn transparently, the datagram
// channel is message-oriented and needs the counter threaded explicitly
// through both the cipher IV and the replay window, so this wraps
// DatagramConn directly instead of implementing net.PacketConn.
type SecureDatagramConn struct {
	*DatagramConn
	writeCipher *wivrncrypto.DatagramCipher
	readCipher  *wivrncrypto.DatagramCipher
	replay      ReplayWindow
	sendCounter atomic.Uint64
}

// NewSecureDatagramConn wraps conn, encrypting outbound payloads with
// writeCipher and decrypting/replay-checking inbound ones with readCipher.
// The two must be keyed for opposite directions of the session's derived
// stream secrets (stream_iv_header_to_headset / _from_headset), the same
// way CipherConn's readCipher/writeCipher pair must be for the control
// channel.
func NewSecureDatagramConn(conn *DatagramConn, writeCipher, readCipher *wivrncrypto.DatagramCipher) *SecureDatagramConn {
	return &SecureDatagramConn{DatagramConn: conn, writeCipher: writeCipher, readCipher: readCipher}
}

// SendSecure encrypts payload under the next outbound counter and sends it
// as one datagram on the connected socket, with the counter itself carried
// as a plaintext prefix (spec.md section 6).
func (c *SecureDatagramConn) SendSecure(payload []byte) error {
	counter := c.sendCounter.Add(1) - 1
	buf := make([]byte, DatagramCounterSize+len(payload))
	binary.LittleEndian.PutUint64(buf[:DatagramCounterSize], counter)
	copy(buf[DatagramCounterSize:], payload)
	c.writeCipher.XORKeyStream(counter, buf[DatagramCounterSize:])
	return c.DatagramConn.SendTo(buf)
}

// DecodeSecure strips the counter prefix from a received datagram, rejects
// it via the replay window if it is a duplicate or too far behind the
// highest counter seen, and decrypts the remainder in place.
func (c *SecureDatagramConn) DecodeSecure(raw []byte) ([]byte, error) {
	if len(raw) < DatagramCounterSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortDatagram, len(raw))
	}
	counter := binary.LittleEndian.Uint64(raw[:DatagramCounterSize])
	if !c.replay.Accept(counter) {
		return nil, ErrReplayed
	}
	payload := raw[DatagramCounterSize:]
	c.readCipher.XORKeyStream(counter, payload)
	return payload, nil
}
