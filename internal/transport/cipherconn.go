// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package transport

import (
	"net"

	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

// CipherConn wraps an already-connected net.Conn with independent
// AES-CTR keystreams for each direction, so ReliableConn's length-prefix
// framing is encrypted in place before it reaches the socket. This is
// the "transition to encrypted steady state" spec.md section 4.D calls
// for once the handshake derives session secrets: everything written or
// read through a CipherConn-wrapped ReliableConn after that point is the
// control channel's ciphertext, not its framing.
type CipherConn struct {
	net.Conn
	readCipher  *wivrncrypto.ControlCipher
	writeCipher *wivrncrypto.ControlCipher
}

// NewCipherConn wraps conn, decrypting bytes as they are read and
// encrypting bytes as they are written. readCipher and writeCipher must
// be keyed for opposite directions (control_iv_from_headset and
// control_iv_to_headset respectively, from the session's derived
// secrets) or the two peers' streams desynchronize silently.
func NewCipherConn(conn net.Conn, readCipher, writeCipher *wivrncrypto.ControlCipher) *CipherConn {
	return &CipherConn{Conn: conn, readCipher: readCipher, writeCipher: writeCipher}
}

func (c *CipherConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.readCipher.XORKeyStream(p[:n])
	}
	return n, err
}

func (c *CipherConn) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	c.writeCipher.XORKeyStream(buf)
	return c.Conn.Write(buf)
}
