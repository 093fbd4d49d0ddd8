// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

const lengthPrefixSize = 2

// ReliableConn is the length-prefixed control channel: a frame is a u16
// little-endian length followed by that many payload bytes (spec.md
// section 3, "Entity: Wire-frame"). Writes are serialized by a mutex and
// use net.Buffers so the prefix and payload reach the kernel in a single
// scatter-gather syscall, mirroring the original's single-write guarantee.
type ReliableConn struct {
	conn net.Conn

	writeMu sync.Mutex

	readMu sync.Mutex
	rbuf   bytes.Buffer
	scratch [4096]byte
}

// NewReliableConn wraps an already-connected net.Conn (TCP or otherwise
// stream-oriented).
func NewReliableConn(conn net.Conn) *ReliableConn {
	return &ReliableConn{conn: conn}
}

// Send writes one framed message, retrying partial writes from the unsent
// offset. The prefix and payload are sent as a single net.Buffers write
// when the underlying conn supports it (e.g. *net.TCPConn).
func (c *ReliableConn) Send(payload []byte) error {
	if len(payload) == 0 {
		return ErrFramingViolation
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var prefix [lengthPrefixSize]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(payload)))

	bufs := net.Buffers{prefix[:], payload}
	if _, err := bufs.WriteTo(c.conn); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return nil
}

// Receive blocks until one full frame is available and returns its payload.
// Reads are non-blocking in the sense described by spec.md: a message is
// yielded only once 2+length bytes have arrived, with any remainder kept
// for the next call -- here implemented with a growable internal buffer
// fed by blocking net.Conn.Read calls, since Go's net.Conn has no
// nonblocking-poll primitive exposed to user code.
func (c *ReliableConn) Receive() ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		if msg, ok, err := c.tryExtractFrame(); err != nil {
			return nil, err
		} else if ok {
			return msg, nil
		}

		n, err := c.conn.Read(c.scratch[:])
		if n > 0 {
			c.rbuf.Write(c.scratch[:n])
		}
		if err != nil {
			if err == io.EOF && n == 0 {
				return nil, ErrConnectionLost
			}
			if n == 0 {
				return nil, fmt.Errorf("%w: %w", ErrConnectionLost, err)
			}
		}
	}
}

func (c *ReliableConn) tryExtractFrame() (msg []byte, ok bool, err error) {
	buf := c.rbuf.Bytes()
	if len(buf) < lengthPrefixSize {
		return nil, false, nil
	}
	length := binary.LittleEndian.Uint16(buf[:lengthPrefixSize])
	if length == 0 {
		return nil, false, ErrFramingViolation
	}
	total := lengthPrefixSize + int(length)
	if len(buf) < total {
		return nil, false, nil
	}
	msg = make([]byte, length)
	copy(msg, buf[lengthPrefixSize:total])

	remainder := make([]byte, len(buf)-total)
	copy(remainder, buf[total:])
	c.rbuf.Reset()
	c.rbuf.Write(remainder)

	return msg, true, nil
}

// Close closes the underlying connection.
func (c *ReliableConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address of the underlying connection.
func (c *ReliableConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
