// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrncrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// ControlIVSize and DatagramIVPrefixSize are from spec.md section 4.C:
// "16-byte key, 16-byte IV for the control channel and 8-byte IV prefix
// for datagrams (the remaining 8 bytes of the 128-bit counter are the
// datagram sequence number, see section 6)."
const (
	CipherKeySize        = 16
	ControlIVSize        = 16
	DatagramIVPrefixSize = 8
)

// ControlCipher wraps an AES-CTR stream keyed for one direction of the
// control channel, with a fixed 16-byte IV used as the full counter block.
// There is no AEAD tag: spec.md section 4.C calls this out explicitly as
// an "AEAD-less stream cipher" -- integrity is the reliable channel's
// concern, not this layer's.
type ControlCipher struct {
	stream cipher.Stream
}

// NewControlCipher constructs the AES-CTR stream for a control-channel
// direction from a 16-byte key and 16-byte IV.
func NewControlCipher(key, iv []byte) (*ControlCipher, error) {
	if len(key) != CipherKeySize {
		return nil, fmt.Errorf("%w: control cipher key must be %d bytes", ErrCrypto, CipherKeySize)
	}
	if len(iv) != ControlIVSize {
		return nil, fmt.Errorf("%w: control cipher IV must be %d bytes", ErrCrypto, ControlIVSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: aes key setup: %w", ErrCrypto, err)
	}
	return &ControlCipher{stream: cipher.NewCTR(block, iv)}, nil
}

// XORKeyStream encrypts or decrypts buf in place (the construction is
// symmetric), matching the original's zero-copy in-place use.
func (c *ControlCipher) XORKeyStream(buf []byte) {
	c.stream.XORKeyStream(buf, buf)
}

// DatagramCipher derives a fresh AES-CTR stream per datagram from an
// 8-byte IV prefix and the per-datagram monotonically increasing counter
// (spec.md section 6): the 128-bit CTR counter block is
// prefix[0:8] || counter[0:8], both little-endian.
type DatagramCipher struct {
	block  cipher.Block
	prefix [DatagramIVPrefixSize]byte
}

// NewDatagramCipher constructs the per-direction datagram cipher from a
// 16-byte key and 8-byte IV prefix.
func NewDatagramCipher(key []byte, ivPrefix []byte) (*DatagramCipher, error) {
	if len(key) != CipherKeySize {
		return nil, fmt.Errorf("%w: datagram cipher key must be %d bytes", ErrCrypto, CipherKeySize)
	}
	if len(ivPrefix) != DatagramIVPrefixSize {
		return nil, fmt.Errorf("%w: datagram cipher IV prefix must be %d bytes", ErrCrypto, DatagramIVPrefixSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: aes key setup: %w", ErrCrypto, err)
	}
	dc := &DatagramCipher{block: block}
	copy(dc.prefix[:], ivPrefix)
	return dc, nil
}

// XORKeyStream encrypts or decrypts buf in place using the stream keyed by
// the given datagram counter, the same counter carried as the 8-byte
// little-endian prefix on the wire (spec.md section 6).
func (c *DatagramCipher) XORKeyStream(counter uint64, buf []byte) {
	var iv [aes.BlockSize]byte
	copy(iv[0:DatagramIVPrefixSize], c.prefix[:])
	binary.LittleEndian.PutUint64(iv[DatagramIVPrefixSize:], counter)
	stream := cipher.NewCTR(c.block, iv[:])
	stream.XORKeyStream(buf, buf)
}
