// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrncrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControlCipher_RoundTrips(t *testing.T) {
	key := bytes.Repeat([]byte{0xAA}, CipherKeySize)
	iv := bytes.Repeat([]byte{0xBB}, ControlIVSize)

	enc, err := NewControlCipher(key, iv)
	require.NoError(t, err)
	dec, err := NewControlCipher(key, iv)
	require.NoError(t, err)

	plaintext := []byte("control channel payload bytes")
	buf := append([]byte(nil), plaintext...)
	enc.XORKeyStream(buf)
	require.NotEqual(t, plaintext, buf)
	dec.XORKeyStream(buf)
	require.Equal(t, plaintext, buf)
}

func TestControlCipher_RejectsWrongSizes(t *testing.T) {
	_, err := NewControlCipher(make([]byte, 8), make([]byte, ControlIVSize))
	require.ErrorIs(t, err, ErrCrypto)

	_, err = NewControlCipher(make([]byte, CipherKeySize), make([]byte, 4))
	require.ErrorIs(t, err, ErrCrypto)
}

func TestDatagramCipher_RoundTripsPerCounter(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, CipherKeySize)
	prefix := bytes.Repeat([]byte{0x22}, DatagramIVPrefixSize)

	enc, err := NewDatagramCipher(key, prefix)
	require.NoError(t, err)
	dec, err := NewDatagramCipher(key, prefix)
	require.NoError(t, err)

	for _, counter := range []uint64{0, 1, 2, 1000, 1 << 40} {
		plaintext := []byte("shard payload for a given datagram counter value")
		buf := append([]byte(nil), plaintext...)
		enc.XORKeyStream(counter, buf)
		require.NotEqual(t, plaintext, buf)
		dec.XORKeyStream(counter, buf)
		require.Equal(t, plaintext, buf)
	}
}

func TestDatagramCipher_DifferentCountersProduceDifferentKeystream(t *testing.T) {
	key := bytes.Repeat([]byte{0x33}, CipherKeySize)
	prefix := bytes.Repeat([]byte{0x44}, DatagramIVPrefixSize)
	c, err := NewDatagramCipher(key, prefix)
	require.NoError(t, err)

	plaintext := bytes.Repeat([]byte{0x00}, 32)

	a := append([]byte(nil), plaintext...)
	c.XORKeyStream(1, a)

	b := append([]byte(nil), plaintext...)
	c.XORKeyStream(2, b)

	require.NotEqual(t, a, b)
}
