// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrncrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// secretsSizeForTest is sizeof(secrets) per spec.md section 3: 16+16+16+16+8+8.
const secretsSizeForTest = 80

func TestDeriveSecrets_DeterministicForSameInputs(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, 16)
	secret := []byte("shared-dh-secret")

	a, err := DeriveSecrets("", salt, secret, secretsSizeForTest)
	require.NoError(t, err)
	b, err := DeriveSecrets("", salt, secret, secretsSizeForTest)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a, secretsSizeForTest)
}

func TestDeriveSecrets_DifferentSecretsDiverge(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, 16)

	a, err := DeriveSecrets("", salt, []byte("secret-one"), secretsSizeForTest)
	require.NoError(t, err)
	b, err := DeriveSecrets("", salt, []byte("secret-two"), secretsSizeForTest)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestDeriveSecrets_RejectsShortSalt(t *testing.T) {
	_, err := DeriveSecrets("", []byte{1, 2, 3}, []byte("secret"), secretsSizeForTest)
	require.ErrorIs(t, err, ErrCrypto)
}

func TestDeriveSecrets_SlicesIntoSixSecretFields(t *testing.T) {
	salt := bytes.Repeat([]byte{0x07}, 16)
	out, err := DeriveSecrets("", salt, []byte("secret"), secretsSizeForTest)
	require.NoError(t, err)
	require.Len(t, out, secretsSizeForTest)

	controlKey := out[0:16]
	controlIVToHeadset := out[16:32]
	controlIVFromHeadset := out[32:48]
	streamKey := out[48:64]
	streamIVHeaderToHeadset := out[64:72]
	streamIVHeaderFromHeadset := out[72:80]

	require.Len(t, controlKey, 16)
	require.Len(t, controlIVToHeadset, 16)
	require.Len(t, controlIVFromHeadset, 16)
	require.Len(t, streamKey, 16)
	require.Len(t, streamIVHeaderToHeadset, 8)
	require.Len(t, streamIVHeaderFromHeadset, 8)
}

func TestSplitSessionSecrets_RejectsWrongSize(t *testing.T) {
	_, err := SplitSessionSecrets(make([]byte, 10))
	require.ErrorIs(t, err, ErrCrypto)
}

func TestSplitSessionSecrets_RoundTripsFieldBoundaries(t *testing.T) {
	raw := make([]byte, SessionSecretsSize)
	for i := range raw {
		raw[i] = byte(i)
	}
	s, err := SplitSessionSecrets(raw)
	require.NoError(t, err)
	require.Equal(t, raw[0:16], s.ControlKey[:])
	require.Equal(t, raw[16:32], s.ControlIVToHeadset[:])
	require.Equal(t, raw[32:48], s.ControlIVFromHeadset[:])
	require.Equal(t, raw[48:64], s.StreamKey[:])
	require.Equal(t, raw[64:72], s.StreamIVHeaderToHeadset[:])
	require.Equal(t, raw[72:80], s.StreamIVHeaderFromHeadset[:])
}
