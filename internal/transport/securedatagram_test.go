// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

func newSecurePair(t *testing.T) (*transport.SecureDatagramConn, *transport.SecureDatagramConn) {
	t.Helper()

	key := make([]byte, wivrncrypto.CipherKeySize)
	prefixA := make([]byte, wivrncrypto.DatagramIVPrefixSize)
	prefixB := make([]byte, wivrncrypto.DatagramIVPrefixSize)
	prefixB[0] = 1

	server, err := transport.NewDatagramConn("127.0.0.1", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	client, err := transport.DialDatagramConn(server.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	serverDial, err := transport.DialDatagramConn(client.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverDial.Close() })

	serverToClient, err := wivrncrypto.NewDatagramCipher(key, prefixA)
	require.NoError(t, err)
	clientFromServer, err := wivrncrypto.NewDatagramCipher(key, prefixA)
	require.NoError(t, err)

	clientToServer, err := wivrncrypto.NewDatagramCipher(key, prefixB)
	require.NoError(t, err)
	serverFromClient, err := wivrncrypto.NewDatagramCipher(key, prefixB)
	require.NoError(t, err)

	serverSecure := transport.NewSecureDatagramConn(serverDial, serverToClient, serverFromClient)
	clientSecure := transport.NewSecureDatagramConn(client, clientToServer, clientFromServer)
	return serverSecure, clientSecure
}

func TestSecureDatagramConn_RoundTripsEncryptedPayload(t *testing.T) {
	server, client := newSecurePair(t)

	require.NoError(t, server.SendSecure([]byte("shard payload")))

	batch, err := client.ReceiveBatch()
	require.NoError(t, err)
	require.Len(t, batch, 1)

	got, err := client.DecodeSecure(batch[0].Payload)
	require.NoError(t, err)
	require.Equal(t, "shard payload", string(got))
}

func TestSecureDatagramConn_DecodeSecure_RejectsShortDatagram(t *testing.T) {
	_, client := newSecurePair(t)
	_, err := client.DecodeSecure([]byte{1, 2, 3})
	require.ErrorIs(t, err, transport.ErrShortDatagram)
}

func TestSecureDatagramConn_DecodeSecure_RejectsReplay(t *testing.T) {
	server, client := newSecurePair(t)

	require.NoError(t, server.SendSecure([]byte("first")))
	batch, err := client.ReceiveBatch()
	require.NoError(t, err)
	_, err = client.DecodeSecure(batch[0].Payload)
	require.NoError(t, err)

	_, err = client.DecodeSecure(batch[0].Payload)
	require.ErrorIs(t, err, transport.ErrReplayed)
}
