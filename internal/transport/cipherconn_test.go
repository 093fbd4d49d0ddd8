// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package transport_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

func TestCipherConn_RoundTripsThroughReliableConn(t *testing.T) {
	key := make([]byte, wivrncrypto.CipherKeySize)
	ivA := make([]byte, wivrncrypto.ControlIVSize)
	ivB := make([]byte, wivrncrypto.ControlIVSize)
	ivB[0] = 1

	serverRaw, clientRaw := net.Pipe()
	t.Cleanup(func() { _ = serverRaw.Close() })
	t.Cleanup(func() { _ = clientRaw.Close() })

	serverWrite, err := wivrncrypto.NewControlCipher(key, ivA)
	require.NoError(t, err)
	serverRead, err := wivrncrypto.NewControlCipher(key, ivB)
	require.NoError(t, err)
	clientWrite, err := wivrncrypto.NewControlCipher(key, ivB)
	require.NoError(t, err)
	clientRead, err := wivrncrypto.NewControlCipher(key, ivA)
	require.NoError(t, err)

	server := transport.NewReliableConn(transport.NewCipherConn(serverRaw, serverRead, serverWrite))
	client := transport.NewReliableConn(transport.NewCipherConn(clientRaw, clientRead, clientWrite))

	done := make(chan error, 1)
	go func() { done <- server.Send([]byte("hello headset")) }()

	got, err := client.Receive()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, "hello headset", string(got))
}
