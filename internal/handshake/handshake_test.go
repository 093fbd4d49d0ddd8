// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package handshake

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wire"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

type memoryKeys struct {
	mu    sync.Mutex
	known map[[32]byte]string
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{known: map[[32]byte]string{}}
}

func (m *memoryKeys) Lookup(pub [32]byte) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.known[pub]
	return name, ok
}

func (m *memoryKeys) Pair(pub [32]byte, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known[pub] = name
	return nil
}

func pipeConns(t *testing.T) (server, headset *transport.ReliableConn) {
	t.Helper()
	a, b := net.Pipe()
	return transport.NewReliableConn(a), transport.NewReliableConn(b)
}

func acceptAnyPIN(_ string) (string, bool) { return "my-headset", true }

func TestHandshake_FreshPairingThenSteadyState(t *testing.T) {
	serverConn, headsetConn := pipeConns(t)
	keys := newMemoryKeys()
	salt := []byte("0123456789abcdef")

	headsetLongTerm, err := wivrncrypto.GenerateX25519()
	require.NoError(t, err)

	var serverResult, headsetResult *Result
	var serverErr, headsetErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		serverResult, serverErr = RunServer(serverConn, keys, salt, acceptAnyPIN)
	}()
	go func() {
		defer wg.Done()
		headsetResult, headsetErr = RunHeadset(headsetConn, headsetLongTerm, "1.0.0", false, salt, acceptAnyPIN)
	}()
	wg.Wait()

	require.NoError(t, serverErr)
	require.NoError(t, headsetErr)

	require.True(t, serverResult.Paired)
	require.True(t, headsetResult.Paired)
	require.Equal(t, "my-headset", serverResult.DisplayName)
	require.Equal(t, headsetLongTerm.Public, serverResult.PeerKey)

	require.Equal(t, serverResult.Secrets, headsetResult.Secrets)

	name, ok := keys.Lookup(headsetLongTerm.Public)
	require.True(t, ok)
	require.Equal(t, "my-headset", name)
}

func TestHandshake_AlreadyPairedSkipsSMP(t *testing.T) {
	serverConn, headsetConn := pipeConns(t)
	keys := newMemoryKeys()
	salt := []byte("0123456789abcdef")

	headsetLongTerm, err := wivrncrypto.GenerateX25519()
	require.NoError(t, err)
	require.NoError(t, keys.Pair(headsetLongTerm.Public, "already-known"))

	var serverResult, headsetResult *Result
	var serverErr, headsetErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		serverResult, serverErr = RunServer(serverConn, keys, salt, func(string) (string, bool) {
			t.Fatal("pairing prompt should not be invoked for an already-paired peer")
			return "", false
		})
	}()
	go func() {
		defer wg.Done()
		headsetResult, headsetErr = RunHeadset(headsetConn, headsetLongTerm, "1.0.0", true, salt, func(string) (string, bool) {
			t.Fatal("pairing prompt should not be invoked for an already-paired peer")
			return "", false
		})
	}()
	wg.Wait()

	require.NoError(t, serverErr)
	require.NoError(t, headsetErr)
	require.False(t, serverResult.Paired)
	require.False(t, headsetResult.Paired)
	require.Equal(t, "already-known", serverResult.DisplayName)
	require.Equal(t, serverResult.Secrets, headsetResult.Secrets)
}

func TestHandshake_ProtocolMismatchRejected(t *testing.T) {
	serverConn, headsetConn := pipeConns(t)
	keys := newMemoryKeys()
	salt := []byte("0123456789abcdef")

	var serverErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, serverErr = RunServer(serverConn, keys, salt, acceptAnyPIN)
	}()

	require.NoError(t, sendFromHeadset(headsetConn, &wire.ClientAnnounce{
		ProtocolVersion: wire.TypeHash() + 1,
		ClientVersion:   "1.0.0",
	}))
	wg.Wait()
	require.ErrorIs(t, serverErr, ErrProtocolMismatch)
}
