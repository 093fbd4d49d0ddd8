// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package keystore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func TestStore_LookupMissesUnknownKey(t *testing.T) {
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Lookup(testKey(1))
	require.False(t, ok)
}

func TestStore_PairThenLookupRoundTrips(t *testing.T) {
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Pair(testKey(2), "office headset"))

	name, ok := s.Lookup(testKey(2))
	require.True(t, ok)
	require.Equal(t, "office headset", name)
}

func TestStore_RevokeRemovesKeyAndErrorsOnUnknown(t *testing.T) {
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Pair(testKey(3), "living room"))
	require.NoError(t, s.Revoke(testKey(3)))

	_, ok := s.Lookup(testKey(3))
	require.False(t, ok)

	require.ErrorIs(t, s.Revoke(testKey(3)), ErrNotFound)
}

func TestStore_ListOrdersMostRecentFirst(t *testing.T) {
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Pair(testKey(4), "first"))
	require.NoError(t, s.Pair(testKey(5), "second"))

	rows, err := s.List()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "second", rows[0].DisplayName)
	require.Equal(t, "first", rows[1].DisplayName)
}

func TestStore_PairRecordsAuditEvent(t *testing.T) {
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Pair(testKey(6), "audited"))

	var count int64
	require.NoError(t, s.db.Model(&PairingAttempt{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
