// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package timebase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimator_FirstUpdateSeedsExactly(t *testing.T) {
	e := New()
	e.Update(100*time.Millisecond, 20*time.Millisecond)
	require.Equal(t, 80*time.Millisecond, e.Offset())
}

func TestEstimator_ConvergesTowardRepeatedObservation(t *testing.T) {
	e := New()
	e.Update(0, 0)
	for range 2000 {
		e.Update(50*time.Millisecond, 0)
	}
	got := e.Offset()
	require.InDelta(t, float64(50*time.Millisecond), float64(got), float64(time.Millisecond))
}

func TestEstimator_ZeroValueReportsZeroOffset(t *testing.T) {
	e := New()
	require.Equal(t, time.Duration(0), e.Offset())
}

func TestEstimator_ToHeadsetAndToServerRoundTrip(t *testing.T) {
	e := New()
	e.Update(500*time.Millisecond, 300*time.Millisecond) // offset = 200ms

	serverT := 10 * time.Second
	headsetT := e.ToHeadset(serverT)
	require.Equal(t, serverT+200*time.Millisecond, headsetT)
	require.Equal(t, serverT, e.ToServer(headsetT))
}
