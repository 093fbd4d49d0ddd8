// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package pairing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/pairing"
)

func TestPrompt_ResolvedByConfirm(t *testing.T) {
	c := pairing.New()

	done := make(chan struct{})
	var name string
	var accept bool
	go func() {
		name, accept = c.Prompt("123456")
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := c.Current()
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Confirm(context.Background(), "123456", "Quest 3", true))
	<-done
	require.Equal(t, "Quest 3", name)
	require.True(t, accept)

	_, ok := c.Current()
	require.False(t, ok)
}

func TestConfirm_RejectsWrongPIN(t *testing.T) {
	c := pairing.New()
	go c.Prompt("111111")

	require.Eventually(t, func() bool {
		_, ok := c.Current()
		return ok
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, c.Confirm(context.Background(), "999999", "x", true), pairing.ErrTimeout)
}

func TestConfirm_NoPendingCeremony(t *testing.T) {
	c := pairing.New()
	require.ErrorIs(t, c.Confirm(context.Background(), "123456", "x", true), pairing.ErrTimeout)
}
