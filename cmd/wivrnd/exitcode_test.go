// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrnd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("boom")))
	require.Equal(t, 2, ExitCode(fmt.Errorf("serve: start discovery: %w: %w", ErrDiscoveryUnavailable, errors.New("bind failed"))))
}
