// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrnd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCommand_RegistersEverySubcommand(t *testing.T) {
	root := NewCommand("dev", "abc123")

	require.Equal(t, "wivrnd", root.Use)
	require.Equal(t, "dev", root.Annotations["version"])
	require.Equal(t, "abc123", root.Annotations["commit"])

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"serve", "pair", "keys", "version"}, names)
}

func TestNewCommand_APIFlagDefaultsToLocalControlPlane(t *testing.T) {
	root := NewCommand("dev", "abc123")

	flag := root.PersistentFlags().Lookup("api")
	require.NotNil(t, flag)
	require.Equal(t, "http://127.0.0.1:9759/api/v1", flag.DefValue)
}

func TestKeysCmd_HasListAndRevokeSubcommands(t *testing.T) {
	root := NewCommand("dev", "abc123")

	for _, c := range root.Commands() {
		if c.Name() != "keys" {
			continue
		}
		names := make([]string, 0)
		for _, sub := range c.Commands() {
			names = append(names, sub.Name())
		}
		require.ElementsMatch(t, []string{"list", "revoke"}, names)
		return
	}
	t.Fatal("keys subcommand not found")
}
