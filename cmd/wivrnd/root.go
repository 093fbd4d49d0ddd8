// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package wivrnd builds the cobra command tree the wivrnd binary
// executes: serve runs the daemon, pair and keys drive the control
// plane from the command line, version prints the build identity.
// Grounded on the teacher's cmd.NewCommand for the root command's
// shape and on helixml-helix's cmd/helix/root.go for splitting each
// subcommand into its own newXCmd constructor and wiring them with
// AddCommand, a pattern the teacher itself doesn't use.
package wivrnd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand builds the root "wivrnd" command with every subcommand
// registered.
func NewCommand(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:     "wivrnd",
		Short:   "WiVRn session and transport daemon",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	root.PersistentFlags().String("api", "http://127.0.0.1:9759/api/v1", "base URL of a running wivrnd's control-plane API")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPairCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newVersionCmd())

	return root
}
