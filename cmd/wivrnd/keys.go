// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrnd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List or revoke paired headset keys",
	}
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysRevokeCmd())
	return cmd
}

type keyEntry struct {
	PublicKey   string `json:"public_key"`
	DisplayName string `json:"display_name"`
	PairedAt    string `json:"paired_at"`
	LastSeenAt  string `json:"last_seen_at"`
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every paired headset key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiBase, err := cmd.Flags().GetString("api")
			if err != nil {
				return err
			}
			resp, err := http.Get(apiBase + "/keys")
			if err != nil {
				return fmt.Errorf("keys list: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("keys list: server returned %d: %s", resp.StatusCode, body)
			}
			var rows []keyEntry
			if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
				return fmt.Errorf("keys list: decode response: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PUBLIC KEY\tDISPLAY NAME\tPAIRED AT\tLAST SEEN")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.PublicKey, row.DisplayName, row.PairedAt, row.LastSeenAt)
			}
			return w.Flush()
		},
	}
}

func newKeysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <public-key-hex>",
		Short: "Revoke a paired headset key, forcing it to re-pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiBase, err := cmd.Flags().GetString("api")
			if err != nil {
				return err
			}
			req, err := http.NewRequest(http.MethodDelete, apiBase+"/keys/"+args[0], nil)
			if err != nil {
				return fmt.Errorf("keys revoke: %w", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("keys revoke: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusNoContent {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("keys revoke: server returned %d: %s", resp.StatusCode, body)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	}
}
