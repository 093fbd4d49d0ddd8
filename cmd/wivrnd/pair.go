// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrnd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type pairingPending struct {
	PIN       string    `json:"pin"`
	StartedAt time.Time `json:"started_at"`
}

func newPairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair",
		Short: "Confirm a pending headset pairing ceremony",
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiBase, err := cmd.Flags().GetString("api")
			if err != nil {
				return err
			}

			resp, err := http.Get(apiBase + "/pairing/pending")
			if err != nil {
				return fmt.Errorf("pair: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode == http.StatusNotFound {
				fmt.Fprintln(cmd.OutOrStdout(), "no pairing ceremony in progress")
				return nil
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("pair: server returned %d: %s", resp.StatusCode, body)
			}
			var pending pairingPending
			if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
				return fmt.Errorf("pair: decode response: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "PIN: %s (started %s ago)\n", pending.PIN, time.Since(pending.StartedAt).Round(time.Second))
			fmt.Fprint(cmd.OutOrStdout(), "Confirm this matches the headset's display? [y/N] ")
			reader := bufio.NewReader(cmd.InOrStdin())
			line, _ := reader.ReadString('\n')
			accept := strings.EqualFold(strings.TrimSpace(line), "y")

			var displayName string
			if accept {
				fmt.Fprint(cmd.OutOrStdout(), "Display name for this headset: ")
				name, _ := reader.ReadString('\n')
				displayName = strings.TrimSpace(name)
			}

			payload, err := json.Marshal(map[string]any{
				"pin":          pending.PIN,
				"display_name": displayName,
				"accept":       accept,
			})
			if err != nil {
				return fmt.Errorf("pair: %w", err)
			}
			confirmResp, err := http.Post(apiBase+"/pairing/confirm", "application/json", bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("pair: confirm: %w", err)
			}
			defer func() { _ = confirmResp.Body.Close() }()
			if confirmResp.StatusCode != http.StatusNoContent {
				body, _ := io.ReadAll(confirmResp.Body)
				return fmt.Errorf("pair: confirm returned %d: %s", confirmResp.StatusCode, body)
			}
			if accept {
				fmt.Fprintln(cmd.OutOrStdout(), "paired")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "rejected")
			}
			return nil
		},
	}
}
