// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package handshake

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GeneratePIN returns a fresh zero-padded 6-digit PIN, shown on both the
// server and headset displays during pairing (spec.md section 4.D step 3).
func GeneratePIN() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("%w: generate pairing PIN: %w", ErrHandshakeFailed, err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
