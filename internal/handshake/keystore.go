// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package handshake

// KnownKeys is implemented by internal/keystore. It is consumed here as an
// interface, not a concrete type, so the handshake state machine has no
// dependency on how paired keys are persisted.
type KnownKeys interface {
	// Lookup reports the display name paired with pub, if any.
	Lookup(pub [32]byte) (displayName string, ok bool)

	// Pair persists pub under displayName, called once an SMP pairing
	// ceremony succeeds (spec.md section 4.D step 3: "on success, the
	// server persists the peer's public key with the chosen name").
	Pair(pub [32]byte, displayName string) error
}
