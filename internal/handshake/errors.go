// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package handshake implements the session handshake state machine from
// spec.md section 4.D: version check, pairing ceremony, X25519 key
// agreement, and the transition into the encrypted steady state.
package handshake

import "errors"

var (
	// ErrProtocolMismatch is returned when the peer's type-hash does not
	// match ours -- spec.md section 4.D step 2.
	ErrProtocolMismatch = errors.New("handshake: protocol version mismatch")

	// ErrHandshakeFailed covers any cryptographic or protocol failure
	// during the handshake; spec.md section 4.D: "any cryptographic
	// error, SMP mismatch, or protocol error during handshake tears the
	// connection down unconditionally."
	ErrHandshakeFailed = errors.New("handshake: failed")

	// ErrPairingRejected is returned when the SMP exchange run during
	// pairing concludes the two sides do not share the displayed PIN.
	ErrPairingRejected = errors.New("handshake: pairing PIN mismatch")

	// ErrUnexpectedMessage is returned when a peer sends a message type
	// or step that is not valid for the handshake's current state.
	ErrUnexpectedMessage = errors.New("handshake: unexpected message for current state")
)
