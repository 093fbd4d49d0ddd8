// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package handshake

import (
	"fmt"

	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wire"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto/smp"
)

// Step values for CryptoHandshake.Step, in the order spec.md section 4.D's
// numbered steps use them.
const (
	stepIdentify byte = iota
	stepPairingPIN
	stepSMP1
	stepSMP2
	stepSMP3
	stepSMP4
	stepDH
)

// Result is everything the session runtime needs once the handshake
// completes: the derived per-direction ciphers and the peer's identity.
type Result struct {
	Secrets     *wivrncrypto.SessionSecrets
	PeerKey     [32]byte
	DisplayName string
	Paired      bool // true if this call also ran a fresh pairing ceremony
}

// PairingPrompt is called with the PIN the server generated during a
// fresh pairing ceremony, so the caller can display it and collect the
// chosen display name once the user confirms the headset shows the same
// PIN (spec.md section 4.D step 3: "a 6-digit PIN shown on both screens").
type PairingPrompt func(pin string) (displayName string, accept bool)

// RunServer drives the server side of the handshake over an already
// connected reliable channel, implementing spec.md section 4.D's state
// machine: await_hello -> version_check -> await_pairing? ->
// derive_secrets -> steady.
func RunServer(conn *transport.ReliableConn, keys KnownKeys, deploymentSalt []byte, prompt PairingPrompt) (*Result, error) {
	// await_hello / version_check
	announce, err := recvMessage[*wire.ClientAnnounce](conn, wire.DecodeFromHeadset)
	if err != nil {
		return nil, err
	}
	if announce.ProtocolVersion != wire.TypeHash() {
		return nil, ErrProtocolMismatch
	}

	identify, err := recvCryptoHandshake(conn, stepIdentify)
	if err != nil {
		return nil, err
	}
	var peerLongTerm [32]byte
	if len(identify.Payload) != 32 {
		return nil, fmt.Errorf("%w: malformed peer identity", ErrHandshakeFailed)
	}
	copy(peerLongTerm[:], identify.Payload)

	result := &Result{PeerKey: peerLongTerm}

	displayName, known := keys.Lookup(peerLongTerm)
	if !known {
		name, err := runServerPairing(conn, peerLongTerm, prompt)
		if err != nil {
			return nil, err
		}
		if err := keys.Pair(peerLongTerm, name); err != nil {
			return nil, fmt.Errorf("%w: persist paired key: %w", ErrHandshakeFailed, err)
		}
		displayName = name
		result.Paired = true
	}
	result.DisplayName = displayName

	// derive_secrets: an ephemeral X25519 DH, independent of the
	// long-term identity key used for pairing authentication.
	ephemeral, err := wivrncrypto.GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if err := sendCryptoHandshake(conn, stepDH, ephemeral.Public[:]); err != nil {
		return nil, err
	}
	peerDH, err := recvCryptoHandshake(conn, stepDH)
	if err != nil {
		return nil, err
	}
	var peerEphemeral [32]byte
	if len(peerDH.Payload) != 32 {
		return nil, fmt.Errorf("%w: malformed ephemeral key", ErrHandshakeFailed)
	}
	copy(peerEphemeral[:], peerDH.Payload)

	shared, err := ephemeral.DiffieHellman(peerEphemeral)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	raw, err := wivrncrypto.DeriveSecrets("", deploymentSalt, shared, wivrncrypto.SessionSecretsSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	secrets, err := wivrncrypto.SplitSessionSecrets(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	result.Secrets = secrets

	return result, nil
}

func runServerPairing(conn *transport.ReliableConn, peerLongTerm [32]byte, prompt PairingPrompt) (string, error) {
	pin, err := GeneratePIN()
	if err != nil {
		return "", err
	}
	if err := sendCryptoHandshake(conn, stepPairingPIN, []byte(pin)); err != nil {
		return "", err
	}

	displayName, accept := prompt(pin)
	if !accept {
		return "", ErrPairingRejected
	}

	bob := smp.New()

	msg1Bytes, err := recvCryptoHandshake(conn, stepSMP1)
	if err != nil {
		return "", err
	}
	msg1, err := decodeSMPMsg1(msg1Bytes.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	msg2, err := bob.Step2(msg1, []byte(pin))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPairingRejected, err)
	}
	if err := sendCryptoHandshake(conn, stepSMP2, encodeSMPMsg2(msg2)); err != nil {
		return "", err
	}

	msg3Bytes, err := recvCryptoHandshake(conn, stepSMP3)
	if err != nil {
		return "", err
	}
	msg3, err := decodeSMPMsg3(msg3Bytes.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	msg4, match, err := bob.Step4(msg3)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPairingRejected, err)
	}
	if err := sendCryptoHandshake(conn, stepSMP4, encodeSMPMsg4(msg4)); err != nil {
		return "", err
	}
	if !match {
		return "", ErrPairingRejected
	}

	return displayName, nil
}

// RunHeadset drives the headset side of the handshake, the mirror image
// of RunServer. The headset always accepts pairing once the user confirms
// the displayed PIN matches; PairingPrompt's displayName return is unused
// here and discarded.
func RunHeadset(conn *transport.ReliableConn, longTerm *wivrncrypto.X25519KeyPair, clientVersion string, alreadyPaired bool, deploymentSalt []byte, prompt PairingPrompt) (*Result, error) {
	if err := sendFromHeadset(conn, &wire.ClientAnnounce{ProtocolVersion: wire.TypeHash(), ClientVersion: clientVersion}); err != nil {
		return nil, err
	}
	if err := sendHeadsetCryptoHandshake(conn, stepIdentify, longTerm.Public[:]); err != nil {
		return nil, err
	}

	result := &Result{}

	if !alreadyPaired {
		pinMsg, err := recvHeadsetCryptoHandshake(conn, stepPairingPIN)
		if err != nil {
			return nil, err
		}
		pin := string(pinMsg.Payload)
		_, accept := prompt(pin)
		if !accept {
			return nil, ErrPairingRejected
		}

		alice := smp.New()
		msg1, err := alice.Step1([]byte(pin))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
		}
		if err := sendHeadsetCryptoHandshake(conn, stepSMP1, encodeSMPMsg1(msg1)); err != nil {
			return nil, err
		}

		msg2Bytes, err := recvHeadsetCryptoHandshake(conn, stepSMP2)
		if err != nil {
			return nil, err
		}
		msg2, err := decodeSMPMsg2(msg2Bytes.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
		}

		msg3, err := alice.Step3(msg2)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPairingRejected, err)
		}
		if err := sendHeadsetCryptoHandshake(conn, stepSMP3, encodeSMPMsg3(msg3)); err != nil {
			return nil, err
		}

		msg4Bytes, err := recvHeadsetCryptoHandshake(conn, stepSMP4)
		if err != nil {
			return nil, err
		}
		msg4, err := decodeSMPMsg4(msg4Bytes.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
		}

		match, err := alice.Step5(msg4)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPairingRejected, err)
		}
		if !match {
			return nil, ErrPairingRejected
		}
		result.Paired = true
	}

	peerDH, err := recvHeadsetCryptoHandshake(conn, stepDH)
	if err != nil {
		return nil, err
	}
	var peerEphemeral [32]byte
	if len(peerDH.Payload) != 32 {
		return nil, fmt.Errorf("%w: malformed ephemeral key", ErrHandshakeFailed)
	}
	copy(peerEphemeral[:], peerDH.Payload)

	ephemeral, err := wivrncrypto.GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if err := sendHeadsetCryptoHandshake(conn, stepDH, ephemeral.Public[:]); err != nil {
		return nil, err
	}

	shared, err := ephemeral.DiffieHellman(peerEphemeral)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	raw, err := wivrncrypto.DeriveSecrets("", deploymentSalt, shared, wivrncrypto.SessionSecretsSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	secrets, err := wivrncrypto.SplitSessionSecrets(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	result.Secrets = secrets

	return result, nil
}
