// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrncrypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters from spec.md section 4.C: "{lanes=2, threads=2,
// memcost=65536}". Grounded directly on the teacher's
// internal/http/api/utils/password.go HashPassword, which calls
// argon2.IDKey the same way for password storage; here the same primitive
// derives the session secrets record instead of a password hash, so there
// is no PHC-string encoding -- the raw key bytes are the KDF output.
const (
	argon2Lanes   = 2
	argon2Threads = 2
	argon2MemKiB  = 65536
	argon2Time    = 1
)

// MinSaltLen is the minimum salt length spec.md section 4.C requires.
const MinSaltLen = 8

// SessionSecretsSize is sizeof(secrets) per spec.md section 3: the Session
// secrets record is 16+16+16+16+8+8 bytes.
const SessionSecretsSize = 80

// SessionSecrets is the fixed-layout record spec.md section 3 names
// "Session secrets", derived via DeriveSecrets from the handshake's shared
// DH secret.
type SessionSecrets struct {
	ControlKey               [16]byte
	ControlIVToHeadset       [16]byte
	ControlIVFromHeadset     [16]byte
	StreamKey                [16]byte
	StreamIVHeaderToHeadset  [8]byte
	StreamIVHeaderFromHeadset [8]byte
}

// SplitSessionSecrets slices a SessionSecretsSize-byte KDF output into the
// six session secret fields, in the field order spec.md section 3 lists.
func SplitSessionSecrets(raw []byte) (*SessionSecrets, error) {
	if len(raw) != SessionSecretsSize {
		return nil, fmt.Errorf("%w: session secrets must be %d bytes, got %d", ErrCrypto, SessionSecretsSize, len(raw))
	}
	var s SessionSecrets
	copy(s.ControlKey[:], raw[0:16])
	copy(s.ControlIVToHeadset[:], raw[16:32])
	copy(s.ControlIVFromHeadset[:], raw[32:48])
	copy(s.StreamKey[:], raw[48:64])
	copy(s.StreamIVHeaderToHeadset[:], raw[64:72])
	copy(s.StreamIVHeaderFromHeadset[:], raw[72:80])
	return &s, nil
}

// DeriveSecrets runs Argon2id over (password, salt, secret) and returns
// exactly outputLen bytes, matching spec.md section 4.C: "inputs are
// (password, salt>=8 bytes, secret); output is caller-sized (here, exactly
// sizeof(secrets) bytes)".
func DeriveSecrets(password string, salt []byte, secret []byte, outputLen int) ([]byte, error) {
	if len(salt) < MinSaltLen {
		return nil, fmt.Errorf("%w: argon2 salt must be at least %d bytes", ErrCrypto, MinSaltLen)
	}
	// Argon2id takes one password input; the DH secret is folded into the
	// password material itself (password || secret), with salt unchanged,
	// matching the handshake's "secret = DH output, password = empty"
	// framing: when password=="" this reduces to keying purely off secret.
	material := make([]byte, 0, len(password)+len(secret))
	material = append(material, password...)
	material = append(material, secret...)

	return argon2.IDKey(material, salt, argon2Time, argon2MemKiB, argon2Threads, uint32(outputLen)), nil
}
