// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package wivrncrypto implements the cryptographic primitives from spec.md
// section 4.C: DH keypairs (X25519/X448/RSA), the Argon2id KDF, the
// AES-CTR-like stream cipher, and (in the smp subpackage) the
// socialist-millionaire PAKE. Named wivrncrypto rather than crypto to avoid
// shadowing the standard library package of the same name.
package wivrncrypto

import "errors"

// ErrCrypto covers key generation, DH, KDF, or cipher init failure -- all
// fatal per spec.md section 7.
var ErrCrypto = errors.New("wivrncrypto: cryptographic operation failed")
