// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package smp implements the socialist-millionaire PAKE from spec.md
// section 4.C, ported from original_source/common/smp.{h,cpp} (itself
// adapted from libotr) onto math/big and crypto/sha256 instead of
// OpenSSL's BIGNUM and EVP_MD.
package smp

import "errors"

// ErrCheated is returned whenever a peer's message fails a group-element,
// exponent, or zero-knowledge-proof check -- the SMP exchange offers no
// partial credit, any failed check ends the pairing ceremony.
var ErrCheated = errors.New("smp: verification failed")
