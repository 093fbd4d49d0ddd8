// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wire

import "fmt"

// fnvOffset and fnvPrime are the 64-bit FNV-1a constants.
const (
	fnvOffset = uint64(14695981039346656037)
	fnvPrime  = uint64(1099511628211)
)

// TypeHasher accumulates an FNV-1a hash over the canonical textual
// description of every type reachable from a message declaration. The
// original implementation builds this string at compile time via C++
// templates; Go has no equivalent constexpr reflection over field lists, so
// the accumulation instead runs once in a package init() over an explicit
// schema walk (see messages.go), which is functionally identical: the same
// field declarations always produce the same hash, and any declaration
// change changes it.
type TypeHasher struct {
	h uint64
}

// NewTypeHasher returns a hasher seeded with the FNV-1a offset basis.
func NewTypeHasher() *TypeHasher {
	return &TypeHasher{h: fnvOffset}
}

// WriteString folds a canonical type description into the accumulator.
func (t *TypeHasher) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		t.h ^= uint64(s[i])
		t.h *= fnvPrime
	}
}

// Sum returns the accumulated hash.
func (t *TypeHasher) Sum() uint64 { return t.h }

// Primitive canonical names, per spec.md's worked examples.
const (
	typeUint8   = "uint8"
	typeUint16  = "uint16"
	typeUint32  = "uint32"
	typeUint64  = "uint64"
	typeInt8    = "int8"
	typeInt16   = "int16"
	typeInt32   = "int32"
	typeInt64   = "int64"
	typeFloat32 = "float32"
	typeFloat64 = "float64"
	typeBool    = "bool"
	typeString  = "string"
)

// vectorOf, arrayOf, optionalOf, structOf, variantOf, and durationOf build
// the canonical strings documented in spec.md section 4.A.
func vectorOf(elem string) string { return "vector<" + elem + ">" }

func arrayOf(elem string, n int) string { return fmt.Sprintf("array<%s,%d>", elem, n) }

func optionalOf(elem string) string { return "optional<" + elem + ">" }

func structOf(fields ...string) string {
	s := "structure{"
	for i, f := range fields {
		if i > 0 {
			s += ","
		}
		s += f
	}
	return s + "}"
}

func variantOf(alts ...string) string {
	s := "variant<"
	for i, a := range alts {
		if i > 0 {
			s += ","
		}
		s += a
	}
	return s + ">"
}

func durationOf(rep string, num, den int64) string {
	return fmt.Sprintf("duration<%s,%d/%d>", rep, num, den)
}
