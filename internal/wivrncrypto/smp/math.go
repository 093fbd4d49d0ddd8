// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package smp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// SMModLenBits and SMModLenBytes are the 1536-bit MODP group size from
// original_source/common/smp.h.
const (
	SMModLenBits  = 1536
	SMModLenBytes = 192
)

var (
	smModulus = mustHex("" +
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
		"670C354E4ABC9804F1746C08CA237327FFFFFFFFFFFFFFFF")

	// smOrder is q = (p-1)/2.
	smOrder = mustHex("" +
		"7FFFFFFFFFFFFFFFE487ED5110B4611A62633145C06E0E68" +
		"948127044533E63A0105DF531D89CD9128A5043CC71A026E" +
		"F7CA8CD9E69D218D98158536F92F8A1BA7F09AB6B6A8E122" +
		"F242DABB312F3F637A262174D31BF6B585FFAE5B7A035BF6" +
		"F71C35FDAD44CFD2D74F9208BE258FF324943328F6722D9E" +
		"E1003E5C50B1DF82CC6D241B0E2AE9CD348B1FD47E9267AF" +
		"C1B2AE91EE51D6CB0E3179AB1042A95DCF6A9483B84B4B36" +
		"B3861AA7255E4C0278BA36046511B993FFFFFFFFFFFFFFFF")

	smGenerator     = big.NewInt(2)
	smModulusMinus2 = new(big.Int).Sub(smModulus, big.NewInt(2))

	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("smp: invalid hex constant")
	}
	return n
}

func powm(b, e, m *big.Int) *big.Int {
	return new(big.Int).Exp(b, e, m)
}

func mulm(a, b, m *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, m)
}

// subm computes (a - b) mod m, always returning a value in [0, m) the way
// BN_mod_sub does -- big.Int.Mod already normalizes negative results.
func subm(a, b, m *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, m)
}

func invm(a, n *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, n)
}

// randomExponent returns a uniform random value in [0, 2^SMModLenBits),
// matching BN_rand(SM_MOD_LEN_BITS, top=-1, bottom=0): no constraint on
// either the top or bottom bit.
func randomExponent() (*big.Int, error) {
	buf := make([]byte, SMModLenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}

// toMPI encodes n in OpenSSL's BN_bn2mpi format: a 4-byte big-endian
// length prefix followed by the magnitude in big-endian form, with an
// extra leading zero byte when the high bit of the first magnitude byte
// is set. hash() is the only caller, mirroring bignum::to_mpi()'s sole use
// in smp::hash in the original.
func toMPI(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0, 0, 0, 0}
	}
	b := n.Bytes()
	pad := b[0]&0x80 != 0
	length := len(b)
	if pad {
		length++
	}
	out := make([]byte, 4+length)
	binary.BigEndian.PutUint32(out[0:4], uint32(length))
	if pad {
		copy(out[5:], b)
	} else {
		copy(out[4:], b)
	}
	return out
}

// hash is smp::hash: sha256(version || mpi(a) || mpi(b)), b optional.
func hashSMP(version byte, a, b *big.Int) *big.Int {
	h := sha256.New()
	h.Write([]byte{version})
	h.Write(toMPI(a))
	if b != nil {
		h.Write(toMPI(b))
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// checkGroupElem reports whether g is NOT a valid (non-unit) group
// element: g < 2 or g > p-2.
func checkGroupElem(g *big.Int) bool {
	return g.Cmp(bigTwo) < 0 || g.Cmp(smModulusMinus2) > 0
}

// checkExpon reports whether x is NOT a valid (non-zero) exponent:
// x < 1 or x >= q.
func checkExpon(x *big.Int) bool {
	return x.Cmp(bigOne) < 0 || x.Cmp(smOrder) >= 0
}
