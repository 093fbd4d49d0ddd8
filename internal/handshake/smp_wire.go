// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package handshake

import (
	"math/big"

	"github.com/wivrn-project/wivrnd/internal/wire"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto/smp"
)

// encodeBig/decodeBig carry an smp bignum as a length-prefixed byte vector
// rather than a fixed-width field: proof values (sha256 digests) and group
// elements (1536-bit) have different natural widths, and a length prefix
// avoids having to track which is which.
func encodeBig(w *wire.Writer, n *big.Int) {
	w.WriteBytes(n.Bytes())
}

func decodeBig(r *wire.Reader) (*big.Int, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func encodeSMPMsg1(m smp.Msg1) []byte {
	w := wire.NewWriter(nil)
	for _, n := range []*big.Int{m.G2A, m.C2, m.D2, m.G3A, m.C3, m.D3} {
		encodeBig(w, n)
	}
	return w.Bytes()
}

func decodeSMPMsg1(payload []byte) (smp.Msg1, error) {
	r := wire.NewReader(payload)
	vals, err := decodeBigs(r, 6)
	if err != nil {
		return smp.Msg1{}, err
	}
	return smp.Msg1{G2A: vals[0], C2: vals[1], D2: vals[2], G3A: vals[3], C3: vals[4], D3: vals[5]}, nil
}

func encodeSMPMsg2(m smp.Msg2) []byte {
	w := wire.NewWriter(nil)
	for _, n := range []*big.Int{m.G2B, m.C2, m.D2, m.G3B, m.C3, m.D3, m.Pb, m.Qb, m.Cp, m.D5, m.D6} {
		encodeBig(w, n)
	}
	return w.Bytes()
}

func decodeSMPMsg2(payload []byte) (smp.Msg2, error) {
	r := wire.NewReader(payload)
	vals, err := decodeBigs(r, 11)
	if err != nil {
		return smp.Msg2{}, err
	}
	return smp.Msg2{
		G2B: vals[0], C2: vals[1], D2: vals[2],
		G3B: vals[3], C3: vals[4], D3: vals[5],
		Pb: vals[6], Qb: vals[7],
		Cp: vals[8], D5: vals[9], D6: vals[10],
	}, nil
}

func encodeSMPMsg3(m smp.Msg3) []byte {
	w := wire.NewWriter(nil)
	for _, n := range []*big.Int{m.Pa, m.Qa, m.Cp, m.D5, m.D6, m.Ra, m.Cr, m.D7} {
		encodeBig(w, n)
	}
	return w.Bytes()
}

func decodeSMPMsg3(payload []byte) (smp.Msg3, error) {
	r := wire.NewReader(payload)
	vals, err := decodeBigs(r, 8)
	if err != nil {
		return smp.Msg3{}, err
	}
	return smp.Msg3{
		Pa: vals[0], Qa: vals[1], Cp: vals[2], D5: vals[3], D6: vals[4],
		Ra: vals[5], Cr: vals[6], D7: vals[7],
	}, nil
}

func encodeSMPMsg4(m smp.Msg4) []byte {
	w := wire.NewWriter(nil)
	for _, n := range []*big.Int{m.Rb, m.Cr, m.D7} {
		encodeBig(w, n)
	}
	return w.Bytes()
}

func decodeSMPMsg4(payload []byte) (smp.Msg4, error) {
	r := wire.NewReader(payload)
	vals, err := decodeBigs(r, 3)
	if err != nil {
		return smp.Msg4{}, err
	}
	return smp.Msg4{Rb: vals[0], Cr: vals[1], D7: vals[2]}, nil
}

func decodeBigs(r *wire.Reader, n int) ([]*big.Int, error) {
	out := make([]*big.Int, n)
	for i := range out {
		v, err := decodeBig(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
