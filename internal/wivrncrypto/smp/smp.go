// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package smp

import (
	"fmt"
	"math/big"
)

// Msg1 is Alice's first message: her half of the DH exchanges that will
// determine g2 and g3, with zero-knowledge proofs of the exponents.
type Msg1 struct {
	G2A, C2, D2 *big.Int
	G3A, C3, D3 *big.Int
}

// Msg2 is Bob's reply: his halves of g2/g3, plus his (P, Q) coordinate
// pair and its proof of correct construction.
type Msg2 struct {
	G2B, C2, D2 *big.Int
	G3B, C3, D3 *big.Int
	Pb, Qb      *big.Int
	Cp, D5, D6  *big.Int
}

// Msg3 is Alice's reply: her (P, Q) pair, its proof, and Ra with its
// log-equality proof.
type Msg3 struct {
	Pa, Qa     *big.Int
	Cp, D5, D6 *big.Int
	Ra         *big.Int
	Cr, D7     *big.Int
}

// Msg4 is Bob's final message: Rb and its log-equality proof. Receiving
// and verifying it is what lets Alice learn whether the secrets matched.
type Msg4 struct {
	Rb     *big.Int
	Cr, D7 *big.Int
}

// SMP runs one side of a socialist-millionaire PAKE exchange comparing a
// shared secret (the 6-digit pairing PIN) without revealing it, per
// spec.md section 4.D's pairing ceremony. A value is used for exactly one
// exchange: call New for each new pairing attempt.
type SMP struct {
	secret     *big.Int
	x2, x3     *big.Int
	g1, g2, g3 *big.Int
	g3o        *big.Int
	p, q       *big.Int
	pab, qab   *big.Int
}

// New returns a freshly reset SMP state.
func New() *SMP {
	s := &SMP{}
	s.reset()
	return s
}

func (s *SMP) reset() {
	s.secret = new(big.Int)
	s.x2 = new(big.Int)
	s.x3 = new(big.Int)
	s.g1 = new(big.Int).Set(smGenerator)
	s.g2 = new(big.Int)
	s.g3 = new(big.Int)
	s.g3o = new(big.Int)
	s.p = new(big.Int)
	s.q = new(big.Int)
	s.pab = new(big.Int)
	s.qab = new(big.Int)
}

func proofKnowLog(g, x *big.Int, version byte) (c, d *big.Int, err error) {
	r, err := randomExponent()
	if err != nil {
		return nil, nil, err
	}
	temp := powm(g, r, smModulus)
	c = hashSMP(version, temp, nil)
	temp = mulm(x, c, smOrder)
	d = subm(r, temp, smOrder)
	return c, d, nil
}

func checkKnowLog(c, d, g, x *big.Int, version byte) bool {
	gd := powm(g, d, smModulus)
	xc := powm(x, c, smModulus)
	gdxc := mulm(gd, xc, smModulus)
	return hashSMP(version, gdxc, nil).Cmp(c) == 0
}

func (s *SMP) proofEqualCoords(r *big.Int, version byte) (c, d1, d2 *big.Int, err error) {
	r1, err := randomExponent()
	if err != nil {
		return nil, nil, nil, err
	}
	r2, err := randomExponent()
	if err != nil {
		return nil, nil, nil, err
	}

	temp1 := powm(s.g1, r1, smModulus)
	temp2 := powm(s.g2, r2, smModulus)
	temp2 = mulm(temp1, temp2, smModulus)
	temp1 = powm(s.g3, r1, smModulus)
	c = hashSMP(version, temp1, temp2)

	temp1 = mulm(r, c, smOrder)
	d1 = subm(r1, temp1, smOrder)

	temp1 = mulm(s.secret, c, smOrder)
	d2 = subm(r2, temp1, smOrder)

	return c, d1, d2, nil
}

func (s *SMP) checkEqualCoords(c, d1, d2, p, q *big.Int, version byte) bool {
	temp2 := powm(s.g3, d1, smModulus)
	temp3 := powm(p, c, smModulus)
	temp1 := mulm(temp2, temp3, smModulus)

	temp2 = powm(s.g1, d1, smModulus)
	temp3 = powm(s.g2, d2, smModulus)
	temp2 = mulm(temp2, temp3, smModulus)
	temp3 = powm(q, c, smModulus)
	temp2 = mulm(temp3, temp2, smModulus)

	cprime := hashSMP(version, temp1, temp2)
	return c.Cmp(cprime) == 0
}

func (s *SMP) proofEqualLogs(version byte) (c, d *big.Int, err error) {
	r, err := randomExponent()
	if err != nil {
		return nil, nil, err
	}
	temp1 := powm(s.g1, r, smModulus)
	temp2 := powm(s.qab, r, smModulus)
	c = hashSMP(version, temp1, temp2)

	temp1 = mulm(s.x3, c, smOrder)
	d = subm(r, temp1, smOrder)
	return c, d, nil
}

func (s *SMP) checkEqualLogs(c, d, r *big.Int, version byte) bool {
	temp2 := powm(s.g1, d, smModulus)
	temp3 := powm(s.g3o, c, smModulus)
	temp1 := mulm(temp2, temp3, smModulus)

	temp3 = powm(s.qab, d, smModulus)
	temp2 = powm(r, c, smModulus)
	temp2 = mulm(temp3, temp2, smModulus)

	cprime := hashSMP(version, temp1, temp2)
	return c.Cmp(cprime) == 0
}

// Step1 is run by Alice: it commits to her secret and starts the DH
// exchanges for g2 and g3.
func (s *SMP) Step1(secret []byte) (Msg1, error) {
	s.reset()
	s.secret = new(big.Int).SetBytes(secret)

	x2, err := randomExponent()
	if err != nil {
		return Msg1{}, err
	}
	x3, err := randomExponent()
	if err != nil {
		return Msg1{}, err
	}
	s.x2, s.x3 = x2, x3

	g2a := powm(s.g1, x2, smModulus)
	c2, d2, err := proofKnowLog(s.g1, x2, 1)
	if err != nil {
		return Msg1{}, err
	}
	g3a := powm(s.g1, x3, smModulus)
	c3, d3, err := proofKnowLog(s.g1, x3, 2)
	if err != nil {
		return Msg1{}, err
	}

	return Msg1{G2A: g2a, C2: c2, D2: d2, G3A: g3a, C3: c3, D3: d3}, nil
}

// Step2a is run by Bob: it validates Alice's first message and completes
// the g2/g3 DH exchange from Bob's side.
func (s *SMP) Step2a(in Msg1) error {
	s.reset()

	if checkGroupElem(in.G2A) || checkExpon(in.D2) || checkGroupElem(in.G3A) || checkExpon(in.D3) {
		return ErrCheated
	}
	s.g3o = in.G3A

	if !checkKnowLog(in.C2, in.D2, s.g1, in.G2A, 1) || !checkKnowLog(in.C3, in.D3, s.g1, in.G3A, 2) {
		return ErrCheated
	}

	x2, err := randomExponent()
	if err != nil {
		return err
	}
	x3, err := randomExponent()
	if err != nil {
		return err
	}
	s.x2, s.x3 = x2, x3

	s.g2 = powm(in.G2A, x2, smModulus)
	s.g3 = powm(in.G3A, x3, smModulus)
	return nil
}

// Step2b is run by Bob after Step2a: it commits to Bob's secret and
// returns Bob's half of the exchange plus his (P, Q) coordinates.
func (s *SMP) Step2b(secret []byte) (Msg2, error) {
	s.secret = new(big.Int).SetBytes(secret)

	g2b := powm(s.g1, s.x2, smModulus)
	c2, d2, err := proofKnowLog(s.g1, s.x2, 3)
	if err != nil {
		return Msg2{}, err
	}
	g3b := powm(s.g1, s.x3, smModulus)
	c3, d3, err := proofKnowLog(s.g1, s.x3, 4)
	if err != nil {
		return Msg2{}, err
	}

	r, err := randomExponent()
	if err != nil {
		return Msg2{}, err
	}

	s.p = powm(s.g3, r, smModulus)
	qb1 := powm(s.g1, r, smModulus)
	qb2 := powm(s.g2, s.secret, smModulus)
	s.q = mulm(qb1, qb2, smModulus)

	cp, d5, d6, err := s.proofEqualCoords(r, 5)
	if err != nil {
		return Msg2{}, err
	}

	return Msg2{
		G2B: g2b, C2: c2, D2: d2,
		G3B: g3b, C3: c3, D3: d3,
		Pb: s.p, Qb: s.q,
		Cp: cp, D5: d5, D6: d6,
	}, nil
}

// Step2 combines Step2a and Step2b, the usual way Bob runs them back to
// back once he has both Alice's message and his own secret in hand.
func (s *SMP) Step2(in Msg1, secret []byte) (Msg2, error) {
	if err := s.Step2a(in); err != nil {
		return Msg2{}, err
	}
	return s.Step2b(secret)
}

// Step3 is run by Alice after receiving Bob's Msg2: it verifies Bob's
// proofs, completes g2/g3, and returns Alice's (P, Q) pair plus the
// partial log-equality proof Ra.
func (s *SMP) Step3(in Msg2) (Msg3, error) {
	if checkGroupElem(in.G2B) || checkGroupElem(in.G3B) || checkGroupElem(in.Pb) || checkGroupElem(in.Qb) ||
		checkExpon(in.D2) || checkExpon(in.D3) || checkExpon(in.D5) || checkExpon(in.D6) {
		return Msg3{}, ErrCheated
	}
	s.g3o = in.G3B

	if !checkKnowLog(in.C2, in.D2, s.g1, in.G2B, 3) || !checkKnowLog(in.C3, in.D3, s.g1, in.G3B, 4) {
		return Msg3{}, ErrCheated
	}

	s.g2 = powm(in.G2B, s.x2, smModulus)
	s.g3 = powm(in.G3B, s.x3, smModulus)

	if !s.checkEqualCoords(in.Cp, in.D5, in.D6, in.Pb, in.Qb, 5) {
		return Msg3{}, ErrCheated
	}

	r, err := randomExponent()
	if err != nil {
		return Msg3{}, err
	}
	s.p = powm(s.g3, r, smModulus)
	qa1 := powm(s.g1, r, smModulus)
	qa2 := powm(s.g2, s.secret, smModulus)
	s.q = mulm(qa1, qa2, smModulus)

	cp, d5, d6, err := s.proofEqualCoords(r, 6)
	if err != nil {
		return Msg3{}, err
	}

	s.pab = mulm(s.p, invm(in.Pb, smModulus), smModulus)
	s.qab = mulm(s.q, invm(in.Qb, smModulus), smModulus)
	ra := powm(s.qab, s.x3, smModulus)

	cr, d7, err := s.proofEqualLogs(7)
	if err != nil {
		return Msg3{}, err
	}

	return Msg3{Pa: s.p, Qa: s.q, Cp: cp, D5: d5, D6: d6, Ra: ra, Cr: cr, D7: d7}, nil
}

// Step4 is run by Bob after receiving Alice's Msg3: it verifies her
// proofs, computes Bob's half of the log-equality proof, and reports
// whether the two secrets matched.
func (s *SMP) Step4(in Msg3) (out Msg4, match bool, err error) {
	if checkGroupElem(in.Pa) || checkGroupElem(in.Qa) || checkGroupElem(in.Ra) ||
		checkExpon(in.D5) || checkExpon(in.D6) || checkExpon(in.D7) {
		return Msg4{}, false, ErrCheated
	}

	if !s.checkEqualCoords(in.Cp, in.D5, in.D6, in.Pa, in.Qa, 6) {
		return Msg4{}, false, ErrCheated
	}

	s.pab = mulm(in.Pa, invm(s.p, smModulus), smModulus)
	s.qab = mulm(in.Qa, invm(s.q, smModulus), smModulus)

	if !s.checkEqualLogs(in.Cr, in.D7, in.Ra, 7) {
		return Msg4{}, false, ErrCheated
	}

	rb := powm(s.qab, s.x3, smModulus)
	cr, d7, err := s.proofEqualLogs(8)
	if err != nil {
		return Msg4{}, false, err
	}

	rab := powm(in.Ra, s.x3, smModulus)
	match = rab.Cmp(s.pab) == 0

	return Msg4{Rb: rb, Cr: cr, D7: d7}, match, nil
}

// Step5 is run by Alice after receiving Bob's Msg4: it verifies his
// final proof and reports whether the two secrets matched.
func (s *SMP) Step5(in Msg4) (match bool, err error) {
	if checkGroupElem(in.Rb) || checkExpon(in.D7) {
		return false, ErrCheated
	}

	if !s.checkEqualLogs(in.Cr, in.D7, in.Rb, 8) {
		return false, ErrCheated
	}

	rab := powm(in.Rb, s.x3, smModulus)
	return rab.Cmp(s.pab) == 0, nil
}

func (s *SMP) String() string {
	return fmt.Sprintf("smp.SMP{g2=%s g3=%s}", s.g2.Text(16), s.g3.Text(16))
}
