//----------------------------------------------------------------------
// This file is part of friendly.
// Copyright (C) 2011-present, Bernd Fix  >Y<
//
// friendly is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// friendly is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Package poly implements the lazy, infinite, restartable MPQS polynomial
// stream: Q(x) = a·x² + b·x + c with a = d², d prime
// ≡ 3 (mod 4), (kN|d) = 1, d > maxFactorBase, alternating symmetrically
// around an ideal magnitude d₀.
//
// Unlike a single fixed quadratic sieving function, Stream generalizes
// to infinitely many self-initializing polynomials sharing one factor
// base, each produced by a Hensel lift.
package poly

import (
	"math/big"
	"sync"

	"github.com/mrj001/friendly/errs"
	"github.com/mrj001/friendly/intcalc"
	"github.com/mrj001/friendly/primes"
)

var (
	one  = big.NewInt(1)
	two  = big.NewInt(2)
	four = big.NewInt(4)
)

// Polynomial is one MPQS polynomial Q(x) = a·x² + b·x + c, with a = d²,
// b² ≡ kN (mod 4a), c = (b²-kN)/(4a) exactly, and inv2d = (2d)⁻¹ mod kN
// cached for the sieve's square-root reconstruction: since
// 4a = (2d)², (2ax+b)² ≡ 4a·Q(x) (mod kN), so inv2d·(2ax+b) is a square
// root of Q(x) mod kN whenever Q(x) itself is fully factor-base-smooth.
type Polynomial struct {
	D     *big.Int
	A     *big.Int
	B     *big.Int
	C     *big.Int
	KN    *big.Int
	Inv2D *big.Int
}

// Eval returns Q(x) = a·x² + b·x + c.
func (p *Polynomial) Eval(x *big.Int) *big.Int {
	t1 := new(big.Int).Mul(p.A, x)
	t1.Mul(t1, x)
	t2 := new(big.Int).Mul(p.B, x)
	t1.Add(t1, t2)
	t1.Add(t1, p.C)
	return t1
}

// LHS returns inv2d·(2a·x+b) mod kN, the value whose square is congruent
// to Q(x) modulo kN once Q(x) has been confirmed factor-base-smooth.
func (p *Polynomial) LHS(x *big.Int) *big.Int {
	r := new(big.Int).Mul(two, p.A)
	r.Mul(r, x)
	r.Add(r, p.B)
	r.Mul(r, p.Inv2D)
	r.Mod(r, p.KN)
	return r
}

// Cursor is the restartable state of a Stream (lowerD, higherD,
// nextDHigher, and whether the lower side is exhausted).
type Cursor struct {
	LowerD     *big.Int
	HigherD    *big.Int
	NextHigher bool
	Exhausted  bool // lower cursor has dropped at or below maxFactorBase
}

// Stream produces MPQS polynomials on demand, guarded by a mutex so many
// sieve workers can pull concurrently.
type Stream struct {
	mu      sync.Mutex
	kn      *big.Int
	maxFB   int64
	oracle  *primes.Oracle
	lowerD  *big.Int
	higherD *big.Int
	next    bool // true: next pick comes from the higher cursor
	done    bool // lower side exhausted (dropped to <= maxFB)
}

// New builds a polynomial stream for kN, sieve half-width m, and factor
// base bound maxFB (every produced d must exceed it).
func New(kn *big.Int, m int, maxFB int64, oracle *primes.Oracle) *Stream {
	d0 := idealD(kn, m)
	s := &Stream{
		kn:     kn,
		maxFB:  maxFB,
		oracle: oracle,
	}
	s.lowerD = align3mod4Down(d0)
	s.higherD = align3mod4Up(new(big.Int).Add(d0, one))
	return s
}

// idealD computes d0 = floor(sqrt(sqrt(kN)/(4M))).
func idealD(kn *big.Int, m int) *big.Int {
	sq := intcalc.ISqrt(kn)
	denom := new(big.Int).Mul(four, big.NewInt(int64(m)))
	quotient := new(big.Int).Div(sq, denom)
	return intcalc.ISqrt(quotient)
}

func align3mod4Down(x *big.Int) *big.Int {
	r := new(big.Int).Mod(x, four)
	delta := new(big.Int).Sub(r, big.NewInt(3))
	if delta.Sign() > 0 {
		delta.Sub(delta, four)
	}
	return new(big.Int).Add(x, delta)
}

func align3mod4Up(x *big.Int) *big.Int {
	r := new(big.Int).Mod(x, four)
	delta := new(big.Int).Sub(big.NewInt(3), r)
	if delta.Sign() < 0 {
		delta.Add(delta, four)
	}
	return new(big.Int).Add(x, delta)
}

// Cursor snapshots the current stream position for persistence.
func (s *Stream) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Cursor{
		LowerD:     new(big.Int).Set(s.lowerD),
		HigherD:    new(big.Int).Set(s.higherD),
		NextHigher: s.next,
		Exhausted:  s.done,
	}
}

// Restore resumes a stream from a previously saved Cursor.
func (s *Stream) Restore(c Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lowerD = new(big.Int).Set(c.LowerD)
	s.higherD = new(big.Int).Set(c.HigherD)
	s.next = c.NextHigher
	s.done = c.Exhausted
}

// Next produces the next polynomial in the stream. It is safe to call
// concurrently from multiple sieve workers.
func (s *Stream) Next() (*Polynomial, error) {
	d, err := s.nextD()
	if err != nil {
		return nil, err
	}
	return buildPolynomial(s.kn, d)
}

// nextD advances the alternating lower/higher cursors to the next valid
// d, alternating symmetrically around d0: one below, one above,
// repeating; continues upward only when the lower cursor is exhausted
// below the factor-base bound.
func (s *Stream) nextD() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if !s.done && !s.next {
			d, ok := s.tryLower()
			s.next = true
			if ok {
				return d, nil
			}
			s.done = true
			continue
		}
		d, ok := s.tryHigher()
		if !s.done {
			s.next = false
		}
		if ok {
			return d, nil
		}
		// Practically unreachable (there are infinitely many primes),
		// but guards against a runaway loop on a malformed kN.
		return nil, errs.Exhausted("polynomial stream: no suitable d found above %v", s.higherD)
	}
}

const maxProbe = 1_000_000

func (s *Stream) tryLower() (*big.Int, bool) {
	for i := 0; i < maxProbe; i++ {
		if s.lowerD.Int64() <= s.maxFB && s.lowerD.IsInt64() {
			return nil, false
		}
		if s.lowerD.Sign() <= 0 {
			return nil, false
		}
		if s.isCandidate(s.lowerD) {
			d := new(big.Int).Set(s.lowerD)
			s.lowerD.Sub(s.lowerD, four)
			return d, true
		}
		s.lowerD.Sub(s.lowerD, four)
	}
	return nil, false
}

func (s *Stream) tryHigher() (*big.Int, bool) {
	for i := 0; i < maxProbe; i++ {
		if s.isCandidate(s.higherD) {
			d := new(big.Int).Set(s.higherD)
			s.higherD.Add(s.higherD, four)
			return d, true
		}
		s.higherD.Add(s.higherD, four)
	}
	return nil, false
}

func (s *Stream) isCandidate(d *big.Int) bool {
	if d.Cmp(big.NewInt(s.maxFB)) <= 0 {
		return false
	}
	if intcalc.Jacobi(s.kn, d) != 1 {
		return false
	}
	return s.oracle.IsPrimeBig(d)
}

// buildPolynomial derives (a,b,c,inv2d) from d via Hensel lifting of
// kN's square root mod d up to mod d².
func buildPolynomial(kn, d *big.Int) (*Polynomial, error) {
	a := new(big.Int).Mul(d, d)

	dPlus1Over4 := new(big.Int).Add(d, one)
	dPlus1Over4.Div(dPlus1Over4, four)
	h1 := new(big.Int).Exp(kn, dPlus1Over4, d)

	dMinus3Over4 := new(big.Int).Sub(d, big.NewInt(3))
	dMinus3Over4.Div(dMinus3Over4, four)
	h0 := new(big.Int).Exp(kn, dMinus3Over4, d)
	if h0.Bit(0) == 1 {
		h0.Add(h0, d)
	}

	h1sq := new(big.Int).Mul(h1, h1)
	diff := new(big.Int).Sub(kn, h1sq)
	diffOverD := new(big.Int).Div(diff, d)

	h2 := new(big.Int).Div(h0, two)
	h2.Mul(h2, diffOverD)
	h2.Mod(h2, d)

	b := new(big.Int).Mul(h2, d)
	b.Add(b, h1)
	b.Mod(b, a)
	if b.Bit(0) == 0 {
		b.Sub(a, b)
	}

	bsq := new(big.Int).Mul(b, b)
	num := new(big.Int).Sub(bsq, kn)
	fourA := new(big.Int).Mul(four, a)
	rem := new(big.Int).Mod(num, fourA)
	if rem.Sign() != 0 {
		return nil, errs.Invariant("polynomial build: (b^2-kN) not divisible by 4a for d=%v", d)
	}
	c := new(big.Int).Div(num, fourA)

	twoD := new(big.Int).Mul(two, d)
	inv2d, err := intcalc.ModInverse(twoD, kn)
	if err != nil {
		return nil, errs.New(errs.ErrInternalInvariant, "no inverse of 2d mod kN for d=%v: %v", d, err)
	}

	return &Polynomial{D: d, A: a, B: b, C: c, KN: kn, Inv2D: inv2d}, nil
}
