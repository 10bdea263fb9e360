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

// Package intcalc provides pure arbitrary-precision integer helpers used
// throughout the factoring core: gcd, integer
// roots, modular exponentiation/inverse, the Jacobi symbol and modular
// square roots via Tonelli-Shanks.
//
// Functions operate directly on *big.Int rather than a wrapper type so
// the sieve's hot inner loop can reuse accumulators instead of
// allocating a wrapper struct per operation.
package intcalc

import (
	"math/big"

	"github.com/mrj001/friendly/errs"
)

var (
	one  = big.NewInt(1)
	four = big.NewInt(4)
)

// GCD returns the greatest common divisor of a and b (both assumed >= 0),
// via the Euclidean algorithm (math/big's GCD already implements this).
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

// ISqrt returns r with r*r <= n < (r+1)*(r+1). Panics if n is negative.
func ISqrt(n *big.Int) *big.Int {
	if n.Sign() < 0 {
		panic(errs.New(errs.ErrInternalInvariant, "ISqrt of negative number"))
	}
	return new(big.Int).Sqrt(n)
}

// IRoot returns r with r^k <= n < (r+1)^k, used to detect perfect powers.
// n must be non-negative and k must be >= 1.
func IRoot(n *big.Int, k int) *big.Int {
	if n.Sign() == 0 {
		return big.NewInt(0)
	}
	if k == 1 {
		return new(big.Int).Set(n)
	}
	// Newton's method on f(x) = x^k - n, starting from a bit-length based
	// estimate and a halving-interval bracket built with big.Int
	// bit-shift doubling.
	bitEstimate := (n.BitLen() + k - 1) / k
	x := new(big.Int).Lsh(one, uint(bitEstimate)+1)
	kBig := big.NewInt(int64(k))
	kMinus1 := big.NewInt(int64(k - 1))
	for {
		// x_{n+1} = ((k-1)*x + n/x^{k-1}) / k
		xkm1 := new(big.Int).Exp(x, kMinus1, nil)
		if xkm1.Sign() == 0 {
			xkm1 = one
		}
		term := new(big.Int).Div(n, xkm1)
		next := new(big.Int).Mul(kMinus1, x)
		next.Add(next, term)
		next.Div(next, kBig)
		if next.Cmp(x) >= 0 {
			break
		}
		x = next
	}
	// x may overshoot by one due to truncation; correct downward.
	for new(big.Int).Exp(x, kBig, nil).Cmp(n) > 0 {
		x = x.Sub(x, one)
	}
	for new(big.Int).Exp(new(big.Int).Add(x, one), kBig, nil).Cmp(n) <= 0 {
		x = x.Add(x, one)
	}
	return x
}

// IsPerfectPower reports whether n = b^k for some b>1, k>1, and if so
// returns the base and exponent.
func IsPerfectPower(n *big.Int) (base *big.Int, exp int, ok bool) {
	for k := n.BitLen(); k >= 2; k-- {
		r := IRoot(n, k)
		if r.Cmp(one) > 0 && new(big.Int).Exp(r, big.NewInt(int64(k)), nil).Cmp(n) == 0 {
			return r, k, true
		}
	}
	return nil, 0, false
}

// ModPow returns a^e mod m.
func ModPow(a, e, m *big.Int) *big.Int {
	return new(big.Int).Exp(a, e, m)
}

// ModInverse returns the multiplicative inverse of a modulo m. Fails
// (returns nil) when gcd(a,m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	r := new(big.Int).ModInverse(a, m)
	if r == nil {
		return nil, errs.New(errs.ErrInternalInvariant, "no modular inverse of %v mod %v", a, m)
	}
	return r, nil
}

// Jacobi computes the Jacobi symbol (a|n) for odd n>0.
func Jacobi(a, n *big.Int) int {
	return big.Jacobi(a, n)
}

// ModSqrt computes one square root of a modulo the odd prime p, requiring
// the Jacobi/Legendre symbol (a|p) = 1 (a is a quadratic residue), via
// Tonelli-Shanks.
func ModSqrt(a, p *big.Int) (*big.Int, error) {
	amod := new(big.Int).Mod(a, p)
	if amod.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if Jacobi(amod, p) != 1 {
		return nil, errs.New(errs.ErrInternalInvariant, "%v is not a quadratic residue mod %v", a, p)
	}
	// Fast path p ≡ 3 (mod 4).
	pMod4 := new(big.Int).Mod(p, four)
	if pMod4.Cmp(big.NewInt(3)) == 0 {
		exp := new(big.Int).Add(p, one)
		exp.Rsh(exp, 2)
		return new(big.Int).Exp(amod, exp, p), nil
	}

	// Factor p-1 = Q*2^S with Q odd.
	S := 0
	Q := new(big.Int).Sub(p, one)
	for Q.Bit(0) == 0 {
		S++
		Q.Rsh(Q, 1)
	}

	// Find a quadratic non-residue z.
	z := big.NewInt(2)
	for Jacobi(z, p) != -1 {
		z.Add(z, one)
	}
	c := ModPow(z, Q, p)
	Qplus1over2 := new(big.Int).Add(Q, one)
	Qplus1over2.Rsh(Qplus1over2, 1)
	R := ModPow(amod, Qplus1over2, p)
	t := ModPow(amod, Q, p)
	M := S

	for t.Cmp(one) != 0 {
		// find least i, 0<i<M, with t^(2^i) = 1
		i := 1
		tt := new(big.Int).Mul(t, t)
		tt.Mod(tt, p)
		for tt.Cmp(one) != 0 {
			i++
			tt.Mul(tt, tt)
			tt.Mod(tt, p)
		}
		b := ModPow(c, new(big.Int).Lsh(one, uint(M-i-1)), p)
		R.Mul(R, b)
		R.Mod(R, p)
		b2 := new(big.Int).Mul(b, b)
		b2.Mod(b2, p)
		t.Mul(t, b2)
		t.Mod(t, p)
		c = b2
		M = i
	}
	return R, nil
}
