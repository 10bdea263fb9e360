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

// Package rho implements Brent's variant of Pollard's rho algorithm
// (the Pollard-rho subroutine), used by the sieve engine to
// split a composite residual carrying two or three large-prime factors.
//
// GetFactor retries over random starting points with GCD-based cycle
// detection using the classic x^2+c (mod n) polynomial and Brent's
// power-of-two batched GCD, returning an error once a bounded retry
// budget is exhausted without a split.
package rho

import (
	"crypto/rand"
	"math/big"

	"github.com/mrj001/friendly/errs"
)

// Retry/loop budget. A residual that was supposed to be composite but
// fails to split within this many attempts indicates an internal
// invariant violation upstream, not a transient rho failure.
const (
	retryBudget = 100
	maxIters    = 1 << 20
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// GetFactor returns a non-trivial factor of the composite n using Brent's
// variant of Pollard's rho. It returns an error wrapping
// errs.ErrInternalInvariant if no factor is found within the retry budget;
// this indicates the caller's assumption that n was
// composite was wrong, or extraordinarily bad luck.
func GetFactor(n *big.Int) (*big.Int, error) {
	if n.Bit(0) == 0 {
		return two, nil
	}
	for attempt := 0; attempt < retryBudget; attempt++ {
		c := randRange(one, n)
		y := randRange(big.NewInt(0), n)
		if f := brentAttempt(n, y, c); f != nil {
			return f, nil
		}
	}
	return nil, errs.New(errs.ErrInternalInvariant, "pollard rho: no factor found for %v within %d attempts", n, retryBudget)
}

// brentAttempt runs one Brent-cycle attempt with polynomial f(x)=x^2+c mod
// n and starting point y, returning a non-trivial factor or nil.
func brentAttempt(n, y, c *big.Int) *big.Int {
	x := new(big.Int).Set(y)
	g := big.NewInt(1)
	r := int64(1)
	q := big.NewInt(1)

	var ys *big.Int
	for g.Cmp(one) == 0 {
		x.Set(y)
		for i := int64(0); i < r; i++ {
			y = poly(y, c, n)
		}
		k := int64(0)
		for k < r && g.Cmp(one) == 0 {
			ys = new(big.Int).Set(y)
			lim := min64(3*(r-k)/4, r-k)
			if lim <= 0 {
				lim = r - k
			}
			for i := int64(0); i < lim; i++ {
				y = poly(y, c, n)
				diff := new(big.Int).Sub(x, y)
				diff.Abs(diff)
				q.Mul(q, diff)
				q.Mod(q, n)
			}
			g = new(big.Int).GCD(nil, nil, q, n)
			k += lim
		}
		r *= 2
		if r > maxIters {
			break
		}
	}
	if g.Cmp(n) == 0 {
		// backtrack one step at a time to find the exact point of failure
		for {
			ys = poly(ys, c, n)
			diff := new(big.Int).Sub(x, ys)
			diff.Abs(diff)
			g = new(big.Int).GCD(nil, nil, diff, n)
			if g.Cmp(one) > 0 {
				break
			}
		}
	}
	if g.Cmp(one) > 0 && g.Cmp(n) < 0 {
		return g
	}
	return nil
}

func poly(x, c, n *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	r.Add(r, c)
	r.Mod(r, n)
	return r
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func randRange(lo, hi *big.Int) *big.Int {
	span := new(big.Int).Sub(hi, lo)
	if span.Sign() <= 0 {
		return new(big.Int).Set(lo)
	}
	r, err := rand.Int(rand.Reader, span)
	if err != nil {
		panic(err)
	}
	return r.Add(r, lo)
}
