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

// Package factorbase selects the MPQS multiplier k and factor base
// (Knuth-Schroeppel) and stores the resulting per-prime
// (prime, log(prime), sqrt(kN) mod p) triples.
//
// Selection first picks a multiplier k to maximize a Knuth-Schroeppel
// smoothness-probability score, then collects the first B primes p for
// which kN is a quadratic residue mod p, plus the corresponding
// sqrt(kN) mod p table.
package factorbase

import (
	"math"
	"math/big"

	"github.com/mrj001/friendly/errs"
	"github.com/mrj001/friendly/intcalc"
	"github.com/mrj001/friendly/primes"
)

// Prime is one entry of the factor base: p, its natural-log weight used by
// the sieve's log-sum accumulator, and r = sqrt(kN) mod p (unused, zero,
// for the two sentinel entries p=-1 and p=2).
type Prime struct {
	P    int64
	LogP float32
	R    int64
}

// Base is the complete MPQS factor base for a chosen multiplier k: the
// sign sentinel (-1), the prime 2, and the odd primes p with (kN|p)=1,
// ordered ascending.
type Base struct {
	K      int64
	N      *big.Int
	KN     *big.Int
	Primes []Prime // Primes[0] = {-1,...}; Primes[1] = {2,...}; rest ascending odd primes
}

// candidateMultipliers is the Knuth-Schroeppel search space
// M={1,3,5,...,97}.
func candidateMultipliers() []int64 {
	out := make([]int64, 0, 49)
	for k := int64(1); k <= 97; k += 2 {
		out = append(out, k)
	}
	return out
}

// Select runs the Knuth-Schroeppel multiplier search and returns the
// factor base of size-2 odd-prime entries plus the two sentinels
// (so len(Primes) == size). It fails with ErrPreconditionViolated if no
// candidate k satisfies kN ≡ 1 (mod 8).
func Select(n *big.Int, size int, oracle *primes.Oracle) (*Base, error) {
	if size < 3 {
		size = 3
	}
	type scored struct {
		k     int64
		score float64
		fb    []Prime
	}
	var best *scored

	for _, k := range candidateMultipliers() {
		kn := new(big.Int).Mul(big.NewInt(k), n)
		mod8 := new(big.Int).Mod(kn, big.NewInt(8))
		if mod8.Int64() != 1 {
			continue
		}
		oddPrimes := collectOddPrimes(kn, size-2, oracle)
		if len(oddPrimes) < size-2 {
			// not enough primes in the oracle's sieve range for this N;
			// caller should have sized the oracle generously (see
			// estimateOracleLimit in friendly/session.go).
			continue
		}
		score := knuthSchroeppelScore(k, kn, oddPrimes)
		if best == nil || score > best.score {
			best = &scored{k: k, score: score, fb: oddPrimes}
		}
	}
	if best == nil {
		return nil, errs.Precondition("no multiplier k in {1,3,...,97} satisfies kN ≡ 1 (mod 8)")
	}

	kn := new(big.Int).Mul(big.NewInt(best.k), n)
	primesOut := make([]Prime, 0, size)
	primesOut = append(primesOut, Prime{P: -1})
	primesOut = append(primesOut, Prime{P: 2, LogP: float32(math.Log(2))})
	for _, p := range best.fb {
		r, err := intcalc.ModSqrt(kn, big.NewInt(p))
		if err != nil {
			return nil, errs.New(errs.ErrInternalInvariant, "modsqrt(kN,%d) failed despite Jacobi=1: %v", p, err)
		}
		primesOut = append(primesOut, Prime{
			P:    p,
			LogP: float32(math.Log(float64(p))),
			R:    r.Int64(),
		})
	}
	return &Base{
		K:      best.k,
		N:      n,
		KN:     kn,
		Primes: primesOut,
	}, nil
}

// collectOddPrimes returns the first count odd primes p (ascending, from
// the oracle's sieve) for which kN is a quadratic residue mod p, i.e.
// Jacobi(kN|p) = 1.
func collectOddPrimes(kn *big.Int, count int, oracle *primes.Oracle) []int64 {
	if count <= 0 {
		return nil
	}
	out := make([]int64, 0, count)
	for p := range oracle.Iterate() {
		if p == 2 {
			continue
		}
		pBig := new(big.Int).SetUint64(p)
		if intcalc.Jacobi(kn, pBig) == 1 {
			out = append(out, int64(p))
			if len(out) == count {
				break
			}
		}
	}
	return out
}

// knuthSchroeppelScore implements the Knuth-Schroeppel score f(k):
//
//	f(k) = Σ_{p∈FB,p>0} log(p)·g(k,p) − ½·log(k)
//
// with g(k,2)=2 when kN≡1(mod 8) (always true for callers of this
// function, which only evaluate candidates already filtered on that
// condition) and g(k,p)=2/p if p∤k else 1/p for odd p.
func knuthSchroeppelScore(k int64, kn *big.Int, oddPrimes []int64) float64 {
	score := 2.0 * math.Log(2) // g(k,2) = 2, weighted by log(2)
	for _, p := range oddPrimes {
		g := 2.0 / float64(p)
		if k%p == 0 {
			g = 1.0 / float64(p)
		}
		score += math.Log(float64(p)) * g
	}
	score -= 0.5 * math.Log(float64(k))
	return score
}

// NumPrimes returns the total factor base size, sentinels included.
func (b *Base) NumPrimes() int {
	return len(b.Primes)
}

// MaxFactor returns the largest factor-base prime.
func (b *Base) MaxFactor() int64 {
	return b.Primes[len(b.Primes)-1].P
}

// FindDivisor returns the index of a factor-base prime (sentinels
// excluded) that divides n, or -1 if none does. Used at driver start-up
// to sanity-check that no factor-base prime divides N, per the driver's
// step 1.
func (b *Base) FindDivisor(n *big.Int) int {
	for i := 2; i < len(b.Primes); i++ {
		p := big.NewInt(b.Primes[i].P)
		if new(big.Int).Mod(n, p).Sign() == 0 {
			return i
		}
	}
	return -1
}
