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

// Package primes implements the process-wide prime oracle:
// a Sieve of Eratosthenes up to a configured limit, plus deterministic
// Miller-Rabin above the sieve limit.
//
// The sieve itself is a bit-packed composite table over every integer
// below the capacity (even numbers above 2 pre-marked, odd primes sieved
// up to sqrt(capacity)) using the same 64-bit
// words bitarray.Array uses elsewhere in this module. Primality beyond
// the sieve limit uses a fixed base set rather than a probabilistic
// round count.
package primes

import (
	"iter"
	"math/big"

	"github.com/mrj001/friendly/bitarray"
	"github.com/mrj001/friendly/errs"
)

// deterministicBases are sufficient to prove primality for any 64-bit
// input (see Pomerance/Selfridge/Wagstaff and later extensions). Above
// 2^64 these bases make is_prime a (extremely reliable) probable-prime
// test.
var deterministicBases = []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// Oracle answers primality queries and iterates primes in ascending
// order. It is constructed once as a process-wide resource and is safe
// for concurrent reads from multiple sieve workers; it exposes no
// mutating method after Init.
type Oracle struct {
	capacity  uint64          // sieve covers [0, capacity), rounded up to a multiple of 64
	composite *bitarray.Array // bit i set => i is known composite (or i<2, or even and above 2)
	primeList []uint64
}

// New builds a prime oracle sieving [0, limit]. The effective sieve
// capacity is the next multiple of 64 after limit, so the largest sieved
// value is that multiple minus one; IsPrimeFast/Iterate are bounded by
// that rounded value, not by the raw limit argument.
func New(limit uint64) *Oracle {
	o := &Oracle{}
	o.init(limit)
	return o
}

func (o *Oracle) init(limit uint64) {
	capacity := ((limit / 64) + 1) * 64
	o.capacity = capacity
	o.composite = bitarray.New(int(capacity))
	o.composite.Set(0, true)
	if capacity > 1 {
		o.composite.Set(1, true)
	}
	for i := uint64(4); i < capacity; i += 2 {
		o.composite.Set(int(i), true)
	}
	for p := uint64(3); p*p < capacity; p += 2 {
		if o.composite.Get(int(p)) {
			continue
		}
		for m := p * p; m < capacity; m += 2 * p {
			o.composite.Set(int(m), true)
		}
	}
	o.primeList = make([]uint64, 0, int(float64(capacity)/10)+16)
	for i := uint64(2); i < capacity; i++ {
		if !o.composite.Get(int(i)) {
			o.primeList = append(o.primeList, i)
		}
	}
}

// Capacity returns the effective sieve upper bound (exclusive), i.e. the
// next multiple of 64 after the requested limit.
func (o *Oracle) Capacity() uint64 {
	return o.capacity
}

// IsPrimeFast answers strictly from the sieve table. It fails (returns an
// error) when n is outside the sieved range.
func (o *Oracle) IsPrimeFast(n uint64) (bool, error) {
	if n >= o.capacity {
		return false, errs.New(errs.ErrPreconditionViolated, "is_prime_fast: %d >= sieve capacity %d", n, o.capacity)
	}
	return !o.composite.Get(int(n)), nil
}

// IsPrime answers from the sieve when n is within the sieved range, and
// otherwise runs deterministic Miller-Rabin with the fixed base set.
func (o *Oracle) IsPrime(n uint64) bool {
	if n < o.capacity {
		return !o.composite.Get(int(n))
	}
	return millerRabin(n)
}

// IsPrimeBig answers primality for an arbitrary-precision candidate,
// falling back to math/big's ProbablyPrime (which itself performs a
// Miller-Rabin/BPSW combination) once the value exceeds 64 bits, since the
// fixed base set is only proven sufficient up to 2^64.
func (o *Oracle) IsPrimeBig(n *big.Int) bool {
	if n.IsUint64() {
		return o.IsPrime(n.Uint64())
	}
	return n.ProbablyPrime(40)
}

// Iterate returns primes in strictly increasing order starting at 2,
// bounded by Capacity(). It is a finite sequence.
func (o *Oracle) Iterate() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, p := range o.primeList {
			if !yield(p) {
				return
			}
		}
	}
}

// NumPrimes returns the number of primes below Capacity().
func (o *Oracle) NumPrimes() int {
	return len(o.primeList)
}

// millerRabin implements deterministic Miller-Rabin on a uint64 candidate
// using the fixed base set.
func millerRabin(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37} {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}
	d := n - 1
	r := 0
	for d%2 == 0 {
		d /= 2
		r++
	}
	N := new(big.Int).SetUint64(n)
	D := new(big.Int).SetUint64(d)
	nMinus1 := new(big.Int).Sub(N, big.NewInt(1))
next:
	for _, a := range deterministicBases {
		if uint64(a) >= n {
			continue
		}
		x := new(big.Int).Exp(big.NewInt(a), D, N)
		if x.Cmp(big.NewInt(1)) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}
		for i := 0; i < r-1; i++ {
			x.Mul(x, x)
			x.Mod(x, N)
			if x.Cmp(nMinus1) == 0 {
				continue next
			}
		}
		return false
	}
	return true
}
