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

package primes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/primes"
)

func sievePrimes(limit uint64) []uint64 {
	var out []uint64
	composite := make([]bool, limit+1)
	for i := uint64(2); i <= limit; i++ {
		if composite[i] {
			continue
		}
		out = append(out, i)
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return out
}

func TestIterateMatchesReferenceSieve(t *testing.T) {
	o := primes.New(1000)
	want := sievePrimes(o.Capacity() - 1)

	var got []uint64
	for p := range o.Iterate() {
		got = append(got, p)
	}
	require.Equal(t, want, got)
	require.Equal(t, len(want), o.NumPrimes())
}

func TestCapacityRoundsUpToMultipleOf64(t *testing.T) {
	o := primes.New(100) // 100 -> next multiple of 64 after 100 is 128
	require.Equal(t, uint64(128), o.Capacity())
}

func TestIsPrimeFastFailsOutsideSieve(t *testing.T) {
	o := primes.New(100)
	_, err := o.IsPrimeFast(o.Capacity())
	require.Error(t, err)

	ok, err := o.IsPrimeFast(97)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsPrimeBoundaryInclusive(t *testing.T) {
	o := primes.New(127) // capacity -> 128; 127 is prime and sieved
	require.True(t, o.IsPrime(127))
	require.True(t, o.IsPrime(131)) // beyond sieve: falls back to Miller-Rabin
	require.False(t, o.IsPrime(133))
}

func TestKnownCompositesAndPrimesBeyondSieve(t *testing.T) {
	o := primes.New(10)
	require.True(t, o.IsPrime(999999937))  // large known prime
	require.False(t, o.IsPrime(999999937*7)) // composite
}
