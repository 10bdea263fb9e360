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

package relation_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/relation"
)

func TestSingleLargePrimeCombinesOnSharedPrime(t *testing.T) {
	n := big.NewInt(1000003 * 1000033)
	store := relation.NewStore(n, 1, 1<<24)

	p := big.NewInt(999983)
	a := relation.New(big.NewInt(11), map[int]int{1: 2, 2: 1}, []*big.Int{p})
	b := relation.New(big.NewInt(13), map[int]int{1: 1, 3: 3}, []*big.Int{p})

	require.Empty(t, store.Add(a))
	full := store.Add(b)
	require.Len(t, full, 1)
	require.True(t, full[0].IsFull())
	require.Equal(t, 1, store.Count())
}

func TestTwoLargePrimesCloseACycle(t *testing.T) {
	n := big.NewInt(1000003 * 1000033)
	store := relation.NewStore(n, 2, 1<<24)

	p := big.NewInt(999983)
	q := big.NewInt(999979)
	r := big.NewInt(999961)

	// a: primes {p,q}; b: primes {q,r}; c: primes {r,p} closes the cycle.
	a := relation.New(big.NewInt(2), map[int]int{1: 1}, []*big.Int{p, q})
	b := relation.New(big.NewInt(3), map[int]int{1: 1}, []*big.Int{q, r})
	c := relation.New(big.NewInt(5), map[int]int{1: 1}, []*big.Int{r, p})

	require.Empty(t, store.Add(a))
	require.Empty(t, store.Add(b))
	full := store.Add(c)
	require.Len(t, full, 1)
	require.True(t, full[0].IsFull())
}

func TestThreeLargePrimesChainCombine(t *testing.T) {
	n := big.NewInt(1000003 * 1000033)
	store := relation.NewStore(n, 3, 1<<24)

	p1 := big.NewInt(999983)
	p2 := big.NewInt(999979)
	p3 := big.NewInt(999961)
	p4 := big.NewInt(999959)

	a := relation.New(big.NewInt(2), map[int]int{1: 1}, []*big.Int{p1, p2, p3})
	b := relation.New(big.NewInt(3), map[int]int{1: 1}, []*big.Int{p1, p2, p4})
	// a^b cancels p1,p2, leaving residual primes {p3,p4} pending.
	require.Empty(t, store.Add(a))
	require.Empty(t, store.Add(b))
	require.Equal(t, 1, store.PendingComponents())

	c := relation.New(big.NewInt(7), map[int]int{1: 1}, []*big.Int{p3, p4})
	full := store.Add(c)
	require.Len(t, full, 1)
	require.True(t, full[0].IsFull())
}

func TestAddRejectsOversizedPartial(t *testing.T) {
	n := big.NewInt(1000003 * 1000033)
	store := relation.NewStore(n, 1, 1000)

	tooLarge := big.NewInt(999983)
	a := relation.New(big.NewInt(2), map[int]int{1: 1}, []*big.Int{tooLarge})
	require.Empty(t, store.Add(a))
	require.Equal(t, 0, store.Count())
	require.Equal(t, 0, store.PendingComponents())
}

func TestExponentVectorParity(t *testing.T) {
	r := relation.New(big.NewInt(2), map[int]int{0: 1, 1: 2, 2: 3}, nil)
	bits := r.ExponentVector(3)
	require.Equal(t, []bool{true, false, true}, bits)
}

func TestSquareRootOfFullRelation(t *testing.T) {
	n := big.NewInt(10007 * 10009)
	// Factors: index0 sign(-1) exp0, index1 p=2 exp2, index2 p=3 exp4.
	primeAt := func(idx int) int64 {
		return map[int]int64{0: -1, 1: 2, 2: 3}[idx]
	}
	r := relation.New(big.NewInt(2), map[int]int{0: 0, 1: 2, 2: 4}, nil)
	got, err := r.SquareRoot(n, primeAt)
	require.NoError(t, err)
	want := big.NewInt(2 * 3 * 3) // 2^1 * 3^2
	require.Equal(t, 0, want.Cmp(got))
}
