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

package poly_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/poly"
	"github.com/mrj001/friendly/primes"
)

func testKN() *big.Int {
	// kN for n=10247*10267, k=1 (already 1 mod 8 is not required here; the
	// stream only needs a valid kN, not a Knuth-Schroeppel winner).
	return big.NewInt(10247 * 10267)
}

func TestNextProducesValidPolynomial(t *testing.T) {
	kn := testKN()
	oracle := primes.New(2000)
	s := poly.New(kn, 2000, 97, oracle)

	for i := 0; i < 5; i++ {
		p, err := s.Next()
		require.NoError(t, err)
		require.NotNil(t, p.D)

		// d must be ≡ 3 mod 4 and larger than maxFactorBase.
		require.Equal(t, int64(3), new(big.Int).Mod(p.D, big.NewInt(4)).Int64())
		require.True(t, p.D.Cmp(big.NewInt(97)) > 0)

		// a = d^2
		want := new(big.Int).Mul(p.D, p.D)
		require.Equal(t, 0, want.Cmp(p.A))

		// b^2 ≡ kN (mod a)
		bsq := new(big.Int).Mul(p.B, p.B)
		bsq.Mod(bsq, p.A)
		knModA := new(big.Int).Mod(kn, p.A)
		require.Equal(t, 0, bsq.Cmp(knModA), "b^2 mod a must equal kN mod a")

		// c = (b^2-kN)/(4a) exactly.
		fourA := new(big.Int).Mul(big.NewInt(4), p.A)
		num := new(big.Int).Mul(p.B, p.B)
		num.Sub(num, kn)
		wantC := new(big.Int).Div(num, fourA)
		require.Equal(t, 0, wantC.Cmp(p.C))

		// inv2d * 2d ≡ 1 (mod kN)
		twoD := new(big.Int).Mul(big.NewInt(2), p.D)
		prod := new(big.Int).Mul(twoD, p.Inv2D)
		prod.Mod(prod, kn)
		require.Equal(t, int64(1), prod.Int64())
	}
}

func TestNextNeverRepeats(t *testing.T) {
	kn := testKN()
	oracle := primes.New(2000)
	s := poly.New(kn, 2000, 97, oracle)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p, err := s.Next()
		require.NoError(t, err)
		key := p.D.String()
		require.False(t, seen[key], "d=%s produced twice", key)
		seen[key] = true
	}
}

func TestCursorRoundTrip(t *testing.T) {
	kn := testKN()
	oracle := primes.New(2000)
	s := poly.New(kn, 2000, 97, oracle)

	_, err := s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)
	c := s.Cursor()

	p3a, err := s.Next()
	require.NoError(t, err)

	s2 := poly.New(kn, 2000, 97, oracle)
	s2.Restore(c)
	p3b, err := s2.Next()
	require.NoError(t, err)

	require.Equal(t, 0, p3a.D.Cmp(p3b.D))
}

func TestEvalMatchesDefinition(t *testing.T) {
	kn := testKN()
	oracle := primes.New(2000)
	s := poly.New(kn, 2000, 97, oracle)
	p, err := s.Next()
	require.NoError(t, err)

	x := big.NewInt(12345)
	got := p.Eval(x)

	want := new(big.Int).Mul(p.A, x)
	want.Mul(want, x)
	t2 := new(big.Int).Mul(p.B, x)
	want.Add(want, t2)
	want.Add(want, p.C)

	require.Equal(t, 0, want.Cmp(got))
}

func TestLHSSquareMatchesEvalModKN(t *testing.T) {
	kn := testKN()
	oracle := primes.New(2000)
	s := poly.New(kn, 2000, 97, oracle)
	p, err := s.Next()
	require.NoError(t, err)

	for _, xv := range []int64{0, 1, -1, 12345, -9999} {
		x := big.NewInt(xv)
		lhs := p.LHS(x)
		lhsSq := new(big.Int).Mul(lhs, lhs)
		lhsSq.Mod(lhsSq, kn)

		qModKN := new(big.Int).Mod(p.Eval(x), kn)
		require.Equal(t, 0, qModKN.Cmp(lhsSq), "LHS(x)^2 mod kN must equal Q(x) mod kN")
	}
}
