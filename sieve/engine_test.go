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

package sieve_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/factorbase"
	"github.com/mrj001/friendly/poly"
	"github.com/mrj001/friendly/primes"
	"github.com/mrj001/friendly/relation"
	"github.com/mrj001/friendly/sieve"
)

func TestSievingProducesVerifiableFullRelations(t *testing.T) {
	n := big.NewInt(10247 * 10267)
	oracle := primes.New(200000)
	fb, err := factorbase.Select(n, 40, oracle)
	require.NoError(t, err)

	const m = 20000
	store := relation.NewStore(fb.KN, 2, 500000)
	stream := poly.New(fb.KN, m, fb.MaxFactor(), oracle)
	target := fb.NumPrimes() + 5

	engine := sieve.New(fb, stream, store, oracle, m, 500000, 2, target, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	engine.Run(ctx, 4)
	require.Greater(t, store.Count(), 0, "expected at least one full relation from sieving")

	primeAt := func(idx int) int64 { return fb.Primes[idx].P }
	for _, r := range store.Full() {
		lhsSq := new(big.Int).Mul(r.X, r.X)
		lhsSq.Mod(lhsSq, fb.KN)

		product := big.NewInt(1)
		for idx, exp := range r.Factors {
			p := primeAt(idx)
			term := new(big.Int).Exp(big.NewInt(absInt64(p)), big.NewInt(int64(exp)), fb.KN)
			product.Mul(product, term)
			product.Mod(product, fb.KN)
			if p < 0 && exp%2 == 1 {
				product.Neg(product)
				product.Mod(product, fb.KN)
			}
		}
		// Large primes paired off during combining enter X² squared.
		cancelledSq := new(big.Int).Mul(r.Cancelled, r.Cancelled)
		product.Mul(product, cancelledSq)
		product.Mod(product, fb.KN)
		require.Equal(t, 0, lhsSq.Cmp(product), "X^2 mod kN must equal the reconstructed smooth product")
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
