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

package rho_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/rho"
)

func TestGetFactorSplitsSemiprimes(t *testing.T) {
	cases := []struct{ p, q int64 }{
		{101, 103},
		{8191, 131071},
		{999983, 999979},
	}
	for _, c := range cases {
		n := new(big.Int).Mul(big.NewInt(c.p), big.NewInt(c.q))
		f, err := rho.GetFactor(n)
		require.NoError(t, err)
		require.True(t, f.Cmp(big.NewInt(1)) > 0)
		require.True(t, f.Cmp(n) < 0)
		rem := new(big.Int).Mod(n, f)
		require.Equal(t, big.NewInt(0), rem)
	}
}

func TestGetFactorEvenNumber(t *testing.T) {
	n := big.NewInt(2 * 998244353)
	f, err := rho.GetFactor(n)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), f)
}
