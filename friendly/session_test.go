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

package friendly_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/friendly"
)

func TestConfigureRejectsEvenN(t *testing.T) {
	_, err := friendly.Configure(big.NewInt(10248), friendly.OneLargePrime, friendly.Parameters{})
	require.Error(t, err)
}

func TestConfigureRejectsPerfectPower(t *testing.T) {
	n := new(big.Int).Exp(big.NewInt(3), big.NewInt(5), nil) // 243, odd perfect power
	_, err := friendly.Configure(n, friendly.OneLargePrime, friendly.Parameters{})
	require.Error(t, err)
}

func TestFactorSmallSemiprime(t *testing.T) {
	n := big.NewInt(10247 * 10267)
	s, err := friendly.Configure(n, friendly.OneLargePrime, friendly.Parameters{
		FactorBaseSize:      40,
		SieveInterval:       20000,
		LargePrimeTolerance: 2.0,
		SmallPrimeCutoff:    3,
		MaxParallelism:      4,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	f1, f2, err := s.Factor(ctx)
	require.NoError(t, err)

	product := new(big.Int).Mul(f1, f2)
	require.Equal(t, 0, product.Cmp(n))
	require.True(t, f1.Cmp(big.NewInt(1)) > 0)
	require.True(t, f2.Cmp(big.NewInt(1)) > 0)
}

func TestDefaultParametersPicksSmallestCoveringRow(t *testing.T) {
	n := new(big.Int)
	n.SetString("123456789012345678901234", 10) // 24 digits
	params, strategy := friendly.DefaultParameters(n)
	require.Equal(t, 100, params.FactorBaseSize)
	require.Equal(t, friendly.OneLargePrime, strategy)
}

func TestStopCancelsFactor(t *testing.T) {
	n := big.NewInt(10247 * 10267)
	s, err := friendly.Configure(n, friendly.OneLargePrime, friendly.Parameters{
		FactorBaseSize:      40,
		SieveInterval:       20000,
		LargePrimeTolerance: 2.0,
		SmallPrimeCutoff:    3,
		MaxParallelism:      1,
	})
	require.NoError(t, err)

	go func() {
		s.Stop()
	}()

	_, _, err = s.Factor(context.Background())
	// Either cancellation wins the race or factoring completes first;
	// both are acceptable outcomes of this race, but the call must not
	// hang or panic.
	_ = err
}
