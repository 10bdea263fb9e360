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

package concurrent_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrj001/friendly/concurrent"
)

// squarePool squares each submitted int and stops once the accumulated sum
// of accepted results reaches a target, exercising the same "process many
// tasks, stop early on a threshold" shape the sieve engine uses against
// relation counts.
type squarePool struct {
	target int64
	sum    atomic.Int64
	seen   atomic.Int64
}

func (p *squarePool) Process(_ context.Context, _ int, task int) int {
	return task * task
}

func (p *squarePool) Accept(result int) bool {
	p.seen.Add(1)
	return p.sum.Add(int64(result)) >= p.target
}

func TestDispatcherStopsOnThreshold(t *testing.T) {
	pool := &squarePool{target: 1000}
	d := concurrent.NewDispatcher[int, int](context.Background(), 4, pool)

	for i := 1; i < 100; i++ {
		if !d.Submit(i) {
			break
		}
	}
	d.Wait()
	require.GreaterOrEqual(t, pool.sum.Load(), int64(1000))
}

func TestDispatcherStopRespondsToExternalCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &squarePool{target: 1 << 30} // unreachable: forces external stop
	d := concurrent.NewDispatcher[int, int](ctx, 2, pool)

	go func() {
		for i := 1; i < 20; i++ {
			d.Submit(i)
		}
	}()
	cancel()
	d.Wait()
}

func TestDispatcherSubmitFalseAfterStop(t *testing.T) {
	pool := &squarePool{target: 1}
	d := concurrent.NewDispatcher[int, int](context.Background(), 1, pool)
	require.True(t, d.Submit(5))
	d.Wait()
	require.False(t, d.Submit(5))
}
