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

// Package concurrent provides the generic worker pool used by the sieve
// engine to run many sieving workers against a shared
// polynomial stream.
//
// Dispatcher pairs a task channel and a result channel around a fixed
// worker pool, with an explicit atomic task counter (TasksSubmitted) and
// an exported Wait so the driver can block until a dispatcher has fully
// drained after cancellation. Worker lifecycle is managed with
// golang.org/x/sync/errgroup to pair the pool's cancellation with its
// completion wait.
package concurrent

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool is implemented by the caller to process tasks pulled from the pool
// and to judge whether a result should stop the whole pool early (e.g.
// the sieve engine stops dispatching once enough relations exist).
type Pool[T, R any] interface {
	// Process handles one task pulled from the shared task channel. The
	// worker index n identifies which of the worker goroutines is
	// running, for progress logging.
	Process(ctx context.Context, n int, task T) R

	// Accept receives a completed result and reports whether the pool
	// should stop (true = stop: cancel remaining work and drain).
	Accept(result R) bool
}

// Dispatcher runs numWorkers goroutines pulling from a task channel fed by
// Submit, routes their results through Pool.Accept, and supports
// cooperative, early termination via Pool.Accept or an external
// context.Context.
type Dispatcher[T, R any] struct {
	taskCh  chan T
	resCh   chan R
	done    chan struct{}
	cancel  context.CancelFunc
	running atomic.Bool
	tasksIn atomic.Int64
	group   *errgroup.Group
}

// NewDispatcher starts numWorkers goroutines, each running pool.Process on
// tasks delivered via Submit, and a single dispatch loop routing results
// to pool.Accept until ctx is cancelled or Accept signals completion.
func NewDispatcher[T, R any](ctx context.Context, numWorkers int, pool Pool[T, R]) *Dispatcher[T, R] {
	ctxD, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctxD)
	d := &Dispatcher[T, R]{
		taskCh: make(chan T),
		resCh:  make(chan R),
		done:   make(chan struct{}),
		cancel: cancel,
		group:  group,
	}
	d.running.Store(true)

	for n := 0; n < numWorkers; n++ {
		idx := n
		group.Go(func() error {
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case task, ok := <-d.taskCh:
					if !ok {
						return nil
					}
					result := pool.Process(groupCtx, idx, task)
					select {
					case d.resCh <- result:
					case <-groupCtx.Done():
						return nil
					}
				}
			}
		})
	}

	go func() {
		defer func() {
			d.running.Store(false)
			cancel()
			_ = d.group.Wait()
			close(d.done)
		}()
		for {
			select {
			case <-ctxD.Done():
				return
			case result := <-d.resCh:
				if pool.Accept(result) {
					return
				}
			}
		}
	}()
	return d
}

// Submit hands one task to the pool. It returns false if the dispatcher
// has already stopped accepting work, instead of blocking forever.
func (d *Dispatcher[T, R]) Submit(task T) bool {
	if !d.running.Load() {
		return false
	}
	d.tasksIn.Add(1)
	select {
	case d.taskCh <- task:
		return true
	case <-d.done:
		return false
	}
}

// Stop cancels the dispatcher's context, causing all workers and the
// dispatch loop to drain quickly.
func (d *Dispatcher[T, R]) Stop() {
	d.cancel()
}

// Wait blocks until the dispatcher has fully stopped: all workers
// returned and the dispatch loop exited.
func (d *Dispatcher[T, R]) Wait() {
	<-d.done
}

// TasksSubmitted returns the number of tasks handed to Submit so far.
func (d *Dispatcher[T, R]) TasksSubmitted() int64 {
	return d.tasksIn.Load()
}
