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

// Package sieve runs the log-sum sieve over a stream of MPQS polynomials
// collecting smooth and partially-smooth relations into a
// relation.Store.
//
// Each polynomial's interval is swept with the classical log-sum
// approximation: accumulate log(p) at each factor-base prime's root(s),
// then trial-divide only the positions whose accumulated log clears a
// threshold. Residuals left over after trial division are handed to the
// rho package for cofactor splitting to support the k-large-prime
// variations.
package sieve

import (
	"context"
	"math"
	"math/big"
	"sort"
	"sync/atomic"

	"github.com/mrj001/friendly/concurrent"
	"github.com/mrj001/friendly/factorbase"
	"github.com/mrj001/friendly/intcalc"
	"github.com/mrj001/friendly/poly"
	"github.com/mrj001/friendly/primes"
	"github.com/mrj001/friendly/relation"
	"github.com/mrj001/friendly/rho"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// tick is a no-op task: sieve workers pull their own work from the shared
// polynomial stream rather than being handed one, so Submit is only used
// to keep numWorkers goroutines continuously busy.
type tick struct{}

// Engine sieves polynomials pulled from a poly.Stream and feeds smooth or
// partially-smooth results into a relation.Store, fanning the work out
// over a concurrent.Dispatcher worker pool.
type Engine struct {
	kn              *big.Int
	fb              *factorbase.Base
	stream          *poly.Stream
	store           *relation.Store
	oracle          *primes.Oracle
	m                int
	largePrimeBound  *big.Int
	maxLargePrimes   int
	target           int
	smallPrimeCutoff int64

	polysDone atomic.Int64
}

// New builds a sieve engine. m is the sieve half-width (interval
// [-m, m]); largePrimeBound and maxLargePrimes configure which of
// the k-large-prime variations the backing store accepts; target
// is the relation count (sourced from fb.NumPrimes()-ish oversupply) at
// which sieving should stop; smallPrimeCutoff excludes factor-base
// primes below it from the log-sum accumulation (they contribute too
// little per hit to be worth sieving) without
// excluding them from trial division.
func New(fb *factorbase.Base, stream *poly.Stream, store *relation.Store, oracle *primes.Oracle, m int, largePrimeBound int64, maxLargePrimes, target int, smallPrimeCutoff int64) *Engine {
	return &Engine{
		kn:               fb.KN,
		fb:               fb,
		stream:           stream,
		store:            store,
		oracle:           oracle,
		m:                m,
		largePrimeBound:  big.NewInt(largePrimeBound),
		maxLargePrimes:   maxLargePrimes,
		target:           target,
		smallPrimeCutoff: smallPrimeCutoff,
	}
}

// Process implements concurrent.Pool: pull the next polynomial and sieve
// its interval, ignoring the (unused) tick task.
func (e *Engine) Process(ctx context.Context, _ int, _ tick) int {
	select {
	case <-ctx.Done():
		return 0
	default:
	}
	p, err := e.stream.Next()
	if err != nil {
		return 0
	}
	e.polysDone.Add(1)
	return e.sievePolynomial(p)
}

// Accept implements concurrent.Pool: stop once the store holds enough
// full relations to over-determine the factor-base-sized linear system.
func (e *Engine) Accept(_ int) bool {
	return e.store.Count() >= e.target
}

// PolynomialsConsumed reports how many polynomials workers have sieved,
// for progress reporting.
func (e *Engine) PolynomialsConsumed() int64 {
	return e.polysDone.Load()
}

// Run drives numWorkers sieve workers against the polynomial stream until
// target relations accumulate or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, numWorkers int) {
	d := concurrent.NewDispatcher[tick, int](ctx, numWorkers, e)
	for d.Submit(tick{}) {
	}
	d.Wait()
}

// sievePolynomial runs the log-sum sieve over one polynomial's interval
// and trial-divides every position clearing the smoothness threshold,
// returning the number of full relations it contributed to the store.
func (e *Engine) sievePolynomial(p *poly.Polynomial) int {
	size := 2*e.m + 1
	logs := make([]float32, size)

	for i := 1; i < e.fb.NumPrimes(); i++ {
		pr := e.fb.Primes[i]
		if pr.P == 2 {
			// Root solving mod 2 needs separate Hensel handling that
			// pays for itself only on huge factor bases; 2's contribution
			// is still removed during trial division below.
			continue
		}
		if pr.P < e.smallPrimeCutoff {
			// Too little log weight per hit to be worth sieving; still
			// divided out during trial division below.
			continue
		}
		pBig := big.NewInt(pr.P)
		twoAModP := new(big.Int).Mul(two, p.A)
		twoAModP.Mod(twoAModP, pBig)
		if twoAModP.Sign() == 0 {
			continue // p | a cannot happen (d > maxFactorBase) but guard anyway
		}
		inv2A, err := intcalc.ModInverse(twoAModP, pBig)
		if err != nil {
			continue
		}
		bModP := new(big.Int).Mod(p.B, pBig)
		rBig := big.NewInt(pr.R)

		// (2ax+b)^2 ≡ kN ≡ R^2 (mod p) => x ≡ (±R-b)·(2a)⁻¹ (mod p).
		x1 := new(big.Int).Sub(rBig, bModP)
		x1.Mul(x1, inv2A)
		x1.Mod(x1, pBig)

		x2 := new(big.Int).Neg(rBig)
		x2.Sub(x2, bModP)
		x2.Mul(x2, inv2A)
		x2.Mod(x2, pBig)

		e.addLogs(logs, size, x1, pr.P, pr.LogP)
		if x1.Cmp(x2) != 0 {
			e.addLogs(logs, size, x2, pr.P, pr.LogP)
		}
	}

	threshold := e.threshold(p)
	found := 0
	for idx := 0; idx < size; idx++ {
		if logs[idx] < threshold {
			continue
		}
		x := big.NewInt(int64(idx - e.m))
		q := p.Eval(x)
		rel, ok := e.tryFactor(x, q, p)
		if !ok {
			continue
		}
		found += len(e.store.Add(rel))
	}
	return found
}

// addLogs accumulates logp at every interval position congruent to root
// mod p, root being given in [0,p) and interval position i representing
// x = i - m.
func (e *Engine) addLogs(logs []float32, size int, root *big.Int, p int64, logp float32) {
	start := new(big.Int).Add(root, big.NewInt(int64(e.m)))
	start.Mod(start, big.NewInt(p))
	for idx := int(start.Int64()); idx < size; idx += int(p) {
		logs[idx] += logp
	}
}

// threshold approximates log|Q(m)| (the largest magnitude in the
// interval) and subtracts the log-budget reserved for up to
// maxLargePrimes cofactor primes, plus a fudge factor absorbing the
// sieve's rounding error, per the classical MPQS tuning this package is
// grounded on.
func (e *Engine) threshold(p *poly.Polynomial) float32 {
	qMax := p.Eval(big.NewInt(int64(e.m)))
	approxLog := float32(qMax.BitLen()) * float32(math.Ln2)
	allowance := float32(e.maxLargePrimes) * float32(math.Log(float64(e.largePrimeBound.Int64())))
	return approxLog - allowance - 10
}

// tryFactor trial-divides Q(x) by the full factor base and attempts to
// split whatever cofactor remains into at most maxLargePrimes primes no
// larger than largePrimeBound.
func (e *Engine) tryFactor(x, q *big.Int, p *poly.Polynomial) (*relation.Relation, bool) {
	factors := make(map[int]int)
	val := new(big.Int).Set(q)
	if val.Sign() < 0 {
		factors[0] = 1
		val.Neg(val)
	}
	for i := 1; i < e.fb.NumPrimes(); i++ {
		pBig := big.NewInt(e.fb.Primes[i].P)
		exp := 0
		for {
			qq, rr := new(big.Int).QuoRem(val, pBig, new(big.Int))
			if rr.Sign() != 0 {
				break
			}
			val = qq
			exp++
		}
		if exp > 0 {
			factors[i] = exp
		}
	}

	lhs := p.LHS(x)

	if val.Cmp(one) == 0 {
		return relation.New(lhs, factors, nil), true
	}
	largePrimes, ok := factorCofactor(val, e.maxLargePrimes, e.largePrimeBound, e.oracle)
	if !ok {
		return nil, false
	}
	// largePrimes is sorted, so a repeated prime appears as an adjacent
	// pair: its square goes into Cancelled and only unpaired primes remain.
	rel := relation.New(lhs, factors, nil)
	for i := 0; i < len(largePrimes); i++ {
		if i+1 < len(largePrimes) && largePrimes[i].Cmp(largePrimes[i+1]) == 0 {
			rel.Cancelled.Mul(rel.Cancelled, largePrimes[i])
			i++
			continue
		}
		rel.LargePrimes = append(rel.LargePrimes, largePrimes[i])
	}
	return rel, true
}

// factorCofactor splits n into its prime factors via trial primality
// testing and Pollard rho, failing if more than maxPrimes factors are
// needed or any factor exceeds bound.
func factorCofactor(n *big.Int, maxPrimes int, bound *big.Int, oracle *primes.Oracle) ([]*big.Int, bool) {
	var result []*big.Int
	var rec func(x *big.Int) bool
	rec = func(x *big.Int) bool {
		if x.Cmp(one) == 0 {
			return true
		}
		if len(result) >= maxPrimes {
			return false
		}
		if oracle.IsPrimeBig(x) {
			if x.Cmp(bound) > 0 {
				return false
			}
			result = append(result, new(big.Int).Set(x))
			return true
		}
		f, err := rho.GetFactor(x)
		if err != nil {
			return false
		}
		other := new(big.Int).Div(x, f)
		return rec(f) && rec(other)
	}
	if !rec(n) {
		return nil, false
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Cmp(result[j]) < 0 })
	return result, true
}
