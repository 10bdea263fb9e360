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

// Package friendly is the top-level factoring driver: it owns the factor
// base, polynomial stream, relations store and matrix for one factoring
// session and orchestrates them into a congruence of squares.
//
// The session owns sieving and solving end to end: it dispatches sieve
// workers, retries with a larger target when a round's matrix yields no
// non-trivial congruence, and reports progress on a channel a caller can
// drain while Factor runs.
package friendly

import (
	"context"
	"math"
	"math/big"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mrj001/friendly/bitarray"
	"github.com/mrj001/friendly/errs"
	"github.com/mrj001/friendly/factorbase"
	"github.com/mrj001/friendly/intcalc"
	"github.com/mrj001/friendly/matrix"
	"github.com/mrj001/friendly/poly"
	"github.com/mrj001/friendly/primes"
	"github.com/mrj001/friendly/relation"
	"github.com/mrj001/friendly/sieve"
)

// Strategy selects the large-prime combining variation.
type Strategy int

const (
	OneLargePrime Strategy = iota
	TwoLargePrimes
	ThreeLargePrimes
)

func (s Strategy) maxLargePrimes() int {
	switch s {
	case TwoLargePrimes:
		return 2
	case ThreeLargePrimes:
		return 3
	default:
		return 1
	}
}

func (s Strategy) String() string {
	switch s {
	case OneLargePrime:
		return "OneLargePrime"
	case TwoLargePrimes:
		return "TwoLargePrimes"
	case ThreeLargePrimes:
		return "ThreeLargePrimes"
	default:
		return "Unknown"
	}
}

// Parameters configures one factoring session. A zero Parameters passed
// to Configure is filled in from DefaultParameters(n).
type Parameters struct {
	FactorBaseSize      int
	SieveInterval       int
	LargePrimeTolerance float64
	SmallPrimeCutoff    int64
	MaxParallelism      int
}

// parameterRow is one entry of the tuned parameter table, keyed by
// decimal digit count of N.
type parameterRow struct {
	digits              int
	factorBaseSize      int
	sieveInterval       int
	largePrimeTolerance float64
	smallPrimeCutoff    int64
	strategy            Strategy
}

var parameterTable = []parameterRow{
	{24, 100, 5_000, 1.5, 3, OneLargePrime},
	{30, 200, 25_000, 1.5, 5, OneLargePrime},
	{36, 400, 25_000, 1.61, 5, OneLargePrime},
	{42, 900, 50_000, 1.75, 5, OneLargePrime},
	{48, 1200, 100_000, 2.07, 7, OneLargePrime},
	{54, 2000, 250_000, 2.2, 11, OneLargePrime},
	{60, 3000, 350_000, 2.22, 17, OneLargePrime},
	{66, 6000, 400_000, 2.35, 17, TwoLargePrimes},
	{72, 8500, 500_000, 2.35, 17, TwoLargePrimes},
	{78, 13750, 600_000, 2.35, 17, TwoLargePrimes},
	{84, 15000, 700_000, 3.2, 17, ThreeLargePrimes},
}

// DefaultParameters looks up the parameter table by n's decimal digit
// count, returning the row for the smallest listed digit count
// that is not smaller than n, or the largest row if n exceeds the table.
func DefaultParameters(n *big.Int) (Parameters, Strategy) {
	digits := len(n.String())
	row := parameterTable[len(parameterTable)-1]
	for _, r := range parameterTable {
		if digits <= r.digits {
			row = r
			break
		}
	}
	return Parameters{
		FactorBaseSize:      row.factorBaseSize,
		SieveInterval:       row.sieveInterval,
		LargePrimeTolerance: row.largePrimeTolerance,
		SmallPrimeCutoff:    row.smallPrimeCutoff,
		MaxParallelism:      2,
	}, row.strategy
}

// ProgressEvent is one line of a session's progress stream.
type ProgressEvent struct {
	Time    time.Time
	Message string
}

// Session owns the factor base, polynomial stream, relations store and
// matrix for one N.
type Session struct {
	n        *big.Int
	strategy Strategy
	params   Parameters
	oracle   *primes.Oracle
	fb       *factorbase.Base

	// quickFactor is set at Configure time when a factor-base prime
	// already divides n: Factor returns it immediately instead of
	// running the sieve.
	quickFactor int64

	events chan ProgressEvent
	printer *message.Printer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// estimateOracleLimit sizes the prime oracle generously enough to
// collect factorBaseSize odd primes satisfying the Jacobi-residue
// filter for essentially any N.
func estimateOracleLimit(factorBaseSize int) uint64 {
	limit := uint64(factorBaseSize)*400 + 200_000
	return limit
}

// Configure validates n and builds a Session ready to factor it.
// A zero-value p (FactorBaseSize == 0) is replaced by DefaultParameters(n), which also
// supplies the LP strategy unless the caller's strategy is explicitly
// non-default.
func Configure(n *big.Int, strategy Strategy, p Parameters) (*Session, error) {
	if n == nil || n.Sign() <= 0 {
		return nil, errs.Precondition("n must be a positive integer")
	}
	if n.Bit(0) == 0 {
		return nil, errs.Precondition("n must be odd (caller must strip factors of 2)")
	}
	if _, _, ok := intcalc.IsPerfectPower(n); ok {
		return nil, errs.Precondition("n is a perfect power")
	}

	if p.FactorBaseSize == 0 {
		defaults, defaultStrategy := DefaultParameters(n)
		p = defaults
		if strategy == OneLargePrime {
			strategy = defaultStrategy
		}
	}
	if p.MaxParallelism <= 0 {
		p.MaxParallelism = 1
	}

	oracle := primes.New(estimateOracleLimit(p.FactorBaseSize))
	fb, err := factorbase.Select(n, p.FactorBaseSize, oracle)
	if err != nil {
		return nil, err
	}

	s := &Session{
		n:        n,
		strategy: strategy,
		params:   p,
		oracle:   oracle,
		fb:       fb,
		events:   make(chan ProgressEvent, 64),
		printer:  message.NewPrinter(language.English),
	}

	if idx := fb.FindDivisor(n); idx >= 0 {
		s.quickFactor = fb.Primes[idx].P
	}

	return s, nil
}

// largePrimeBound computes the maxLargePrime bound from the
// factor base's largest prime and the configured tolerance exponent:
// maxFactor^tolerance, the classical MPQS scaling that lets larger
// problems (bigger tolerance) accept proportionally larger large-prime
// cofactors.
func (s *Session) largePrimeBound() int64 {
	maxFactor := float64(s.fb.MaxFactor())
	v := math.Pow(maxFactor, s.params.LargePrimeTolerance)
	if v > 1e18 {
		v = 1e18
	}
	return int64(v)
}

// Progress returns the channel of human-readable progress lines,
// thousands-separated via golang.org/x/text/message the way a CLI
// status line renders counters.
func (s *Session) Progress() <-chan ProgressEvent {
	return s.events
}

// Stop requests cooperative cancellation: workers observe it between
// polynomials and drain quickly.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) emit(format string, args ...interface{}) {
	msg := s.printer.Sprintf(format, args...)
	select {
	case s.events <- ProgressEvent{Time: time.Now(), Message: msg}:
	default:
		// Progress is best-effort; a slow or absent consumer must never
		// block the sieve.
	}
}

// Factor runs the driver loop: sieve until enough relations
// accumulate, reduce the GF(2) matrix, and test each null vector for a
// non-trivial congruence of squares, re-sieving on a bounded retry
// budget when every null vector is trivial.
func (s *Session) Factor(ctx context.Context) (f1, f2 *big.Int, err error) {
	if s.quickFactor != 0 {
		f1 := big.NewInt(s.quickFactor)
		f2 := new(big.Int).Div(s.n, f1)
		return f1, f2, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	store := relation.NewStore(s.fb.KN, s.strategy.maxLargePrimes(), s.largePrimeBound())
	stream := poly.New(s.fb.KN, s.params.SieveInterval, s.fb.MaxFactor(), s.oracle)
	target := s.fb.NumPrimes() + 1

	const maxRounds = 100
	for round := 0; round < maxRounds; round++ {
		select {
		case <-ctx.Done():
			return nil, nil, errs.Cancelled("factoring cancelled by caller")
		default:
		}

		engine := sieve.New(s.fb, stream, store, s.oracle, s.params.SieveInterval,
			s.largePrimeBound(), s.strategy.maxLargePrimes(), target, s.params.SmallPrimeCutoff)
		engine.Run(ctx, s.params.MaxParallelism)
		s.emit("round %d: %d relations over %d polynomials (target %d)",
			round, store.Count(), engine.PolynomialsConsumed(), target)

		select {
		case <-ctx.Done():
			return nil, nil, errs.Cancelled("factoring cancelled by caller")
		default:
		}

		full := store.Full()
		if len(full) < 2 {
			target += s.fb.NumPrimes()/4 + 1
			continue
		}

		f1, f2, ok, cerr := s.tryMatrix(full)
		if cerr != nil {
			return nil, nil, cerr
		}
		if ok {
			return f1, f2, nil
		}

		target += s.fb.NumPrimes()/4 + 1
	}
	return nil, nil, errs.Exhausted("ran out of squares after %d rounds", maxRounds)
}

// tryMatrix builds the GF(2) exponent matrix for full, reduces it, and
// tests every null vector for a non-trivial congruence.
func (s *Session) tryMatrix(full []*relation.Relation) (f1, f2 *big.Int, ok bool, err error) {
	numCols := s.fb.NumPrimes()
	m := matrix.New(len(full), numCols)
	for i, r := range full {
		bits := bitarray.New(numCols)
		for idx, exp := range r.Factors {
			if exp%2 != 0 {
				bits.Set(idx, true)
			}
		}
		m.SetRow(i, bits)
	}
	m.Reduce()

	primeAt := func(idx int) int64 { return s.fb.Primes[idx].P }
	for _, v := range m.NullSpaceBasis() {
		var chosen []*relation.Relation
		for i, r := range full {
			if v.Get(i) {
				chosen = append(chosen, r)
			}
		}
		if len(chosen) == 0 {
			continue
		}

		x := big.NewInt(1)
		for _, r := range chosen {
			x.Mul(x, r.X)
			x.Mod(x, s.fb.KN)
		}

		combined := relation.CombineAll(s.fb.KN, chosen)
		y, serr := combined.SquareRoot(s.fb.KN, primeAt)
		if serr != nil {
			return nil, nil, false, errs.New(errs.ErrInternalInvariant, "null-vector relation set did not reduce to a perfect square: %v", serr)
		}

		xModN := new(big.Int).Mod(x, s.n)
		yModN := new(big.Int).Mod(y, s.n)
		diff := new(big.Int).Sub(xModN, yModN)
		diff.Mod(diff, s.n)
		if diff.Sign() == 0 {
			continue // X ≡ Y (mod N): trivial
		}
		sum := new(big.Int).Add(xModN, yModN)
		sum.Mod(sum, s.n)
		if sum.Sign() == 0 {
			continue // X ≡ -Y (mod N): trivial
		}

		g := intcalc.GCD(diff, s.n)
		if g.Cmp(big.NewInt(1)) <= 0 || g.Cmp(s.n) >= 0 {
			continue
		}
		if g.Cmp(big.NewInt(s.fb.K)) == 0 {
			continue // spurious split on the multiplier itself
		}
		other := new(big.Int).Div(s.n, g)
		if other.Cmp(big.NewInt(s.fb.K)) == 0 {
			continue
		}
		return g, other, true, nil
	}
	return nil, nil, false, nil
}
