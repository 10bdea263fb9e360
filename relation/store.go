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

package relation

import (
	"math/big"
	"sync"
)

// Store accumulates sieve output and combines large-prime partials into
// full relations. The same combining engine serves all three k-large-
// prime variations (MaxLargePrimes = 1, 2 or 3):
//
//   - k=1 degenerates to simple pairing — a partial's one residual prime
//     is looked up directly; a second partial with the same prime closes
//     the pair immediately.
//   - k=2 is the textbook "cycle in a graph of primes" construction: a
//     partial is an edge between its two primes, and two partials that
//     connect the same pair of components close a cycle.
//   - k=3 is the general chain/hypergraph combiner: a partial's residual
//     primes are folded one at a time into whatever components already
//     claim them, merging components together (and cancelling any prime
//     that becomes common to two merged sides) until either every prime
//     has cancelled (a full relation emerges) or the merged component is
//     re-indexed under its still-uncancelled primes to await a future
//     partial.
//
// This is the union-find-with-payload idea used for k=2
// generalized to hyperedges of up to three primes: instead of tracking
// connectivity alone, each component carries the partially-combined
// Relation for the primes it still owns.
type Store struct {
	mu             sync.Mutex
	n              *big.Int
	maxLargePrime  int // upper bound a single residual prime may have
	maxLargePrimes int // 1, 2, or 3: how many residual primes a partial may carry

	full  []*Relation
	index map[string]*component
}

type component struct {
	rel    *Relation
	primes map[string]*big.Int // prime decimal string -> prime, current odd-multiplicity set
}

// NewStore builds a relations store for modulus n, accepting partials
// with up to maxLargePrimes residual cofactor primes, each no larger
// than maxLargePrime.
func NewStore(n *big.Int, maxLargePrimes int, maxLargePrime int64) *Store {
	return &Store{
		n:              n,
		maxLargePrime:  int(maxLargePrime),
		maxLargePrimes: maxLargePrimes,
		index:          make(map[string]*component),
	}
}

// Add submits one sieve result, returning any relation it completed (nil
// if r merely extends a pending chain).
func (s *Store) Add(r *Relation) []*Relation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.IsFull() {
		s.full = append(s.full, r)
		return []*Relation{r}
	}
	if len(r.LargePrimes) > s.maxLargePrimes {
		return nil
	}
	bound := big.NewInt(int64(s.maxLargePrime))
	for _, p := range r.LargePrimes {
		if p.Cmp(bound) > 0 {
			return nil
		}
	}

	comp := &component{rel: r, primes: make(map[string]*big.Int, len(r.LargePrimes))}
	for _, p := range r.LargePrimes {
		comp.primes[p.String()] = p
	}

	// Repeatedly absorb every component indexed under any prime comp
	// currently claims. A merge can introduce primes comp did not
	// previously own (the other side's uncancelled ones), and those may
	// themselves be claimed by a third component — so this must run to a
	// fixed point, not just one pass over the incoming partial's own
	// primes, to correctly close chains longer than two links. Each
	// absorbed component's primes are unindexed immediately, before the
	// next iteration rescans comp.primes — otherwise a component already
	// merged in stays reachable under any prime the merge didn't cancel
	// and gets re-selected and re-merged forever.
	for {
		var next *component
		for key := range comp.primes {
			if other, ok := s.index[key]; ok && other != comp {
				next = other
				break
			}
		}
		if next == nil {
			break
		}
		for key := range next.primes {
			delete(s.index, key)
		}
		comp = merge(s.n, comp, next)
	}

	if len(comp.primes) == 0 {
		full := comp.rel
		full.LargePrimes = nil
		s.full = append(s.full, full)
		return []*Relation{full}
	}

	for key := range comp.primes {
		s.index[key] = comp
	}
	return nil
}

// merge folds other into base: their Relations combine, and any prime
// common to both (present in both primes sets) cancels, contributing its
// value to the combined Cancelled product via combineFactors's mod-n
// reduction (a prime, multiplied by itself, becomes a literal factor of
// the eventual square root, so Cancelled must absorb it once — see the
// loop below, which multiplies it in directly since combineFactors only
// merges what each side already carried in Cancelled).
func merge(n *big.Int, base, other *component) *component {
	rel := combineFactors(n, base.rel, other.rel)
	primes := make(map[string]*big.Int, len(base.primes)+len(other.primes))
	for k, p := range base.primes {
		primes[k] = p
	}
	for k, p := range other.primes {
		if _, dup := primes[k]; dup {
			delete(primes, k)
			rel.Cancelled.Mul(rel.Cancelled, p)
			rel.Cancelled.Mod(rel.Cancelled, n)
		} else {
			primes[k] = p
		}
	}
	return &component{rel: rel, primes: primes}
}

// Full returns every fully-reduced relation accumulated so far.
func (s *Store) Full() []*Relation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Relation, len(s.full))
	copy(out, s.full)
	return out
}

// Count returns the number of full relations currently held.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.full)
}

// PendingComponents returns the number of distinct in-flight partial
// chains, for progress reporting.
func (s *Store) PendingComponents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[*component]bool)
	for _, c := range s.index {
		seen[c] = true
	}
	return len(seen)
}
