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

// Package matrix implements GF(2) linear algebra for the MPQS congruence
// step: given one exponent-parity bit vector per relation,
// find subsets of relations whose vectors XOR to zero, each subset
// yielding a candidate congruence of squares.
//
// Rather than folding relations into a per-prime slot table one at a
// time as they arrive, this holds every relation's exponent vector as a
// row of a dense bitarray.Array matrix and runs full Gauss-Jordan
// elimination over it, producing a complete null-space basis rather
// than a single dependency at a time.
package matrix

import "github.com/mrj001/friendly/bitarray"

// Matrix is a dense GF(2) matrix with one row per relation and one column
// per factor-base entry (including the sign bit). Row reduction tracks,
// for each row, which original rows were XORed together to produce it —
// that history is what identifies the relations making up a congruence.
type Matrix struct {
	rows    []*bitarray.Array
	history []*bitarray.Array
	numRows int
	numCols int
	reduced bool
	pivotOf []int // pivotOf[col] = row index that is the pivot for col, or -1
}

// New allocates a numRows x numCols zero matrix.
func New(numRows, numCols int) *Matrix {
	m := &Matrix{
		rows:    make([]*bitarray.Array, numRows),
		history: make([]*bitarray.Array, numRows),
		numRows: numRows,
		numCols: numCols,
	}
	for i := 0; i < numRows; i++ {
		m.rows[i] = bitarray.New(numCols)
		m.history[i] = bitarray.New(numRows)
		m.history[i].Set(i, true)
	}
	return m
}

// SetRow installs row r's exponent-parity vector directly (the row's
// width must equal numCols).
func (m *Matrix) SetRow(r int, bits *bitarray.Array) {
	m.rows[r] = bits.Clone()
	m.reduced = false
}

// SetBit flips on the bit for column c of row r.
func (m *Matrix) SetBit(r, c int) {
	m.rows[r].Set(c, true)
	m.reduced = false
}

// NumRows and NumCols report the matrix dimensions.
func (m *Matrix) NumRows() int { return m.numRows }
func (m *Matrix) NumCols() int { return m.numCols }

// Row returns relation r's current (possibly reduced) exponent vector.
func (m *Matrix) Row(r int) *bitarray.Array { return m.rows[r] }

// Reduce performs Gauss-Jordan elimination over GF(2), column by column:
// for each column, pick an unused row with that bit set as pivot, then
// XOR the pivot into every other row (and its history) that also has the
// bit set. Rows that end up all-zero, with nonzero history, witness a
// linear dependency among the original relations.
func (m *Matrix) Reduce() {
	used := make([]bool, m.numRows)
	m.pivotOf = make([]int, m.numCols)
	for c := range m.pivotOf {
		m.pivotOf[c] = -1
	}

	for col := 0; col < m.numCols; col++ {
		pivot := -1
		for r := 0; r < m.numRows; r++ {
			if !used[r] && m.rows[r].Get(col) {
				pivot = r
				break
			}
		}
		if pivot == -1 {
			continue
		}
		used[pivot] = true
		m.pivotOf[col] = pivot

		for r := 0; r < m.numRows; r++ {
			if r == pivot {
				continue
			}
			if m.rows[r].Get(col) {
				m.rows[r].XorWith(m.rows[pivot])
				m.history[r].XorWith(m.history[pivot])
			}
		}
	}
	m.reduced = true
}

// NullSpaceBasis returns one bit vector per independent dependency found
// during Reduce: bit i of a basis vector is set iff relation i took part
// in that dependency's XOR-to-zero combination. If the matrix has not
// been reduced since its last change, NullSpaceBasis calls Reduce first.
func (m *Matrix) NullSpaceBasis() []*bitarray.Array {
	if !m.reduced {
		m.Reduce()
	}
	var basis []*bitarray.Array
	for r := 0; r < m.numRows; r++ {
		if m.rows[r].IsZero() && !m.history[r].IsZero() {
			basis = append(basis, m.history[r].Clone())
		}
	}
	return basis
}

// Combine folds relation src's row and history into relation dst
// (dst ^= src), mirroring SolverImpl.Multiply's "combine and remove the
// smallest odd prime power" step but operating on dense bit rows instead
// of sparse prime-power lists.
func (m *Matrix) Combine(dst, src int) {
	m.rows[dst].XorWith(m.rows[src])
	m.history[dst].XorWith(m.history[src])
	m.reduced = false
}
