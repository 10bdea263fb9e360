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

// Package persist implements the checkpoint JSON-document schema: a
// factoring session's complete state (target N, chosen multiplier and
// factor base, polynomial stream cursor, accumulated relations, pending
// large-prime components) serialized so a session can be checkpointed
// and resumed.
//
// Relation exponents are stored as a map from factor-base index to
// exponent; big integers are signed decimal strings rather than binary
// blobs, since the document is meant to be a
// readable checkpoint file, not a wire protocol. A golang.org/x/crypto
// blake2b checksum over the canonical JSON body guards against a
// truncated or hand-edited checkpoint being silently restored.
package persist

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/mrj001/friendly/errs"
	"github.com/mrj001/friendly/factorbase"
	"github.com/mrj001/friendly/poly"
	"github.com/mrj001/friendly/relation"
)

// bigInt is *big.Int's JSON form: a signed decimal string, since raw
// JSON numbers lose precision far below the magnitudes this module
// works with.
type bigInt struct {
	*big.Int
}

func wrapBig(v *big.Int) bigInt {
	if v == nil {
		return bigInt{}
	}
	return bigInt{new(big.Int).Set(v)}
}

func (b bigInt) MarshalJSON() ([]byte, error) {
	if b.Int == nil {
		return []byte(`null`), nil
	}
	return json.Marshal(b.Int.String())
}

func (b *bigInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`null`)) {
		b.Int = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errs.Invariant("persist: %q is not a valid decimal integer", s)
	}
	b.Int = v
	return nil
}

// primeDoc mirrors factorbase.Prime for persistence.
type primeDoc struct {
	P    int64   `json:"p"`
	LogP float32 `json:"logP"`
	R    int64   `json:"r"`
}

// cursorDoc mirrors poly.Cursor for persistence.
type cursorDoc struct {
	LowerD     bigInt `json:"lowerD"`
	HigherD    bigInt `json:"higherD"`
	NextHigher bool   `json:"nextHigher"`
	Exhausted  bool   `json:"exhausted"`
}

// relationDoc mirrors a fully-reduced relation.Relation. Factors is
// serialized as a string-keyed map (factor-base index -> exponent)
// since JSON object keys must be strings.
type relationDoc struct {
	X         bigInt           `json:"x"`
	Factors   map[string]int   `json:"factors"`
	Cancelled bigInt           `json:"cancelled"`
}

// partialDoc mirrors one still-pending large-prime component: the
// partial relation it carries plus the residual primes it still
// claims, keyed the same way relation.Store indexes them.
type partialDoc struct {
	Rel    relationDoc `json:"relation"`
	Primes []bigInt    `json:"primes"`
}

// Document is the complete persisted state: enough to
// resume sieving, combining and (once enough relations accumulate)
// the matrix step, without redoing any earlier work.
type Document struct {
	N              bigInt       `json:"n"`
	K              int64        `json:"k"`
	KN             bigInt       `json:"kn"`
	FactorBase     []primeDoc   `json:"factorBase"`
	Cursor         cursorDoc    `json:"cursor"`
	MaxLargePrimes int          `json:"maxLargePrimes"`
	MaxLargePrime  int64        `json:"maxLargePrime"`
	Full           []relationDoc `json:"full"`
	Pending        []partialDoc `json:"pending"`

	// Checksum is a hex-encoded blake2b-256 digest of the document's
	// canonical JSON body (every field above, re-marshalled with the
	// checksum held empty) computed at save time.
	Checksum string `json:"checksum"`
}

// Build assembles a Document from a session's live components.
func Build(n *big.Int, k int64, fb *factorbase.Base, cursor poly.Cursor, maxLargePrimes int, maxLargePrime int64, full []*relation.Relation, pending []PendingComponent) *Document {
	d := &Document{
		N:              wrapBig(n),
		K:              k,
		KN:             wrapBig(fb.KN),
		MaxLargePrimes: maxLargePrimes,
		MaxLargePrime:  maxLargePrime,
	}
	for _, p := range fb.Primes {
		d.FactorBase = append(d.FactorBase, primeDoc{P: p.P, LogP: p.LogP, R: p.R})
	}
	d.Cursor = cursorDoc{
		LowerD:     wrapBig(cursor.LowerD),
		HigherD:    wrapBig(cursor.HigherD),
		NextHigher: cursor.NextHigher,
		Exhausted:  cursor.Exhausted,
	}
	for _, r := range full {
		d.Full = append(d.Full, toRelationDoc(r))
	}
	for _, pc := range pending {
		pd := partialDoc{Rel: toRelationDoc(pc.Rel)}
		for _, p := range pc.Primes {
			pd.Primes = append(pd.Primes, wrapBig(p))
		}
		d.Pending = append(d.Pending, pd)
	}
	return d
}

// PendingComponent is the caller-facing view of one of relation.Store's
// in-flight components, since that package keeps its component type
// unexported.
type PendingComponent struct {
	Rel    *relation.Relation
	Primes []*big.Int
}

func toRelationDoc(r *relation.Relation) relationDoc {
	factors := make(map[string]int, len(r.Factors))
	for idx, exp := range r.Factors {
		factors[strconv.Itoa(idx)] = exp
	}
	return relationDoc{X: wrapBig(r.X), Factors: factors, Cancelled: wrapBig(r.Cancelled)}
}

// Marshal renders d to its canonical JSON form, computing and filling
// in Checksum over the body with Checksum itself held empty.
func Marshal(d *Document) ([]byte, error) {
	cp := *d
	cp.Checksum = ""
	body, err := json.Marshal(&cp)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(body)
	d.Checksum = hex.EncodeToString(sum[:])
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal parses data into a Document and verifies its checksum,
// refusing to return a document whose body does not match — a
// truncated write or a hand-edited checkpoint must not be silently
// resumed.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	want := d.Checksum
	cp := d
	cp.Checksum = ""
	body, err := json.Marshal(&cp)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(body)
	got := hex.EncodeToString(sum[:])
	if want != got {
		return nil, errs.Invariant("persist: checksum mismatch, got %s want %s", got, want)
	}
	return &d, nil
}

// Relations reconstructs the full-relation slice from a Document.
func (d *Document) Relations() ([]*relation.Relation, error) {
	out := make([]*relation.Relation, 0, len(d.Full))
	for _, rd := range d.Full {
		r, err := fromRelationDoc(rd)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func fromRelationDoc(rd relationDoc) (*relation.Relation, error) {
	factors := make(map[int]int, len(rd.Factors))
	for k, v := range rd.Factors {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, errs.Invariant("persist: %q is not a valid factor-base index", k)
		}
		factors[idx] = v
	}
	r := relation.New(rd.X.Int, factors, nil)
	r.Cancelled = new(big.Int).Set(rd.Cancelled.Int)
	return r, nil
}

// PolyCursor reconstructs the poly.Cursor from a Document.
func (d *Document) PolyCursor() poly.Cursor {
	return poly.Cursor{
		LowerD:     new(big.Int).Set(d.Cursor.LowerD.Int),
		HigherD:    new(big.Int).Set(d.Cursor.HigherD.Int),
		NextHigher: d.Cursor.NextHigher,
		Exhausted:  d.Cursor.Exhausted,
	}
}
