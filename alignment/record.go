// Package alignment implements the unit of work pasted by package batch: a
// single local alignment between a query and a subject sequence, with the
// merge operations (PasteRight, PasteLeft) that fuse a consistent neighbour
// into the receiver in place.
package alignment

// Record is one row of a BLAST-family tabular alignment, plus the
// bookkeeping PasteRight/PasteLeft need to fuse neighbours into it.
//
// A Record is created by FromFields and mutated only through PasteRight and
// PasteLeft; there is no exported way to construct one with inconsistent
// fields. Records are never shared: a merge consumes the neighbour by
// copying its content into the receiver, so there is no aliasing between
// two Records that both still exist after a paste.
type Record struct {
	id        int
	pastedIDs []int

	qstart, qend int
	sstart, send int
	plusStrand   bool

	nident, mismatch, gapopen, gaps int
	qlen, slen, length              int

	qseq, sseq string

	pident, rawScore, bitscore, evalue float64

	ungappedPrefixEnd   int
	ungappedSuffixBegin int

	includeInOutput bool
}

// ID returns the stable integer id assigned to this record at parse time.
func (r *Record) ID() int { return r.id }

// PastedIDs returns the ordered list of source ids fused into this record.
// The first entry is always the record's original id. The caller must not
// modify the returned slice.
func (r *Record) PastedIDs() []int { return r.pastedIDs }

// Qstart and Qend return the 1-based inclusive query coordinates.
func (r *Record) Qstart() int { return r.qstart }
func (r *Record) Qend() int   { return r.qend }

// Sstart and Send return the 1-based inclusive subject coordinates,
// normalised so Sstart() <= Send(); the original orientation is recorded in
// PlusStrand.
func (r *Record) Sstart() int { return r.sstart }
func (r *Record) Send() int   { return r.send }

// PlusStrand reports whether the subject orientation was forward in the
// input row.
func (r *Record) PlusStrand() bool { return r.plusStrand }

// Nident, Mismatch, Gapopen, and Gaps return the alignment's count fields.
func (r *Record) Nident() int   { return r.nident }
func (r *Record) Mismatch() int { return r.mismatch }
func (r *Record) Gapopen() int  { return r.gapopen }
func (r *Record) Gaps() int     { return r.gaps }

// Qlen and Slen return the full query and subject sequence lengths.
func (r *Record) Qlen() int { return r.qlen }
func (r *Record) Slen() int { return r.slen }

// Length returns the aligned length, including gap columns.
func (r *Record) Length() int { return r.length }

// Qseq and Sseq return the aligned strings. Both are empty in blind mode.
func (r *Record) Qseq() string { return r.qseq }
func (r *Record) Sseq() string { return r.sseq }

// Pident, RawScore, Bitscore, and Evalue return the similarity statistics
// last computed by scoring.System for this record.
func (r *Record) Pident() float64    { return r.pident }
func (r *Record) RawScore() float64  { return r.rawScore }
func (r *Record) Bitscore() float64  { return r.bitscore }
func (r *Record) Evalue() float64    { return r.evalue }

// UngappedPrefixEnd returns a conservative lower bound (never an
// overstatement) on the end of the record's maximal gap-free prefix.
func (r *Record) UngappedPrefixEnd() int { return r.ungappedPrefixEnd }

// UngappedSuffixBegin returns a conservative upper bound (never an
// understatement) on the begin of the record's maximal gap-free suffix.
func (r *Record) UngappedSuffixBegin() int { return r.ungappedSuffixBegin }

// IncludeInOutput reports whether the batch controller marked this record
// for emission.
func (r *Record) IncludeInOutput() bool { return r.includeInOutput }

// SetIncludeInOutput is called by package batch once it has decided whether
// a seed's final state satisfies the output thresholds.
func (r *Record) SetIncludeInOutput(v bool) { r.includeInOutput = v }

// Satisfies reports whether the record currently meets the given percent
// identity and raw score floors, using epsilon-tolerant comparison.
func (r *Record) Satisfies(pidentMin, scoreMin, epsilon float64) bool {
	return fuzzyGE(r.pident, pidentMin, epsilon) && fuzzyGE(r.rawScore, scoreMin, epsilon)
}

// clone returns a deep copy of r suitable for a speculative merge: the
// caller can paste onto the clone and discard it without the original
// being affected.
func (r *Record) clone() *Record {
	c := *r
	c.pastedIDs = append([]int(nil), r.pastedIDs...)
	return &c
}

// FuzzyEquals reports whether a and b are within epsilon of each other,
// relative to |min(a, b)|, or within epsilon absolutely when min(a, b) is
// zero — the tolerance rule applied
// to every float comparison in the pasting engine (package batch uses it
// directly to rank candidates and sort scoreSorted).
func FuzzyEquals(a, b, epsilon float64) bool {
	if a == b {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	scale := a
	if b < scale {
		scale = b
	}
	if scale < 0 {
		scale = -scale
	}
	if scale == 0 {
		return diff <= epsilon
	}
	return diff <= epsilon*scale
}

// fuzzyGE reports whether a >= b, treating a and b as equal when they are
// within epsilon of each other.
func fuzzyGE(a, b, epsilon float64) bool {
	return a > b || FuzzyEquals(a, b, epsilon)
}
