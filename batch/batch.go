// Package batch implements the pasting controller: given all alignments
// between one query and one subject sequence, it greedily merges
// ("pastes") consistent neighbouring alignments into longer composite
// alignments and decides which of the resulting chains are worth emitting.
package batch

import (
	"encoding/binary"
	"sort"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/alnpaste/alignment"
	"github.com/grailbio/base/errors"
	"github.com/minio/highwayhash"
)

// Batch holds every alignment reported between one (qseqid, sseqid) pair,
// together with the three sorted permutations the controller walks to find
// paste candidates without a linear scan of the whole set.
type Batch struct {
	qseqid, sseqid string

	records []*alignment.Record

	// scoreSorted holds indices into records, ordered by descending
	// (RawScore, Pident) with ties broken by ascending index for
	// determinism.
	scoreSorted []int
	// qstartSorted and qendSorted hold indices into records, ordered
	// ascending by Qstart and Qend respectively (ties broken by index).
	qstartSorted []int
	qendSorted   []int
}

// New creates an empty Batch for the given query/subject pair. qseqid and
// sseqid must be non-empty; callers parse them out of the external wire
// row that package pastetsv reads, and an empty id there always indicates
// a malformed row.
func New(qseqid, sseqid string) (*Batch, error) {
	if qseqid == "" || sseqid == "" {
		return nil, errors.E(errors.Invalid,
			"batch: qseqid and sseqid must be non-empty")
	}
	return &Batch{qseqid: qseqid, sseqid: sseqid}, nil
}

// Qseqid and Sseqid return the query/subject pair this batch was created
// for.
func (b *Batch) Qseqid() string { return b.qseqid }
func (b *Batch) Sseqid() string { return b.sseqid }

// Add appends r to the batch. The sorted permutations are rebuilt lazily by
// ResetAlignments; callers must call it once after the last Add and before
// pasting.
func (b *Batch) Add(r *alignment.Record) {
	b.records = append(b.records, r)
}

// Records returns the batch's current alignment set. The caller must not
// retain the slice past the next mutating call.
func (b *Batch) Records() []*alignment.Record { return b.records }

// ScoreSorted, QstartSorted, and QendSorted return the record-index
// permutations built by the last call to ResetAlignments. Callers must not
// modify the returned slices.
func (b *Batch) ScoreSorted() []int  { return b.scoreSorted }
func (b *Batch) QstartSorted() []int { return b.qstartSorted }
func (b *Batch) QendSorted() []int   { return b.qendSorted }

// ResetAlignments rebuilds the three sorted permutations from the current
// record set. It must be called after the last Add and before
// Controller.PasteAlignments; the controller does not call it while
// pasting. It returns an error if two records in the batch
// describe the exact same alignment (same coordinates and counts), which
// signals a malformed or doubly-fed input rather than a legitimate paste
// candidate.
//
// epsilon is the relative tolerance (the same value as Controller.Config's
// FloatEpsilon) used to treat two records' (RawScore, Pident) as tied in
// scoreSorted rather than ordering them by a difference too small to be
// meaningful.
func (b *Batch) ResetAlignments(epsilon float64) error {
	if err := b.checkDuplicates(); err != nil {
		return err
	}
	n := len(b.records)
	b.scoreSorted = identityPermutation(n)
	b.qstartSorted = identityPermutation(n)
	b.qendSorted = identityPermutation(n)

	sort.SliceStable(b.scoreSorted, func(i, j int) bool {
		ri, rj := b.records[b.scoreSorted[i]], b.records[b.scoreSorted[j]]
		if !alignment.FuzzyEquals(ri.RawScore(), rj.RawScore(), epsilon) {
			return ri.RawScore() > rj.RawScore()
		}
		if !alignment.FuzzyEquals(ri.Pident(), rj.Pident(), epsilon) {
			return ri.Pident() > rj.Pident()
		}
		return false
	})
	sort.SliceStable(b.qstartSorted, func(i, j int) bool {
		return b.records[b.qstartSorted[i]].Qstart() < b.records[b.qstartSorted[j]].Qstart()
	})
	sort.SliceStable(b.qendSorted, func(i, j int) bool {
		return b.records[b.qendSorted[i]].Qend() < b.records[b.qendSorted[j]].Qend()
	})
	return nil
}

// dedupeKey is the HighwayHash digest of a record's coordinate and count
// fields, used by ResetAlignments to catch two input rows that describe
// the exact same alignment fed into the same batch twice.
type dedupeKey = [highwayhash.Size]uint8

var dedupeZeroSeed = dedupeKey{}

func recordDedupeKey(r *alignment.Record, hashBuf *[]byte) dedupeKey {
	hashInt := func(v int) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		*hashBuf = append(*hashBuf, buf[:]...)
	}
	*hashBuf = (*hashBuf)[:0]
	hashInt(r.Qstart())
	hashInt(r.Qend())
	hashInt(r.Sstart())
	hashInt(r.Send())
	hashInt(r.Nident())
	hashInt(r.Mismatch())
	hashInt(r.Gapopen())
	hashInt(r.Gaps())
	return highwayhash.Sum(*hashBuf, dedupeZeroSeed[:])
}

// checkDuplicates returns an error naming the first pair of records that
// share a dedupeKey, i.e. describe the same alignment twice in one batch.
func (b *Batch) checkDuplicates() error {
	var hashBuf []byte
	seen := make(map[dedupeKey]int, len(b.records))
	for i, r := range b.records {
		key := recordDedupeKey(r, &hashBuf)
		if j, ok := seen[key]; ok {
			return errors.E(errors.Invalid,
				"batch: duplicate alignment in batch", b.qseqid, b.sseqid,
				"(ids:", b.records[j].ID(), "and", r.ID(), ")")
		}
		seen[key] = i
	}
	return nil
}

// Checksum returns a FarmHash fingerprint of every currently-emitted
// record's coordinates and counts, letting a caller compare two runs for
// determinism with a single value instead of a row-by-row diff.
func (b *Batch) Checksum() uint64 {
	var buf []byte
	var hash uint64
	for _, r := range b.records {
		if r == nil || !r.IncludeInOutput() {
			continue
		}
		buf = buf[:0]
		buf = appendInt(buf, r.Qstart())
		buf = appendInt(buf, r.Qend())
		buf = appendInt(buf, r.Sstart())
		buf = appendInt(buf, r.Send())
		buf = appendInt(buf, r.Nident())
		buf = appendInt(buf, r.Mismatch())
		buf = appendInt(buf, r.Gapopen())
		buf = appendInt(buf, r.Gaps())
		hash = hash*31 + farm.Hash64WithSeed(buf, hash)
	}
	return hash
}

func appendInt(buf []byte, v int) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func identityPermutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}
