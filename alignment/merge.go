package alignment

import (
	"github.com/grailbio/alnpaste/scoring"
	"github.com/grailbio/base/errors"
)

// Configuration holds the derived geometry of an ordered (left, right) pair
// of candidates being considered for a paste, computed once by the caller
// (package batch) and handed to PasteRight/PasteLeft so the merge itself
// never has to re-derive it.
type Configuration struct {
	QueryOffset, SubjectOffset      int
	QueryOverlap, QueryDistance     int
	SubjectOverlap, SubjectDistance int
	Shift                           int
	LeftLength, RightLength         int
	PastedLength                    int
}

// NewConfiguration computes the pasting geometry for pasting right onto
// left, where left precedes right along the query axis.
func NewConfiguration(left, right *Record) Configuration {
	var c Configuration
	c.QueryOffset = right.qstart - left.qend - 1
	if left.plusStrand {
		c.SubjectOffset = right.sstart - left.send - 1
	} else {
		c.SubjectOffset = left.sstart - right.send - 1
	}
	c.QueryOverlap, c.QueryDistance = splitOffset(c.QueryOffset)
	c.SubjectOverlap, c.SubjectDistance = splitOffset(c.SubjectOffset)
	c.Shift = abs(c.QueryOffset - c.SubjectOffset)
	c.LeftLength = left.length
	c.RightLength = right.length
	maxOffset := c.QueryOffset
	if c.SubjectOffset > maxOffset {
		maxOffset = c.SubjectOffset
	}
	c.PastedLength = c.LeftLength + c.RightLength + maxOffset
	return c
}

func splitOffset(offset int) (overlap, distance int) {
	if offset < 0 {
		return -offset, 0
	}
	return 0, offset
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// pastedPartition describes how a pasted alignment's aligned strings are
// assembled out of a retained portion of the left alignment, a run of gap
// characters, a run of 'N' placeholder characters, and a retained portion
// of the right alignment. Mirrors the C++ PastedPartition exactly.
type pastedPartition struct {
	gapBegin, gapLength         int
	unknownBegin, unknownLength int
	rightBegin, rightLength     int
}

// rightPartition is right-maximising: left-prefix + gap + unknown +
// right-whole. Used by PasteRight.
func rightPartition(c Configuration) pastedPartition {
	var p pastedPartition
	overlap := c.QueryOverlap
	if c.SubjectOverlap > overlap {
		overlap = c.SubjectOverlap
	}
	p.gapBegin = c.LeftLength - overlap
	p.gapLength = c.Shift
	p.unknownBegin = p.gapBegin + p.gapLength
	p.unknownLength = min(c.QueryDistance, c.SubjectDistance)
	p.rightBegin = p.unknownBegin + p.unknownLength
	p.rightLength = c.RightLength
	return p
}

// leftPartition is left-maximising: left-whole + unknown + gap +
// right-suffix. Used by PasteLeft.
func leftPartition(c Configuration) pastedPartition {
	var p pastedPartition
	p.unknownBegin = c.LeftLength
	p.unknownLength = min(c.QueryDistance, c.SubjectDistance)
	p.gapBegin = p.unknownBegin + p.unknownLength
	p.gapLength = c.Shift
	p.rightBegin = p.gapBegin + p.gapLength
	p.rightLength = c.PastedLength - p.rightBegin
	return p
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// combineRight assembles left[:gapBegin] + gap-chars + 'N'-chars + right,
// for the right-maximising partition.
func combineRight(left, right string, p pastedPartition, gapChar byte) string {
	buf := make([]byte, 0, p.gapBegin+p.gapLength+p.unknownLength+p.rightLength)
	buf = append(buf, left[:p.gapBegin]...)
	buf = appendRepeated(buf, gapChar, p.gapLength)
	buf = appendRepeated(buf, 'N', p.unknownLength)
	buf = append(buf, right...)
	return string(buf)
}

// combineLeft assembles left + 'N'-chars + gap-chars + right[len-rightLength:],
// for the left-maximising partition.
func combineLeft(left, right string, p pastedPartition, gapChar byte) string {
	buf := make([]byte, 0, len(left)+p.unknownLength+p.gapLength+p.rightLength)
	buf = append(buf, left...)
	buf = appendRepeated(buf, 'N', p.unknownLength)
	buf = appendRepeated(buf, gapChar, p.gapLength)
	buf = append(buf, right[len(right)-p.rightLength:]...)
	return string(buf)
}

func appendRepeated(buf []byte, c byte, n int) []byte {
	for i := 0; i < n; i++ {
		buf = append(buf, c)
	}
	return buf
}

// gapChars decides which side (query or subject) gets the gap character
// and which gets the placeholder 'N' for the unknown region between two
// pasted alignments: the side with the larger offset (more distance to
// cover) gets 'N', the side that lags gets the gap.
func gapChars(c Configuration) (queryGap, subjectGap byte) {
	if c.QueryOffset > c.SubjectOffset {
		return 'N', '-'
	}
	return '-', 'N'
}

// adjustCounts folds other's counts into the receiver's, given the merge
// geometry. Overlapping bases are optimistically treated as identical;
// the unknown region between the two alignments is counted as mismatches.
func adjustCounts(r *Record, other *Record, c Configuration) {
	overlap := c.QueryOverlap
	if c.SubjectOverlap > overlap {
		overlap = c.SubjectOverlap
	}
	r.nident += other.nident - overlap
	r.mismatch += other.mismatch + min(c.QueryDistance, c.SubjectDistance)
	r.gapopen += other.gapopen
	if c.Shift > 0 {
		r.gapopen++
	}
	r.gaps += other.gaps + c.Shift
}

// ChopSafe reports whether pasting right onto left (cfg must be
// NewConfiguration(left, right)) would not chop into the middle of either
// alignment's gaps. The overlapping region is excluded from whichever side
// a paste actually retains only a portion of — left's tail for a
// right-maximising partition, right's head for a left-maximising one — and
// is checked against that side's own UngappedPrefixEnd/UngappedSuffixBegin;
// the side kept whole is checked the mirror way, since the physically
// overlapping bases it starts (or ends) with are the same bases the other
// side discards (see adjustCounts). Chopping off a whole gap is fine;
// landing strictly inside the region neither bound can rule a gap out of
// is not, so both checks use the same "inside a known gap-free region"
// predicate as prefixEnd/suffixBegin below.
func ChopSafe(left, right *Record, cfg Configuration) bool {
	overlap := cfg.QueryOverlap
	if cfg.SubjectOverlap > overlap {
		overlap = cfg.SubjectOverlap
	}
	return chopSafe(left, left.length-overlap) && chopSafe(right, overlap)
}

// chopSafe reports that cutting r at local position pos cannot land inside
// a gap: pos falls within the known gap-free prefix or the known gap-free
// suffix.
func chopSafe(r *Record, pos int) bool {
	return pos <= r.ungappedPrefixEnd || pos >= r.ungappedSuffixBegin
}

// chopPoint returns the index, within the pasted string, at which the
// left alignment's retained portion ends (equivalently, where the
// unknown/gap region, if any, begins).
func chopPoint(p pastedPartition) int {
	switch {
	case p.unknownLength > 0 && p.gapLength > 0:
		if p.unknownBegin < p.gapBegin {
			return p.unknownBegin
		}
		return p.gapBegin
	case p.unknownLength > 0:
		return p.unknownBegin
	case p.gapLength > 0:
		return p.gapBegin
	default:
		return p.rightBegin
	}
}

// prefixEnd computes the conservative ungapped-prefix-end of the alignment
// obtained by pasting left and right together, by the same case analysis
// as original_source's GetPrefixEnd.
func prefixEnd(left, right *Record, p pastedPartition, c Configuration) int {
	rightPrefixEndAfter := c.PastedLength - right.length + right.ungappedPrefixEnd
	rightSuffixBeginAfter := c.PastedLength - right.length + right.ungappedSuffixBegin
	leftEnd := chopPoint(p)

	if leftEnd > left.ungappedPrefixEnd {
		return left.ungappedPrefixEnd
	}
	if c.Shift != 0 {
		return p.gapBegin
	}
	switch {
	case rightSuffixBeginAfter <= p.rightBegin:
		return c.PastedLength
	case p.rightBegin < rightPrefixEndAfter:
		return rightPrefixEndAfter
	default:
		return p.rightBegin
	}
}

// suffixBegin computes the conservative ungapped-suffix-begin of the
// alignment obtained by pasting left and right together, by the same case
// analysis as original_source's GetSuffixBegin.
func suffixBegin(left, right *Record, p pastedPartition, c Configuration) int {
	rightSuffixBeginAfter := c.PastedLength - right.length + right.ungappedSuffixBegin
	leftEnd := chopPoint(p)

	if p.rightBegin < rightSuffixBeginAfter {
		return rightSuffixBeginAfter
	}
	if c.Shift != 0 {
		return p.gapBegin + p.gapLength
	}
	switch {
	case leftEnd <= left.ungappedPrefixEnd:
		return 0
	case left.ungappedSuffixBegin < leftEnd:
		return left.ungappedSuffixBegin
	default:
		return leftEnd
	}
}

// PasteRight fuses other onto the right of r, in place. cfg must be
// NewConfiguration(r, other). Returns a PastingError (errors.Precondition)
// if the strict-monotone preconditions are violated.
func (r *Record) PasteRight(other *Record, cfg Configuration, s *scoring.System, blindMode bool) error {
	if r.qstart >= other.qstart || r.qend >= other.qend ||
		(r.plusStrand && (r.sstart >= other.sstart || r.send >= other.send)) ||
		(!r.plusStrand && (r.sstart <= other.sstart || r.send <= other.send)) {
		return errors.E(errors.Precondition,
			"alignment: invalid configuration pasting", other.id, "onto the right of", r.id)
	}

	p := rightPartition(cfg)
	newPrefixEnd := prefixEnd(r, other, p, cfg)
	newSuffixBegin := suffixBegin(r, other, p, cfg)

	if !blindMode {
		queryGap, subjectGap := gapChars(cfg)
		r.qseq = combineRight(r.qseq, other.qseq, p, queryGap)
		r.sseq = combineRight(r.sseq, other.sseq, p, subjectGap)
	}
	r.pastedIDs = append(r.pastedIDs, other.pastedIDs...)
	r.length = cfg.PastedLength
	r.qend = other.qend
	if r.plusStrand {
		r.send = other.send
	} else {
		r.sstart = other.sstart
	}
	r.ungappedPrefixEnd = newPrefixEnd
	r.ungappedSuffixBegin = newSuffixBegin
	adjustCounts(r, other, cfg)
	r.refreshStatistics(s)
	return nil
}

// PasteLeft fuses other onto the left of r, in place. cfg must be
// NewConfiguration(other, r). Returns a PastingError (errors.Precondition)
// if the strict-monotone preconditions are violated.
func (r *Record) PasteLeft(other *Record, cfg Configuration, s *scoring.System, blindMode bool) error {
	if r.plusStrand != other.plusStrand ||
		r.qstart <= other.qstart || r.qend <= other.qend ||
		(r.plusStrand && (r.sstart <= other.sstart || r.send <= other.send)) ||
		(!r.plusStrand && (r.sstart >= other.sstart || r.send >= other.send)) {
		return errors.E(errors.Precondition,
			"alignment: invalid configuration pasting", other.id, "onto the left of", r.id)
	}

	p := leftPartition(cfg)
	newPrefixEnd := prefixEnd(other, r, p, cfg)
	newSuffixBegin := suffixBegin(other, r, p, cfg)

	if !blindMode {
		queryGap, subjectGap := gapChars(cfg)
		r.qseq = combineLeft(other.qseq, r.qseq, p, queryGap)
		r.sseq = combineLeft(other.sseq, r.sseq, p, subjectGap)
	}
	r.pastedIDs = append(r.pastedIDs, other.pastedIDs...)
	r.length = cfg.PastedLength
	r.qstart = other.qstart
	if r.plusStrand {
		r.sstart = other.sstart
	} else {
		r.send = other.send
	}
	r.ungappedPrefixEnd = newPrefixEnd
	r.ungappedSuffixBegin = newSuffixBegin
	adjustCounts(r, other, cfg)
	r.refreshStatistics(s)
	return nil
}

// Clone returns a deep copy suitable for a speculative merge (see
// batch.Controller's intermediate-threshold check): paste onto the clone
// and discard it without mutating r.
func (r *Record) Clone() *Record { return r.clone() }
