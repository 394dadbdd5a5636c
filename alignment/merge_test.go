package alignment

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func mustRecord(t *testing.T, id, qstart, qend, sstart, send, nident, mismatch, gapopen, gaps, qlen, slen, length int, qseq, sseq string, blind bool) *Record {
	t.Helper()
	s := mustScoringSystem(t)
	f := fields(qstart, qend, sstart, send, nident, mismatch, gapopen, gaps, qlen, slen, length, qseq, sseq)
	r, err := FromFields(id, f, s, blind)
	assert.Nil(t, err)
	return r
}

func TestPasteRightAbuttingNoGapIsFullyUngapped(t *testing.T) {
	s := mustScoringSystem(t)
	left := mustRecord(t, 1, 1, 10, 100, 109, 10, 0, 0, 0, 200, 200, 10, "AAAAAAAAAA", "AAAAAAAAAA", false)
	right := mustRecord(t, 2, 11, 20, 110, 119, 10, 0, 0, 0, 200, 200, 10, "CCCCCCCCCC", "CCCCCCCCCC", false)

	cfg := NewConfiguration(left, right)
	expect.EQ(t, cfg.Shift, 0)
	expect.EQ(t, cfg.PastedLength, 20)

	assert.Nil(t, left.PasteRight(right, cfg, s, false))
	expect.EQ(t, left.Qstart(), 1)
	expect.EQ(t, left.Qend(), 20)
	expect.EQ(t, left.Send(), 119)
	expect.EQ(t, left.Length(), 20)
	expect.EQ(t, left.Qseq(), "AAAAAAAAAACCCCCCCCCC")
	expect.EQ(t, left.Nident(), 20)
	expect.EQ(t, left.UngappedPrefixEnd(), 20)
	expect.EQ(t, left.UngappedSuffixBegin(), 0)
	expect.EQ(t, left.PastedIDs(), []int{1, 2})
	expect.EQ(t, left.Pident(), 100.0)
}

func TestPasteRightWithQueryGapIncrementsGapopen(t *testing.T) {
	s := mustScoringSystem(t)
	left := mustRecord(t, 1, 1, 10, 100, 109, 10, 0, 0, 0, 200, 200, 10, "", "", true)
	right := mustRecord(t, 2, 14, 23, 110, 119, 10, 0, 0, 0, 200, 200, 10, "", "", true)

	cfg := NewConfiguration(left, right)
	expect.EQ(t, cfg.QueryOffset, 3)
	expect.EQ(t, cfg.SubjectOffset, 0)
	expect.EQ(t, cfg.Shift, 3)

	gapopenBefore := left.Gapopen()
	assert.Nil(t, left.PasteRight(right, cfg, s, true))
	expect.EQ(t, left.Gapopen(), gapopenBefore+1)
	expect.EQ(t, left.Gaps(), 3)
	expect.EQ(t, left.Qend(), 23)
}

func TestPasteRightRejectsNonMonotoneQueryCoordinates(t *testing.T) {
	s := mustScoringSystem(t)
	left := mustRecord(t, 1, 1, 10, 100, 109, 10, 0, 0, 0, 200, 200, 10, "", "", true)
	right := mustRecord(t, 2, 5, 9, 110, 114, 5, 0, 0, 0, 200, 200, 5, "", "", true)

	cfg := NewConfiguration(left, right)
	err := left.PasteRight(right, cfg, s, true)
	assert.NotNil(t, err)
	expect.EQ(t, errors.Is(errors.Precondition, err), true)
}

func TestPasteLeftAbuttingNoGapIsFullyUngapped(t *testing.T) {
	s := mustScoringSystem(t)
	left := mustRecord(t, 1, 1, 10, 100, 109, 10, 0, 0, 0, 200, 200, 10, "AAAAAAAAAA", "AAAAAAAAAA", false)
	right := mustRecord(t, 2, 11, 20, 110, 119, 10, 0, 0, 0, 200, 200, 10, "CCCCCCCCCC", "CCCCCCCCCC", false)

	cfg := NewConfiguration(left, right)
	assert.Nil(t, right.PasteLeft(left, cfg, s, false))
	expect.EQ(t, right.Qstart(), 1)
	expect.EQ(t, right.Qend(), 20)
	expect.EQ(t, right.Sstart(), 100)
	expect.EQ(t, right.Length(), 20)
	expect.EQ(t, right.Qseq(), "AAAAAAAAAACCCCCCCCCC")
	// PasteLeft appends other's pastedIDs to the receiver's own, same as
	// PasteRight; it does not reorder them to match physical left-to-right
	// position.
	expect.EQ(t, right.PastedIDs(), []int{2, 1})
}

func TestChopSafeRejectsCutInsideUnknownZone(t *testing.T) {
	// left has an unknown (possibly-gapped) zone in [5, 15): a prior paste
	// could neither confirm nor rule out a gap there. An overlap that chops
	// left's tail back past position 15 but not as far as position 5 lands
	// the cut inside that zone and must be rejected.
	left := &Record{length: 20, ungappedPrefixEnd: 5, ungappedSuffixBegin: 15}
	right := &Record{length: 10, ungappedPrefixEnd: 10, ungappedSuffixBegin: 0}

	unsafe := Configuration{QueryOverlap: 10}
	expect.EQ(t, ChopSafe(left, right, unsafe), false)
}

func TestChopSafeAcceptsCutInsideKnownGapFreeRegion(t *testing.T) {
	left := &Record{length: 20, ungappedPrefixEnd: 5, ungappedSuffixBegin: 15}
	right := &Record{length: 10, ungappedPrefixEnd: 10, ungappedSuffixBegin: 0}

	// overlap=3 chops left at 20-3=17, inside left's known gap-free suffix
	// ([15,20)); right is cut at its own position 3, inside right's known
	// gap-free prefix ([0,10)). Both sides land in a known-safe region.
	safe := Configuration{QueryOverlap: 3}
	expect.EQ(t, ChopSafe(left, right, safe), true)
}

func TestPasteLeftRejectsOppositeStrand(t *testing.T) {
	s := mustScoringSystem(t)
	left := mustRecord(t, 1, 1, 10, 109, 100, 10, 0, 0, 0, 200, 200, 10, "", "", true)
	right := mustRecord(t, 2, 11, 20, 110, 119, 10, 0, 0, 0, 200, 200, 10, "", "", true)

	cfg := NewConfiguration(left, right)
	err := right.PasteLeft(left, cfg, s, true)
	assert.NotNil(t, err)
	expect.EQ(t, errors.Is(errors.Precondition, err), true)
}
