package batch

import (
	"testing"

	"github.com/grailbio/alnpaste/alignment"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestPasteAlignmentsMergesAbuttingChain(t *testing.T) {
	s := mustScorer(t)
	b, err := New("q1", "s1")
	assert.Nil(t, err)
	b.Add(mustRecord(t, s, 1, 1, 10, 100, 109, 10, 0, 200, 200, 10))
	b.Add(mustRecord(t, s, 2, 11, 20, 110, 119, 10, 0, 200, 200, 10))
	assert.Nil(t, b.ResetAlignments(DefaultConfig.FloatEpsilon))

	cfg := DefaultConfig
	cfg.BlindMode = true
	ctl := NewController(cfg, s)
	assert.Nil(t, ctl.PasteAlignments(b))

	var survivors int
	for _, r := range b.Records() {
		if r != nil && r.IncludeInOutput() {
			survivors++
			expect.EQ(t, r.Qstart(), 1)
			expect.EQ(t, r.Qend(), 20)
			expect.EQ(t, r.PastedIDs(), []int{1, 2})
		}
	}
	expect.EQ(t, survivors, 1)
	expect.EQ(t, ctl.Stats.SeedsEmitted, 1)
}

func TestPasteAlignmentsKeepsChainsSeparateWhenShiftExceedsTolerance(t *testing.T) {
	s := mustScorer(t)
	b, err := New("q1", "s1")
	assert.Nil(t, err)
	b.Add(mustRecord(t, s, 1, 1, 10, 1, 10, 10, 0, 100, 100, 10))
	b.Add(mustRecord(t, s, 2, 15, 24, 20, 29, 10, 0, 100, 100, 10))
	assert.Nil(t, b.ResetAlignments(DefaultConfig.FloatEpsilon))

	cfg := DefaultConfig
	cfg.BlindMode = true
	cfg.GapTolerance = 0
	ctl := NewController(cfg, s)
	assert.Nil(t, ctl.PasteAlignments(b))

	included := 0
	for _, r := range b.Records() {
		if r != nil && r.IncludeInOutput() {
			included++
			expect.EQ(t, len(r.PastedIDs()), 1)
		}
	}
	expect.EQ(t, included, 2)
	expect.EQ(t, ctl.Stats.SeedsEmitted, 2)
}

func TestPasteAlignmentsRollsBackToLastGoodOnFinalThresholdFailure(t *testing.T) {
	s := mustScorer(t)
	b, err := New("q1", "s1")
	assert.Nil(t, err)
	// r1 alone clears the final score threshold; absorbing the weak, distant
	// r2 drags the chain's raw score back under it, so the controller must
	// roll back to the r1-only state instead of emitting the merged chain.
	b.Add(mustRecord(t, s, 1, 1, 20, 1, 20, 20, 0, 200, 200, 20))
	b.Add(mustRecord(t, s, 2, 26, 30, 26, 30, 2, 0, 200, 200, 5))
	assert.Nil(t, b.ResetAlignments(DefaultConfig.FloatEpsilon))

	cfg := DefaultConfig
	cfg.BlindMode = true
	cfg.GapTolerance = 10
	cfg.FinalScoreThreshold = 15
	ctl := NewController(cfg, s)
	assert.Nil(t, ctl.PasteAlignments(b))

	r1 := b.Records()[0]
	expect.EQ(t, r1.IncludeInOutput(), true)
	expect.EQ(t, r1.PastedIDs(), []int{1})
	expect.EQ(t, r1.Qend(), 20)

	r2 := b.Records()[1]
	expect.EQ(t, r2.IncludeInOutput(), false)

	expect.EQ(t, ctl.Stats.SeedsEmitted, 1)
	expect.EQ(t, ctl.Stats.SeedsDropped, 1)
}

func TestPasteAlignmentsNilOnNilBatch(t *testing.T) {
	s := mustScorer(t)
	ctl := NewController(DefaultConfig, s)
	err := ctl.PasteAlignments(nil)
	assert.NotNil(t, err)
}

func TestScoreBetterRanksByRawScoreThenPidentThenIndex(t *testing.T) {
	s := mustScorer(t)
	high := mustRecord(t, s, 1, 1, 10, 1, 10, 10, 0, 100, 100, 10)  // rawScore=10
	low := mustRecord(t, s, 2, 1, 10, 1, 10, 9, 0, 100, 100, 10)    // rawScore=9
	expect.EQ(t, scoreBetter(high, 5, low, 1, DefaultConfig.FloatEpsilon), true)
	expect.EQ(t, scoreBetter(low, 1, high, 5, DefaultConfig.FloatEpsilon), false)

	// Equal raw score (10 == 10), pident breaks the tie: shortLen below is
	// 100% identical over a shorter alignment, longLen is 50% identical over a
	// longer one.
	shortLen := mustRecord(t, s, 3, 1, 10, 1, 10, 10, 0, 100, 100, 10) // pident=100
	longLen := mustRecord(t, s, 4, 1, 20, 1, 20, 10, 0, 100, 100, 20)  // pident=50
	expect.EQ(t, scoreBetter(shortLen, 9, longLen, 2, DefaultConfig.FloatEpsilon), true)
	expect.EQ(t, scoreBetter(longLen, 2, shortLen, 9, DefaultConfig.FloatEpsilon), false)

	// Equal raw score and equal pident: ascending index wins regardless of
	// which side is passed first.
	tie := mustRecord(t, s, 5, 1, 10, 1, 10, 10, 0, 100, 100, 10)
	expect.EQ(t, scoreBetter(tie, 3, tie, 7, DefaultConfig.FloatEpsilon), true)
	expect.EQ(t, scoreBetter(tie, 7, tie, 3, DefaultConfig.FloatEpsilon), false)
}

// TestPasteAlignmentsPicksBestScoringCandidateNotFirstInOrder covers two
// previously-broken behaviours in one scenario: two candidates sit at the
// exact same query/subject coordinates (so neither is "nearer" than the
// other) but differ in identity. The weaker one (id 2) was added before the
// stronger one (id 3), so a scan that stops at the first admissible,
// intermediate-passing candidate in qstartSorted order would wrongly paste
// the weaker one. The controller must instead paste the one that yields the
// better (raw_score, pident) after the merge, and must leave the candidate
// it didn't choose available to be emitted on its own rather than silently
// dropping it.
func TestPasteAlignmentsPicksBestScoringCandidateNotFirstInOrder(t *testing.T) {
	s := mustScorer(t)
	b, err := New("q1", "s1")
	assert.Nil(t, err)
	b.Add(mustRecord(t, s, 1, 1, 10, 1, 10, 10, 0, 100, 100, 10))  // seed: rawScore=10, pident=100
	b.Add(mustRecord(t, s, 2, 11, 20, 11, 20, 7, 3, 100, 100, 10)) // weak, added first: rawScore=1
	b.Add(mustRecord(t, s, 3, 11, 20, 11, 20, 10, 0, 100, 100, 10)) // strong, added second: rawScore=10
	assert.Nil(t, b.ResetAlignments(DefaultConfig.FloatEpsilon))

	cfg := DefaultConfig
	cfg.BlindMode = true
	ctl := NewController(cfg, s)
	assert.Nil(t, ctl.PasteAlignments(b))

	var chain, lone *alignment.Record
	for _, r := range b.Records() {
		if r == nil || !r.IncludeInOutput() {
			continue
		}
		if len(r.PastedIDs()) == 2 {
			chain = r
		} else {
			lone = r
		}
	}

	assert.True(t, chain != nil)
	expect.EQ(t, chain.PastedIDs(), []int{1, 3})
	expect.EQ(t, chain.Nident(), 20)
	expect.EQ(t, chain.RawScore(), 20.0)

	assert.True(t, lone != nil)
	expect.EQ(t, lone.PastedIDs(), []int{2})
	expect.EQ(t, ctl.Stats.SeedsEmitted, 2)
}
