package batch

import (
	"github.com/grailbio/alnpaste/alignment"
	"github.com/grailbio/alnpaste/internal/alnindex"
	"github.com/grailbio/alnpaste/scoring"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Config holds the tunable behaviour of Controller.PasteAlignments. Field
// names mirror the Go flags the CLI binds them to; see cmd/bio-paste-alignments.
type Config struct {
	// GapTolerance is the largest shift (the absolute difference between a
	// candidate's query offset and its subject offset from the receiver)
	// admitted by a single paste.
	GapTolerance int
	// IntermediatePidentThreshold and IntermediateScoreThreshold are the
	// floors a chain must keep clearing after every committed paste; a
	// candidate that would drop the chain below either is skipped, without
	// poisoning the rest of the extension.
	IntermediatePidentThreshold float64
	IntermediateScoreThreshold  float64
	// FinalPidentThreshold and FinalScoreThreshold are the floors a
	// finished chain must clear to be emitted at all.
	FinalPidentThreshold float64
	FinalScoreThreshold  float64
	// FloatEpsilon is the relative tolerance used for every threshold
	// comparison (see alignment.Record.Satisfies).
	FloatEpsilon float64
	// BlindMode omits aligned-sequence bookkeeping from every paste.
	BlindMode bool
}

// DefaultConfig sets conservative defaults: no gap tolerance, and every
// intermediate and final threshold at zero, so the thresholds hold back only
// pastes and chains whose raw score falls below zero.
var DefaultConfig = Config{
	GapTolerance:                0,
	IntermediatePidentThreshold: 0,
	IntermediateScoreThreshold:  0,
	FinalPidentThreshold:        0,
	FinalScoreThreshold:         0,
	FloatEpsilon:                0.05,
}

// Controller runs PasteAlignments over one or more Batches, sharing a
// scoring.System and accumulating Stats across all of them.
type Controller struct {
	Config Config
	Scorer *scoring.System
	Stats  Stats
}

// NewController returns a Controller with the given configuration and
// scoring system.
func NewController(cfg Config, scorer *scoring.System) *Controller {
	return &Controller{Config: cfg, Scorer: scorer}
}

// direction is which way a chain's receiver is being extended.
type direction int

const (
	directionRight direction = iota
	directionLeft
)

// PasteAlignments pastes b's alignments into as few, highest-scoring chains
// as possible and marks the surviving chains' IncludeInOutput. It mutates
// b.Records() in place: every input record either becomes (part of) an
// emitted chain, or is left with IncludeInOutput false. Once every seed has
// been processed, each emitted chain replaces its seed's record and the
// slots of the records it absorbed are set to nil. Call b.ResetAlignments
// once before the first call and do not call it again until this returns.
func (c *Controller) PasteAlignments(b *Batch) error {
	if b == nil {
		return errors.E(errors.Invalid, "batch: PasteAlignments called with a nil batch")
	}
	n := len(b.Records())
	used := make([]bool, n)
	// Results are written back only after the seed loop, so later seeds still
	// search the sorted permutations over the original records.
	finals := make(map[int]*alignment.Record)
	var absorbed []int

	for _, seedIdx := range b.ScoreSorted() {
		if used[seedIdx] {
			continue
		}
		used[seedIdx] = true
		c.Stats.SeedsExamined++

		chain := b.Records()[seedIdx].Clone()
		consumed := []int{seedIdx}

		var lastGood *alignment.Record
		var lastGoodConsumed []int
		if chain.Satisfies(c.Config.FinalPidentThreshold, c.Config.FinalScoreThreshold, c.Config.FloatEpsilon) {
			lastGood = chain.Clone()
			lastGoodConsumed = append([]int(nil), consumed...)
		}

		for _, dir := range []direction{directionRight, directionLeft} {
			var hint alnindex.Index
			for {
				best, newHint, ok, rolledBack := c.selectCandidate(b, chain, used, dir, hint)
				hint = newHint
				c.Stats.PastesRolledBack += rolledBack
				if !ok {
					break
				}
				c.Stats.PastesAttempted++
				chain = best.merged
				used[best.idx] = true
				consumed = append(consumed, best.idx)
				if chain.Satisfies(c.Config.FinalPidentThreshold, c.Config.FinalScoreThreshold, c.Config.FloatEpsilon) {
					lastGood = chain.Clone()
					lastGoodConsumed = append([]int(nil), consumed...)
				}
			}
		}

		final := chain
		finalConsumed := consumed
		if !final.Satisfies(c.Config.FinalPidentThreshold, c.Config.FinalScoreThreshold, c.Config.FloatEpsilon) {
			if lastGood == nil {
				// Never once satisfied the final thresholds: drop the whole
				// chain and release every record it tentatively absorbed,
				// except the seed itself (already examined, stays used so
				// it is never retried).
				for _, idx := range consumed {
					if idx != seedIdx {
						used[idx] = false
					}
				}
				c.Stats.SeedsDropped++
				continue
			}
			log.Debug.Printf("batch: rolling back seed %d to last known-good state with %d pasted records",
				b.Records()[seedIdx].ID(), len(lastGoodConsumed))
			final = lastGood
			finalConsumed = lastGoodConsumed
			rolledBack := setDiff(consumed, finalConsumed)
			for _, idx := range rolledBack {
				used[idx] = false
			}
		}

		final.SetIncludeInOutput(true)
		c.Stats.SeedsEmitted++
		finals[seedIdx] = final
		for _, idx := range finalConsumed {
			if idx != seedIdx {
				absorbed = append(absorbed, idx)
			}
		}
	}
	for idx, r := range finals {
		b.Records()[idx] = r
	}
	for _, idx := range absorbed {
		b.Records()[idx] = nil
	}
	return nil
}

// setDiff returns the elements of a not present in b.
func setDiff(a, b []int) []int {
	inB := make(map[int]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []int
	for _, v := range a {
		if !inB[v] {
			out = append(out, v)
		}
	}
	return out
}

// chosenCandidate is the winner selectCandidate found: the index of the
// record it pasted and the already-merged chain state, so the caller never
// recomputes the same paste twice.
type chosenCandidate struct {
	idx    int
	merged *alignment.Record
}

// selectCandidate considers every not-yet-consumed record geometrically
// admissible for extension in dir, tentatively pastes each one onto chain,
// and discards any whose post-merge state fails the intermediate
// thresholds — without consuming it: a candidate that merely fails the
// intermediate check for this step is not marked used, so it remains
// available for a later step (once chain has moved on) or for another
// seed entirely. Among the candidates that pass, it returns the one
// ranked highest by post-merge (RawScore, Pident), descending, with
// epsilon-tolerant ties broken by ascending record index — matching the
// permutation order ResetAlignments already establishes for scoreSorted.
//
// hint is the Index returned by the previous call for the same dir (zero
// on the first call); the caller must thread it back in unchanged across
// the seed's extension loop. Rightward extension scans qstartSorted from
// the first record whose Qstart() is past chain.Qstart(); chain.Qstart()
// does not change while extending right, so the search target is monotone
// non-decreasing across a seed's successive calls and alnindex.Exponential
// resumes from hint instead of re-walking the permutation from its start.
// Leftward extension scans qendSorted downward from below chain.Qend(),
// searching fresh each call.
func (c *Controller) selectCandidate(b *Batch, chain *alignment.Record, used []bool, dir direction, hint alnindex.Index) (chosenCandidate, alnindex.Index, bool, int) {
	var best chosenCandidate
	haveBest := false
	rolledBack := 0

	consider := func(idx int) {
		if used[idx] {
			return
		}
		ok, cfg := admissible(chain, b.Records()[idx], dir, c.Config.GapTolerance)
		if !ok {
			return
		}
		merged, err := c.tryPaste(chain, b.Records()[idx], dir, cfg)
		if err != nil {
			return
		}
		if !merged.Satisfies(c.Config.IntermediatePidentThreshold, c.Config.IntermediateScoreThreshold, c.Config.FloatEpsilon) {
			rolledBack++
			return
		}
		if !haveBest || scoreBetter(merged, idx, best.merged, best.idx, c.Config.FloatEpsilon) {
			best = chosenCandidate{idx: idx, merged: merged}
			haveBest = true
		}
	}

	if dir == directionRight {
		perm := b.QstartSorted()
		start := alnindex.Exponential(perm, func(i int) alnindex.Pos {
			return b.Records()[i].Qstart()
		}, chain.Qstart()+1, hint)
		for i := int(start); i < len(perm); i++ {
			consider(perm[i])
		}
		return best, start, haveBest, rolledBack
	}

	// Left extension: walk every entry in qendSorted with Qend() <
	// chain.Qend(); no hint is carried between calls.
	perm := b.QendSorted()
	limit := alnindex.Search(perm, func(i int) alnindex.Pos { return b.Records()[i].Qend() }, chain.Qend())
	for i := int(limit) - 1; i >= 0; i-- {
		consider(perm[i])
	}
	return best, 0, haveBest, rolledBack
}

// scoreBetter reports whether a ranks strictly ahead of b under the
// descending (RawScore, Pident) ordering, treating values within epsilon
// as tied and falling through to ascending index as the final tiebreak —
// the same rule ResetAlignments's scoreSorted permutation uses.
func scoreBetter(a *alignment.Record, aIdx int, b *alignment.Record, bIdx int, epsilon float64) bool {
	if !alignment.FuzzyEquals(a.RawScore(), b.RawScore(), epsilon) {
		return a.RawScore() > b.RawScore()
	}
	if !alignment.FuzzyEquals(a.Pident(), b.Pident(), epsilon) {
		return a.Pident() > b.Pident()
	}
	return aIdx < bIdx
}

// admissible reports whether candidate can be pasted onto chain in dir:
// same strand, strictly monotone query coordinates in the direction of
// travel, a shift no larger than gapTolerance, and a paste that would not
// chop into the middle of either alignment's gaps. Subject-coordinate
// monotonicity is not checked here; PasteRight/PasteLeft reject a
// violation, and selectCandidate skips a candidate whose tryPaste fails. It also
// returns the Configuration it derived, so the caller (and tryPaste) never
// have to recompute the geometry.
func admissible(chain, candidate *alignment.Record, dir direction, gapTolerance int) (bool, alignment.Configuration) {
	if chain.PlusStrand() != candidate.PlusStrand() {
		return false, alignment.Configuration{}
	}
	var cfg alignment.Configuration
	var left, right *alignment.Record
	if dir == directionRight {
		if chain.Qstart() >= candidate.Qstart() || chain.Qend() >= candidate.Qend() {
			return false, alignment.Configuration{}
		}
		left, right = chain, candidate
	} else {
		if candidate.Qstart() >= chain.Qstart() || candidate.Qend() >= chain.Qend() {
			return false, alignment.Configuration{}
		}
		left, right = candidate, chain
	}
	cfg = alignment.NewConfiguration(left, right)
	if cfg.Shift > gapTolerance {
		return false, cfg
	}
	if !alignment.ChopSafe(left, right, cfg) {
		return false, cfg
	}
	return true, cfg
}

// tryPaste returns a clone of chain with candidate pasted onto it in dir,
// using the Configuration admissible already derived, or an error if the
// precondition fails.
func (c *Controller) tryPaste(chain, candidate *alignment.Record, dir direction, cfg alignment.Configuration) (*alignment.Record, error) {
	clone := chain.Clone()
	if dir == directionRight {
		if err := clone.PasteRight(candidate, cfg, c.Scorer, c.Config.BlindMode); err != nil {
			return nil, err
		}
		return clone, nil
	}
	if err := clone.PasteLeft(candidate, cfg, c.Scorer, c.Config.BlindMode); err != nil {
		return nil, err
	}
	return clone, nil
}
