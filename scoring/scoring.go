// Package scoring computes BLAST-style similarity statistics (raw score,
// bitscore, e-value, percent identity) for a nucleotide alignment given a
// fixed, validated table of (reward, penalty, gap-open, gap-extend)
// quadruples and their associated Karlin-Altschul parameters.
//
// The package is stateless beyond the configuration chosen at
// construction time: every method is a pure function of its arguments and
// the configured parameters.
package scoring

import (
	"math"

	"github.com/grailbio/base/errors"
)

// Counts carries the raw count fields needed to score an alignment. It
// mirrors the corresponding fields of alignment.Record without importing
// that package, so scoring has no dependency on the alignment record shape.
type Counts struct {
	Nident   int
	Mismatch int
	Gapopen  int
	Gaps     int
	Qlen     int
	Length   int
}

// System evaluates similarity statistics for a single, fixed choice of
// scoring parameters. Construct with New.
type System struct {
	params       ParameterSet
	databaseSize int64
}

// New validates (reward, penalty, openCost, extendCost) against the
// supported parameter table and returns a System that scores alignments
// using the matching lambda/K and the given effective database size.
//
// The sentinel openCost == 0 && extendCost == 0 selects "megablast
// defaults": extendCost is derived from (reward, penalty) via
// MegablastExtendCost and the lookup is retried with the derived value.
func New(databaseSize int64, reward, penalty, openCost, extendCost int) (*System, error) {
	if databaseSize <= 0 {
		return nil, errors.E(errors.Invalid, "scoring: database size must be positive, got", databaseSize)
	}
	if openCost == 0 && extendCost == 0 {
		extendCost = MegablastExtendCost(reward, penalty)
	}
	ps, ok := Lookup(reward, penalty, openCost, extendCost)
	if !ok {
		return nil, errors.E(errors.NotSupported,
			"scoring: unsupported parameter quadruple (reward, penalty, open, extend) =",
			reward, penalty, openCost, extendCost)
	}
	return &System{params: ps, databaseSize: databaseSize}, nil
}

// MegablastExtendCost derives the gap-extend cost implied by the
// (open, extend) = (0, 0) "megablast defaults" sentinel, following the
// standard BLAST convention that megablast's default affine gap cost is
// tied to the match/mismatch reward ratio rather than specified
// separately: half the match reward, plus the mismatch penalty magnitude.
func MegablastExtendCost(reward, penalty int) int {
	cost := reward/2 + penalty
	if cost < 1 {
		cost = 1
	}
	return cost
}

// Reward, Penalty, OpenCost, and ExtendCost return the scoring parameters
// this System was constructed with (after megablast-sentinel resolution).
func (s *System) Reward() int      { return s.params.Reward }
func (s *System) Penalty() int     { return s.params.Penalty }
func (s *System) OpenCost() int    { return s.params.OpenCost }
func (s *System) ExtendCost() int  { return s.params.ExtendCost }
func (s *System) Lambda() float64  { return s.params.Lambda }
func (s *System) K() float64       { return s.params.K }
func (s *System) DatabaseSize() int64 { return s.databaseSize }

// RawScore computes reward*nident - penalty*mismatch - open*gapopen -
// extend*gaps.
func (s *System) RawScore(c Counts) float64 {
	return float64(s.params.Reward)*float64(c.Nident) -
		float64(s.params.Penalty)*float64(c.Mismatch) -
		float64(s.params.OpenCost)*float64(c.Gapopen) -
		float64(s.params.ExtendCost)*float64(c.Gaps)
}

// scoreForStatistics returns the raw score, rounded down to the nearest
// even integer when this parameter-set entry requires it. BLAST does this
// for certain table entries before computing bitscore and e-value; which
// entries require it is a property of the table, not of the formula.
func (s *System) scoreForStatistics(rawScore float64) float64 {
	if !s.params.RoundDownToEven {
		return rawScore
	}
	floor := math.Floor(rawScore)
	i := int64(floor)
	if i%2 != 0 {
		i--
	}
	return float64(i)
}

// Bitscore computes (lambda*score - ln(K)) / ln(2), using the
// possibly-rounded score per scoreForStatistics.
func (s *System) Bitscore(c Counts) float64 {
	score := s.scoreForStatistics(s.RawScore(c))
	return (s.params.Lambda*score - math.Log(s.params.K)) / math.Ln2
}

// Evalue computes K * qlen * databaseSize * exp(-lambda*score), using the
// possibly-rounded score per scoreForStatistics.
func (s *System) Evalue(c Counts) float64 {
	score := s.scoreForStatistics(s.RawScore(c))
	return s.params.K * float64(c.Qlen) * float64(s.databaseSize) * math.Exp(-s.params.Lambda*score)
}

// Pident computes 100*nident/length.
func (s *System) Pident(c Counts) float64 {
	if c.Length == 0 {
		return 0
	}
	return 100 * float64(c.Nident) / float64(c.Length)
}
