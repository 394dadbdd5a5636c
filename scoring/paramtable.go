package scoring

// ParameterSet is one row of the supported BLAST nucleotide scoring table:
// a (reward, penalty, open, extend) quadruple together with the
// Karlin-Altschul lambda and K that NCBI blastn/megablast associate with
// it, and whether this entry requires the raw score to be rounded down to
// the nearest even integer before it feeds into Bitscore/Evalue. Penalty
// is the mismatch cost magnitude (a positive number); RawScore subtracts
// it, it does not add a negative.
type ParameterSet struct {
	Reward, Penalty, OpenCost, ExtendCost int
	Lambda, K                             float64
	RoundDownToEven                       bool
}

// parameterTable lists the nucleotide scoring parameter sets this package
// supports, following the published NCBI blastn/megablast defaults. The
// ungapped (megablast-style) rows round the score down to the nearest even
// integer before computing bitscore/e-value, matching the nominal-score
// convention BLAST itself uses for unaffine scoring; the gapped rows do
// not.
var parameterTable = []ParameterSet{
	{Reward: 1, Penalty: 1, OpenCost: 0, ExtendCost: 1, Lambda: 1.28, K: 0.46, RoundDownToEven: true},
	{Reward: 1, Penalty: 2, OpenCost: 0, ExtendCost: 2, Lambda: 1.28, K: 0.46, RoundDownToEven: true},
	{Reward: 1, Penalty: 2, OpenCost: 5, ExtendCost: 2, Lambda: 1.06, K: 0.37, RoundDownToEven: false},
	{Reward: 1, Penalty: 2, OpenCost: 2, ExtendCost: 2, Lambda: 0.94, K: 0.39, RoundDownToEven: false},
	{Reward: 1, Penalty: 3, OpenCost: 0, ExtendCost: 3, Lambda: 1.374, K: 0.711, RoundDownToEven: true},
	{Reward: 1, Penalty: 3, OpenCost: 5, ExtendCost: 2, Lambda: 1.0, K: 0.41, RoundDownToEven: false},
	{Reward: 1, Penalty: 4, OpenCost: 0, ExtendCost: 4, Lambda: 1.383, K: 0.738, RoundDownToEven: true},
	{Reward: 1, Penalty: 4, OpenCost: 5, ExtendCost: 2, Lambda: 0.95, K: 0.42, RoundDownToEven: false},
	{Reward: 2, Penalty: 3, OpenCost: 0, ExtendCost: 4, Lambda: 0.55, K: 0.21, RoundDownToEven: true},
	{Reward: 2, Penalty: 3, OpenCost: 4, ExtendCost: 4, Lambda: 0.5, K: 0.19, RoundDownToEven: false},
}

// Lookup returns the parameter-table entry matching (reward, penalty,
// open, extend) exactly, along with whether such an entry exists. The
// (open, extend) = (0, 0) "megablast defaults" sentinel must already be
// resolved to a concrete extend cost by the caller (see
// MegablastExtendCost) before calling Lookup.
func Lookup(reward, penalty, openCost, extendCost int) (ParameterSet, bool) {
	for _, ps := range parameterTable {
		if ps.Reward == reward && ps.Penalty == penalty &&
			ps.OpenCost == openCost && ps.ExtendCost == extendCost {
			return ps, true
		}
	}
	return ParameterSet{}, false
}

// SupportedParameterSets returns a copy of the full supported parameter
// table, in table order. Used by tests that want to exercise every entry,
// and by the CLI's -list-scoring-params flag.
func SupportedParameterSets() []ParameterSet {
	out := make([]ParameterSet, len(parameterTable))
	copy(out, parameterTable)
	return out
}
