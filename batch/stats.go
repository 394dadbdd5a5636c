package batch

// Stats accumulates counters across one or more batches pasted by the same
// Controller, kept apart from Config; pastetsv.Reader reports its read
// counters in the same type.
type Stats struct {
	// SeedsExamined is the number of alignments that were ever chosen as a
	// paste seed (i.e. reached the head of score_sorted and had not already
	// been absorbed into an earlier seed's chain).
	SeedsExamined int
	// SeedsEmitted is the number of final chains that satisfied the final
	// thresholds and were marked IncludeInOutput.
	SeedsEmitted int
	// SeedsDropped is SeedsExamined - SeedsEmitted: chains that rolled all
	// the way back to a seed failing the final thresholds.
	SeedsDropped int
	// PastesAttempted is the number of pastes (either direction) committed
	// to a chain: the winning candidate of each selection step. It includes
	// pastes later undone by a final-threshold rollback.
	PastesAttempted int
	// PastesRolledBack is the number of tentative pastes undone because the
	// resulting chain failed an intermediate threshold.
	PastesRolledBack int
	// RecordsRead is the total number of input rows parsed into records.
	RecordsRead int
	// RecordsParseErrors is the number of input rows rejected by
	// alignment.FromFields.
	RecordsParseErrors int
}

// Merge adds the field values of o into a copy of s and returns it.
func (s Stats) Merge(o Stats) Stats {
	s.SeedsExamined += o.SeedsExamined
	s.SeedsEmitted += o.SeedsEmitted
	s.SeedsDropped += o.SeedsDropped
	s.PastesAttempted += o.PastesAttempted
	s.PastesRolledBack += o.PastesRolledBack
	s.RecordsRead += o.RecordsRead
	s.RecordsParseErrors += o.RecordsParseErrors
	return s
}
