package alignment

import (
	"strconv"

	"github.com/grailbio/alnpaste/scoring"
	"github.com/grailbio/base/errors"
)

// FieldCountFull and FieldCountBlind are the minimum number of fields
// FromFields requires, in full and blind mode respectively. The tuple is
// ordered (qstart, qend, sstart, send, nident, mismatch, gapopen, gaps,
// qlen, slen, length[, qseq, sseq]) — it does not include qseqid/sseqid,
// which package batch owns, not package alignment.
const (
	FieldCountBlind = 11
	FieldCountFull  = 13
)

// FromFields parses fields into a new Record with the given id, computing
// derived similarity statistics via scoringSystem. fields must have at
// least FieldCountFull entries (FieldCountBlind in blind mode); extra
// entries are ignored. Every validation failure returns an
// errors.Invalid-kind error tagged with id.
func FromFields(id int, fields []string, scoringSystem *scoring.System, blindMode bool) (*Record, error) {
	required := FieldCountFull
	if blindMode {
		required = FieldCountBlind
	}
	if len(fields) < required {
		return nil, errors.E(errors.Invalid,
			"alignment: not enough fields to parse record: want at least", required,
			"got", len(fields), "(id:", id, ")")
	}

	atoi := func(name string, s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.E(errors.Invalid, err, "alignment: invalid", name, "field: '"+s+"' (id:", id, ")")
		}
		return v, nil
	}

	r := &Record{id: id, pastedIDs: []int{id}}

	var err error
	if r.qstart, err = atoi("qstart", fields[0]); err != nil {
		return nil, err
	}
	if r.qend, err = atoi("qend", fields[1]); err != nil {
		return nil, err
	}
	if r.qstart > r.qend || r.qstart < 0 || r.qend < 0 {
		return nil, errors.E(errors.Invalid,
			"alignment: invalid query coordinates (qstart:", r.qstart, ", qend:", r.qend, ") (id:", id, ")")
	}

	sstart, err := atoi("sstart", fields[2])
	if err != nil {
		return nil, err
	}
	send, err := atoi("send", fields[3])
	if err != nil {
		return nil, err
	}
	if sstart < 0 || send < 0 {
		return nil, errors.E(errors.Invalid,
			"alignment: invalid subject coordinates (sstart:", sstart, ", send:", send, ") (id:", id, ")")
	}
	if sstart <= send {
		r.sstart, r.send, r.plusStrand = sstart, send, true
	} else {
		r.sstart, r.send, r.plusStrand = send, sstart, false
	}

	if r.nident, err = atoi("nident", fields[4]); err != nil {
		return nil, err
	}
	if r.mismatch, err = atoi("mismatch", fields[5]); err != nil {
		return nil, err
	}
	if r.gapopen, err = atoi("gapopen", fields[6]); err != nil {
		return nil, err
	}
	if r.gaps, err = atoi("gaps", fields[7]); err != nil {
		return nil, err
	}
	if r.nident < 0 || r.mismatch < 0 || r.gapopen < 0 || r.gaps < 0 {
		return nil, errors.E(errors.Invalid,
			"alignment: count fields must be non-negative (id:", id, ")")
	}

	if r.qlen, err = atoi("qlen", fields[8]); err != nil {
		return nil, err
	}
	if r.slen, err = atoi("slen", fields[9]); err != nil {
		return nil, err
	}
	if r.length, err = atoi("length", fields[10]); err != nil {
		return nil, err
	}
	if r.qlen <= 0 || r.slen <= 0 || r.length <= 0 {
		return nil, errors.E(errors.Invalid,
			"alignment: qlen, slen and length must be positive (qlen:", r.qlen,
			", slen:", r.slen, ", length:", r.length, ") (id:", id, ")")
	}

	if !blindMode {
		r.qseq, r.sseq = fields[11], fields[12]
		if r.qseq == "" || r.sseq == "" {
			return nil, errors.E(errors.Invalid, "alignment: aligned sequences must be non-empty (id:", id, ")")
		}
		if len(r.qseq) != len(r.sseq) {
			return nil, errors.E(errors.Invalid,
				"alignment: qseq and sseq must have equal length (id:", id, ")")
		}
		if len(r.qseq) != r.length {
			return nil, errors.E(errors.Invalid,
				"alignment: aligned sequence length does not match length field (id:", id, ")")
		}
	}

	r.ungappedPrefixEnd = r.length
	r.ungappedSuffixBegin = 0
	r.refreshStatistics(scoringSystem)
	return r, nil
}

// refreshStatistics recomputes pident, raw score, bitscore, and e-value via
// scoringSystem. Called after construction and after every merge.
func (r *Record) refreshStatistics(s *scoring.System) {
	c := scoring.Counts{
		Nident: r.nident, Mismatch: r.mismatch, Gapopen: r.gapopen, Gaps: r.gaps,
		Qlen: r.qlen, Length: r.length,
	}
	r.pident = s.Pident(c)
	r.rawScore = s.RawScore(c)
	r.bitscore = s.Bitscore(c)
	r.evalue = s.Evalue(c)
}
