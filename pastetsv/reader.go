// Package pastetsv implements the external tabular interface: reading
// BLAST-family tabular alignment rows grouped into per-(qseqid,sseqid)
// batches, and writing pasted alignments back out in the same family of
// columns plus the derived statistics.
package pastetsv

import (
	"context"
	"io"
	"strconv"

	"github.com/grailbio/alnpaste/alignment"
	"github.com/grailbio/alnpaste/batch"
	"github.com/grailbio/alnpaste/scoring"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
)

// wireRowBlind and wireRowFull mirror the row layouts pastetsv accepts.
// Their field counts (13 and 15 respectively) are exactly the minimum
// column counts a row must carry; tsv.Reader ignores any columns beyond
// the last named field, the same way fusion/gene_db.go's ReadFusionEvents
// reads only the "Genes" column of a row that may carry more.
type wireRowBlind struct {
	Qseqid   string
	Sseqid   string
	Qstart   int
	Qend     int
	Sstart   int
	Send     int
	Nident   int
	Mismatch int
	Gapopen  int
	Gaps     int
	Qlen     int
	Slen     int
	Length   int
}

type wireRowFull struct {
	Qseqid   string
	Sseqid   string
	Qstart   int
	Qend     int
	Sstart   int
	Send     int
	Nident   int
	Mismatch int
	Gapopen  int
	Gaps     int
	Qlen     int
	Slen     int
	Length   int
	Qseq     string
	Sseq     string
}

// Reader reads alignment rows grouped into batches sharing (qseqid,
// sseqid). Construct with Open or NewReader.
type Reader struct {
	r         *tsv.Reader
	blindMode bool
	scorer    *scoring.System

	closer func(context.Context) error
	ctx    context.Context

	pending       bool
	pendingQ      string
	pendingS      string
	pendingFields []string
	nextID        int

	epsilon float64
	stats   batch.Stats
}

// Stats returns the running count of rows read and rejected so far.
func (r *Reader) Stats() batch.Stats { return r.stats }

// Open opens path for reading, transparently decompressing a .gz file the
// same way interval.NewBEDUnionFromPath does (fileio.DetermineType keyed
// off the extension, then github.com/klauspost/compress/gzip), and using
// github.com/grailbio/base/file so path may be a local path or any scheme
// registered with that package (e.g. s3://). epsilon is threaded into
// every Batch this Reader produces via ResetAlignments.
func Open(ctx context.Context, path string, scorer *scoring.System, blindMode bool, epsilon float64) (*Reader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "pastetsv: open", path)
	}
	var in io.Reader = f.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "pastetsv: gzip", path)
		}
		in = gz
	}
	r := NewReader(in, scorer, blindMode, epsilon)
	r.closer = f.Close
	r.ctx = ctx
	if err := r.advance(); err != nil && err != io.EOF {
		return nil, err
	}
	return r, nil
}

// NewReader wraps an already-open stream. The caller remains responsible
// for closing it; use Open when pastetsv should own the lifecycle. epsilon
// is threaded into every Batch this Reader produces via ResetAlignments.
func NewReader(in io.Reader, scorer *scoring.System, blindMode bool, epsilon float64) *Reader {
	tr := tsv.NewReader(in)
	tr.HasHeaderRow = false
	return &Reader{r: tr, scorer: scorer, blindMode: blindMode, epsilon: epsilon}
}

// Close releases any resource opened by Open. It is a no-op for a Reader
// built with NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer(r.ctx)
}

func (r *Reader) readRow() (qseqid, sseqid string, fields []string, err error) {
	if r.blindMode {
		var row wireRowBlind
		if err = r.r.Read(&row); err != nil {
			if err != io.EOF {
				err = errors.E(errors.Invalid, err, "pastetsv: malformed row (id:", r.nextID, ")")
			}
			return "", "", nil, err
		}
		if row.Qseqid == "" || row.Sseqid == "" {
			return "", "", nil, errors.E(errors.Invalid,
				"pastetsv: empty qseqid or sseqid (row id:", r.nextID, ")")
		}
		return row.Qseqid, row.Sseqid, []string{
			strconv.Itoa(row.Qstart), strconv.Itoa(row.Qend),
			strconv.Itoa(row.Sstart), strconv.Itoa(row.Send),
			strconv.Itoa(row.Nident), strconv.Itoa(row.Mismatch),
			strconv.Itoa(row.Gapopen), strconv.Itoa(row.Gaps),
			strconv.Itoa(row.Qlen), strconv.Itoa(row.Slen), strconv.Itoa(row.Length),
		}, nil
	}

	var row wireRowFull
	if err = r.r.Read(&row); err != nil {
		if err != io.EOF {
			err = errors.E(errors.Invalid, err, "pastetsv: malformed row (id:", r.nextID, ")")
		}
		return "", "", nil, err
	}
	if row.Qseqid == "" || row.Sseqid == "" {
		return "", "", nil, errors.E(errors.Invalid,
			"pastetsv: empty qseqid or sseqid (row id:", r.nextID, ")")
	}
	return row.Qseqid, row.Sseqid, []string{
		strconv.Itoa(row.Qstart), strconv.Itoa(row.Qend),
		strconv.Itoa(row.Sstart), strconv.Itoa(row.Send),
		strconv.Itoa(row.Nident), strconv.Itoa(row.Mismatch),
		strconv.Itoa(row.Gapopen), strconv.Itoa(row.Gaps),
		strconv.Itoa(row.Qlen), strconv.Itoa(row.Slen), strconv.Itoa(row.Length),
		row.Qseq, row.Sseq,
	}, nil
}

// advance reads the next row into the pending slot, tagging it with the
// next alignment id. It returns io.EOF once the underlying stream is
// exhausted.
func (r *Reader) advance() error {
	qseqid, sseqid, fields, err := r.readRow()
	if err != nil {
		r.pending = false
		return err
	}
	r.pending = true
	r.pendingQ, r.pendingS = qseqid, sseqid
	r.pendingFields = fields
	return nil
}

// ReadBatch reads every consecutive row sharing the next (qseqid, sseqid)
// pair into a single Batch; rows for the same pair must be contiguous in
// the input. It returns io.EOF once no rows remain.
func (r *Reader) ReadBatch() (*batch.Batch, error) {
	if !r.pending && r.nextID == 0 {
		// A Reader built with NewReader has not read its first row yet.
		if err := r.advance(); err != nil {
			return nil, err
		}
	}
	if !r.pending {
		return nil, io.EOF
	}

	b, err := batch.New(r.pendingQ, r.pendingS)
	if err != nil {
		return nil, err
	}
	qseqid, sseqid := r.pendingQ, r.pendingS

	for r.pending && r.pendingQ == qseqid && r.pendingS == sseqid {
		id := r.nextID
		r.nextID++
		rec, err := alignment.FromFields(id, r.pendingFields, r.scorer, r.blindMode)
		if err != nil {
			r.stats.RecordsParseErrors++
			return nil, err
		}
		r.stats.RecordsRead++
		b.Add(rec)

		if err := r.advance(); err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
	}
	if err := b.ResetAlignments(r.epsilon); err != nil {
		return nil, err
	}
	return b, nil
}
