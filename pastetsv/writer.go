package pastetsv

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/alnpaste/alignment"
	"github.com/grailbio/alnpaste/batch"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Writer emits pasted alignments in the external tabular format: the same
// columns as the input up through sseq, then the derived similarity
// statistics and the pasted_ids provenance column. Subject coordinates are
// written back in the row's original orientation.
type Writer struct {
	w         *tsv.Writer
	blindMode bool

	closer func(context.Context) error
	ctx    context.Context
}

// Create opens path for writing, using github.com/grailbio/base/file so
// path may be a local path or any scheme registered with that package.
func Create(ctx context.Context, path string, blindMode bool) (*Writer, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	w := NewWriter(f.Writer(ctx), blindMode)
	w.closer = f.Close
	w.ctx = ctx
	return w, nil
}

// NewWriter wraps an already-open stream. The caller remains responsible
// for closing it and for calling Flush; use Create when pastetsv should
// own the lifecycle.
func NewWriter(w io.Writer, blindMode bool) *Writer {
	return &Writer{w: tsv.NewWriter(w), blindMode: blindMode}
}

// Flush flushes any buffered output.
func (w *Writer) Flush() error { return w.w.Flush() }

// Close flushes and, for a Writer built with Create, closes the underlying
// file, reporting whichever error occurs first.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer == nil {
		return err
	}
	if cerr := w.closer(w.ctx); err == nil {
		err = cerr
	}
	return err
}

// WriteBatch writes every record in b with IncludeInOutput set, using
// qseqid and sseqid from b and the per-record fields from each Record.
func (w *Writer) WriteBatch(b *batch.Batch) error {
	for _, r := range b.Records() {
		if r == nil || !r.IncludeInOutput() {
			continue
		}
		if err := w.writeRecord(b.Qseqid(), b.Sseqid(), r); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeRecord(qseqid, sseqid string, r *alignment.Record) error {
	sstart, send := r.Sstart(), r.Send()
	if !r.PlusStrand() {
		sstart, send = send, sstart
	}

	w.w.WriteString(qseqid)
	w.w.WriteString(sseqid)
	w.w.WriteInt64(int64(r.Qstart()))
	w.w.WriteInt64(int64(r.Qend()))
	w.w.WriteInt64(int64(sstart))
	w.w.WriteInt64(int64(send))
	w.w.WriteInt64(int64(r.Nident()))
	w.w.WriteInt64(int64(r.Mismatch()))
	w.w.WriteInt64(int64(r.Gapopen()))
	w.w.WriteInt64(int64(r.Gaps()))
	w.w.WriteInt64(int64(r.Qlen()))
	w.w.WriteInt64(int64(r.Slen()))
	w.w.WriteInt64(int64(r.Length()))
	if !w.blindMode {
		w.w.WriteString(r.Qseq())
		w.w.WriteString(r.Sseq())
	}

	w.w.WriteString(formatFloat(r.Pident()))
	w.w.WriteString(formatFloat(r.RawScore()))
	w.w.WriteString(formatFloat(r.Bitscore()))
	w.w.WriteString(formatFloat(r.Evalue()))
	w.w.WriteInt64(int64(r.Nident()))
	w.w.WriteString(joinPastedIDs(r.PastedIDs()))

	return w.w.EndLine()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinPastedIDs(ids []int) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(id))
	}
	return sb.String()
}
