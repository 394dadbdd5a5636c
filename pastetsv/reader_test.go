package pastetsv

import (
	"io"
	"strings"
	"testing"

	"github.com/grailbio/alnpaste/batch"
	"github.com/grailbio/alnpaste/scoring"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func mustScorer(t *testing.T) *scoring.System {
	t.Helper()
	s, err := scoring.New(1_000_000, 1, 2, 0, 0)
	assert.Nil(t, err)
	return s
}

func TestReadBatchGroupsRowsByQseqidSseqid(t *testing.T) {
	s := mustScorer(t)
	data := strings.Join([]string{
		"q1\ts1\t1\t10\t100\t109\t9\t1\t0\t0\t200\t200\t10",
		"q1\ts1\t11\t20\t110\t119\t10\t0\t0\t0\t200\t200\t10",
		"q1\ts2\t1\t5\t1\t5\t5\t0\t0\t0\t50\t50\t5",
	}, "\n") + "\n"

	r := NewReader(strings.NewReader(data), s, true, batch.DefaultConfig.FloatEpsilon)
	assert.Nil(t, r.advance())

	b1, err := r.ReadBatch()
	assert.Nil(t, err)
	expect.EQ(t, b1.Qseqid(), "q1")
	expect.EQ(t, b1.Sseqid(), "s1")
	expect.EQ(t, len(b1.Records()), 2)

	b2, err := r.ReadBatch()
	assert.Nil(t, err)
	expect.EQ(t, b2.Qseqid(), "q1")
	expect.EQ(t, b2.Sseqid(), "s2")
	expect.EQ(t, len(b2.Records()), 1)

	_, err = r.ReadBatch()
	expect.EQ(t, err, io.EOF)
}

func TestReadBatchFullModeParsesSequences(t *testing.T) {
	s := mustScorer(t)
	data := "q1\ts1\t1\t10\t100\t109\t9\t1\t0\t0\t200\t200\t10\tACGTACGTAC\tACGTACGTAG\n"

	r := NewReader(strings.NewReader(data), s, false, batch.DefaultConfig.FloatEpsilon)
	assert.Nil(t, r.advance())

	b, err := r.ReadBatch()
	assert.Nil(t, err)
	expect.EQ(t, len(b.Records()), 1)
	expect.EQ(t, b.Records()[0].Qseq(), "ACGTACGTAC")
	expect.EQ(t, b.Records()[0].Sseq(), "ACGTACGTAG")
}

func TestReadBatchRejectsEmptyQseqid(t *testing.T) {
	s := mustScorer(t)
	data := "\ts1\t1\t10\t100\t109\t9\t1\t0\t0\t200\t200\t10\n"

	r := NewReader(strings.NewReader(data), s, true, batch.DefaultConfig.FloatEpsilon)
	err := r.advance()
	assert.NotNil(t, err)
}
