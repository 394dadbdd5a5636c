// Command bio-paste-alignments merges consistent neighbouring alignments
// in a BLAST-family tabular alignment file into longer composite
// alignments, recomputes their similarity statistics, and writes the
// survivors back out in the same tabular family.
package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/alnpaste/batch"
	"github.com/grailbio/alnpaste/pastetsv"
	"github.com/grailbio/alnpaste/scoring"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: bio-paste-alignments [flags] <input> <output>

Pastes consistent neighbouring alignments in a BLAST-family tabular
alignment file into longer composite alignments.

`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})

	var (
		gapTolerance        = flag.Int("gap-tolerance", batch.DefaultConfig.GapTolerance, "max absolute shift (bp) tolerated between pasted neighbours")
		intermediatePident  = flag.Float64("intermediate-pident-threshold", batch.DefaultConfig.IntermediatePidentThreshold, "min percent identity a chain must keep mid-extension")
		intermediateScore   = flag.Float64("intermediate-score-threshold", batch.DefaultConfig.IntermediateScoreThreshold, "min raw score a chain must keep mid-extension")
		finalPident         = flag.Float64("final-pident-threshold", batch.DefaultConfig.FinalPidentThreshold, "min percent identity required for a chain to be emitted")
		finalScore          = flag.Float64("final-score-threshold", batch.DefaultConfig.FinalScoreThreshold, "min raw score required for a chain to be emitted")
		floatEpsilon        = flag.Float64("float-epsilon", batch.DefaultConfig.FloatEpsilon, "relative tolerance used for every threshold comparison")
		blindMode           = flag.Bool("blind-mode", false, "omit qseq/sseq from input and output; disables gap-fill string assembly")
		reward              = flag.Int("reward", 1, "match reward")
		penalty             = flag.Int("penalty", 2, "mismatch penalty, as a positive magnitude")
		openCost            = flag.Int("open-cost", 0, "gap-open cost (0 with extend-cost=0 selects megablast defaults)")
		extendCost          = flag.Int("extend-cost", 0, "gap-extend cost (0 with open-cost=0 selects megablast defaults)")
		databaseSize        = flag.Int64("database-size", 1_000_000, "effective database size used in the e-value formula")
		dryRun              = flag.Bool("dry-run", false, "run the full pasting pipeline but skip writing output; print stats only")
		listScoringParams   = flag.Bool("list-scoring-params", false, "print the supported (reward, penalty, open, extend) quadruples and exit")
		verifyDeterministic = flag.Bool("verify-deterministic", false, "log a FarmHash checksum of each batch's emitted rows, for comparing two runs")
	)
	flag.Parse()

	if *listScoringParams {
		for _, ps := range scoring.SupportedParameterSets() {
			fmt.Printf("reward=%d penalty=%d open=%d extend=%d lambda=%g K=%g round_down_to_even=%v\n",
				ps.Reward, ps.Penalty, ps.OpenCost, ps.ExtendCost, ps.Lambda, ps.K, ps.RoundDownToEven)
		}
		return
	}

	if flag.NArg() != 2 {
		log.Panicf("usage: bio-paste-alignments [flags] <input> <output>")
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	shutdown := grail.Init()
	defer shutdown()
	ctx := vcontext.Background()

	scorer, err := scoring.New(*databaseSize, *reward, *penalty, *openCost, *extendCost)
	if err != nil {
		log.Panicf("paste-alignments: %v", err)
	}

	controllerCfg := batch.Config{
		GapTolerance:                *gapTolerance,
		IntermediatePidentThreshold: *intermediatePident,
		IntermediateScoreThreshold:  *intermediateScore,
		FinalPidentThreshold:        *finalPident,
		FinalScoreThreshold:         *finalScore,
		FloatEpsilon:                *floatEpsilon,
		BlindMode:                   *blindMode,
	}
	controller := batch.NewController(controllerCfg, scorer)

	reader, err := pastetsv.Open(ctx, inputPath, scorer, *blindMode, *floatEpsilon)
	if err != nil {
		log.Panicf("paste-alignments: %v", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error.Printf("paste-alignments: closing %s: %v", inputPath, err)
		}
	}()

	var writer *pastetsv.Writer
	if !*dryRun {
		writer, err = pastetsv.Create(ctx, outputPath, *blindMode)
		if err != nil {
			log.Panicf("paste-alignments: %v", err)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				log.Error.Printf("paste-alignments: closing %s: %v", outputPath, err)
			}
		}()
	}

	var total batch.Stats
	for {
		b, err := reader.ReadBatch()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Panicf("paste-alignments: %v", err)
		}

		if err := controller.PasteAlignments(b); err != nil {
			log.Panicf("paste-alignments: pasting %s/%s: %v", b.Qseqid(), b.Sseqid(), err)
		}
		total = total.Merge(controller.Stats)
		controller.Stats = batch.Stats{}

		if *verifyDeterministic {
			log.Printf("paste-alignments: checksum %s/%s = %x", b.Qseqid(), b.Sseqid(), b.Checksum())
		}

		if writer != nil {
			if err := writer.WriteBatch(b); err != nil {
				log.Panicf("paste-alignments: writing %s/%s: %v", b.Qseqid(), b.Sseqid(), err)
			}
		}
	}

	total = total.Merge(reader.Stats())
	log.Printf("paste-alignments: seeds examined=%d emitted=%d dropped=%d pastes attempted=%d rolled back=%d records read=%d parse errors=%d",
		total.SeedsExamined, total.SeedsEmitted, total.SeedsDropped,
		total.PastesAttempted, total.PastesRolledBack, total.RecordsRead, total.RecordsParseErrors)
}
