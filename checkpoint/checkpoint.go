// Package checkpoint implements the per-sample read-count gate between
// trimming and the downstream analysis stages.
package checkpoint

import (
	"compress/gzip"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"golang.org/x/sync/errgroup"

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/pipeline"
	"github.com/microseq/bacflow/registry"
	"github.com/microseq/bacflow/utils"
)

// Gate states. Decisions are terminal: a sample is evaluated exactly
// once per run.
type State int

const (
	Pending State = iota
	Certified
	Rejected
)

func (s State) String() string {
	switch s {
	case Certified:
		return "CERTIFIED"
	case Rejected:
		return "REJECTED"
	}
	return "PENDING"
}

// Decision is the gate outcome for one sample.
type Decision struct {
	Sample string
	State  State
	Reads  int
}

// Evaluate runs the gate for every sample in the table, concurrently
// and independently: no sample's decision depends on another's. A
// sample whose trimmed reads meet the configured minimum gets a
// zero-byte certification marker; a sample whose trimmed output is
// missing or unreadable is rejected, never fatal — the gate degrades
// per sample rather than aborting the run.
func Evaluate(tbl *registry.Table, cfg config.Config, logger *slog.Logger) ([]Decision, error) {
	decisions := make([]Decision, len(tbl.Samples))

	var g errgroup.Group
	for i, s := range tbl.Samples {
		i, s := i, s
		g.Go(func() error {
			key := tbl.Key(s)
			d := evaluateSample(key, s, cfg, logger)
			if d.State == Certified {
				if err := utils.Touch(pipeline.GateMarker(cfg.OutDir, key)); err != nil {
					return err
				}
			}
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return decisions, nil
}

func evaluateSample(key string, s registry.Sample, cfg config.Config, logger *slog.Logger) Decision {
	var paths []string
	if s.HasIlluminaPair() {
		paths = append(paths, pipeline.TrimmedR1(cfg.OutDir, key), pipeline.TrimmedR2(cfg.OutDir, key))
	}
	if s.HasNanopore() {
		paths = append(paths, pipeline.TrimmedLong(cfg.OutDir, key))
	}

	total := 0
	for _, p := range paths {
		n, err := CountReads(p)
		if err != nil {
			logger.Warn("GATE", "SAMPLE", key, "STATUS", "REJECTED", "REASON", err.Error())
			return Decision{Sample: key, State: Rejected}
		}
		total += n
	}
	if total < cfg.MinReads {
		logger.Warn("GATE", "SAMPLE", key, "STATUS", "REJECTED", "READS", total, "MIN_READS", cfg.MinReads)
		return Decision{Sample: key, State: Rejected, Reads: total}
	}
	logger.Info("GATE", "SAMPLE", key, "STATUS", "CERTIFIED", "READS", total)
	return Decision{Sample: key, State: Certified, Reads: total}
}

// CountReads counts the records of a FASTQ file, gzipped or plain.
func CountReads(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, err
		}
		defer gz.Close()
		reader = gz
	}

	r := fastq.NewReader(reader, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	sc := seqio.NewScanner(r)
	count := 0
	for sc.Next() {
		count++
	}
	if err := sc.Error(); err != nil {
		return 0, err
	}
	return count, nil
}

// CertifiedSamples filters the decision list down to the primary
// identifiers the downstream fan-out enumerates over.
func CertifiedSamples(decisions []Decision) []string {
	var keys []string
	for _, d := range decisions {
		if d.State == Certified {
			keys = append(keys, d.Sample)
		}
	}
	return keys
}
