// Package samplesinfo bootstraps a sample sheet from a directory of
// FASTQ files, so a run can start from raw sequencer output without
// hand-writing the intake table.
package samplesinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/microseq/bacflow/config"
)

const (
	PlatformIllumina = "illumina"
	PlatformNanopore = "nanopore"
)

var fastqExtensions = []string{".fastq.gz", ".fastq", ".fq.gz", ".fq"}

// Illumina naming conventions seen in the wild, most specific first.
// The capture group is the sample identifier.
var illuminaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)_S\d+_R[12](?:_001)?\.f(?:ast)?q(?:\.gz)?$`),
	regexp.MustCompile(`^(.+?)_R[12](?:_001)?\.f(?:ast)?q(?:\.gz)?$`),
	regexp.MustCompile(`^(.+?)_r[12](?:_001)?\.f(?:ast)?q(?:\.gz)?$`),
	regexp.MustCompile(`^(.+?)\.R[12]\.f(?:ast)?q(?:\.gz)?$`),
	regexp.MustCompile(`^(.+?)\.r[12]\.f(?:ast)?q(?:\.gz)?$`),
	regexp.MustCompile(`^(.+?)_[FR]\.f(?:ast)?q(?:\.gz)?$`),
}

var (
	mate1Pattern = regexp.MustCompile(`(?i)(_R1(?:_001)?|\.R1|_F)\.f(?:ast)?q(?:\.gz)?$`)
	mate2Pattern = regexp.MustCompile(`(?i)(_R2(?:_001)?|\.R2|_R)\.f(?:ast)?q(?:\.gz)?$`)
)

// Pair holds the discovered reads for one sample. Exactly one of the
// Illumina pair or the Nanopore path is set, depending on platform.
type Pair struct {
	R1       string
	R2       string
	Nanopore string
}

// Options selects what to scan and what vocabulary to emit.
type Options struct {
	Mode     string
	RunName  string
	Platform string
	FastqDir string
	OutDir   string // defaults to the parent of FastqDir
}

// Build scans the FASTQ directory, pairs the reads and writes the
// sheet as samplesinfo_<run>.csv. It returns the written path.
func Build(opt Options) (string, error) {
	if opt.Platform != PlatformIllumina && opt.Platform != PlatformNanopore {
		return "", fmt.Errorf("unknown platform %q, want %s or %s", opt.Platform, PlatformIllumina, PlatformNanopore)
	}
	files, err := findFastqFiles(opt.FastqDir)
	if err != nil {
		return "", err
	}

	samples, err := discoverSamples(files, opt.Platform)
	if err != nil {
		return "", err
	}

	outDir := opt.OutDir
	if outDir == "" {
		abs, err := filepath.Abs(opt.FastqDir)
		if err != nil {
			return "", err
		}
		outDir = filepath.Dir(abs)
	} else if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("samplesinfo_%s.csv", opt.RunName))

	var sheet strings.Builder
	ids := make([]string, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if opt.Mode == config.ModeGVA {
		sheet.WriteString("CODIGO_MUESTRA_ORIGEN;PETICION;FECHA_TOMA_MUESTRA;ESPECIE_SECUENCIA;MOTIVO_WGS;NUM_BROTE;CONFIRMACION;COMENTARIO_WGS;ILLUMINA_R1;ILLUMINA_R2;NANOPORE\n")
		for _, id := range ids {
			p := samples[id]
			sheet.WriteString(fmt.Sprintf("%s;;;;;;;;%s;%s;%s\n", id, p.R1, p.R2, p.Nanopore))
		}
	} else {
		sheet.WriteString("id;collection_date;organism;illumina_r1;illumina_r2;nanopore\n")
		for _, id := range ids {
			p := samples[id]
			sheet.WriteString(fmt.Sprintf("%s;;;%s;%s;%s\n", id, p.R1, p.R2, p.Nanopore))
		}
	}

	if err := os.WriteFile(outPath, []byte(sheet.String()), 0644); err != nil {
		return "", fmt.Errorf("writing sample sheet: %w", err)
	}
	return outPath, nil
}

func findFastqFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading FASTQ directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, ext := range fastqExtensions {
			if strings.HasSuffix(e.Name(), ext) {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no FASTQ files found in %s", dir)
	}
	return files, nil
}

func discoverSamples(files []string, platform string) (map[string]Pair, error) {
	samples := make(map[string]Pair)

	if platform == PlatformNanopore {
		for _, f := range files {
			id := nanoporeSampleID(filepath.Base(f))
			abs, err := filepath.Abs(f)
			if err != nil {
				return nil, err
			}
			samples[id] = Pair{Nanopore: abs}
		}
		return samples, nil
	}

	for _, f := range files {
		base := filepath.Base(f)
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		id := IlluminaSampleID(base)
		p := samples[id]
		switch {
		case mate1Pattern.MatchString(base):
			p.R1 = abs
		case mate2Pattern.MatchString(base):
			p.R2 = abs
		default:
			continue
		}
		samples[id] = p
	}

	var incomplete []string
	for id, p := range samples {
		if p.R1 == "" || p.R2 == "" {
			incomplete = append(incomplete, id)
		}
	}
	if len(incomplete) > 0 {
		sort.Strings(incomplete)
		return nil, fmt.Errorf("samples missing one mate of the pair: %s", strings.Join(incomplete, ", "))
	}
	return samples, nil
}

// IlluminaSampleID strips the lane, mate and extension decorations
// from an Illumina FASTQ filename. When no known convention matches,
// the filename without extensions is used as a last resort.
func IlluminaSampleID(basename string) string {
	for _, p := range illuminaPatterns {
		if m := p.FindStringSubmatch(basename); m != nil {
			return m[1]
		}
	}
	id := basename
	for _, ext := range fastqExtensions {
		if strings.HasSuffix(id, ext) {
			return id[:len(id)-len(ext)]
		}
	}
	if i := strings.Index(id, "."); i >= 0 {
		id = id[:i]
	}
	return id
}

func nanoporeSampleID(basename string) string {
	for _, ext := range fastqExtensions {
		if strings.HasSuffix(basename, ext) {
			return basename[:len(basename)-len(ext)]
		}
	}
	return basename
}
