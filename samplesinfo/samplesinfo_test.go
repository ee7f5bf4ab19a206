package samplesinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/microseq/bacflow/config"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0644); err != nil {
			t.Fatalf("touching %s: %v", n, err)
		}
	}
}

func TestIlluminaSampleID(t *testing.T) {
	cases := map[string]string{
		"Sample1_S3_R1_001.fastq.gz": "Sample1",
		"Sample1_S3_R2_001.fastq.gz": "Sample1",
		"Sample2_R1.fastq.gz":        "Sample2",
		"Sample3_r2_001.fq.gz":       "Sample3",
		"Sample4.R1.fastq":           "Sample4",
		"Sample5_F.fq":               "Sample5",
		"oddball.fastq.gz":           "oddball",
	}
	for in, want := range cases {
		if got := IlluminaSampleID(in); got != want {
			t.Errorf("IlluminaSampleID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildIlluminaGVA(t *testing.T) {
	fastqDir := t.TempDir()
	touch(t, fastqDir,
		"alpha_S1_R1_001.fastq.gz", "alpha_S1_R2_001.fastq.gz",
		"beta_R1.fq.gz", "beta_R2.fq.gz",
		"notes.txt",
	)

	outPath, err := Build(Options{
		Mode:     config.ModeGVA,
		RunName:  "240809_EPIM185",
		Platform: PlatformIllumina,
		FastqDir: fastqDir,
		OutDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if filepath.Base(outPath) != "samplesinfo_240809_EPIM185.csv" {
		t.Errorf("sheet name = %s", filepath.Base(outPath))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("sheet lines = %d, want header plus two samples", len(lines))
	}
	if !strings.HasPrefix(lines[0], "CODIGO_MUESTRA_ORIGEN;PETICION;") {
		t.Errorf("header = %q, want the GVA vocabulary", lines[0])
	}
	if !strings.HasPrefix(lines[1], "alpha;") || !strings.Contains(lines[1], "alpha_S1_R1_001.fastq.gz") {
		t.Errorf("alpha row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "beta_R2.fq.gz") {
		t.Errorf("beta row = %q", lines[2])
	}
}

func TestBuildIlluminaRejectsIncompletePair(t *testing.T) {
	fastqDir := t.TempDir()
	touch(t, fastqDir, "alpha_R1.fastq.gz")
	_, err := Build(Options{
		Mode:     config.ModeNormal,
		RunName:  "runA",
		Platform: PlatformIllumina,
		FastqDir: fastqDir,
		OutDir:   t.TempDir(),
	})
	if err == nil || !strings.Contains(err.Error(), "alpha") {
		t.Fatalf("expected incomplete-pair error naming the sample, got %v", err)
	}
}

func TestBuildNanoporeNormal(t *testing.T) {
	fastqDir := t.TempDir()
	touch(t, fastqDir, "barcode01.fastq.gz", "barcode02.fq")

	outPath, err := Build(Options{
		Mode:     config.ModeNormal,
		RunName:  "runB",
		Platform: PlatformNanopore,
		FastqDir: fastqDir,
		OutDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, _ := os.ReadFile(outPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "id;collection_date;organism;illumina_r1;illumina_r2;nanopore" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("sheet lines = %d, want header plus two samples", len(lines))
	}
	if !strings.HasPrefix(lines[1], "barcode01;;;;;") {
		t.Errorf("barcode01 row = %q, want empty metadata and a nanopore path", lines[1])
	}
}

func TestBuildEmptyDirFails(t *testing.T) {
	if _, err := Build(Options{
		Mode:     config.ModeNormal,
		RunName:  "runC",
		Platform: PlatformIllumina,
		FastqDir: t.TempDir(),
		OutDir:   t.TempDir(),
	}); err == nil {
		t.Fatal("expected error for a directory without FASTQ files")
	}
}
