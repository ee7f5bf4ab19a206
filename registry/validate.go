package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/microseq/bacflow/config"
	"github.com/microseq/bacflow/utils"
)

// validDoradoModels are the basecalling models the long-read stages
// accept.
var validDoradoModels = []string{
	"dna_r10.4.1_e8.2_400bps_hac@v4.2.0",
	"dna_r10.4.1_e8.2_400bps_sup@v4.2.0",
	"dna_r9.4.1_450bps_hac@v3.3",
	"dna_r9.4.1_450bps_sup@v3.3",
}

// Validate parses a raw sample sheet and produces the canonical table
// plus a validation report. The returned table is nil whenever the
// report carries fatal findings; callers must not write any artifact in
// that case. Row numbers in messages refer to the source file (header
// is line 1).
func Validate(samplesPath string, cfg config.Config) (*Table, *Report) {
	rep := &Report{}

	if err := cfg.ValidateRunName(); err != nil {
		rep.Fatalf("%v", err)
		return nil, rep
	}

	sheet, err := readSheet(samplesPath)
	if err != nil {
		rep.Fatalf("%v", err)
		return nil, rep
	}

	var samples []Sample
	if cfg.Mode == config.ModeGVA {
		samples = parseGVA(sheet, rep)
	} else {
		samples = parseNormal(sheet, rep)
	}
	if rep.Fatal() {
		return nil, rep
	}

	primary := cfg.PrimaryID()
	if !columnPresent(sheet, cfg, primary) {
		rep.Fatalf("primary identifier column %q does not exist after renaming", primary)
		return nil, rep
	}

	validateIdentifiers(samples, primary, rep)
	validateModalities(samples, rep)
	validateFields(samples, cfg, rep)
	validateDates(samples, cfg, rep)
	normalizeOrganisms(samples, cfg, rep)
	validateBasecallModel(samples, cfg, rep)

	if rep.Fatal() {
		return nil, rep
	}
	return &Table{PrimaryID: primary, Delimiter: sheet.delimiter, Samples: samples}, rep
}

// columnPresent reports whether a canonical column had a source column
// in the sheet, accounting for the mode's rename map.
func columnPresent(sheet rawSheet, cfg config.Config, canon string) bool {
	if cfg.Mode == config.ModeGVA {
		return sheet.colIndex(ExternalName(canon)) >= 0
	}
	return sheet.colIndex(canon) >= 0
}

// validateIdentifiers enforces the non-null, unique primary key. Both
// violations are fatal: downstream keying is impossible otherwise, and
// last-write-wins resolution of duplicates is explicitly disallowed.
func validateIdentifiers(samples []Sample, primary string, rep *Report) {
	var missingRows []string
	seen := map[string]int{}
	for i, s := range samples {
		key := s.Field(primary)
		line := i + 2
		if key == "" {
			missingRows = append(missingRows, fmt.Sprintf("%d", line))
			continue
		}
		if first, dup := seen[key]; dup {
			rep.Fatalf("duplicate value %q in column %s: rows %d and %d", key, primary, first, line)
			continue
		}
		seen[key] = line
		if invalidIDChars(key) {
			rep.Errorf("row %d: identifier %q contains invalid special characters", line, key)
		}
	}
	if len(missingRows) > 0 {
		rep.Fatalf("rows without a value in column %s: %s", primary, strings.Join(missingRows, ", "))
	}
}

// validateModalities requires at least one complete modality per row
// and warns about referenced read files that are not on disk.
func validateModalities(samples []Sample, rep *Report) {
	for i, s := range samples {
		line := i + 2
		if !s.HasIlluminaPair() && !s.HasNanopore() {
			if s.IlluminaR1 != "" || s.IlluminaR2 != "" {
				rep.Fatalf("row %d: incomplete Illumina pair and no nanopore path", line)
			} else {
				rep.Fatalf("row %d: no data source specified (illumina_r1/illumina_r2 or nanopore)", line)
			}
			continue
		}
		if s.HasNanopore() && (s.IlluminaR1 != "") != (s.IlluminaR2 != "") {
			rep.Warnf("row %d: incomplete Illumina pair, sample treated as nanopore-only", line)
		}
		for col, path := range map[string]string{
			"illumina_r1": s.IlluminaR1,
			"illumina_r2": s.IlluminaR2,
			"nanopore":    s.Nanopore,
		} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				rep.Warnf("row %d: file %s in column %s does not exist", line, path, col)
			}
		}
	}
}

// validateFields checks the mode's mandatory metadata fields.
func validateFields(samples []Sample, cfg config.Config, rep *Report) {
	if cfg.Mode != config.ModeGVA {
		return
	}
	for i, s := range samples {
		line := i + 2
		if s.Organism == "" {
			rep.Errorf("row %d: organism not specified", line)
		}
		if s.Relevance == "" {
			rep.Errorf("row %d: analysis reason not specified", line)
		}
		if s.CollectionDate == "" {
			rep.Warnf("row %d: collection date not specified", line)
		}
	}
}

// validateDates normalizes collection dates to ISO-8601 in place.
// Reformatting is a warning; an uninterpretable non-empty date is
// fatal.
func validateDates(samples []Sample, cfg config.Config, rep *Report) {
	for i := range samples {
		raw := samples[i].CollectionDate
		if raw == "" {
			continue
		}
		iso, ok := ParseDate(raw)
		if !ok {
			rep.Fatalf("row %d: invalid date format %q", i+2, raw)
			continue
		}
		if iso != raw {
			rep.Warnf("row %d: collection date %q reformatted to %s", i+2, raw, iso)
		}
		samples[i].CollectionDate = iso
	}
}

// normalizeOrganisms snake-cases organism names and checks them against
// the species catalog. Unknown organisms are substituted with the
// sentinel and flagged, never fatal.
func normalizeOrganisms(samples []Sample, cfg config.Config, rep *Report) {
	for i := range samples {
		raw := samples[i].Organism
		if raw == "" {
			continue
		}
		norm := SnakeCase(raw)
		if _, ok := cfg.Species[norm]; !ok {
			rep.Warnf("row %d: organism %q not in species catalog, recorded as %q", i+2, raw, UnknownOrganism)
			samples[i].Organism = UnknownOrganism
			continue
		}
		samples[i].Organism = norm
	}
}

// validateBasecallModel enforces the pipeline-wide basecalling model
// requirement when any sample carries a nanopore path.
func validateBasecallModel(samples []Sample, cfg config.Config, rep *Report) {
	hasNanopore := false
	for _, s := range samples {
		if s.HasNanopore() {
			hasNanopore = true
			break
		}
	}
	if !hasNanopore {
		return
	}
	model := cfg.Params.Nanopore.DoradoModel
	if model == "" {
		rep.Fatalf("nanopore samples present but params.nanopore.dorado_model is not configured")
		return
	}
	for _, v := range validDoradoModels {
		if model == v {
			return
		}
	}
	rep.Errorf("dorado model %q is not a known model: expected one of %s", model, strings.Join(validDoradoModels, ", "))
}

// WriteCanonical persists the canonical table. The write is atomic so
// downstream stages never observe a partial table.
func WriteCanonical(t *Table, path string) error {
	return utils.WriteRecordsAtomic(path, t.Records(), t.Delimiter)
}

// ReadCanonical loads a previously persisted canonical table, trusting
// its invariants. Used by aggregation-only invocations.
func ReadCanonical(path string, cfg config.Config) (*Table, error) {
	sheet, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	rep := &Report{}
	samples := parseNormal(sheet, rep)
	if rep.Fatal() {
		return nil, rep.Err()
	}
	return &Table{PrimaryID: cfg.PrimaryID(), Delimiter: sheet.delimiter, Samples: samples}, nil
}
