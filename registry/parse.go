package registry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// renameGVA maps the GVA surveillance vocabulary onto the canonical
// schema. Columns absent from the sheet are simply not mapped.
var renameGVA = map[string]string{
	"CODIGO_MUESTRA_ORIGEN": "id",
	"PETICION":              "id2",
	"FECHA_TOMA_MUESTRA":    "collection_date",
	"ESPECIE_SECUENCIA":     "organism",
	"MOTIVO_WGS":            "relevance",
	"ILLUMINA_R1":           "illumina_r1",
	"ILLUMINA_R2":           "illumina_r2",
	"NANOPORE":              "nanopore",
	"ID_WS":                 "scheme_mlst",
	"ST_WGS":                "st",
	"MLST_WGS":              "mlst",
	"R_Geno_WGS":            "amr",
	"PHENO_WGS":             "pheno_resfinder",
	"V_WGS":                 "virulence",
	"CONFIRMACION":          "confirmation_note",
	"NUM_BROTE":             "outbreak_id",
	"COMENTARIO_WGS":        "comment",
}

// ExternalName maps a canonical column back to its GVA vocabulary
// name. Columns without an external counterpart map to themselves.
func ExternalName(col string) string {
	for raw, canon := range renameGVA {
		if canon == col {
			return raw
		}
	}
	return col
}

// rawSheet is an unvalidated sample sheet: header plus string rows,
// no type coercion so absent and empty stay distinguishable.
type rawSheet struct {
	header    []string
	rows      [][]string
	delimiter rune
}

func (r rawSheet) colIndex(name string) int {
	for i, h := range r.header {
		if h == name {
			return i
		}
	}
	return -1
}

func (r rawSheet) value(row []string, name string) string {
	i := r.colIndex(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// readSheet loads a delimited sample sheet, sniffing the delimiter:
// semicolon first (the GVA export convention), comma otherwise.
func readSheet(path string) (rawSheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rawSheet{}, fmt.Errorf("loading sample file: %w", err)
	}
	firstLine, _, _ := strings.Cut(string(data), "\n")
	delim := ','
	if strings.Contains(firstLine, ";") {
		delim = ';'
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return rawSheet{}, fmt.Errorf("loading sample file: %w", err)
	}
	if len(records) == 0 {
		return rawSheet{}, fmt.Errorf("loading sample file: %s is empty", path)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	sheet := rawSheet{header: header, delimiter: delim}
	for _, row := range records[1:] {
		empty := true
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				empty = false
				break
			}
		}
		if !empty {
			sheet.rows = append(sheet.rows, row)
		}
	}
	return sheet, nil
}

// parseGVA normalizes a GVA-vocabulary sheet into canonical samples.
// Missing mandatory columns are fatal; missing important columns are
// recoverable errors, matching the surveillance intake rules.
func parseGVA(sheet rawSheet, rep *Report) []Sample {
	required := []string{"PETICION", "CODIGO_MUESTRA_ORIGEN"}
	var missing []string
	for _, col := range required {
		if sheet.colIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		rep.Fatalf("missing mandatory columns for GVA mode: %s", strings.Join(missing, ", "))
		return nil
	}

	dataCols := []string{"ILLUMINA_R1", "ILLUMINA_R2", "NANOPORE"}
	hasData := false
	for _, col := range dataCols {
		if sheet.colIndex(col) >= 0 {
			hasData = true
		}
	}
	if !hasData {
		rep.Fatalf("at least one of these columns must be included: %s", strings.Join(dataCols, ", "))
		return nil
	}

	important := []string{"FECHA_TOMA_MUESTRA", "ESPECIE_SECUENCIA", "MOTIVO_WGS"}
	missing = missing[:0]
	for _, col := range important {
		if sheet.colIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		rep.Errorf("missing important columns: %s", strings.Join(missing, ", "))
	}

	samples := make([]Sample, 0, len(sheet.rows))
	for _, row := range sheet.rows {
		s := Sample{Extra: map[string]string{}}
		for raw, canon := range renameGVA {
			if sheet.colIndex(raw) < 0 {
				continue
			}
			setField(&s, canon, sheet.value(row, raw))
		}
		samples = append(samples, s)
	}
	return samples
}

// parseNormal reads a sheet that already uses the canonical vocabulary.
func parseNormal(sheet rawSheet, rep *Report) []Sample {
	if sheet.colIndex("id") < 0 {
		rep.Fatalf("missing mandatory column for normal mode: id")
		return nil
	}
	dataCols := []string{"illumina_r1", "illumina_r2", "nanopore"}
	hasData := false
	for _, col := range dataCols {
		if sheet.colIndex(col) >= 0 {
			hasData = true
		}
	}
	if !hasData {
		rep.Fatalf("at least one of these columns must be included: %s", strings.Join(dataCols, ", "))
		return nil
	}

	samples := make([]Sample, 0, len(sheet.rows))
	for _, row := range sheet.rows {
		s := Sample{Extra: map[string]string{}}
		for _, canon := range CanonicalColumns {
			if sheet.colIndex(canon) < 0 {
				continue
			}
			setField(&s, canon, sheet.value(row, canon))
		}
		samples = append(samples, s)
	}
	return samples
}

func setField(s *Sample, col, val string) {
	switch col {
	case "id":
		s.ID = val
	case "id2":
		s.ID2 = val
	case "collection_date":
		s.CollectionDate = val
	case "organism":
		s.Organism = val
	case "relevance":
		s.Relevance = val
	case "illumina_r1":
		s.IlluminaR1 = val
	case "illumina_r2":
		s.IlluminaR2 = val
	case "nanopore":
		s.Nanopore = val
	default:
		s.Extra[col] = val
	}
}
