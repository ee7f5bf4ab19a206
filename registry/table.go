// Package registry validates and normalizes raw sample sheets into the
// canonical sample table consumed read-only by the rest of the pipeline.
package registry

import (
	"fmt"
)

// Canonical column order of the persisted sample table. Raw sheets from
// either vocabulary normalize into this schema.
var CanonicalColumns = []string{
	"id", "id2", "collection_date", "organism", "relevance",
	"illumina_r1", "illumina_r2", "nanopore",
	"scheme_mlst", "st", "mlst", "amr", "pheno_resfinder", "virulence",
	"confirmation_note", "outbreak_id", "comment",
}

// Sequencing method categories derived from a sample's modalities.
const (
	MethodIllumina = "ILLUMINA"
	MethodNanopore = "NANOPORE"
	MethodHybrid   = "HYBRID"
)

// UnknownOrganism is the sentinel stored when an organism does not
// match the species catalog.
const UnknownOrganism = "unknown"

// Sample is one validated row of the canonical table. All values are
// strings; an empty string means the field was absent in the source.
type Sample struct {
	ID             string
	ID2            string
	CollectionDate string
	Organism       string
	Relevance      string
	IlluminaR1     string
	IlluminaR2     string
	Nanopore       string
	Extra          map[string]string // remaining canonical columns, by name
}

// Field returns a canonical column value by name.
func (s Sample) Field(col string) string {
	switch col {
	case "id":
		return s.ID
	case "id2":
		return s.ID2
	case "collection_date":
		return s.CollectionDate
	case "organism":
		return s.Organism
	case "relevance":
		return s.Relevance
	case "illumina_r1":
		return s.IlluminaR1
	case "illumina_r2":
		return s.IlluminaR2
	case "nanopore":
		return s.Nanopore
	}
	return s.Extra[col]
}

// HasIlluminaPair reports whether both mates of the short-read modality
// are present.
func (s Sample) HasIlluminaPair() bool {
	return s.IlluminaR1 != "" && s.IlluminaR2 != ""
}

// HasNanopore reports whether the long-read modality is present.
func (s Sample) HasNanopore() bool {
	return s.Nanopore != ""
}

// SeqMethod classifies the sample's modality combination.
func (s Sample) SeqMethod() string {
	switch {
	case s.HasIlluminaPair() && s.HasNanopore():
		return MethodHybrid
	case s.HasIlluminaPair():
		return MethodIllumina
	case s.HasNanopore():
		return MethodNanopore
	}
	return ""
}

// Table is the canonical sample table. It is immutable after
// validation; downstream components read it without locking.
type Table struct {
	PrimaryID string   // column keying samples throughout the pipeline
	Delimiter rune     // delimiter of the source sheet, preserved on write
	Samples   []Sample // one entry per input row, input order
}

// Key returns the primary identifier value of a sample.
func (t *Table) Key(s Sample) string {
	return s.Field(t.PrimaryID)
}

// Keys returns all primary identifier values in row order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Samples))
	for i, s := range t.Samples {
		keys[i] = t.Key(s)
	}
	return keys
}

// Lookup resolves a primary identifier back to its sample. The second
// return is false when the identifier is unknown.
func (t *Table) Lookup(key string) (Sample, bool) {
	for _, s := range t.Samples {
		if t.Key(s) == key {
			return s, true
		}
	}
	return Sample{}, false
}

// row renders a sample in canonical column order.
func (s Sample) row() []string {
	out := make([]string, len(CanonicalColumns))
	for i, col := range CanonicalColumns {
		out[i] = s.Field(col)
	}
	return out
}

// Records renders the table as header + rows, canonical column order.
func (t *Table) Records() [][]string {
	recs := make([][]string, 0, len(t.Samples)+1)
	recs = append(recs, append([]string(nil), CanonicalColumns...))
	for _, s := range t.Samples {
		recs = append(recs, s.row())
	}
	return recs
}

func (t *Table) String() string {
	return fmt.Sprintf("canonical table: %d samples keyed by %s", len(t.Samples), t.PrimaryID)
}
