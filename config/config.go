package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Analysis modes. GVA is the strict mode used for hospital surveillance
// runs; normal is the unconstrained research mode.
const (
	ModeGVA    = "gva"
	ModeNormal = "normal"
)

// runNamePattern is YYMMDD_ + 4-letter site code + 3-digit sequence, e.g. 240809_EPIM185.
var runNamePattern = regexp.MustCompile(`^\d{6}_[A-Z]{4}\d{3}$`)

// validSites are the site codes accepted in GVA mode.
var validSites = []string{"ALIC", "CAST", "ELCH", "GRAL", "PESE", "CLIN", "LAFE", "EPIM"}

// ResourceSpec holds the compute budget of a single stage.
type ResourceSpec struct {
	Threads  int    `yaml:"threads"`
	MemMB    int    `yaml:"mem_mb"`
	Walltime string `yaml:"walltime"`
}

// Species describes one entry of the species catalog.
type Species struct {
	GenomeSize int64  `yaml:"genome_size"`
	Accession  string `yaml:"reference"`
}

// ModeConfig holds the per-mode knobs.
type ModeConfig struct {
	PrimaryIDColumn string `yaml:"primary_id_column"`
	StorageCabinet  string `yaml:"storage_cabinet"`
}

// NanoporeParams holds the long-read parameters shared by every sample.
type NanoporeParams struct {
	DoradoModel string `yaml:"dorado_model"`
}

// Params carries stage-specific extra arguments passed through verbatim
// to the wrapped tools.
type Params struct {
	Nanopore NanoporeParams    `yaml:"nanopore"`
	Extra    map[string]string `yaml:"extra"`
}

// Config is the immutable pipeline configuration. It is loaded once at
// startup and passed explicitly into every component constructor; no
// package reads it through a global.
type Config struct {
	Samples    string                  `yaml:"samples"`
	OutDir     string                  `yaml:"outdir"`
	LogDir     string                  `yaml:"logdir"`
	Mode       string                  `yaml:"mode"`
	RunName    string                  `yaml:"run_name"`
	MinReads   int                     `yaml:"min_reads"`
	ModeConfig map[string]ModeConfig   `yaml:"mode_config"`
	Species    map[string]Species      `yaml:"species"`
	Resources  map[string]ResourceSpec `yaml:"resources"`
	Params     Params                  `yaml:"params"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeNormal
	}
	if cfg.Mode != ModeGVA && cfg.Mode != ModeNormal {
		return cfg, fmt.Errorf("unknown mode %q (expected %q or %q)", cfg.Mode, ModeGVA, ModeNormal)
	}
	if cfg.LogDir == "" && cfg.OutDir != "" {
		cfg.LogDir = cfg.OutDir + "/logs"
	}
	if cfg.MinReads == 0 {
		cfg.MinReads = 1000
	}
	return cfg, nil
}

// PrimaryID resolves the column that keys samples throughout the
// pipeline. The fallback order is explicit: the per-mode
// primary_id_column if configured, else "id2" in GVA mode (the request
// number), else "id".
func (c Config) PrimaryID() string {
	if mc, ok := c.ModeConfig[c.Mode]; ok && mc.PrimaryIDColumn != "" {
		return mc.PrimaryIDColumn
	}
	if c.Mode == ModeGVA {
		return "id2"
	}
	return "id"
}

// AlternateID is the other candidate identifier column.
func (c Config) AlternateID() string {
	if c.PrimaryID() == "id2" {
		return "id"
	}
	return "id2"
}

// StorageCabinet returns the deposit root for the active mode, empty if
// not configured.
func (c Config) StorageCabinet() string {
	return c.ModeConfig[c.Mode].StorageCabinet
}

// ValidateRunName checks the run identifier against the strict-mode
// pattern and the site code catalog. It is a no-op outside GVA mode.
func (c Config) ValidateRunName() error {
	if c.Mode != ModeGVA {
		return nil
	}
	if c.RunName == "" {
		return fmt.Errorf("run_name not specified in configuration for GVA mode")
	}
	if !runNamePattern.MatchString(c.RunName) {
		return fmt.Errorf("run_name %q is invalid for GVA mode: must follow the format YYMMDD_SITEnnn", c.RunName)
	}
	site := SiteCode(c.RunName)
	for _, v := range validSites {
		if site == v {
			return nil
		}
	}
	return fmt.Errorf("invalid site code %q in run_name %q: must be one of %s", site, c.RunName, strings.Join(validSites, ", "))
}

// SiteCode extracts the 4-letter site code from a run identifier: the
// fixed-length prefix of its second underscore-delimited segment.
func SiteCode(runName string) string {
	parts := strings.Split(runName, "_")
	if len(parts) < 2 || len(parts[1]) < 4 {
		return ""
	}
	return parts[1][:4]
}

// Resource kinds accepted by resource lookups.
const (
	KindThreads  = "threads"
	KindMemMB    = "mem_mb"
	KindWalltime = "walltime"
)

// Resource looks up the full resource spec of a stage, falling back
// field by field to the mandatory "default" entry. There is no silent
// zero-resource fallback: a stage whose requirement resolves to nothing
// is a configuration error.
func (c Config) Resource(stage string) (ResourceSpec, error) {
	def, hasDefault := c.Resources["default"]
	spec, hasStage := c.Resources[stage]
	if !hasStage && !hasDefault {
		return ResourceSpec{}, fmt.Errorf("no resource configuration for stage %q and no default entry", stage)
	}
	if !hasStage {
		spec = def
	} else if hasDefault {
		if spec.Threads == 0 {
			spec.Threads = def.Threads
		}
		if spec.MemMB == 0 {
			spec.MemMB = def.MemMB
		}
		if spec.Walltime == "" {
			spec.Walltime = def.Walltime
		}
	}
	if spec.Threads == 0 {
		return ResourceSpec{}, fmt.Errorf("stage %q: threads not configured and no default", stage)
	}
	if spec.MemMB == 0 {
		return ResourceSpec{}, fmt.Errorf("stage %q: mem_mb not configured and no default", stage)
	}
	if spec.Walltime == "" {
		return ResourceSpec{}, fmt.Errorf("stage %q: walltime not configured and no default", stage)
	}
	return spec, nil
}

// ResourceFor looks up a single kind for a stage with the same
// stage-then-default fallback.
func (c Config) ResourceFor(stage, kind string) (string, error) {
	spec, err := c.Resource(stage)
	if err != nil {
		return "", err
	}
	switch kind {
	case KindThreads:
		return fmt.Sprintf("%d", spec.Threads), nil
	case KindMemMB:
		return fmt.Sprintf("%d", spec.MemMB), nil
	case KindWalltime:
		return spec.Walltime, nil
	}
	return "", fmt.Errorf("unknown resource kind %q", kind)
}

// Extra returns the free-form extra parameter string of a stage.
func (c Config) Extra(stage string) string {
	return c.Params.Extra[stage]
}
