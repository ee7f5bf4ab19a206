package registry

import "testing"

func TestParseDate(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"1/7/24", "2024-07-01", true},
		{"01/07/2024", "2024-07-01", true},
		{"2024/07/01", "2024-07-01", true},
		{"2024-07-01", "2024-07-01", true},
		{"1.7.24", "2024-07-01", true},
		{"31/12/99", "1999-12-31", true},
		{" 1/7/24 ", "2024-07-01", true},
		{"pronto", "", false},
		{"32/1/24", "", false},
		{"2024", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseDate(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Escherichia coli":       "escherichia_coli",
		"Enterococcus faecium":   "enterococcus_faecium",
		"  Klebsiella  (KPC)  ":  "klebsiella_kpc",
		"Listeria monocytogenes": "listeria_monocytogenes",
	}
	for in, want := range cases {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSeqMethod(t *testing.T) {
	cases := []struct {
		s    Sample
		want string
	}{
		{Sample{IlluminaR1: "a", IlluminaR2: "b"}, MethodIllumina},
		{Sample{Nanopore: "c"}, MethodNanopore},
		{Sample{IlluminaR1: "a", IlluminaR2: "b", Nanopore: "c"}, MethodHybrid},
		{Sample{IlluminaR1: "a"}, ""},
		{Sample{}, ""},
	}
	for _, tc := range cases {
		if got := tc.s.SeqMethod(); got != tc.want {
			t.Errorf("SeqMethod(%+v) = %q, want %q", tc.s, got, tc.want)
		}
	}
}

func TestReportStatusOrdering(t *testing.T) {
	rep := &Report{}
	if rep.Status() != StatusOK {
		t.Errorf("empty report status = %d, want OK", rep.Status())
	}
	rep.Warnf("w")
	if rep.Status() != StatusWarnings {
		t.Errorf("status = %d, want warnings", rep.Status())
	}
	rep.Errorf("e")
	if rep.Status() != StatusErrors {
		t.Errorf("status = %d, want errors", rep.Status())
	}
	rep.Fatalf("f")
	if rep.Status() != StatusFatal {
		t.Errorf("status = %d, want fatal", rep.Status())
	}
	if rep.Err() == nil {
		t.Error("Err should be non-nil once fatal findings exist")
	}
}

func TestExternalNameRoundTrip(t *testing.T) {
	if got := ExternalName("id2"); got != "PETICION" {
		t.Errorf("ExternalName(id2) = %q, want PETICION", got)
	}
	if got := ExternalName("collection_date"); got != "FECHA_TOMA_MUESTRA" {
		t.Errorf("ExternalName(collection_date) = %q, want FECHA_TOMA_MUESTRA", got)
	}
	// Columns without an intake counterpart map to themselves.
	if got := ExternalName("made_up_column"); got != "made_up_column" {
		t.Errorf("ExternalName(made_up_column) = %q, want identity", got)
	}
}
