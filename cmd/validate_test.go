package cmd

import (
	"testing"

	"github.com/microseq/bacflow/registry"
)

func TestExitStatus(t *testing.T) {
	cases := []struct {
		status int
		want   int
	}{
		{registry.StatusOK, 0},
		{registry.StatusWarnings, 0},
		{registry.StatusErrors, 2},
		{registry.StatusFatal, 3},
	}
	for _, c := range cases {
		if got := exitStatus(c.status); got != c.want {
			t.Errorf("exitStatus(%d) = %d, want %d", c.status, got, c.want)
		}
	}
}
