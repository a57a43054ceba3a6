package main

import (
	"math"
	"strings"
	"testing"

	"github.com/maauso/mediakit/internal/task"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"one"}}, nil)
	if !strings.Contains(out, "one") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestFormatDecibel(t *testing.T) {
	if got := formatDecibel(math.Inf(-1)); got != "silent" {
		t.Fatalf("got %q", got)
	}
	if got := formatDecibel(-12.345); got != "-12.35 dBFS" {
		t.Fatalf("got %q", got)
	}
}

func TestProgressLine(t *testing.T) {
	if got := progressLine(task.Progress{Pipeline: 1, Pipelines: 1, Ratio: 0.5}); got != " 50.0%" {
		t.Fatalf("got %q", got)
	}
	if got := progressLine(task.Progress{Pipeline: 2, Pipelines: 3, Ratio: 0.5}); got != " 50.0% (2/3)" {
		t.Fatalf("got %q", got)
	}
}
