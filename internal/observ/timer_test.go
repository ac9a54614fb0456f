package observ

import (
	"strings"
	"testing"
)

func TestTimer_ReportKeepsOrder(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("load")
	tm.End(a, "3 files")
	b := tm.Begin("generate")
	tm.End(b, "")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(r.Phases))
	}
	if r.Phases[0].Name != "load" || r.Phases[1].Name != "generate" {
		t.Errorf("phase order wrong: %+v", r.Phases)
	}
	if r.Phases[0].Note != "3 files" {
		t.Errorf("note = %q", r.Phases[0].Note)
	}
}

func TestTimer_EndOutOfRangeIsIgnored(t *testing.T) {
	tm := NewTimer()
	tm.End(-1, "")
	tm.End(5, "")
	if len(tm.Report().Phases) != 0 {
		t.Error("stray End calls recorded phases")
	}
}

func TestReport_Summary(t *testing.T) {
	if (Report{}).Summary() != "" {
		t.Error("empty report should render nothing")
	}
	tm := NewTimer()
	tm.End(tm.Begin("write"), "7 outputs")
	s := tm.Report().Summary()
	if !strings.HasPrefix(s, "timings:\n") {
		t.Errorf("summary = %q", s)
	}
	if !strings.Contains(s, "write") || !strings.Contains(s, "(7 outputs)") {
		t.Errorf("summary missing phase line:\n%s", s)
	}
	if !strings.Contains(s, "total") {
		t.Errorf("summary missing total:\n%s", s)
	}
}
