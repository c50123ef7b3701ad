package service

import (
	"context"
	"strings"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
)

func inspectPick(t *testing.T) *domain.InspectResponse {
	t.Helper()
	path := writeFile(t, t.TempDir(), "Sample.yaml", sampleDump)
	resp, err := NewInspectService().Inspect(context.Background(), domain.InspectRequest{DumpPath: path})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	return resp
}

func TestDOTFormatter_FormatMethods(t *testing.T) {
	out, err := NewDOTFormatter(nil).FormatMethods(inspectPick(t))
	if err != nil {
		t.Fatalf("FormatMethods failed: %v", err)
	}

	for _, want := range []string{
		"digraph sections_Sample__Version_1_0_0_0__Culture_neutral {",
		"rankdir=TB;",
		`label="Sample.Branches::Pick(bool)";`,
		`m0_s0 [label="S0\nIL_0000..IL_0002"`,
		`m0_s0 -> m0_s1 [penwidth=2, color="#DC143C", label="IL_0002->IL_0004"];`,
		`m0_s2 -> m0_s3 [style=dashed, color="#808080", label="IL_0009->IL_000a"];`,
		"cluster_legend",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "}") {
		t.Error("DOT output should close the graph")
	}
}

func TestDOTFormatter_Config(t *testing.T) {
	formatter := NewDOTFormatter(&DOTFormatterConfig{RankDir: "XX"})
	out, err := formatter.FormatMethods(inspectPick(t))
	if err != nil {
		t.Fatalf("FormatMethods failed: %v", err)
	}
	if !strings.Contains(out, "rankdir=TB;") {
		t.Error("invalid rank direction should fall back to TB")
	}
	if strings.Contains(out, "cluster_legend") {
		t.Error("legend disabled")
	}
	if strings.Contains(out, "label=\"IL_") {
		t.Error("offset labels disabled")
	}

	if _, err := formatter.FormatMethods(nil); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestEscapeDOTID(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"simple", "simple"},
		{"Sample.Branches::Pick(bool)", "Sample_Branches__Pick_bool_"},
		{"1abc", "_1abc"},
		{"", "_"},
		{"a/b", "a__b"},
	}
	for _, tt := range tests {
		if got := escapeDOTID(tt.input); got != tt.want {
			t.Errorf("escapeDOTID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEscapeDOTLabel(t *testing.T) {
	if got := escapeDOTLabel(`say "hi"\n`); got != `say \"hi\"\\n` {
		t.Errorf("unexpected escape %q", got)
	}
	if got := escapeDOTLabel("a\r\nb\tc"); got != `a\nb\tc` {
		t.Errorf("unexpected escape %q", got)
	}
}

func TestSectionIsGenerated(t *testing.T) {
	regions := []domain.OffsetRange{{Start: 3, End: 4}}
	if !sectionIsGenerated(domain.CodeSection{StartOffset: 4, EndOffset: 6}, regions) {
		t.Error("overlapping section is generated")
	}
	if sectionIsGenerated(domain.CodeSection{StartOffset: 5, EndOffset: 6}, regions) {
		t.Error("disjoint section is not generated")
	}
}
