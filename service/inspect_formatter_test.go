package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
)

func TestWriteInspect_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Sample.yaml", sampleDump)
	resp, err := NewInspectService().Inspect(context.Background(), domain.InspectRequest{DumpPath: path, Legacy: true})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	var buf bytes.Buffer
	if err := NewOutputFormatter().WriteInspect(resp, domain.OutputFormatText, &buf); err != nil {
		t.Fatalf("WriteInspect failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"=== Sample.Branches::Pick(bool) (token 100663297) ===",
		"S1 IL_0004..IL_0006",
		"S2   IL_0008: ldc.i4.2",
		"IL_0002 -> IL_0008  S0 -> S2  branching",
		"IL_0006 -> IL_000a  S1 -> S3  join",
		"#0 IL_0000..",
		"Legacy sections: agree (4)",
		"=== Sample.Broken::Cleanup() (token 100663298) ===",
		"build failed:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteInspect_Formats(t *testing.T) {
	resp := inspectPick(t)
	formatter := NewOutputFormatter()

	var jsonBuf bytes.Buffer
	if err := formatter.WriteInspect(resp, domain.OutputFormatJSON, &jsonBuf); err != nil {
		t.Fatalf("WriteInspect json failed: %v", err)
	}
	var decoded domain.InspectResponse
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Methods) != 2 {
		t.Errorf("expected 2 methods, got %d", len(decoded.Methods))
	}

	var dotBuf bytes.Buffer
	if err := formatter.WriteInspect(resp, domain.OutputFormatDOT, &dotBuf); err != nil {
		t.Fatalf("WriteInspect dot failed: %v", err)
	}
	if !strings.HasPrefix(dotBuf.String(), "digraph ") {
		t.Error("dot output should start with digraph")
	}

	if err := formatter.WriteInspect(resp, domain.OutputFormatXML, &bytes.Buffer{}); err == nil {
		t.Error("expected unsupported format error")
	}
}
