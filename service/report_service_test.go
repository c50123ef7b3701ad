package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/trace"
)

const pickToken = 100663297

// sampleProject models sampleDump without the broken class
func sampleProject(t *testing.T) *domain.Project {
	t.Helper()
	req := defaultModelRequest()
	req.Filters = []string{"-[Sample]Sample.Broken"}
	resp, err := buildSample(t, req, sampleDump, systemDump)
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}
	return resp.Project
}

// thenBranch records the `then` arm of Pick
func thenBranch(id string) *trace.TestExecutionSummary {
	rec := trace.NewRecorder(id, "Sample.Tests.PickTrue", "")
	rec.Record(trace.TestCaseStarted("Sample.Tests.PickTrue"))
	rec.Record(trace.MethodEntered(1, pickToken))
	rec.Record(trace.SequencePointHit(1, pickToken, 0))
	rec.Record(trace.BranchExited(1, pickToken, 0))
	rec.Record(trace.BranchEntered(1, pickToken, 1))
	rec.Record(trace.SequencePointHit(1, pickToken, 1))
	rec.Record(trace.BranchExited(1, pickToken, 1))
	rec.Record(trace.BranchEntered(1, pickToken, 3))
	rec.Record(trace.SequencePointHit(1, pickToken, 3))
	rec.Record(trace.BranchExited(1, pickToken, 3))
	rec.Record(trace.TestCaseEnded("Passed"))
	return rec.Summary()
}

// elseBranch records the `else` arm of Pick
func elseBranch(id string) *trace.TestExecutionSummary {
	rec := trace.NewRecorder(id, "Sample.Tests.PickFalse", "")
	rec.Record(trace.MethodEntered(1, pickToken))
	rec.Record(trace.SequencePointHit(1, pickToken, 0))
	rec.Record(trace.BranchExited(1, pickToken, 0))
	rec.Record(trace.BranchEntered(1, pickToken, 2))
	rec.Record(trace.SequencePointHit(1, pickToken, 2))
	rec.Record(trace.BranchExited(1, pickToken, 2))
	rec.Record(trace.BranchEntered(1, pickToken, 3))
	rec.Record(trace.SequencePointHit(1, pickToken, 3))
	return rec.Summary()
}

func writeTrace(t *testing.T, dir, name string, summaries ...*trace.TestExecutionSummary) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := trace.WriteFile(path, "", summaries...); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestGenerate_ThenBranch(t *testing.T) {
	project := sampleProject(t)
	dir := t.TempDir()
	path := writeTrace(t, dir, "run1.ucovertrace", thenBranch("t1"))

	resp, err := NewReportService(nil).Generate(context.Background(), project, []string{path}, domain.ReportRequest{Strict: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Summary.SequenceCoverage != 75 || resp.Summary.BranchCoverage != 75 {
		t.Errorf("unexpected project coverage %+v", resp.Summary)
	}
	if resp.Replay.TraceFiles != 1 || resp.Replay.TestCases != 1 || resp.Replay.UnmatchedEvents != 0 {
		t.Errorf("unexpected replay stats %+v", resp.Replay)
	}
	if len(resp.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(resp.Modules))
	}
	if resp.Modules[0].ModuleName != "Sample" || !resp.Modules[1].IsSkipped() {
		t.Errorf("skipped modules should sort last, got %s then %s", resp.Modules[0].ModuleName, resp.Modules[1].ModuleName)
	}
	if resp.ProjectID != project.ProjectID {
		t.Errorf("report should carry the project id")
	}
}

func TestGenerate_ParallelTracesAddUp(t *testing.T) {
	project := sampleProject(t)
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 8; i++ {
		paths = append(paths,
			writeTrace(t, dir, "then"+string(rune('a'+i))+".ucovertrace", thenBranch("then")),
			writeTrace(t, dir, "else"+string(rune('a'+i))+".ucovertrace", elseBranch("else")))
	}

	resp, err := NewReportService(nil).Generate(context.Background(), project, paths, domain.ReportRequest{MaxGoroutines: 4})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	method := resp.Modules[0].Classes[0].Methods[0]
	if method.VisitCount != 16 {
		t.Errorf("expected 16 method visits, got %d", method.VisitCount)
	}
	if method.Summary.SequenceCoverage != 100 || method.Summary.BranchCoverage != 100 {
		t.Errorf("both arms ran, got %+v", method.Summary)
	}
	for _, bp := range method.BranchPoints {
		if bp.VisitCount != 8 {
			t.Errorf("branch %d->%d: expected 8 visits, got %d", bp.StartOffset, bp.EndOffset, bp.VisitCount)
		}
	}
}

func TestGenerate_UnmatchedEvents(t *testing.T) {
	project := sampleProject(t)
	dir := t.TempDir()

	rec := trace.NewRecorder("bad", "bad", "")
	rec.Record(trace.MethodEntered(1, 42))
	path := writeTrace(t, dir, "bad.ucovertrace", rec.Summary())

	resp, err := NewReportService(nil).Generate(context.Background(), project, []string{path}, domain.ReportRequest{})
	if err != nil {
		t.Fatalf("lenient replay should not fail: %v", err)
	}
	if resp.Replay.UnmatchedEvents != 1 || len(resp.Warnings) == 0 {
		t.Errorf("expected the unmatched event to be reported, got %+v %v", resp.Replay, resp.Warnings)
	}

	_, err = NewReportService(nil).Generate(context.Background(), project, []string{path}, domain.ReportRequest{Strict: true})
	if !domain.HasCode(err, domain.ErrCodeReplayError) {
		t.Errorf("strict replay should fail with a replay error, got %v", err)
	}
}

func TestGenerate_StoreAccumulates(t *testing.T) {
	project := sampleProject(t)
	dir := t.TempDir()
	storePath := filepath.Join(dir, "hits.db")

	first := writeTrace(t, dir, "then.ucovertrace", thenBranch("t1"))
	second := writeTrace(t, dir, "else.ucovertrace", elseBranch("t2"))
	svc := NewReportService(nil)

	resp, err := svc.Generate(context.Background(), project, []string{first}, domain.ReportRequest{StorePath: storePath})
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if resp.Summary.SequenceCoverage != 75 {
		t.Errorf("first run coverage: got %v", resp.Summary.SequenceCoverage)
	}

	resp, err = svc.Generate(context.Background(), project, []string{second}, domain.ReportRequest{StorePath: storePath})
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if resp.Summary.SequenceCoverage != 100 {
		t.Errorf("stored hits should add up to full coverage, got %v", resp.Summary.SequenceCoverage)
	}
	if v := resp.Modules[0].Classes[0].Methods[0].VisitCount; v != 2 {
		t.Errorf("expected 2 accumulated visits, got %d", v)
	}
}

func TestGenerate_MissingTrace(t *testing.T) {
	project := sampleProject(t)
	_, err := NewReportService(nil).Generate(context.Background(), project,
		[]string{filepath.Join(t.TempDir(), "missing.ucovertrace")}, domain.ReportRequest{})
	if err == nil {
		t.Error("expected an error for a missing trace file")
	}
}

func TestSortModules(t *testing.T) {
	low := domain.Summary{SequenceCoverage: 10}
	high := domain.Summary{SequenceCoverage: 90}
	modules := []domain.ModuleReport{
		{ModuleName: "B", Summary: &low},
		{ModuleName: "Skipped", SkipReason: domain.SkipReasonNoPdb},
		{ModuleName: "A", Summary: &high, Classes: []domain.ClassReport{
			{Name: "Z", Summary: low}, {Name: "Y", Summary: high},
		}},
	}

	SortModules(modules, domain.SortByName)
	if modules[0].ModuleName != "A" || modules[1].ModuleName != "B" || modules[2].ModuleName != "Skipped" {
		t.Errorf("unexpected name order %s %s %s", modules[0].ModuleName, modules[1].ModuleName, modules[2].ModuleName)
	}
	if modules[0].Classes[0].Name != "Y" {
		t.Errorf("classes should sort by name, got %s first", modules[0].Classes[0].Name)
	}

	SortModules(modules, domain.SortByCoverage)
	if modules[0].ModuleName != "B" || modules[1].ModuleName != "A" {
		t.Errorf("lowest coverage should come first, got %s", modules[0].ModuleName)
	}
	if modules[1].Classes[0].Name != "Z" {
		t.Errorf("classes should sort by coverage, got %s first", modules[1].Classes[0].Name)
	}
}
