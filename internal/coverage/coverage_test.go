package coverage

import (
	"sync"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
	"github.com/ludo-technologies/ucover/internal/parser"
	"github.com/ludo-technologies/ucover/internal/testutil"
	"github.com/ludo-technologies/ucover/internal/trace"
)

const asmID = 1

func buildProject(t *testing.T, bodies ...*parser.MethodBody) *domain.Project {
	t.Helper()
	files := analyzer.NewFileTable(nil)
	class := &domain.Class{Name: "Sample.Branches"}
	for _, body := range bodies {
		files.RegisterMethod(body)
		m, err := analyzer.BuildMethod(body, files)
		if err != nil {
			t.Fatalf("Failed to build method %s: %v", body.Name, err)
		}
		class.Methods = append(class.Methods, m)
	}
	return &domain.Project{
		ProjectID: "p",
		Assemblies: []*domain.Assembly{{
			AssemblyID: asmID,
			FullName:   "Sample, Version=1.0.0.0, Culture=neutral",
			Paths:      domain.NewAssemblyPaths("/bin/Sample.dll", true),
			Files:      files.Files(),
			Classes:    []*domain.Class{class},
			SkipReason: domain.SkipReasonNone,
		}},
	}
}

// ifElseThenBranch runs the `then` arm of IfElseBody
func ifElseThenBranch(methodID int) *trace.TestExecutionSummary {
	rec := trace.NewRecorder("t1", "Sample.Tests.Then", "")
	rec.Record(trace.TestCaseStarted("Sample.Tests.Then"))
	rec.Record(trace.MethodEntered(asmID, methodID))
	rec.Record(trace.SequencePointHit(asmID, methodID, 0))
	rec.Record(trace.BranchExited(asmID, methodID, 0))
	rec.Record(trace.BranchEntered(asmID, methodID, 1))
	rec.Record(trace.SequencePointHit(asmID, methodID, 1))
	rec.Record(trace.BranchExited(asmID, methodID, 1))
	rec.Record(trace.BranchEntered(asmID, methodID, 3))
	rec.Record(trace.SequencePointHit(asmID, methodID, 3))
	rec.Record(trace.BranchExited(asmID, methodID, 3))
	rec.Record(trace.TestCaseEnded("Passed"))
	return rec.Summary()
}

func TestCalculateCoverage(t *testing.T) {
	tests := []struct {
		visited, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{3, 4, 75},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := CalculateCoverage(tt.visited, tt.total); got != tt.want {
			t.Errorf("CalculateCoverage(%d, %d) = %v, want %v", tt.visited, tt.total, got, tt.want)
		}
	}
}

func TestHitTableConcurrentVisits(t *testing.T) {
	hits := NewHitTable()
	key := SectionKey(1, 2, 3)

	const workers = 16
	const perWorker = 500
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				hits.Visit(key)
			}
		}()
	}
	wg.Wait()

	if got := hits.Count(key); got != workers*perWorker {
		t.Errorf("expected %d visits, got %d", workers*perWorker, got)
	}
	if hits.Count(SectionKey(1, 2, 4)) != 0 {
		t.Error("unvisited keys should read as 0")
	}
}

func TestHitTableSnapshotAndReplace(t *testing.T) {
	hits := NewHitTable()
	hits.Visit(MethodKey(1, 1))
	hits.Add(ConditionKey(1, 1, 0), 3)
	hits.Add(ConditionKey(1, 1, 1), 0)

	snap := hits.Snapshot()
	if len(snap) != 2 || snap[ConditionKey(1, 1, 0)] != 3 {
		t.Errorf("unexpected snapshot %v", snap)
	}

	hits.Replace(map[HitKey]int64{SectionKey(1, 1, 0): 7})
	if hits.Len() != 1 || hits.Count(SectionKey(1, 1, 0)) != 7 || hits.Count(MethodKey(1, 1)) != 0 {
		t.Errorf("replace should overwrite the table, got %v", hits.Snapshot())
	}
}

func TestReplayIfElse(t *testing.T) {
	body := testutil.IfElseBody()
	project := buildProject(t, body)
	hits := NewHitTable()
	r := NewReplayer(project, hits, true)

	if err := r.Replay(ifElseThenBranch(body.Token)); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	id := body.Token
	if hits.Count(MethodKey(asmID, id)) != 1 {
		t.Error("method should be visited once")
	}
	for section, want := range map[int]int64{0: 1, 1: 1, 2: 0, 3: 1} {
		if got := hits.Count(SectionKey(asmID, id, section)); got != want {
			t.Errorf("section %d: got %d, want %d", section, got, want)
		}
	}
	// conditions: 0 is 2->4, 1 is 2->8, 2 is 6->10, 3 is 9->10
	for index, want := range map[int]int64{0: 1, 1: 0, 2: 1, 3: 0} {
		if got := hits.Count(ConditionKey(asmID, id, index)); got != want {
			t.Errorf("condition %d: got %d, want %d", index, got, want)
		}
	}

	stats := r.Stats()
	if stats.TestCases != 1 || stats.UnmatchedEvents != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Events != 11 {
		t.Errorf("expected 11 events, got %d", stats.Events)
	}
}

func TestReplayEnteredWithoutExit(t *testing.T) {
	body := testutil.IfElseBody()
	project := buildProject(t, body)
	hits := NewHitTable()

	rec := trace.NewRecorder("t", "t", "")
	rec.Record(trace.BranchEntered(asmID, body.Token, 1))
	if err := NewReplayer(project, hits, true).Replay(rec.Summary()); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(hits.Snapshot()) != 0 {
		t.Errorf("an entry with nothing armed visits nothing, got %v", hits.Snapshot())
	}
}

func TestReplayUnmatched(t *testing.T) {
	body := testutil.IfElseBody()
	project := buildProject(t, body)

	summary := &trace.TestExecutionSummary{
		TestCaseName: "bad",
		MethodsExecuted: []trace.MethodExecution{{
			AssemblyID: asmID,
			MethodID:   body.Token,
			Events: []trace.Event{
				trace.BranchExited(asmID, body.Token, 42),
				trace.SequencePointHit(asmID, body.Token, 0),
			},
		}},
		TestCaseEvents: []trace.Event{trace.MethodEntered(asmID, 999)},
	}

	t.Run("strict", func(t *testing.T) {
		err := NewReplayer(project, NewHitTable(), true).Replay(summary)
		if !domain.HasCode(err, domain.ErrCodeReplayError) {
			t.Errorf("expected a replay error, got %v", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		hits := NewHitTable()
		r := NewReplayer(project, hits, false)
		if err := r.Replay(summary); err != nil {
			t.Fatalf("lenient replay should not fail: %v", err)
		}
		if r.Stats().UnmatchedEvents != 2 {
			t.Errorf("expected 2 unmatched events, got %d", r.Stats().UnmatchedEvents)
		}
		if hits.Count(SequencePointKey(asmID, body.Token, 0)) != 1 {
			t.Error("matching events after a bad one are still applied")
		}
	})
}

func TestBuildReportIfElse(t *testing.T) {
	body := testutil.IfElseBody()
	project := buildProject(t, body)
	hits := NewHitTable()
	if err := NewReplayer(project, hits, true).Replay(ifElseThenBranch(body.Token)); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	summary, modules := NewBuilder(project, hits).Build()

	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	module := modules[0]
	if module.ModuleName != "Sample" || module.ModulePath != "/bin/Sample.dll" {
		t.Errorf("unexpected module identity %q %q", module.ModuleName, module.ModulePath)
	}

	method := module.Classes[0].Methods[0]
	if method.Summary.NumSequencePoints != 4 || method.Summary.VisitedSequencePoints != 3 {
		t.Errorf("unexpected point counts %+v", method.Summary)
	}
	if method.Summary.NumBranchPoints != 4 || method.Summary.VisitedBranchPoints != 3 {
		t.Errorf("unexpected branch counts %+v", method.Summary)
	}
	if method.Summary.SequenceCoverage != 75 || method.Summary.BranchCoverage != 75 {
		t.Errorf("unexpected coverage %+v", method.Summary)
	}
	if method.Summary.MinCyclomaticComplexity != 1 || method.Summary.MaxCyclomaticComplexity != 1 {
		t.Errorf("complexity should be clamped to 1, got %+v", method.Summary)
	}

	// four sections are counted, but only the two branching conditions are listed
	if len(method.BranchPoints) != 2 {
		t.Fatalf("expected 2 branch points, got %+v", method.BranchPoints)
	}
	if method.BranchPoints[0].VisitCount != 1 || method.BranchPoints[1].VisitCount != 0 {
		t.Errorf("unexpected branch point visits %+v", method.BranchPoints)
	}
	if method.BranchPoints[0].StartLine != 10 {
		t.Errorf("branch point should attach to line 10, got %d", method.BranchPoints[0].StartLine)
	}
	first := method.SequencePoints[0]
	if first.BranchExitCount != 2 || first.BranchExitVisited != 1 {
		t.Errorf("expected bec=2 bev=1, got %d %d", first.BranchExitCount, first.BranchExitVisited)
	}
	if method.MethodPoint == nil || method.MethodPoint.VisitCount != 1 {
		t.Errorf("unexpected method point %+v", method.MethodPoint)
	}

	if summary.NumClasses != 1 || summary.VisitedClasses != 1 || summary.NumMethods != 1 || summary.VisitedMethods != 1 {
		t.Errorf("unexpected project summary %+v", summary)
	}
	if summary.SequenceCoverage != 75 {
		t.Errorf("project coverage should match the only method, got %v", summary.SequenceCoverage)
	}
}

func TestBuildReportUnvisited(t *testing.T) {
	project := buildProject(t, testutil.IfElseBody(), testutil.LoopBody())

	summary, _ := NewBuilder(project, NewHitTable()).Build()

	if summary.NumMethods != 2 || summary.VisitedMethods != 0 {
		t.Errorf("unexpected method counts %+v", summary)
	}
	if summary.NumClasses != 1 || summary.VisitedClasses != 0 {
		t.Errorf("unexpected class counts %+v", summary)
	}
	if summary.SequenceCoverage != 0 || summary.BranchCoverage != 0 {
		t.Errorf("nothing ran, got %+v", summary)
	}
}

func TestBuildReportSkipped(t *testing.T) {
	project := buildProject(t, testutil.IfElseBody())
	project.Assemblies[0].SkipReason = domain.SkipReasonNoPdb

	summary, modules := NewBuilder(project, NewHitTable()).Build()

	if modules[0].Summary != nil || modules[0].Classes != nil || modules[0].Files != nil {
		t.Errorf("skipped modules carry identity only, got %+v", modules[0])
	}
	if summary != (domain.Summary{}) {
		t.Errorf("expected an empty project summary, got %+v", summary)
	}
}

func TestClosestVisiblePoint(t *testing.T) {
	points := []domain.SequencePoint{
		{ID: 0, StartOffset: 0, EndOffset: 5, StartLine: 3, EndLine: 3},
		{ID: 1, StartOffset: 6, EndOffset: 9, StartLine: domain.HiddenLine, EndLine: domain.HiddenLine},
		{ID: 2, StartOffset: 10, EndOffset: 12, StartLine: 5, EndLine: 5},
	}

	tests := []struct {
		offset int
		want   int
		ok     bool
	}{
		{2, 0, true},
		{7, 0, true},
		{11, 2, true},
		{20, 0, false},
	}
	for _, tt := range tests {
		sp, ok := ClosestVisiblePoint(points, tt.offset)
		if ok != tt.ok || (ok && sp.ID != tt.want) {
			t.Errorf("ClosestVisiblePoint(%d) = %d, %v; want %d, %v", tt.offset, sp.ID, ok, tt.want, tt.ok)
		}
	}

	if _, ok := ClosestVisiblePoint(points[1:2], 7); ok {
		t.Error("a hidden point with nothing visible before it has no association")
	}
}
