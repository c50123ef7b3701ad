package analyzer

import (
	"sync"
	"testing"

	"github.com/ludo-technologies/ucover/internal/parser"
	"github.com/ludo-technologies/ucover/internal/testutil"
)

func TestMapSequencePoints(t *testing.T) {
	body := testutil.IfElseBody()
	files := NewFileTable(NewSequence(1))
	files.RegisterMethod(body)

	points := MapSequencePoints(body.SequencePoints, body.Offsets(), files)
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}

	wantSpans := []span{{0, 2}, {4, 6}, {8, 9}, {10, 11}}
	for i, p := range points {
		if p.ID != i {
			t.Errorf("point %d has id %d", i, p.ID)
		}
		if (span{p.StartOffset, p.EndOffset}) != wantSpans[i] {
			t.Errorf("point %d spans [%d,%d], want %v", i, p.StartOffset, p.EndOffset, wantSpans[i])
		}
		if p.FileID == nil || *p.FileID != 1 {
			t.Errorf("point %d should reference file 1, got %v", i, p.FileID)
		}
		if p.IsHidden() {
			t.Errorf("point %d should be visible", i)
		}
	}
}

func TestMapSequencePointsSortsStably(t *testing.T) {
	records := []parser.SequencePointRecord{
		testutil.Line("a.cs", 8, 3),
		testutil.Line("a.cs", 0, 1),
		testutil.Line("a.cs", 0, 2),
	}
	offsets := []int{0, 1, 2, 8, 9}

	points := MapSequencePoints(records, offsets, nil)

	if points[0].StartLine != 1 || points[1].StartLine != 2 || points[2].StartLine != 3 {
		t.Errorf("records at the same offset must keep their input order: %+v", points)
	}
	if points[0].EndOffset != 0 {
		t.Errorf("an empty window should end at its start, got %d", points[0].EndOffset)
	}
	if points[1].EndOffset != 2 {
		t.Errorf("expected second point to end at 2, got %d", points[1].EndOffset)
	}
	if points[2].EndOffset != 9 {
		t.Errorf("the last point runs to the end of the method, got %d", points[2].EndOffset)
	}
	for _, p := range points {
		if p.FileID != nil {
			t.Errorf("no resolver means no file id, got %d", *p.FileID)
		}
	}
}

func TestMapSequencePointsHidden(t *testing.T) {
	body := testutil.UsingBody()
	points := MapSequencePoints(body.SequencePoints, body.Offsets(), nil)

	hidden := points[2]
	if !hidden.IsHidden() {
		t.Fatal("point at the generated finally should be hidden")
	}
	if hidden.StartOffset != 14 || hidden.EndOffset != 23 {
		t.Errorf("hidden point spans [%d,%d], want [14,23]", hidden.StartOffset, hidden.EndOffset)
	}
}

func TestMapSequencePointsWithoutDocument(t *testing.T) {
	records := []parser.SequencePointRecord{{Offset: 0, StartLine: 1, EndLine: 1}}
	files := NewFileTable(nil)
	files.Register("other.cs")

	points := MapSequencePoints(records, []int{0}, files)
	if points[0].FileID != nil {
		t.Errorf("a record without a document has no file, got %d", *points[0].FileID)
	}
}

func TestFileTable(t *testing.T) {
	files := NewFileTable(NewSequence(1))

	a := files.Register("a.cs")
	b := files.Register("b.cs")
	again := files.Register("a.cs")

	if a != 1 || b != 2 || again != 1 {
		t.Errorf("unexpected ids a=%d b=%d again=%d", a, b, again)
	}
	if id, ok := files.FileID("b.cs"); !ok || id != 2 {
		t.Errorf("FileID(b.cs) = %d, %v", id, ok)
	}
	if _, ok := files.FileID("c.cs"); ok {
		t.Error("unregistered documents have no id")
	}

	list := files.Files()
	if len(list) != 2 || list[0].Path != "a.cs" || list[1].ID != 2 {
		t.Errorf("unexpected files %+v", list)
	}
}

func TestSequenceConcurrent(t *testing.T) {
	seq := NewSequence(1)
	const workers = 8
	const perWorker = 100

	ids := make(chan int, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- seq.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d handed out twice", id)
		}
		seen[id] = true
	}
	if next := seq.Next(); len(seen) != workers*perWorker || next != workers*perWorker+1 {
		t.Errorf("expected %d ids and next id %d, got %d and %d",
			workers*perWorker, workers*perWorker+1, len(seen), next)
	}
}
