package analyzer

import (
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/parser"
	"github.com/ludo-technologies/ucover/internal/testutil"
)

func TestClassifyGeneratedRegions(t *testing.T) {
	body := testutil.UsingBody()

	regions, err := ClassifyGeneratedRegions(body.Handlers, body.SequencePoints, body.Instructions)
	testutil.AssertNoError(t, err)

	if len(regions) != 1 {
		t.Fatalf("expected 1 generated region, got %v", regions)
	}
	if regions[0] != (Region{Start: 14, End: 23}) {
		t.Errorf("unexpected region %+v", regions[0])
	}
}

func TestClassifyGeneratedRegionsVisibleFinally(t *testing.T) {
	body := testutil.UsingBody()
	body.SequencePoints[2] = testutil.Line("Resources.cs", 17, 23)

	regions, err := ClassifyGeneratedRegions(body.Handlers, body.SequencePoints, body.Instructions)
	testutil.AssertNoError(t, err)
	if len(regions) != 0 {
		t.Errorf("a finally with a visible line is user code, got %v", regions)
	}
}

func TestClassifyGeneratedRegionsIgnoresOtherHandlers(t *testing.T) {
	body := testutil.TryCatchBody()
	body.SequencePoints = nil

	regions, err := ClassifyGeneratedRegions(body.Handlers, body.SequencePoints, body.Instructions)
	testutil.AssertNoError(t, err)
	if len(regions) != 0 {
		t.Errorf("catch handlers are never generated regions, got %v", regions)
	}
}

func TestClassifyGeneratedRegionsOpenEnded(t *testing.T) {
	instrs := []parser.Instruction{
		testutil.Instr(0, "leave.s", 3),
		testutil.Instr(2, "nop"),
		testutil.Instr(3, "endfinally"),
	}
	handlers := []parser.ExceptionHandler{{
		Kind:         parser.HandlerFinally,
		TryStart:     0,
		TryEnd:       2,
		HandlerStart: 2,
	}}

	regions, err := ClassifyGeneratedRegions(handlers, nil, instrs)
	testutil.AssertNoError(t, err)
	if len(regions) != 1 || regions[0] != (Region{Start: 2, End: 3}) {
		t.Errorf("expected region [2,3], got %v", regions)
	}
}

func TestClassifyGeneratedRegionsMissingEndFinally(t *testing.T) {
	body := testutil.UsingBody()
	// the handler nominally ends one instruction early, so the marker is not adjacent
	body.Handlers[0].HandlerEnd = testutil.IntPtr(23)

	_, err := ClassifyGeneratedRegions(body.Handlers, body.SequencePoints, body.Instructions)
	if err == nil {
		t.Fatal("expected error when the handler does not close with endfinally")
	}
	if !domain.IsInvalidOperation(err) {
		t.Errorf("expected an invalid operation error, got %v", err)
	}
}

func TestRegionContains(t *testing.T) {
	r := Region{Start: 14, End: 23}
	for offset, want := range map[int]bool{13: false, 14: true, 18: true, 23: true, 24: false} {
		if got := r.Contains(offset); got != want {
			t.Errorf("Contains(%d) = %v, want %v", offset, got, want)
		}
	}
	if InRegions(nil, 14) {
		t.Error("no regions should contain nothing")
	}
}
