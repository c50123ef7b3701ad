package analyzer

import (
	"reflect"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/parser"
	"github.com/ludo-technologies/ucover/internal/testutil"
)

func buildGraph(t *testing.T, body *parser.MethodBody) *Graph {
	t.Helper()
	roots := make([]int, 0, len(body.Handlers))
	for _, h := range body.Handlers {
		roots = append(roots, h.HandlerStart)
	}
	g, err := NewGraphBuilder().BuildWithRoots(body.Instructions, roots)
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return g
}

func assertOffsets(t *testing.T, what string, got, want []int) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s: got %v, want %v", what, got, want)
	}
}

func TestNewGraphBuilder(t *testing.T) {
	builder := NewGraphBuilder()

	if builder == nil {
		t.Fatal("NewGraphBuilder should return non-nil builder")
	}
	if builder.stack == nil {
		t.Error("stack should be initialized")
	}
	if builder.logger != nil {
		t.Error("logger should be nil by default")
	}
}

func TestGraphBuilderIfElse(t *testing.T) {
	g := buildGraph(t, testutil.IfElseBody())

	if g.Len() != 10 {
		t.Fatalf("expected 10 nodes, got %d", g.Len())
	}

	branch := g.NodeAt(2)
	if branch.Kind != NodeBranching || branch.Branch != BranchConditional {
		t.Errorf("offset 2 should be a conditional branching node, got %s/%s", branch.Kind, branch.Branch)
	}
	assertOffsets(t, "exits of 2", g.ExitOffsets(branch), []int{4, 8})
	assertOffsets(t, "exits of 6", g.ExitOffsets(g.NodeAt(6)), []int{10})
	assertOffsets(t, "entering 10", g.EnteringOffsets(g.NodeAt(10)), []int{6, 9})
	assertOffsets(t, "entering 8", g.EnteringOffsets(g.NodeAt(8)), []int{2})

	ret := g.NodeAt(11)
	if ret.Kind != NodeReturn || len(ret.Exits) != 0 {
		t.Errorf("offset 11 should be a terminal return node")
	}
	if len(g.ExtraRoots()) != 0 {
		t.Errorf("expected no extra roots, got %v", g.ExtraRoots())
	}
}

func TestGraphBuilderEdgesAreSymmetric(t *testing.T) {
	bodies := []*parser.MethodBody{
		testutil.IfElseBody(), testutil.UsingBody(), testutil.SwitchBody(),
		testutil.LoopBody(), testutil.TryCatchBody(),
	}

	for _, body := range bodies {
		t.Run(body.Name, func(t *testing.T) {
			g := buildGraph(t, body)
			for from := range g.Nodes {
				for _, to := range g.Nodes[from].Exits {
					found := false
					for _, back := range g.Nodes[to].Entering {
						if back == from {
							found = true
						}
					}
					if !found {
						t.Errorf("edge %d -> %d has no reverse edge", g.Nodes[from].Offset, g.Nodes[to].Offset)
					}
				}
			}
		})
	}
}

func TestGraphBuilderLoopVisitsEachOffsetOnce(t *testing.T) {
	body := testutil.LoopBody()
	g := buildGraph(t, body)

	if g.Len() != len(body.Instructions) {
		t.Fatalf("expected %d nodes, got %d", len(body.Instructions), g.Len())
	}
	seen := make(map[int]bool)
	for _, n := range g.Nodes {
		if seen[n.Offset] {
			t.Errorf("offset %d has more than one node", n.Offset)
		}
		seen[n.Offset] = true
	}

	assertOffsets(t, "exits of 11", g.ExitOffsets(g.NodeAt(11)), []int{13, 4})
	assertOffsets(t, "entering 8", g.EnteringOffsets(g.NodeAt(8)), []int{2, 7})
	assertOffsets(t, "entering 4", g.EnteringOffsets(g.NodeAt(4)), []int{11})
}

func TestGraphBuilderSwitch(t *testing.T) {
	g := buildGraph(t, testutil.SwitchBody())

	sw := g.NodeAt(1)
	if sw.Branch != BranchSwitch {
		t.Fatalf("offset 1 should be a switch, got %s", sw.Branch)
	}
	assertOffsets(t, "exits of switch", g.ExitOffsets(sw), []int{18, 20, 24, 28})
	assertOffsets(t, "entering 36", g.EnteringOffsets(g.NodeAt(36)), []int{34, 22, 26, 30})
}

func TestGraphBuilderSwitchDuplicateTargets(t *testing.T) {
	body := testutil.Body("dup",
		testutil.Instr(0, "ldarg.0"),
		testutil.Instr(1, "switch", 20, 20, 22, 18),
		testutil.Instr(18, "ret"),
		testutil.Instr(20, "ret"),
		testutil.Instr(22, "ret"),
	)
	g := buildGraph(t, body)

	assertOffsets(t, "exits of switch", g.ExitOffsets(g.NodeAt(1)), []int{18, 20, 22})
	assertOffsets(t, "entering 20", g.EnteringOffsets(g.NodeAt(20)), []int{1})
}

func TestGraphBuilderLeave(t *testing.T) {
	g := buildGraph(t, testutil.TryCatchBody())

	leave := g.NodeAt(5)
	if leave.Branch != BranchLeave {
		t.Fatalf("offset 5 should be a leave, got %s", leave.Branch)
	}
	assertOffsets(t, "exits of leave", g.ExitOffsets(leave), []int{15})

	handler := g.NodeAt(7)
	if handler == nil {
		t.Fatal("instruction after leave should be parsed")
	}
	if len(handler.Entering) != 0 {
		t.Errorf("instruction after leave should have no entering edge, got %v", g.EnteringOffsets(handler))
	}
	assertOffsets(t, "entering 15", g.EnteringOffsets(g.NodeAt(15)), []int{5, 13})
	if len(g.ExtraRoots()) != 0 {
		t.Errorf("handler start is reached by the side traversal, got extra roots %v", g.ExtraRoots())
	}
}

func TestGraphBuilderDeadCodeRoots(t *testing.T) {
	body := testutil.Body("dead",
		testutil.Instr(0, "ret"),
		testutil.Instr(1, "nop"),
		testutil.Instr(2, "ret"),
	)
	g := buildGraph(t, body)

	if g.Len() != 3 {
		t.Fatalf("expected every instruction to get a node, got %d", g.Len())
	}
	assertOffsets(t, "extra roots", g.ExtraRoots(), []int{1})
	assertOffsets(t, "entering 2", g.EnteringOffsets(g.NodeAt(2)), []int{1})
}

func TestGraphBuilderErrors(t *testing.T) {
	tests := []struct {
		name   string
		instrs []parser.Instruction
		code   string
	}{
		{
			name:   "empty body",
			instrs: nil,
			code:   domain.ErrCodeInvalidInput,
		},
		{
			name: "unsorted offsets",
			instrs: []parser.Instruction{
				testutil.Instr(4, "nop"),
				testutil.Instr(2, "ret"),
			},
			code: domain.ErrCodeInvalidInput,
		},
		{
			name: "missing target",
			instrs: []parser.Instruction{
				testutil.Instr(0, "br.s", 99),
				testutil.Instr(2, "ret"),
			},
			code: domain.ErrCodeInvalidOperation,
		},
		{
			name: "falls off the end",
			instrs: []parser.Instruction{
				testutil.Instr(0, "nop"),
				testutil.Instr(1, "ldc.i4.0"),
			},
			code: domain.ErrCodeInvalidOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraphBuilder().Build(tt.instrs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !domain.HasCode(err, tt.code) {
				t.Errorf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestGraphBuilderDeterministic(t *testing.T) {
	body := testutil.SwitchBody()
	first := buildGraph(t, body).String()
	second := buildGraph(t, body).String()

	if first != second {
		t.Errorf("graph rendering differs between builds:\n%s\n---\n%s", first, second)
	}
}

func TestGraphString(t *testing.T) {
	g := buildGraph(t, testutil.ReturnBody())
	want := "IL_0000 sequential -> [IL_0001] <- []\n" +
		"IL_0001 sequential -> [IL_0006] <- [IL_0000]\n" +
		"IL_0006 return -> [] <- [IL_0001]\n"

	if got := g.String(); got != want {
		t.Errorf("unexpected rendering:\n%s", got)
	}
}
