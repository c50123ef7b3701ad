// Package testutil provides helper functions for testing ucover components
package testutil

import (
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// Instr creates an instruction whose flow is derived from the opcode
func Instr(offset int, opcode string, targets ...int) parser.Instruction {
	return parser.Instruction{
		Offset:  offset,
		OpCode:  opcode,
		Flow:    parser.FlowForOpCode(opcode),
		Targets: targets,
	}
}

// Body creates a method body from instructions
func Body(name string, instrs ...parser.Instruction) *parser.MethodBody {
	return &parser.MethodBody{
		Name:         name,
		Instructions: instrs,
	}
}

// Finally creates a finally handler covering [handlerStart, handlerEnd)
func Finally(tryStart, tryEnd, handlerStart, handlerEnd int) parser.ExceptionHandler {
	return parser.ExceptionHandler{
		Kind:         parser.HandlerFinally,
		TryStart:     tryStart,
		TryEnd:       tryEnd,
		HandlerStart: handlerStart,
		HandlerEnd:   IntPtr(handlerEnd),
	}
}

// Catch creates a catch handler covering [handlerStart, handlerEnd)
func Catch(tryStart, tryEnd, handlerStart, handlerEnd int) parser.ExceptionHandler {
	h := Finally(tryStart, tryEnd, handlerStart, handlerEnd)
	h.Kind = parser.HandlerCatch
	return h
}

// Line creates a visible sequence point record on a single source line
func Line(document string, offset, line int) parser.SequencePointRecord {
	return parser.SequencePointRecord{
		Document:    document,
		Offset:      offset,
		StartLine:   line,
		StartColumn: 9,
		EndLine:     line,
		EndColumn:   30,
	}
}

// Hidden creates a hidden sequence point record
func Hidden(document string, offset int) parser.SequencePointRecord {
	return parser.SequencePointRecord{
		Document:    document,
		Offset:      offset,
		StartLine:   domain.HiddenLine,
		StartColumn: 0,
		EndLine:     domain.HiddenLine,
		EndColumn:   0,
	}
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// IfElseBody is `if (x > 0) a = 1; else a = 2; return a;`
func IfElseBody() *parser.MethodBody {
	body := Body("Sample.Branches::IfElse(System.Int32)",
		Instr(0, "ldarg.1"),
		Instr(1, "ldc.i4.0"),
		Instr(2, "ble.s", 8),
		Instr(4, "ldc.i4.1"),
		Instr(5, "stloc.0"),
		Instr(6, "br.s", 10),
		Instr(8, "ldc.i4.2"),
		Instr(9, "stloc.0"),
		Instr(10, "ldloc.0"),
		Instr(11, "ret"),
	)
	body.Token = 0x06000001
	body.SequencePoints = []parser.SequencePointRecord{
		Line("Branches.cs", 0, 10),
		Line("Branches.cs", 4, 11),
		Line("Branches.cs", 8, 13),
		Line("Branches.cs", 10, 14),
	}
	return body
}

// UsingBody is `using (var r = new Resource()) { r.Run(); } return;`
// compiled into a try/finally whose cleanup has no user source line
func UsingBody() *parser.MethodBody {
	body := Body("Sample.Resources::Use()",
		Instr(0, "newobj"),
		Instr(5, "stloc.0"),
		Instr(6, "ldloc.0"),
		Instr(7, "callvirt"),
		Instr(12, "leave.s", 24),
		Instr(14, "ldloc.0"),
		Instr(15, "brfalse.s", 23),
		Instr(17, "ldloc.0"),
		Instr(18, "callvirt"),
		Instr(23, "endfinally"),
		Instr(24, "ret"),
	)
	body.Token = 0x06000002
	body.Handlers = []parser.ExceptionHandler{Finally(6, 14, 14, 24)}
	body.SequencePoints = []parser.SequencePointRecord{
		Line("Resources.cs", 0, 20),
		Line("Resources.cs", 6, 22),
		Hidden("Resources.cs", 14),
		Line("Resources.cs", 24, 24),
	}
	return body
}

// DoubleUsingBody is two `using` blocks one after the other. The second
// try starts right where the first leave lands.
func DoubleUsingBody() *parser.MethodBody {
	body := Body("Sample.Resources::UseBoth()",
		Instr(0, "newobj"),
		Instr(5, "stloc.0"),
		Instr(6, "ldloc.0"),
		Instr(7, "callvirt"),
		Instr(12, "leave.s", 24),
		Instr(14, "ldloc.0"),
		Instr(15, "brfalse.s", 23),
		Instr(17, "ldloc.0"),
		Instr(18, "callvirt"),
		Instr(23, "endfinally"),
		Instr(24, "newobj"),
		Instr(29, "stloc.1"),
		Instr(30, "ldloc.1"),
		Instr(31, "callvirt"),
		Instr(36, "leave.s", 48),
		Instr(38, "ldloc.1"),
		Instr(39, "brfalse.s", 47),
		Instr(41, "ldloc.1"),
		Instr(42, "callvirt"),
		Instr(47, "endfinally"),
		Instr(48, "ret"),
	)
	body.Token = 0x06000003
	body.Handlers = []parser.ExceptionHandler{
		Finally(6, 14, 14, 24),
		Finally(30, 38, 38, 48),
	}
	body.SequencePoints = []parser.SequencePointRecord{
		Line("Resources.cs", 0, 30),
		Line("Resources.cs", 6, 32),
		Hidden("Resources.cs", 14),
		Line("Resources.cs", 24, 34),
		Line("Resources.cs", 30, 36),
		Hidden("Resources.cs", 38),
		Line("Resources.cs", 48, 38),
	}
	return body
}

// SwitchBody is a switch over three cases plus a default
func SwitchBody() *parser.MethodBody {
	body := Body("Sample.Branches::Pick(System.Int32)",
		Instr(0, "ldarg.1"),
		Instr(1, "switch", 20, 24, 28),
		Instr(18, "br.s", 32),
		Instr(20, "ldc.i4.1"),
		Instr(21, "stloc.0"),
		Instr(22, "br.s", 36),
		Instr(24, "ldc.i4.2"),
		Instr(25, "stloc.0"),
		Instr(26, "br.s", 36),
		Instr(28, "ldc.i4.3"),
		Instr(29, "stloc.0"),
		Instr(30, "br.s", 36),
		Instr(32, "ldc.i4.0"),
		Instr(33, "stloc.0"),
		Instr(34, "br.s", 36),
		Instr(36, "ldloc.0"),
		Instr(37, "ret"),
	)
	body.Token = 0x06000003
	body.SequencePoints = []parser.SequencePointRecord{
		Line("Branches.cs", 0, 30),
		Line("Branches.cs", 20, 32),
		Line("Branches.cs", 24, 34),
		Line("Branches.cs", 28, 36),
		Line("Branches.cs", 32, 38),
		Line("Branches.cs", 36, 40),
	}
	return body
}

// ReturnBody is a method with no branches
func ReturnBody() *parser.MethodBody {
	body := Body("Sample.Plain::get_Value()",
		Instr(0, "ldarg.0"),
		Instr(1, "ldfld"),
		Instr(6, "ret"),
	)
	body.Token = 0x06000004
	body.SequencePoints = []parser.SequencePointRecord{Line("Plain.cs", 0, 5)}
	return body
}

// LoopBody is `for (i = 0; i < 10; i++) {} return;`
func LoopBody() *parser.MethodBody {
	body := Body("Sample.Loops::Count()",
		Instr(0, "ldc.i4.0"),
		Instr(1, "stloc.0"),
		Instr(2, "br.s", 8),
		Instr(4, "ldloc.0"),
		Instr(5, "ldc.i4.1"),
		Instr(6, "add"),
		Instr(7, "stloc.0"),
		Instr(8, "ldloc.0"),
		Instr(9, "ldc.i4.s"),
		Instr(11, "blt.s", 4),
		Instr(13, "ret"),
	)
	body.Token = 0x06000005
	body.SequencePoints = []parser.SequencePointRecord{
		Line("Loops.cs", 0, 3),
		Line("Loops.cs", 4, 3),
		Line("Loops.cs", 8, 3),
		Line("Loops.cs", 13, 4),
	}
	return body
}

// TryCatchBody is `try { Run(); } catch { Log(); } return;`
func TryCatchBody() *parser.MethodBody {
	body := Body("Sample.Errors::Guard()",
		Instr(0, "call"),
		Instr(5, "leave.s", 15),
		Instr(7, "pop"),
		Instr(8, "call"),
		Instr(13, "leave.s", 15),
		Instr(15, "ret"),
	)
	body.Token = 0x06000006
	body.Handlers = []parser.ExceptionHandler{Catch(0, 7, 7, 15)}
	body.SequencePoints = []parser.SequencePointRecord{
		Line("Errors.cs", 0, 7),
		Line("Errors.cs", 7, 9),
		Line("Errors.cs", 15, 11),
	}
	return body
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertSectionsCover fails the test unless sections partition offsets in order
func AssertSectionsCover(t *testing.T, sections []domain.CodeSection, offsets []int) {
	t.Helper()
	covered := 0
	for i, s := range sections {
		if s.ID != i {
			t.Errorf("section %d has id %d", i, s.ID)
		}
		if i > 0 && s.StartOffset <= sections[i-1].EndOffset {
			t.Errorf("section %d [%d,%d] overlaps previous [%d,%d]",
				i, s.StartOffset, s.EndOffset, sections[i-1].StartOffset, sections[i-1].EndOffset)
		}
		for _, o := range offsets {
			if s.Contains(o) {
				covered++
			}
		}
	}
	if covered != len(offsets) {
		t.Errorf("sections cover %d instruction slots, want exactly %d", covered, len(offsets))
	}
	if len(sections) > 0 && len(offsets) > 0 {
		if sections[0].StartOffset != offsets[0] {
			t.Errorf("first section starts at %d, want %d", sections[0].StartOffset, offsets[0])
		}
		if sections[len(sections)-1].EndOffset != offsets[len(offsets)-1] {
			t.Errorf("last section ends at %d, want %d", sections[len(sections)-1].EndOffset, offsets[len(offsets)-1])
		}
	}
}
