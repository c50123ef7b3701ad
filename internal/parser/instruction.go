package parser

import "strings"

// FlowKind classifies how an instruction transfers control
type FlowKind string

const (
	FlowSequential          FlowKind = "sequential"
	FlowUnconditionalBranch FlowKind = "unconditional_branch"
	FlowConditionalBranch   FlowKind = "conditional_branch"
	FlowSwitch              FlowKind = "switch"
	FlowReturn              FlowKind = "return"
	FlowThrow               FlowKind = "throw"
	FlowLeave               FlowKind = "leave"
)

// IsValid reports whether k is a known flow kind
func (k FlowKind) IsValid() bool {
	switch k {
	case FlowSequential, FlowUnconditionalBranch, FlowConditionalBranch,
		FlowSwitch, FlowReturn, FlowThrow, FlowLeave:
		return true
	}
	return false
}

// HasTargets reports whether instructions of this kind carry target operands
func (k FlowKind) HasTargets() bool {
	switch k {
	case FlowUnconditionalBranch, FlowConditionalBranch, FlowSwitch, FlowLeave:
		return true
	}
	return false
}

// OpCodeEndFinally marks the end of a finally or fault handler
const OpCodeEndFinally = "endfinally"

// Instruction is one decoded instruction of a method body
type Instruction struct {
	Offset  int      `json:"offset" yaml:"offset"`
	OpCode  string   `json:"opcode" yaml:"opcode"`
	Flow    FlowKind `json:"flow,omitempty" yaml:"flow,omitempty"`
	Targets []int    `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// IsEndFinally reports whether the instruction closes a finally handler
func (i Instruction) IsEndFinally() bool {
	return strings.EqualFold(i.OpCode, OpCodeEndFinally)
}

// conditionalOpCodes are the two-way branch mnemonics, without the ".s" short form
var conditionalOpCodes = map[string]bool{
	"brfalse": true, "brtrue": true, "brnull": true, "brzero": true, "brinst": true,
	"beq": true, "bne.un": true,
	"bge": true, "bge.un": true,
	"bgt": true, "bgt.un": true,
	"ble": true, "ble.un": true,
	"blt": true, "blt.un": true,
}

// FlowForOpCode derives the flow kind of a mnemonic
func FlowForOpCode(opcode string) FlowKind {
	op := strings.ToLower(strings.TrimSpace(opcode))
	base := strings.TrimSuffix(op, ".s")

	switch {
	case op == "ret" || op == OpCodeEndFinally || op == "endfault" || op == "endfilter":
		return FlowReturn
	case op == "throw" || op == "rethrow":
		return FlowThrow
	case op == "switch":
		return FlowSwitch
	case base == "leave":
		return FlowLeave
	case base == "br":
		return FlowUnconditionalBranch
	case conditionalOpCodes[base]:
		return FlowConditionalBranch
	}
	return FlowSequential
}

// HandlerKind is the kind of a structured exception handler
type HandlerKind string

const (
	HandlerFinally HandlerKind = "finally"
	HandlerCatch   HandlerKind = "catch"
	HandlerFilter  HandlerKind = "filter"
	HandlerFault   HandlerKind = "fault"
)

// ExceptionHandler is a protected region and its handler.
// HandlerEnd is the offset of the first instruction after the handler;
// nil means the handler runs to the end of the method.
type ExceptionHandler struct {
	Kind         HandlerKind `json:"kind" yaml:"kind"`
	TryStart     int         `json:"try_start" yaml:"try_start"`
	TryEnd       int         `json:"try_end" yaml:"try_end"`
	HandlerStart int         `json:"handler_start" yaml:"handler_start"`
	HandlerEnd   *int        `json:"handler_end,omitempty" yaml:"handler_end,omitempty"`
}

// SequencePointRecord is a raw debug line-mapping entry
type SequencePointRecord struct {
	Document    string `json:"document,omitempty" yaml:"document,omitempty"`
	Offset      int    `json:"offset" yaml:"offset"`
	StartLine   int    `json:"start_line" yaml:"start_line"`
	StartColumn int    `json:"start_column" yaml:"start_column"`
	EndLine     int    `json:"end_line" yaml:"end_line"`
	EndColumn   int    `json:"end_column" yaml:"end_column"`
}

// MethodBody is everything the model builder needs about one method
type MethodBody struct {
	Name           string                `json:"name" yaml:"name"`
	Token          int                   `json:"token" yaml:"token"`
	Instructions   []Instruction         `json:"instructions" yaml:"instructions"`
	Handlers       []ExceptionHandler    `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	SequencePoints []SequencePointRecord `json:"sequence_points,omitempty" yaml:"sequence_points,omitempty"`
}

// Offsets returns the instruction offsets in stream order
func (m *MethodBody) Offsets() []int {
	offsets := make([]int, len(m.Instructions))
	for i, instr := range m.Instructions {
		offsets[i] = instr.Offset
	}
	return offsets
}

// Type is a declaring type and its instrumentable methods
type Type struct {
	Name    string       `json:"name" yaml:"name"`
	Methods []MethodBody `json:"methods" yaml:"methods"`
}

// Assembly is a disassembled module
type Assembly struct {
	Name       string `json:"name" yaml:"name"`
	Path       string `json:"path" yaml:"path"`
	Hash       string `json:"hash,omitempty" yaml:"hash,omitempty"`
	HasSymbols bool   `json:"has_symbols" yaml:"has_symbols"`
	Types      []Type `json:"types" yaml:"types"`

	// Source is the dump file the assembly was read from
	Source string `json:"-" yaml:"-"`
}
