package analyzer

import (
	"sort"

	"github.com/ludo-technologies/ucover/internal/parser"
)

// NodeKind is the tag of an instruction node
type NodeKind int

const (
	NodeSequential NodeKind = iota
	NodeBranching
	NodeReturn
	NodeThrow
)

// String returns the string representation of NodeKind
func (k NodeKind) String() string {
	switch k {
	case NodeSequential:
		return "sequential"
	case NodeBranching:
		return "branching"
	case NodeReturn:
		return "return"
	case NodeThrow:
		return "throw"
	default:
		return "unknown"
	}
}

// BranchKind refines a branching node
type BranchKind int

const (
	BranchNone BranchKind = iota
	BranchConditional
	BranchUnconditional
	BranchSwitch
	BranchLeave
)

// String returns the string representation of BranchKind
func (k BranchKind) String() string {
	switch k {
	case BranchConditional:
		return "conditional"
	case BranchUnconditional:
		return "unconditional"
	case BranchSwitch:
		return "switch"
	case BranchLeave:
		return "leave"
	default:
		return "none"
	}
}

// Node is one instruction in the method graph.
// Entering and Exits hold arena indices, unique and in insertion order.
type Node struct {
	Offset   int
	Instr    parser.Instruction
	Kind     NodeKind
	Branch   BranchKind
	Entering []int
	Exits    []int
}

// IsTerminal reports whether control never leaves the node by a normal edge
func (n *Node) IsTerminal() bool {
	return n.Kind == NodeReturn || n.Kind == NodeThrow
}

// Graph is the arena of instruction nodes for one method
type Graph struct {
	Nodes []Node

	// index maps an instruction offset to its node in Nodes
	index map[int]int

	// instrs is the method body in stream order
	instrs []parser.Instruction

	// position maps an instruction offset to its index in instrs
	position map[int]int

	// ordered holds node indices sorted by offset, built lazily
	ordered []int

	// extraRoots are the traversal roots beyond the method entry
	extraRoots []int
}

func newGraph(instrs []parser.Instruction) *Graph {
	g := &Graph{
		Nodes:    make([]Node, 0, len(instrs)),
		index:    make(map[int]int, len(instrs)),
		instrs:   instrs,
		position: make(map[int]int, len(instrs)),
	}
	for i, instr := range instrs {
		g.position[instr.Offset] = i
	}
	return g
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Entry returns the node of the first instruction
func (g *Graph) Entry() *Node {
	if len(g.instrs) == 0 {
		return nil
	}
	return g.NodeAt(g.instrs[0].Offset)
}

// NodeAt returns the node for an instruction offset, or nil
func (g *Graph) NodeAt(offset int) *Node {
	idx, ok := g.index[offset]
	if !ok {
		return nil
	}
	return &g.Nodes[idx]
}

// IndexOf returns the arena index of the node at offset
func (g *Graph) IndexOf(offset int) (int, bool) {
	idx, ok := g.index[offset]
	return idx, ok
}

// Instructions returns the method body the graph was built from
func (g *Graph) Instructions() []parser.Instruction {
	return g.instrs
}

// Ordered returns node indices sorted by instruction offset
func (g *Graph) Ordered() []int {
	if len(g.ordered) == len(g.Nodes) {
		return g.ordered
	}
	ordered := make([]int, len(g.Nodes))
	for i := range ordered {
		ordered[i] = i
	}
	sort.Slice(ordered, func(a, b int) bool {
		return g.Nodes[ordered[a]].Offset < g.Nodes[ordered[b]].Offset
	})
	g.ordered = ordered
	return ordered
}

// ExitOffsets returns the offsets a node transfers control to
func (g *Graph) ExitOffsets(n *Node) []int {
	return g.offsetsOf(n.Exits)
}

// EnteringOffsets returns the offsets that transfer control into a node
func (g *Graph) EnteringOffsets(n *Node) []int {
	return g.offsetsOf(n.Entering)
}

// ExtraRoots returns the offsets traversal started from besides the entry
func (g *Graph) ExtraRoots() []int {
	return g.offsetsOf(g.extraRoots)
}

func (g *Graph) offsetsOf(indices []int) []int {
	offsets := make([]int, len(indices))
	for i, idx := range indices {
		offsets[i] = g.Nodes[idx].Offset
	}
	return offsets
}

// nextOffset returns the offset following offset in stream order
func (g *Graph) nextOffset(offset int) (int, bool) {
	pos, ok := g.position[offset]
	if !ok || pos+1 >= len(g.instrs) {
		return 0, false
	}
	return g.instrs[pos+1].Offset, true
}

// addNode creates a node for instr and returns its arena index
func (g *Graph) addNode(instr parser.Instruction) int {
	kind, branch := classify(instr.Flow)
	g.Nodes = append(g.Nodes, Node{
		Offset: instr.Offset,
		Instr:  instr,
		Kind:   kind,
		Branch: branch,
	})
	idx := len(g.Nodes) - 1
	g.index[instr.Offset] = idx
	return idx
}

// connect adds the edge from -> to and its reverse
func (g *Graph) connect(from, to int) {
	g.Nodes[from].Exits = appendUnique(g.Nodes[from].Exits, to)
	g.Nodes[to].Entering = appendUnique(g.Nodes[to].Entering, from)
}

func appendUnique(list []int, v int) []int {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// classify maps an instruction flow to the node tag
func classify(flow parser.FlowKind) (NodeKind, BranchKind) {
	switch flow {
	case parser.FlowConditionalBranch:
		return NodeBranching, BranchConditional
	case parser.FlowUnconditionalBranch:
		return NodeBranching, BranchUnconditional
	case parser.FlowSwitch:
		return NodeBranching, BranchSwitch
	case parser.FlowLeave:
		return NodeBranching, BranchLeave
	case parser.FlowReturn:
		return NodeReturn, BranchNone
	case parser.FlowThrow:
		return NodeThrow, BranchNone
	default:
		return NodeSequential, BranchNone
	}
}
