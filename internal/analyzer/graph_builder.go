package analyzer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// step is one pending visit of a traversal frame.
// edge is false for the side traversal after a leave.
type step struct {
	offset int
	edge   bool
}

// frame is the traversal state of one node whose children are being parsed
type frame struct {
	node  int
	steps []step
	next  int
}

// GraphBuilder builds instruction graphs from method bodies
type GraphBuilder struct {
	graph  *Graph
	stack  []frame
	logger *zap.Logger
}

// NewGraphBuilder creates a new graph builder
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		stack:  []frame{},
		logger: nil,
	}
}

// SetLogger sets an optional logger for traversal tracing
func (b *GraphBuilder) SetLogger(logger *zap.Logger) {
	b.logger = logger
}

func (b *GraphBuilder) log() *zap.Logger {
	if b.logger != nil {
		return b.logger
	}
	return logging.Logger()
}

// Build constructs the graph of a method body starting at its first instruction
func (b *GraphBuilder) Build(instrs []parser.Instruction) (*Graph, error) {
	return b.BuildWithRoots(instrs, nil)
}

// BuildWithRoots constructs the graph starting at the first instruction, then
// at each of roots in order, then at every instruction still not visited.
// Roots that are already part of the graph are ignored.
func (b *GraphBuilder) BuildWithRoots(instrs []parser.Instruction, roots []int) (*Graph, error) {
	if len(instrs) == 0 {
		return nil, domain.NewInvalidInputError("cannot build graph from empty method body", nil)
	}
	for i := 1; i < len(instrs); i++ {
		if instrs[i].Offset <= instrs[i-1].Offset {
			return nil, domain.NewInvalidInputError(
				fmt.Sprintf("instruction offsets must strictly increase: %d after %d",
					instrs[i].Offset, instrs[i-1].Offset), nil)
		}
	}

	b.graph = newGraph(instrs)
	b.stack = b.stack[:0]

	if err := b.traverseFrom(instrs[0].Offset, false); err != nil {
		return nil, err
	}
	for _, root := range roots {
		if err := b.traverseFrom(root, true); err != nil {
			return nil, err
		}
	}
	for _, instr := range instrs {
		if err := b.traverseFrom(instr.Offset, true); err != nil {
			return nil, err
		}
	}

	b.log().Debug("instruction graph built",
		zap.Int("instructions", len(instrs)),
		zap.Int("nodes", b.graph.Len()),
		zap.Int("extra_roots", len(b.graph.extraRoots)))

	return b.graph, nil
}

// traverseFrom parses the graph reachable from offset unless it is already known
func (b *GraphBuilder) traverseFrom(offset int, extra bool) error {
	root, created, err := b.ensure(offset)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	if extra {
		b.graph.extraRoots = append(b.graph.extraRoots, root)
	}
	if err := b.push(root); err != nil {
		return err
	}
	return b.run()
}

// run drains the traversal stack. A child is parsed before the next
// sibling exit is considered, which mirrors a recursive descent.
func (b *GraphBuilder) run() error {
	for len(b.stack) > 0 {
		top := &b.stack[len(b.stack)-1]
		if top.next >= len(top.steps) {
			b.stack = b.stack[:len(b.stack)-1]
			continue
		}
		st := top.steps[top.next]
		top.next++
		parent := top.node

		child, created, err := b.ensure(st.offset)
		if err != nil {
			return err
		}
		if st.edge {
			b.graph.connect(parent, child)
		}
		if created {
			if err := b.push(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensure returns the node at offset, creating it on first reference
func (b *GraphBuilder) ensure(offset int) (int, bool, error) {
	if idx, ok := b.graph.index[offset]; ok {
		return idx, false, nil
	}
	pos, ok := b.graph.position[offset]
	if !ok {
		return 0, false, domain.NewInvalidOperationError(
			fmt.Sprintf("no instruction at offset %d", offset), nil)
	}
	return b.graph.addNode(b.graph.instrs[pos]), true, nil
}

// push schedules the children of a newly created node
func (b *GraphBuilder) push(idx int) error {
	steps, err := b.exitSteps(&b.graph.Nodes[idx])
	if err != nil {
		return err
	}
	b.stack = append(b.stack, frame{node: idx, steps: steps})
	return nil
}

// exitSteps lists the children of a node in the order they are parsed
func (b *GraphBuilder) exitSteps(n *Node) ([]step, error) {
	fallThrough := func() (step, error) {
		next, ok := b.graph.nextOffset(n.Offset)
		if !ok {
			return step{}, domain.NewInvalidOperationError(
				fmt.Sprintf("%s at offset %d falls through past the end of the method", n.Instr.OpCode, n.Offset), nil)
		}
		return step{offset: next, edge: true}, nil
	}

	switch n.Kind {
	case NodeReturn, NodeThrow:
		return nil, nil
	case NodeSequential:
		next, err := fallThrough()
		if err != nil {
			return nil, err
		}
		return []step{next}, nil
	}

	switch n.Branch {
	case BranchConditional:
		if len(n.Instr.Targets) != 1 {
			return nil, domain.NewInvalidOperationError(
				fmt.Sprintf("conditional branch at offset %d needs one target", n.Offset), nil)
		}
		next, err := fallThrough()
		if err != nil {
			return nil, err
		}
		return []step{next, {offset: n.Instr.Targets[0], edge: true}}, nil

	case BranchSwitch:
		next, err := fallThrough()
		if err != nil {
			return nil, err
		}
		steps := make([]step, 0, len(n.Instr.Targets)+1)
		steps = append(steps, next)
		for _, target := range n.Instr.Targets {
			steps = append(steps, step{offset: target, edge: true})
		}
		return steps, nil

	case BranchUnconditional:
		if len(n.Instr.Targets) != 1 {
			return nil, domain.NewInvalidOperationError(
				fmt.Sprintf("branch at offset %d needs one target", n.Offset), nil)
		}
		return []step{{offset: n.Instr.Targets[0], edge: true}}, nil

	case BranchLeave:
		if len(n.Instr.Targets) != 1 {
			return nil, domain.NewInvalidOperationError(
				fmt.Sprintf("leave at offset %d needs one target", n.Offset), nil)
		}
		steps := []step{{offset: n.Instr.Targets[0], edge: true}}
		if next, ok := b.graph.nextOffset(n.Offset); ok {
			steps = append(steps, step{offset: next, edge: false})
		}
		return steps, nil
	}

	return nil, domain.NewInvalidOperationError(
		fmt.Sprintf("unclassified node at offset %d", n.Offset), nil)
}
