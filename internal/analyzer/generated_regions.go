package analyzer

import (
	"fmt"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// Region is an inclusive offset range of compiler-generated cleanup code
type Region struct {
	Start int
	End   int
}

// Contains reports whether offset lies within the region
func (r Region) Contains(offset int) bool {
	return offset >= r.Start && offset <= r.End
}

// InRegions reports whether offset lies within any of regions
func InRegions(regions []Region, offset int) bool {
	for _, r := range regions {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}

// ClassifyGeneratedRegions finds finally handlers that no visible sequence
// point maps into. Each becomes a region from the handler start to the
// endfinally that closes it.
func ClassifyGeneratedRegions(handlers []parser.ExceptionHandler, records []parser.SequencePointRecord, instrs []parser.Instruction) ([]Region, error) {
	var regions []Region

	for _, h := range handlers {
		if h.Kind != parser.HandlerFinally {
			continue
		}
		if hasVisibleRecord(records, h.HandlerStart, h.HandlerEnd) {
			continue
		}

		end, err := precedingEndFinally(instrs, h.HandlerEnd)
		if err != nil {
			return nil, err
		}
		regions = append(regions, Region{Start: h.HandlerStart, End: end})
	}

	return regions, nil
}

// hasVisibleRecord reports whether a non-hidden record starts in [start, end).
// A nil end extends the range to the end of the method.
func hasVisibleRecord(records []parser.SequencePointRecord, start int, end *int) bool {
	for _, r := range records {
		if r.StartLine == domain.HiddenLine && r.EndLine == domain.HiddenLine {
			continue
		}
		if r.Offset < start {
			continue
		}
		if end != nil && r.Offset >= *end {
			continue
		}
		return true
	}
	return false
}

// precedingEndFinally returns the offset of the instruction right before
// handlerEnd, which must be the endfinally closing the handler
func precedingEndFinally(instrs []parser.Instruction, handlerEnd *int) (int, error) {
	pos := len(instrs)
	if handlerEnd != nil {
		pos = -1
		for i, instr := range instrs {
			if instr.Offset == *handlerEnd {
				pos = i
				break
			}
		}
		if pos < 0 {
			return 0, domain.NewInvalidOperationError(
				fmt.Sprintf("handler end %d is not an instruction", *handlerEnd), nil)
		}
	}
	if pos == 0 {
		return 0, domain.NewInvalidOperationError("the previous instruction is not an endfinally", nil)
	}

	prev := instrs[pos-1]
	if !prev.IsEndFinally() {
		return 0, domain.NewInvalidOperationError(
			fmt.Sprintf("the previous instruction is not an endfinally: %s at offset %d", prev.OpCode, prev.Offset), nil)
	}
	return prev.Offset, nil
}
