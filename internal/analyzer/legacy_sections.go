package analyzer

import (
	"fmt"
	"sort"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// DeriveLegacySections rebuilds sections from condition offsets alone.
// Starts are condition targets plus the first instruction; ends are
// condition starts plus every return or throw outside a generated region.
// The two lists must pair up one to one.
func DeriveLegacySections(conditions []domain.Condition, instrs []parser.Instruction, regions []Region) ([]domain.CodeSection, error) {
	if len(instrs) == 0 {
		return nil, domain.NewInvalidInputError("cannot derive sections from empty method body", nil)
	}

	starts := map[int]bool{instrs[0].Offset: true}
	ends := map[int]bool{}

	for _, c := range conditions {
		starts[c.EndOffset] = true
		ends[c.StartOffset] = true
	}
	for _, instr := range instrs {
		if instr.Flow != parser.FlowReturn && instr.Flow != parser.FlowThrow {
			continue
		}
		if InRegions(regions, instr.Offset) {
			continue
		}
		ends[instr.Offset] = true
	}

	startOffsets := sortedKeys(starts)
	endOffsets := sortedKeys(ends)
	if len(startOffsets) != len(endOffsets) {
		return nil, domain.NewInvalidOperationError(
			fmt.Sprintf("the start and the end offset count is not equal: %d starts, %d ends",
				len(startOffsets), len(endOffsets)), nil)
	}

	sections := make([]domain.CodeSection, len(startOffsets))
	for i := range startOffsets {
		sections[i] = domain.CodeSection{ID: i, StartOffset: startOffsets[i], EndOffset: endOffsets[i]}
	}
	return sections, nil
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// SectionsAgree reports whether two section lists describe the same ranges
func SectionsAgree(a, b []domain.CodeSection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StartOffset != b[i].StartOffset || a[i].EndOffset != b[i].EndOffset {
			return false
		}
	}
	return true
}
