package analyzer

import (
	"github.com/ludo-technologies/ucover/domain"
)

// MergeSections collapses runs of single-entry single-exit nodes into code
// sections. Nodes are visited in offset order and ids ascend from 0.
func MergeSections(g *Graph) []domain.CodeSection {
	if g == nil || g.Len() == 0 {
		return nil
	}

	order := g.Ordered()
	sections := make([]domain.CodeSection, 0)
	start := 0

	for i := range order {
		last := i == len(order)-1
		if !last && !isBreakPoint(g, order[i], order[i+1]) {
			continue
		}
		sections = append(sections, domain.CodeSection{
			ID:          len(sections),
			StartOffset: g.Nodes[order[start]].Offset,
			EndOffset:   g.Nodes[order[i]].Offset,
		})
		start = i + 1
	}

	return sections
}

// isBreakPoint reports whether a section must end at node end, given the node after it
func isBreakPoint(g *Graph, end, next int) bool {
	n := &g.Nodes[end]

	switch n.Kind {
	case NodeReturn, NodeThrow:
		return true
	case NodeBranching:
		if len(n.Exits) != 1 || n.Exits[0] != next {
			return true
		}
	}

	return len(g.Nodes[next].Entering) > 1
}

// MergeGeneratedSections folds every section that starts inside a generated
// region into the section before it, together with the first following
// section that lies outside the region. When that continuation is directly
// followed by another region the run keeps growing. Ids are renumbered from 0.
func MergeGeneratedSections(raw []domain.CodeSection, regions []Region) []domain.CodeSection {
	if len(regions) == 0 {
		return renumber(append([]domain.CodeSection(nil), raw...))
	}

	merged := make([]domain.CodeSection, 0, len(raw))
	absorbing := false
	startIndex := 0

	for i := 0; i < len(raw); i++ {
		nextGenerated := i+1 < len(raw) && InRegions(regions, raw[i+1].StartOffset)

		if absorbing {
			if nextGenerated {
				continue
			}
			end := i
			if i+1 < len(raw) {
				end = i + 1
				i++
			}
			// a region right after the continuation belongs to the same run
			if end+1 < len(raw) && InRegions(regions, raw[end+1].StartOffset) {
				continue
			}
			merged = append(merged, domain.CodeSection{
				StartOffset: raw[startIndex].StartOffset,
				EndOffset:   raw[end].EndOffset,
			})
			absorbing = false
			continue
		}

		if nextGenerated {
			absorbing = true
			startIndex = i
			continue
		}
		merged = append(merged, raw[i])
	}

	return renumber(merged)
}

func renumber(sections []domain.CodeSection) []domain.CodeSection {
	for i := range sections {
		sections[i].ID = i
	}
	return sections
}

// SectionAt returns the section containing offset using binary search
func SectionAt(sections []domain.CodeSection, offset int) (domain.CodeSection, bool) {
	lo, hi := 0, len(sections)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		s := sections[mid]
		switch {
		case offset < s.StartOffset:
			hi = mid - 1
		case offset > s.EndOffset:
			lo = mid + 1
		default:
			return s, true
		}
	}
	return domain.CodeSection{}, false
}
