package analyzer

import (
	"github.com/ludo-technologies/ucover/domain"
)

// ExtractConditions derives the edges between code sections.
//
// raw are the sections before generated regions were merged and decide where
// conditions exist; final are the merged sections that StartSection and
// TargetSection refer to. Conditions touching a generated region are dropped.
// Exit conditions come first in section order, followed by entry conditions.
func ExtractConditions(raw, final []domain.CodeSection, g *Graph, regions []Region) []domain.Condition {
	if g == nil {
		return nil
	}

	seen := make(map[domain.ConditionKey]bool)
	conditions := make([]domain.Condition, 0)

	add := func(start, end int) {
		if InRegions(regions, start) || InRegions(regions, end) {
			return
		}
		key := domain.ConditionKey{Start: start, End: end}
		if seen[key] {
			return
		}
		seen[key] = true

		c := domain.Condition{StartOffset: start, EndOffset: end}
		if s, ok := SectionAt(final, start); ok {
			c.StartSection = s.ID
		}
		if s, ok := SectionAt(final, end); ok {
			c.TargetSection = s.ID
		}
		conditions = append(conditions, c)
	}

	for _, s := range raw {
		end := g.NodeAt(s.EndOffset)
		if end == nil || len(end.Exits) < 2 {
			continue
		}
		for _, exit := range g.ExitOffsets(end) {
			add(end.Offset, exit)
		}
	}

	for _, s := range raw {
		start := g.NodeAt(s.StartOffset)
		if start == nil || len(start.Entering) < 2 {
			continue
		}
		for _, entering := range g.EnteringOffsets(start) {
			add(entering, start.Offset)
		}
	}

	return conditions
}

// IsBranchingPoint reports whether another condition leaves the same offset
// for a different target
func IsBranchingPoint(c domain.Condition, all []domain.Condition) bool {
	for _, other := range all {
		if other.StartOffset == c.StartOffset && other.EndOffset != c.EndOffset {
			return true
		}
	}
	return false
}

// BranchingPoints returns the conditions that are branching points, in order
func BranchingPoints(all []domain.Condition) []domain.Condition {
	points := make([]domain.Condition, 0)
	for _, c := range all {
		if IsBranchingPoint(c, all) {
			points = append(points, c)
		}
	}
	return points
}
