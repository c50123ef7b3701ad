package coverage

import (
	"math"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
)

// CalculateCoverage returns visited/total as a percentage rounded to two
// decimals, 0 when total is 0
func CalculateCoverage(visited, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(visited)/float64(total)*10000) / 100
}

// Builder turns a project and its hit table into report entries
type Builder struct {
	project *domain.Project
	hits    *HitTable
}

// NewBuilder creates a report builder
func NewBuilder(project *domain.Project, hits *HitTable) *Builder {
	return &Builder{project: project, hits: hits}
}

// Build returns the project summary and one module report per assembly
func (b *Builder) Build() (domain.Summary, []domain.ModuleReport) {
	modules := make([]domain.ModuleReport, 0, len(b.project.Assemblies))
	var summaries []domain.Summary

	for _, asm := range b.project.Assemblies {
		module := b.Module(asm)
		if module.Summary != nil {
			summaries = append(summaries, *module.Summary)
		}
		modules = append(modules, module)
	}
	return rollup(summaries, false), modules
}

// Module builds the report of one assembly. Skipped assemblies carry
// their identity only.
func (b *Builder) Module(asm *domain.Assembly) domain.ModuleReport {
	module := domain.ModuleReport{
		AssemblyID: asm.AssemblyID,
		Hash:       asm.Hash,
		ModulePath: asm.Paths.OriginalAssemblyPath,
		ModuleName: asm.ShortName(),
		SkipReason: asm.SkipReason,
	}
	if asm.IsSkipped() {
		return module
	}

	var summaries []domain.Summary
	for _, class := range asm.Classes {
		report := b.Class(asm.AssemblyID, class)
		if !class.IsSkipped() {
			summaries = append(summaries, report.Summary)
		}
		module.Classes = append(module.Classes, report)
	}

	summary := rollup(summaries, false)
	module.Summary = &summary
	module.Files = asm.Files
	return module
}

// Class builds the report of one class
func (b *Builder) Class(assemblyID int, class *domain.Class) domain.ClassReport {
	report := domain.ClassReport{Name: class.Name}

	var summaries []domain.Summary
	for _, m := range class.Methods {
		mr := b.Method(assemblyID, m)
		if !m.IsSkipped() {
			summaries = append(summaries, mr.Summary)
		}
		report.Methods = append(report.Methods, mr)
	}

	report.Summary = rollup(summaries, true)
	return report
}

// Method builds the report of one method
func (b *Builder) Method(assemblyID int, m *domain.Method) domain.MethodReport {
	visits := b.hits.Count(MethodKey(assemblyID, m.MethodID))
	report := domain.MethodReport{
		Name:          m.Name,
		MethodID:      m.MethodID,
		VisitCount:    visits,
		IsConstructor: m.IsConstructor(),
	}

	visible := m.VisibleSequencePoints()
	report.SequencePoints = make([]domain.SequencePointReport, len(visible))
	byID := make(map[int]int, len(visible))
	for i, sp := range visible {
		report.SequencePoints[i] = domain.SequencePointReport{
			SequencePoint: sp,
			VisitCount:    b.hits.Count(SequencePointKey(assemblyID, m.MethodID, sp.ID)),
		}
		byID[sp.ID] = i
	}

	if len(m.SequencePoints) > 0 {
		first := m.SequencePoints[0]
		point := domain.SequencePointReport{
			SequencePoint: first,
			VisitCount:    b.hits.Count(SequencePointKey(assemblyID, m.MethodID, first.ID)),
		}
		if point.VisitCount == 0 {
			point.VisitCount = visits
		}
		report.MethodPoint = &point
		report.FileRef = first.FileID
	}

	report.BranchPoints = []domain.BranchPointReport{}
	for i, c := range m.Conditions {
		if !analyzer.IsBranchingPoint(c, m.Conditions) {
			continue
		}
		sp, ok := ClosestVisiblePoint(m.SequencePoints, c.StartOffset)
		if !ok {
			continue
		}
		bp := domain.BranchPointReport{
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			VisitCount:  b.hits.Count(ConditionKey(assemblyID, m.MethodID, i)),
			StartLine:   sp.StartLine,
			FileID:      sp.FileID,
		}
		report.BranchPoints = append(report.BranchPoints, bp)

		if j, ok := byID[sp.ID]; ok {
			report.SequencePoints[j].BranchExitCount++
			if bp.VisitCount > 0 {
				report.SequencePoints[j].BranchExitVisited++
			}
		}
	}

	report.Summary = b.methodSummary(assemblyID, m, visits, report.SequencePoints)
	return report
}

// methodSummary counts sections as branch points. The BranchPoint entries of
// a method are its branching conditions, a different unit, so numBranchPoints
// and the number of entries are not expected to match.
func (b *Builder) methodSummary(assemblyID int, m *domain.Method, visits int64, points []domain.SequencePointReport) domain.Summary {
	s := domain.Summary{
		NumSequencePoints: len(points),
		NumBranchPoints:   len(m.Sections),
	}
	if s.NumSequencePoints > 0 {
		s.NumMethods = 1
	}
	if s.NumMethods > 0 && visits > 0 {
		s.VisitedMethods = 1
	}
	for _, p := range points {
		if p.VisitCount > 0 {
			s.VisitedSequencePoints++
		}
	}
	for _, section := range m.Sections {
		if b.hits.Count(SectionKey(assemblyID, m.MethodID, section.ID)) > 0 {
			s.VisitedBranchPoints++
		}
	}

	cc, _ := analyzer.ReportedComplexity(m)
	s.MinCyclomaticComplexity = cc
	s.MaxCyclomaticComplexity = cc
	s.SequenceCoverage = CalculateCoverage(s.VisitedSequencePoints, s.NumSequencePoints)
	s.BranchCoverage = CalculateCoverage(s.VisitedBranchPoints, s.NumBranchPoints)
	return s
}

// ClosestVisiblePoint returns the visible point at or before the first
// point whose span contains offset. points must be in offset order.
func ClosestVisiblePoint(points []domain.SequencePoint, offset int) (domain.SequencePoint, bool) {
	for i, sp := range points {
		if !sp.Contains(offset) {
			continue
		}
		for j := i; j >= 0; j-- {
			if !points[j].IsHidden() {
				return points[j], true
			}
		}
		return domain.SequencePoint{}, false
	}
	return domain.SequencePoint{}, false
}

// rollup sums child summaries. At class level the class counts are
// derived from the method counts; above it they are summed.
func rollup(children []domain.Summary, classLevel bool) domain.Summary {
	var s domain.Summary
	for i, c := range children {
		s.NumSequencePoints += c.NumSequencePoints
		s.VisitedSequencePoints += c.VisitedSequencePoints
		s.NumBranchPoints += c.NumBranchPoints
		s.VisitedBranchPoints += c.VisitedBranchPoints
		s.NumMethods += c.NumMethods
		s.VisitedMethods += c.VisitedMethods
		s.NumClasses += c.NumClasses
		s.VisitedClasses += c.VisitedClasses

		if i == 0 || c.MinCyclomaticComplexity < s.MinCyclomaticComplexity {
			s.MinCyclomaticComplexity = c.MinCyclomaticComplexity
		}
		if c.MaxCyclomaticComplexity > s.MaxCyclomaticComplexity {
			s.MaxCyclomaticComplexity = c.MaxCyclomaticComplexity
		}
	}

	if classLevel {
		s.NumClasses, s.VisitedClasses = 0, 0
		if s.NumMethods > 0 {
			s.NumClasses = 1
		}
		if s.VisitedMethods > 0 {
			s.VisitedClasses = 1
		}
	}

	s.SequenceCoverage = CalculateCoverage(s.VisitedSequencePoints, s.NumSequencePoints)
	s.BranchCoverage = CalculateCoverage(s.VisitedBranchPoints, s.NumBranchPoints)
	return s
}
