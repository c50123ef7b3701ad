package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// InspectServiceImpl builds debug views of the methods in one dump
type InspectServiceImpl struct {
	sources *SourceReader
}

// NewInspectService creates an inspect service
func NewInspectService() *InspectServiceImpl {
	return &InspectServiceImpl{
		sources: NewSourceReader(),
	}
}

// Inspect models every method whose name contains req.MethodFilter.
// A method that fails to build is reported with its error, not dropped.
func (s *InspectServiceImpl) Inspect(ctx context.Context, req domain.InspectRequest) (*domain.InspectResponse, error) {
	dump, err := dumpParser(req.StrictParsing).ParseFile(req.DumpPath)
	if err != nil {
		return nil, domain.NewParseError(req.DumpPath, err)
	}

	files := analyzer.NewFileTable(nil)
	for ti := range dump.Types {
		for mi := range dump.Types[ti].Methods {
			files.RegisterMethod(&dump.Types[ti].Methods[mi])
		}
	}
	paths := make(map[int]string)
	for _, f := range files.Files() {
		paths[f.ID] = f.Path
	}

	response := &domain.InspectResponse{
		Assembly: dump.Name,
		Methods:  []domain.MethodInspection{},
	}

	for ti := range dump.Types {
		for mi := range dump.Types[ti].Methods {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			body := &dump.Types[ti].Methods[mi]
			if req.MethodFilter != "" && !strings.Contains(body.Name, req.MethodFilter) {
				continue
			}

			inspection := s.inspectMethod(body, files, req)
			if req.ShowSource && inspection.Model != nil {
				inspection.SourceText, response.Warnings = s.sourceText(inspection.Model, paths, response.Warnings)
			}
			response.Methods = append(response.Methods, inspection)
		}
	}

	if len(response.Methods) == 0 && req.MethodFilter != "" {
		return nil, domain.NewInvalidInputError("no method matches "+req.MethodFilter, nil)
	}
	return response, nil
}

func (s *InspectServiceImpl) inspectMethod(body *parser.MethodBody, files analyzer.FileResolver, req domain.InspectRequest) domain.MethodInspection {
	analysis, err := analyzer.AnalyzeMethod(body, files)
	if err != nil {
		logging.Logger().Debug("inspect: method build failed",
			zap.String("method", body.Name), zap.Error(err))
		return domain.MethodInspection{
			Model: &domain.Method{Name: body.Name, MethodID: body.Token, SkipReason: domain.SkipReasonBuildError},
			Error: err.Error(),
		}
	}

	m := analysis.Method
	inspection := domain.MethodInspection{
		Model:        m,
		Instructions: make([]domain.InstructionInfo, len(body.Instructions)),
	}

	for i, instr := range body.Instructions {
		id := -1
		if sec, ok := analyzer.SectionAt(m.Sections, instr.Offset); ok {
			id = sec.ID
		}
		inspection.Instructions[i] = domain.InstructionInfo{Offset: instr.Offset, OpCode: instr.OpCode, SectionID: id}
	}

	for _, r := range analysis.Regions {
		inspection.GeneratedRegions = append(inspection.GeneratedRegions, domain.OffsetRange{Start: r.Start, End: r.End})
	}
	inspection.UnreachableOffsets = analyzer.Reachability(analysis.Graph).Unreachable

	for _, c := range analyzer.BranchingPoints(m.Conditions) {
		inspection.BranchingPoints = append(inspection.BranchingPoints, c.Key())
	}

	if req.Legacy {
		legacy, err := analyzer.DeriveLegacySections(m.Conditions, body.Instructions, analysis.Regions)
		switch {
		case err != nil:
			inspection.LegacyError = err.Error()
		case !analyzer.SectionsAgree(legacy, m.Sections):
			inspection.LegacySections = legacy
			inspection.LegacyError = "legacy sections disagree with the merged sections"
		default:
			inspection.LegacySections = legacy
		}
	}
	return inspection
}

// sourceText reads the text of each visible point, keyed by point id
func (s *InspectServiceImpl) sourceText(m *domain.Method, paths map[int]string, warnings []string) (map[int]string, []string) {
	text := make(map[int]string)
	for _, sp := range m.VisibleSequencePoints() {
		if sp.FileID == nil {
			continue
		}
		path := paths[*sp.FileID]
		t, err := s.sources.Text(path, sp)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		text[sp.ID] = t
	}
	return text, warnings
}

var _ domain.InspectService = (*InspectServiceImpl)(nil)
