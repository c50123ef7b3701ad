package analyzer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// MethodAnalysis keeps the intermediate products of a method build
type MethodAnalysis struct {
	Graph       *Graph
	Regions     []Region
	RawSections []domain.CodeSection
	Method      *domain.Method
}

// BuildMethod builds the coverage model of one method body.
// It either returns a complete model or an error, never a partial model.
func BuildMethod(body *parser.MethodBody, files FileResolver) (*domain.Method, error) {
	analysis, err := AnalyzeMethod(body, files)
	if err != nil {
		return nil, err
	}
	return analysis.Method, nil
}

// AnalyzeMethod runs the full pipeline and keeps every intermediate result
func AnalyzeMethod(body *parser.MethodBody, files FileResolver) (*MethodAnalysis, error) {
	if body == nil {
		return nil, domain.NewInvalidInputError("method body is nil", nil)
	}

	roots := make([]int, 0, len(body.Handlers))
	for _, h := range body.Handlers {
		roots = append(roots, h.HandlerStart)
	}

	g, err := NewGraphBuilder().BuildWithRoots(body.Instructions, roots)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", body.Name, err)
	}

	regions, err := ClassifyGeneratedRegions(body.Handlers, body.SequencePoints, body.Instructions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", body.Name, err)
	}

	raw := MergeSections(g)
	final := MergeGeneratedSections(raw, regions)
	conditions := ExtractConditions(raw, final, g, regions)
	points := MapSequencePoints(body.SequencePoints, body.Offsets(), files)

	logging.Logger().Debug("method model built",
		zap.String("method", body.Name),
		zap.Int("sections", len(final)),
		zap.Int("conditions", len(conditions)),
		zap.Int("sequence_points", len(points)),
		zap.Int("generated_regions", len(regions)))

	return &MethodAnalysis{
		Graph:       g,
		Regions:     regions,
		RawSections: raw,
		Method: &domain.Method{
			Name:           body.Name,
			MethodID:       body.Token,
			Sections:       final,
			Conditions:     conditions,
			SequencePoints: points,
			SkipReason:     domain.SkipReasonNone,
		},
	}, nil
}
