package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
	"github.com/ludo-technologies/ucover/internal/config"
	"github.com/ludo-technologies/ucover/internal/coverage"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/store"
	"github.com/ludo-technologies/ucover/internal/trace"
	"github.com/ludo-technologies/ucover/internal/version"
)

// ReportServiceImpl replays trace files against a project manifest
type ReportServiceImpl struct {
	progress domain.ProgressManager
}

// NewReportService creates a report service; pm may be nil
func NewReportService(pm domain.ProgressManager) *ReportServiceImpl {
	if pm == nil {
		pm = &NoOpProgressManager{}
	}
	return &ReportServiceImpl{progress: pm}
}

// Generate replays every trace file, optionally folds the hits into the
// SQLite store, and builds the report
func (s *ReportServiceImpl) Generate(ctx context.Context, project *domain.Project, tracePaths []string, req domain.ReportRequest) (*domain.ReportResponse, error) {
	if project == nil {
		return nil, domain.NewInvalidInputError("project is nil", nil)
	}

	hits := coverage.NewHitTable()
	replayer := coverage.NewReplayer(project, hits, req.Strict)

	var mu sync.Mutex
	var warnings []string
	warn := func(msg string) {
		mu.Lock()
		warnings = append(warnings, msg)
		mu.Unlock()
	}

	executor := NewParallelExecutorWithProgress(&config.PerformanceConfig{
		MaxGoroutines:  req.MaxGoroutines,
		TimeoutSeconds: req.TimeoutSeconds,
	}, s.progress, "Replaying traces")

	err := executor.Execute(ctx, fileTasks(tracePaths, func(ctx context.Context, path string) error {
		header, summaries, err := trace.ReadFile(path)
		if err != nil {
			return err
		}
		if header.ProjectPath != "" && project.ProjectPath != "" && !sameProject(header.ProjectPath, project.ProjectPath) {
			warn(fmt.Sprintf("%s was recorded for %s", path, header.ProjectPath))
		}
		for _, summary := range summaries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := replayer.Replay(summary); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return nil, domain.NewReplayError("failed to replay traces", err)
	}

	stats := replayer.Stats()
	stats.TraceFiles = len(tracePaths)
	if stats.UnmatchedEvents > 0 {
		warnings = append(warnings, fmt.Sprintf("%d trace events did not match the project model", stats.UnmatchedEvents))
	}

	if req.StorePath != "" {
		if err := accumulate(req.StorePath, project.ProjectID, hits, stats.TestCases); err != nil {
			return nil, err
		}
	}

	summary, modules := coverage.NewBuilder(project, hits).Build()
	SortModules(modules, req.SortBy)
	stampModuleTimes(modules)

	if _, computed := analyzer.ReportedComplexity(&domain.Method{}); !computed && summary.NumMethods > 0 {
		warnings = append(warnings, fmt.Sprintf("cyclomatic complexity is not computed, reported as %d", analyzer.ComplexityFloor))
	}

	logging.Logger().Info("coverage report built",
		zap.String("project_id", project.ProjectID),
		zap.Int("trace_files", stats.TraceFiles),
		zap.Int("test_cases", stats.TestCases),
		zap.Int("events", stats.Events),
		zap.Float64("sequence_coverage", summary.SequenceCoverage),
		zap.Float64("branch_coverage", summary.BranchCoverage))

	sort.Strings(warnings)
	return &domain.ReportResponse{
		ProjectID:   project.ProjectID,
		Summary:     summary,
		Modules:     modules,
		Replay:      stats,
		Warnings:    warnings,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.GetVersion(),
	}, nil
}

// accumulate merges this run into the store and loads the totals back
func accumulate(path, projectID string, hits *coverage.HitTable, testCases int) error {
	hitStore, err := store.Open(path)
	if err != nil {
		return domain.NewOutputError("failed to open hit store", err)
	}
	defer hitStore.Close()

	if err := hitStore.Accumulate(projectID, hits, testCases); err != nil {
		return domain.NewOutputError("failed to accumulate hits", err)
	}
	return nil
}

// SortModules orders modules and their classes by name or by ascending
// sequence coverage. Skipped modules go last.
func SortModules(modules []domain.ModuleReport, by domain.SortCriteria) {
	sort.SliceStable(modules, func(i, j int) bool {
		a, b := modules[i], modules[j]
		if a.IsSkipped() != b.IsSkipped() {
			return !a.IsSkipped()
		}
		if by == domain.SortByCoverage && a.Summary != nil && b.Summary != nil &&
			a.Summary.SequenceCoverage != b.Summary.SequenceCoverage {
			return a.Summary.SequenceCoverage < b.Summary.SequenceCoverage
		}
		return a.ModuleName < b.ModuleName
	})

	for mi := range modules {
		classes := modules[mi].Classes
		sort.SliceStable(classes, func(i, j int) bool {
			if by == domain.SortByCoverage && classes[i].Summary.SequenceCoverage != classes[j].Summary.SequenceCoverage {
				return classes[i].Summary.SequenceCoverage < classes[j].Summary.SequenceCoverage
			}
			return classes[i].Name < classes[j].Name
		})
	}
}

// stampModuleTimes sets ModuleTime from the binary's modification time
func stampModuleTimes(modules []domain.ModuleReport) {
	for i := range modules {
		if info, err := os.Stat(modules[i].ModulePath); err == nil {
			modules[i].ModuleTime = info.ModTime().UTC().Format(time.RFC3339)
		}
	}
}

func sameProject(a, b string) bool {
	return strings.EqualFold(cleanPath(a), cleanPath(b))
}

func cleanPath(p string) string {
	return strings.TrimSuffix(strings.ReplaceAll(p, "\\", "/"), "/")
}

var _ domain.ReportService = (*ReportServiceImpl)(nil)
