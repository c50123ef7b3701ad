package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/ucover/domain"
)

// DetailedReportFormatter is a formatter that can list classes and methods
type DetailedReportFormatter interface {
	domain.ReportFormatter
	WriteDetailed(response *domain.ReportResponse, format domain.OutputFormat, writer io.Writer) error
}

// ReportUseCase loads a project, replays its traces and writes the report
type ReportUseCase struct {
	service    domain.ReportService
	store      domain.ProjectStore
	formatter  domain.ReportFormatter
	fileHelper *FileHelper
}

// NewReportUseCase creates a new report use case
func NewReportUseCase(service domain.ReportService, store domain.ProjectStore, formatter domain.ReportFormatter) *ReportUseCase {
	return &ReportUseCase{
		service:    service,
		store:      store,
		formatter:  formatter,
		fileHelper: NewFileHelper(""),
	}
}

// Execute performs the complete report workflow. Without trace paths the
// directory of the manifest is searched.
func (uc *ReportUseCase) Execute(ctx context.Context, req domain.ReportRequest) (*domain.ReportResponse, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	project, err := uc.store.Load(req.ProjectPath)
	if err != nil {
		return nil, err
	}

	tracePaths := req.TracePaths
	if len(tracePaths) == 0 {
		tracePaths = []string{filepath.Dir(req.ProjectPath)}
	}
	helper := uc.fileHelper
	if req.IgnoreFile != "" {
		helper = NewFileHelper(req.IgnoreFile)
	}
	traces, err := helper.CollectFiles(tracePaths, KindTrace, req.Recursive, nil, nil)
	if err != nil {
		return nil, domain.NewFileNotFoundError("failed to collect trace files", err)
	}

	response, err := uc.service.Generate(ctx, project, traces, req)
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		response.Warnings = append(response.Warnings, "no trace files found, every method is reported as not visited")
	}

	if err := uc.writeReport(response, req); err != nil {
		return nil, err
	}
	return response, nil
}

// Check compares the report with the request thresholds
func (uc *ReportUseCase) Check(response *domain.ReportResponse, req domain.ReportRequest, exitCode int) *domain.CheckResult {
	return domain.CheckThresholds(response.Summary, req.FailUnderLine, req.FailUnderBranch, exitCode)
}

func (uc *ReportUseCase) writeReport(response *domain.ReportResponse, req domain.ReportRequest) error {
	writer := req.OutputWriter
	if req.OutputPath != "" {
		if dir := filepath.Dir(req.OutputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return domain.NewOutputError("failed to create report directory", err)
			}
		}
		f, err := os.Create(req.OutputPath)
		if err != nil {
			return domain.NewOutputError(fmt.Sprintf("failed to create %s", req.OutputPath), err)
		}
		defer f.Close()
		writer = f
	}
	if writer == nil {
		writer = os.Stdout
	}

	if detailed, ok := uc.formatter.(DetailedReportFormatter); ok && req.ShowDetails {
		return detailed.WriteDetailed(response, req.OutputFormat, writer)
	}
	return uc.formatter.Write(response, req.OutputFormat, writer)
}

func (uc *ReportUseCase) validateRequest(req domain.ReportRequest) error {
	if req.ProjectPath == "" {
		return fmt.Errorf("no project manifest specified")
	}
	if req.FailUnderLine < 0 || req.FailUnderLine > 100 {
		return fmt.Errorf("line threshold must be between 0 and 100")
	}
	if req.FailUnderBranch < 0 || req.FailUnderBranch > 100 {
		return fmt.Errorf("branch threshold must be between 0 and 100")
	}
	return nil
}
