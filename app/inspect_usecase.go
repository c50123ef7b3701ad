package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ludo-technologies/ucover/domain"
)

// InspectFormatter writes method debug views
type InspectFormatter interface {
	WriteInspect(response *domain.InspectResponse, format domain.OutputFormat, writer io.Writer) error
}

// InspectUseCase builds and prints debug views of methods in one dump
type InspectUseCase struct {
	service    domain.InspectService
	formatter  InspectFormatter
	fileHelper *FileHelper
}

// NewInspectUseCase creates a new inspect use case
func NewInspectUseCase(service domain.InspectService, formatter InspectFormatter) *InspectUseCase {
	return &InspectUseCase{
		service:    service,
		formatter:  formatter,
		fileHelper: NewFileHelper(""),
	}
}

// Execute inspects the dump and writes the result to req.OutputWriter
func (uc *InspectUseCase) Execute(ctx context.Context, req domain.InspectRequest) (*domain.InspectResponse, error) {
	if !KindDump.Accepts(req.DumpPath) {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("not a disassembly dump: %s", req.DumpPath), nil)
	}
	exists, err := uc.fileHelper.FileExists(req.DumpPath)
	if err != nil {
		return nil, domain.NewFileNotFoundError(req.DumpPath, err)
	}
	if !exists {
		return nil, domain.NewFileNotFoundError(req.DumpPath, fmt.Errorf("file does not exist"))
	}

	response, err := uc.service.Inspect(ctx, req)
	if err != nil {
		return nil, err
	}

	writer := req.OutputWriter
	if writer == nil {
		writer = os.Stdout
	}
	if err := uc.formatter.WriteInspect(response, req.OutputFormat, writer); err != nil {
		return nil, err
	}
	return response, nil
}
