package app

import (
	"context"
	"fmt"

	"github.com/ludo-technologies/ucover/domain"
)

// ModelUseCase collects dumps, builds the project and saves its manifest
type ModelUseCase struct {
	service    domain.ModelService
	store      domain.ProjectStore
	fileHelper *FileHelper
}

// NewModelUseCase creates a new model use case
func NewModelUseCase(service domain.ModelService, store domain.ProjectStore) *ModelUseCase {
	return &ModelUseCase{
		service:    service,
		store:      store,
		fileHelper: NewFileHelper(""),
	}
}

// Execute performs the complete model workflow. The manifest is written to
// req.OutputPath before the response is returned.
func (uc *ModelUseCase) Execute(ctx context.Context, req domain.ModelRequest) (*domain.ModelResponse, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	helper := uc.fileHelper
	if req.IgnoreFile != "" {
		helper = NewFileHelper(req.IgnoreFile)
	}
	files, err := ResolveFilePaths(helper, req.Paths, KindDump, req.Recursive, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, domain.NewFileNotFoundError("failed to collect dumps", err)
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no disassembly dumps found in the specified paths", nil)
	}

	response, err := uc.service.BuildProject(ctx, files, req)
	if err != nil {
		return nil, err
	}

	if err := uc.store.Save(response.Project, req.OutputPath); err != nil {
		return nil, err
	}
	return response, nil
}

func (uc *ModelUseCase) validateRequest(req domain.ModelRequest) error {
	if len(req.Paths) == 0 {
		return fmt.Errorf("no input paths specified")
	}
	if req.OutputPath == "" {
		return fmt.Errorf("no manifest path specified")
	}
	switch req.OnMethodError {
	case domain.MethodErrorFail, domain.MethodErrorSkip, "":
	default:
		return fmt.Errorf("unknown method error policy %q", req.OnMethodError)
	}
	return nil
}

// ModelUseCaseBuilder provides a builder pattern for creating ModelUseCase
type ModelUseCaseBuilder struct {
	service    domain.ModelService
	store      domain.ProjectStore
	fileHelper *FileHelper
}

// NewModelUseCaseBuilder creates a new builder
func NewModelUseCaseBuilder() *ModelUseCaseBuilder {
	return &ModelUseCaseBuilder{}
}

// WithService sets the model service
func (b *ModelUseCaseBuilder) WithService(service domain.ModelService) *ModelUseCaseBuilder {
	b.service = service
	return b
}

// WithStore sets the manifest store
func (b *ModelUseCaseBuilder) WithStore(store domain.ProjectStore) *ModelUseCaseBuilder {
	b.store = store
	return b
}

// WithFileHelper sets the file helper
func (b *ModelUseCaseBuilder) WithFileHelper(fileHelper *FileHelper) *ModelUseCaseBuilder {
	b.fileHelper = fileHelper
	return b
}

// Build creates the ModelUseCase with the configured dependencies
func (b *ModelUseCaseBuilder) Build() (*ModelUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("model service is required")
	}
	if b.store == nil {
		return nil, fmt.Errorf("project store is required")
	}

	uc := NewModelUseCase(b.service, b.store)
	if b.fileHelper != nil {
		uc.fileHelper = b.fileHelper
	}
	return uc, nil
}
