package service

import (
	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/config"
)

// ConfigurationLoaderImpl turns ucover config files into requests
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads and validates the config at path, discovering one from
// target when path is empty
func (c *ConfigurationLoaderImpl) LoadConfig(path, target string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithTarget(path, target)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return cfg, nil
}

// LoadModelRequest implements domain.ConfigurationLoader
func (c *ConfigurationLoaderImpl) LoadModelRequest(path, target string) (*domain.ModelRequest, error) {
	cfg, err := c.LoadConfig(path, target)
	if err != nil {
		return nil, err
	}
	req := ModelRequestFromConfig(cfg)
	req.ConfigPath = path
	return req, nil
}

// LoadReportRequest implements domain.ConfigurationLoader
func (c *ConfigurationLoaderImpl) LoadReportRequest(path, target string) (*domain.ReportRequest, error) {
	cfg, err := c.LoadConfig(path, target)
	if err != nil {
		return nil, err
	}
	req := ReportRequestFromConfig(cfg)
	req.ConfigPath = path
	return req, nil
}

// ModelRequestFromConfig converts the model, input and performance sections
func ModelRequestFromConfig(cfg *config.Config) *domain.ModelRequest {
	return &domain.ModelRequest{
		Paths:           []string{},
		Recursive:       cfg.Input.Recursive,
		IncludePatterns: cfg.Input.IncludePatterns,
		ExcludePatterns: cfg.Input.ExcludePatterns,
		IgnoreFile:      cfg.Input.IgnoreFile,

		OutputFormat: domain.OutputFormatJSON,

		Filters:                   cfg.Model.Filters,
		DisableDefaultFilters:     cfg.Model.DisableDefaultFilters,
		DefaultDisabledAssemblies: cfg.Model.DefaultDisabledAssemblies,
		TestFrameworkAssemblies:   cfg.Model.TestFrameworkAssemblies,
		OnMethodError:             domain.MethodErrorPolicy(cfg.Model.OnMethodError),
		SymbolsRequired:           cfg.Model.SymbolsRequired,

		MaxGoroutines:  cfg.Performance.MaxGoroutines,
		TimeoutSeconds: cfg.Performance.TimeoutSeconds,
	}
}

// ReportRequestFromConfig converts the report, output and performance sections
func ReportRequestFromConfig(cfg *config.Config) *domain.ReportRequest {
	return &domain.ReportRequest{
		TracePaths: []string{},
		Recursive:  cfg.Input.Recursive,
		IgnoreFile: cfg.Input.IgnoreFile,

		OutputFormat: domain.OutputFormat(cfg.Report.Format),
		OutputPath:   cfg.Report.Output,
		ShowDetails:  cfg.Output.ShowDetails,
		SortBy:       domain.SortCriteria(cfg.Output.SortBy),

		StorePath: cfg.Report.Store,
		Strict:    cfg.Report.Strict,

		FailUnderLine:   cfg.Report.FailUnderLine,
		FailUnderBranch: cfg.Report.FailUnderBranch,

		MaxGoroutines:  cfg.Performance.MaxGoroutines,
		TimeoutSeconds: cfg.Performance.TimeoutSeconds,
	}
}

// MergeModelRequest overlays non-zero values of override on base.
// Boolean switches can only be turned on by the override.
func (c *ConfigurationLoaderImpl) MergeModelRequest(base, override *domain.ModelRequest) *domain.ModelRequest {
	merged := *base

	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	if len(override.IncludePatterns) > 0 {
		merged.IncludePatterns = override.IncludePatterns
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}
	if override.IgnoreFile != "" {
		merged.IgnoreFile = override.IgnoreFile
	}
	if override.OutputPath != "" {
		merged.OutputPath = override.OutputPath
	}
	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}

	// filters from flags add to the configured ones
	if len(override.Filters) > 0 {
		merged.Filters = append(append([]string{}, base.Filters...), override.Filters...)
	}
	if override.DisableDefaultFilters {
		merged.DisableDefaultFilters = true
	}
	if override.StrictParsing {
		merged.StrictParsing = true
	}
	if override.OnMethodError != "" {
		merged.OnMethodError = override.OnMethodError
	}
	if override.MaxGoroutines > 0 {
		merged.MaxGoroutines = override.MaxGoroutines
	}
	if override.TimeoutSeconds > 0 {
		merged.TimeoutSeconds = override.TimeoutSeconds
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}
	return &merged
}

// MergeReportRequest overlays non-zero values of override on base
func (c *ConfigurationLoaderImpl) MergeReportRequest(base, override *domain.ReportRequest) *domain.ReportRequest {
	merged := *base

	if override.ProjectPath != "" {
		merged.ProjectPath = override.ProjectPath
	}
	if len(override.TracePaths) > 0 {
		merged.TracePaths = override.TracePaths
	}
	if override.IgnoreFile != "" {
		merged.IgnoreFile = override.IgnoreFile
	}
	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.OutputPath != "" {
		merged.OutputPath = override.OutputPath
	}
	if override.ShowDetails {
		merged.ShowDetails = true
	}
	if override.SortBy != "" {
		merged.SortBy = override.SortBy
	}
	if override.StorePath != "" {
		merged.StorePath = override.StorePath
	}
	if override.Strict {
		merged.Strict = true
	}
	if override.FailUnderLine > 0 {
		merged.FailUnderLine = override.FailUnderLine
	}
	if override.FailUnderBranch > 0 {
		merged.FailUnderBranch = override.FailUnderBranch
	}
	if override.MaxGoroutines > 0 {
		merged.MaxGoroutines = override.MaxGoroutines
	}
	if override.TimeoutSeconds > 0 {
		merged.TimeoutSeconds = override.TimeoutSeconds
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}
	return &merged
}

var _ domain.ConfigurationLoader = (*ConfigurationLoaderImpl)(nil)
