package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatXML  OutputFormat = "xml"
	OutputFormatDOT  OutputFormat = "dot"
)

// SortCriteria represents the criteria for sorting report entries
type SortCriteria string

const (
	SortByName     SortCriteria = "name"
	SortByCoverage SortCriteria = "coverage"
)

// MethodErrorPolicy decides what happens when one method fails to build
type MethodErrorPolicy string

const (
	MethodErrorFail MethodErrorPolicy = "fail"
	MethodErrorSkip MethodErrorPolicy = "skip"
)

// ModelRequest asks for a project manifest built from disassembly dumps
type ModelRequest struct {
	// Input dumps or directories containing them
	Paths           []string
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	IgnoreFile      string

	// Output
	OutputPath   string
	OutputFormat OutputFormat

	// Assembly selection
	Filters                   []string
	DisableDefaultFilters     bool
	DefaultDisabledAssemblies []string
	TestFrameworkAssemblies   []string

	OnMethodError   MethodErrorPolicy
	SymbolsRequired bool

	// StrictParsing rejects dumps with fields the parser does not know
	StrictParsing bool

	// Concurrency, 0 picks a default
	MaxGoroutines  int
	TimeoutSeconds int

	ConfigPath string
}

// ModelStats summarizes a model build
type ModelStats struct {
	Assemblies        int `json:"assemblies" yaml:"assemblies"`
	SkippedAssemblies int `json:"skipped_assemblies" yaml:"skipped_assemblies"`
	Classes           int `json:"classes" yaml:"classes"`
	Methods           int `json:"methods" yaml:"methods"`
	FailedMethods     int `json:"failed_methods" yaml:"failed_methods"`
	Sections          int `json:"sections" yaml:"sections"`
	Conditions        int `json:"conditions" yaml:"conditions"`
	SequencePoints    int `json:"sequence_points" yaml:"sequence_points"`
}

// ModelResponse is the result of a model build
type ModelResponse struct {
	Project     *Project   `json:"project" yaml:"project"`
	Stats       ModelStats `json:"stats" yaml:"stats"`
	Warnings    []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors      []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
	GeneratedAt string     `json:"generated_at" yaml:"generated_at"`
	Version     string     `json:"version" yaml:"version"`
}

// ReportRequest asks for a coverage report from a project and its traces
type ReportRequest struct {
	ProjectPath string
	TracePaths  []string
	Recursive   bool
	IgnoreFile  string

	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string
	ShowDetails  bool
	SortBy       SortCriteria

	// StorePath accumulates hits in a SQLite database when set
	StorePath string

	// Strict fails on trace events that do not match the model
	Strict bool

	// Thresholds in percent, 0 disables
	FailUnderLine   float64
	FailUnderBranch float64

	MaxGoroutines  int
	TimeoutSeconds int

	ConfigPath string
}

// Summary holds coverage statistics at any level of the hierarchy
type Summary struct {
	NumSequencePoints       int     `json:"num_sequence_points" yaml:"num_sequence_points"`
	VisitedSequencePoints   int     `json:"visited_sequence_points" yaml:"visited_sequence_points"`
	NumBranchPoints         int     `json:"num_branch_points" yaml:"num_branch_points"`
	VisitedBranchPoints     int     `json:"visited_branch_points" yaml:"visited_branch_points"`
	SequenceCoverage        float64 `json:"sequence_coverage" yaml:"sequence_coverage"`
	BranchCoverage          float64 `json:"branch_coverage" yaml:"branch_coverage"`
	MinCyclomaticComplexity int     `json:"min_cyclomatic_complexity" yaml:"min_cyclomatic_complexity"`
	MaxCyclomaticComplexity int     `json:"max_cyclomatic_complexity" yaml:"max_cyclomatic_complexity"`
	NumClasses              int     `json:"num_classes" yaml:"num_classes"`
	VisitedClasses          int     `json:"visited_classes" yaml:"visited_classes"`
	NumMethods              int     `json:"num_methods" yaml:"num_methods"`
	VisitedMethods          int     `json:"visited_methods" yaml:"visited_methods"`
}

// SequencePointReport is a sequence point with its recorded visits
type SequencePointReport struct {
	SequencePoint     `yaml:",inline"`
	VisitCount        int64 `json:"visit_count" yaml:"visit_count"`
	BranchExitCount   int   `json:"branch_exit_count" yaml:"branch_exit_count"`
	BranchExitVisited int   `json:"branch_exit_visited" yaml:"branch_exit_visited"`
}

// BranchPointReport is a branching condition attached to a visible sequence point
type BranchPointReport struct {
	StartOffset int   `json:"start_offset" yaml:"start_offset"`
	EndOffset   int   `json:"end_offset" yaml:"end_offset"`
	VisitCount  int64 `json:"visit_count" yaml:"visit_count"`
	StartLine   int   `json:"start_line" yaml:"start_line"`
	FileID      *int  `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	Path        int   `json:"path" yaml:"path"`
}

// MethodReport is the coverage of one method
type MethodReport struct {
	Name            string                `json:"name" yaml:"name"`
	MethodID        int                   `json:"method_id" yaml:"method_id"`
	VisitCount      int64                 `json:"visit_count" yaml:"visit_count"`
	Summary         Summary               `json:"summary" yaml:"summary"`
	IsConstructor   bool                  `json:"is_constructor" yaml:"is_constructor"`
	NPathComplexity int                   `json:"npath_complexity" yaml:"npath_complexity"`
	FileRef         *int                  `json:"file_ref,omitempty" yaml:"file_ref,omitempty"`
	MethodPoint     *SequencePointReport  `json:"method_point,omitempty" yaml:"method_point,omitempty"`
	SequencePoints  []SequencePointReport `json:"sequence_points" yaml:"sequence_points"`
	BranchPoints    []BranchPointReport   `json:"branch_points" yaml:"branch_points"`
}

// ClassReport is the coverage of one class
type ClassReport struct {
	Name    string         `json:"name" yaml:"name"`
	Summary Summary        `json:"summary" yaml:"summary"`
	Methods []MethodReport `json:"methods" yaml:"methods"`
}

// ModuleReport is the coverage of one assembly
type ModuleReport struct {
	AssemblyID int           `json:"assembly_id" yaml:"assembly_id"`
	Hash       string        `json:"hash" yaml:"hash"`
	ModulePath string        `json:"module_path" yaml:"module_path"`
	ModuleTime string        `json:"module_time" yaml:"module_time"`
	ModuleName string        `json:"module_name" yaml:"module_name"`
	SkipReason SkipReason    `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Summary    *Summary      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Files      []SourceFile  `json:"files,omitempty" yaml:"files,omitempty"`
	Classes    []ClassReport `json:"classes,omitempty" yaml:"classes,omitempty"`
}

// IsSkipped reports whether the module was excluded
func (m *ModuleReport) IsSkipped() bool {
	return m.SkipReason.IsSkipped()
}

// ReplayStats describes how trace events were consumed
type ReplayStats struct {
	TraceFiles      int `json:"trace_files" yaml:"trace_files"`
	TestCases       int `json:"test_cases" yaml:"test_cases"`
	Events          int `json:"events" yaml:"events"`
	UnmatchedEvents int `json:"unmatched_events" yaml:"unmatched_events"`
}

// ReportResponse is the complete coverage report
type ReportResponse struct {
	ProjectID   string         `json:"project_id" yaml:"project_id"`
	Summary     Summary        `json:"summary" yaml:"summary"`
	Modules     []ModuleReport `json:"modules" yaml:"modules"`
	Replay      ReplayStats    `json:"replay" yaml:"replay"`
	Warnings    []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors      []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
	GeneratedAt string         `json:"generated_at" yaml:"generated_at"`
	Version     string         `json:"version" yaml:"version"`
}

// OffsetRange is an inclusive instruction offset range
type OffsetRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// InspectRequest asks for a debug view of methods in one dump
type InspectRequest struct {
	DumpPath     string
	MethodFilter string
	Legacy       bool
	ShowSource   bool
	// StrictParsing rejects dumps with fields the parser does not know
	StrictParsing bool
	OutputFormat  OutputFormat
	OutputWriter  io.Writer
}

// InstructionInfo is one instruction annotated with its section
type InstructionInfo struct {
	Offset    int    `json:"offset" yaml:"offset"`
	OpCode    string `json:"opcode" yaml:"opcode"`
	SectionID int    `json:"section_id" yaml:"section_id"`
}

// MethodInspection is the debug view of one method
type MethodInspection struct {
	Model              *Method           `json:"model" yaml:"model"`
	Instructions       []InstructionInfo `json:"instructions" yaml:"instructions"`
	GeneratedRegions   []OffsetRange     `json:"generated_regions,omitempty" yaml:"generated_regions,omitempty"`
	UnreachableOffsets []int             `json:"unreachable_offsets,omitempty" yaml:"unreachable_offsets,omitempty"`
	BranchingPoints    []ConditionKey    `json:"-" yaml:"-"`
	LegacySections     []CodeSection     `json:"legacy_sections,omitempty" yaml:"legacy_sections,omitempty"`
	LegacyError        string            `json:"legacy_error,omitempty" yaml:"legacy_error,omitempty"`
	SourceText         map[int]string    `json:"source_text,omitempty" yaml:"source_text,omitempty"`
	Error              string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// InspectResponse holds the inspected methods
type InspectResponse struct {
	Assembly string             `json:"assembly" yaml:"assembly"`
	Methods  []MethodInspection `json:"methods" yaml:"methods"`
	Warnings []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ModelService builds coverage models from disassembly dumps
type ModelService interface {
	BuildProject(ctx context.Context, dumpPaths []string, req ModelRequest) (*ModelResponse, error)
}

// ReportService replays traces against a project and computes coverage
type ReportService interface {
	Generate(ctx context.Context, project *Project, tracePaths []string, req ReportRequest) (*ReportResponse, error)
}

// InspectService builds debug views of methods
type InspectService interface {
	Inspect(ctx context.Context, req InspectRequest) (*InspectResponse, error)
}

// ReportFormatter writes coverage reports
type ReportFormatter interface {
	Write(response *ReportResponse, format OutputFormat, writer io.Writer) error
}

// ConfigurationLoader turns configuration files into requests
type ConfigurationLoader interface {
	// LoadModelRequest loads the model settings of the config at path,
	// discovering one from target when path is empty
	LoadModelRequest(path, target string) (*ModelRequest, error)

	// LoadReportRequest loads the report settings in the same way
	LoadReportRequest(path, target string) (*ReportRequest, error)

	// MergeModelRequest overlays explicitly set values of override on base
	MergeModelRequest(base, override *ModelRequest) *ModelRequest

	// MergeReportRequest overlays explicitly set values of override on base
	MergeReportRequest(base, override *ReportRequest) *ReportRequest
}

// ProjectStore persists project manifests
type ProjectStore interface {
	Save(project *Project, path string) error
	Load(path string) (*Project, error)
}
