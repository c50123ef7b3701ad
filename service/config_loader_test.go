package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
)

func TestConfigurationLoader_LoadModelRequest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ucover.yaml")
	content := `
model:
  filters:
    - "-[Sample]Sample.Generated.*"
  on_method_error: skip
  symbols_required: false
performance:
  max_goroutines: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	req, err := NewConfigurationLoader().LoadModelRequest(path, dir)
	if err != nil {
		t.Fatalf("LoadModelRequest failed: %v", err)
	}
	if req.OnMethodError != domain.MethodErrorSkip {
		t.Errorf("expected skip policy, got %s", req.OnMethodError)
	}
	if req.SymbolsRequired {
		t.Error("symbols_required should be false")
	}
	if len(req.Filters) != 1 || req.MaxGoroutines != 3 {
		t.Errorf("unexpected request %+v", req)
	}
	if req.ConfigPath != path {
		t.Errorf("expected config path %s, got %s", path, req.ConfigPath)
	}
}

func TestConfigurationLoader_LoadReportRequest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ucover.yaml")
	content := `
report:
  format: xml
  fail_under_branch: 60
  strict: true
output:
  sort_by: coverage
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	req, err := NewConfigurationLoader().LoadReportRequest(path, dir)
	if err != nil {
		t.Fatalf("LoadReportRequest failed: %v", err)
	}
	if req.OutputFormat != domain.OutputFormatXML || !req.Strict {
		t.Errorf("unexpected request %+v", req)
	}
	if req.FailUnderBranch != 60 || req.SortBy != domain.SortByCoverage {
		t.Errorf("unexpected thresholds or sort %+v", req)
	}
}

func TestConfigurationLoader_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ucover.yaml")
	if err := os.WriteFile(path, []byte("model:\n  filters: [\"[a]b\"]\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := NewConfigurationLoader().LoadModelRequest(path, dir)
	if !domain.IsConfigError(err) {
		t.Errorf("expected a config error, got %v", err)
	}
}

func TestConfigurationLoader_MergeModelRequest(t *testing.T) {
	loader := NewConfigurationLoader()
	base := &domain.ModelRequest{
		Filters:       []string{"-[Sample]Sample.Generated.*"},
		OnMethodError: domain.MethodErrorFail,
		MaxGoroutines: 4,
		OutputFormat:  domain.OutputFormatJSON,
	}
	override := &domain.ModelRequest{
		Paths:                 []string{"dumps"},
		Filters:               []string{"+[System.Core]*"},
		DisableDefaultFilters: true,
		StrictParsing:         true,
		OutputPath:            "project.yaml",
	}

	merged := loader.MergeModelRequest(base, override)

	if len(merged.Filters) != 2 || merged.Filters[1] != "+[System.Core]*" {
		t.Errorf("flag filters should follow configured ones, got %v", merged.Filters)
	}
	if !merged.DisableDefaultFilters || !merged.StrictParsing || merged.OutputPath != "project.yaml" {
		t.Errorf("override values missing: %+v", merged)
	}
	if merged.OnMethodError != domain.MethodErrorFail || merged.MaxGoroutines != 4 {
		t.Errorf("unset override values should keep the base: %+v", merged)
	}
	if len(base.Filters) != 1 {
		t.Error("merge must not modify the base request")
	}
}

func TestConfigurationLoader_MergeReportRequest(t *testing.T) {
	loader := NewConfigurationLoader()
	base := &domain.ReportRequest{
		OutputFormat:  domain.OutputFormatText,
		FailUnderLine: 80,
		SortBy:        domain.SortByName,
	}
	override := &domain.ReportRequest{
		ProjectPath:  "project.json",
		TracePaths:   []string{"traces"},
		OutputFormat: domain.OutputFormatXML,
		Strict:       true,
	}

	merged := loader.MergeReportRequest(base, override)

	if merged.ProjectPath != "project.json" || merged.OutputFormat != domain.OutputFormatXML {
		t.Errorf("override values missing: %+v", merged)
	}
	if !merged.Strict || merged.FailUnderLine != 80 || merged.SortBy != domain.SortByName {
		t.Errorf("unexpected merge result: %+v", merged)
	}
}
