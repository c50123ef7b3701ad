package config

import (
	"strconv"
	"strings"
)

// Framework represents the test framework the instrumented tests run under
type Framework string

const (
	FrameworkGeneric Framework = "generic"
	FrameworkNUnit   Framework = "nunit"
	FrameworkXUnit   Framework = "xunit"
	FrameworkMSTest  Framework = "mstest"
)

// Strictness represents how much coverage a run must reach
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// FrameworkPreset holds configuration presets for different test frameworks
type FrameworkPreset struct {
	TestFrameworkAssemblies []string
	Filters                 []string
}

// StrictnessPreset holds threshold values for different strictness levels
type StrictnessPreset struct {
	FailUnderLine   float64
	FailUnderBranch float64
}

// GetFrameworkPresets returns presets for different test frameworks
func GetFrameworkPresets() map[Framework]FrameworkPreset {
	return map[Framework]FrameworkPreset{
		FrameworkGeneric: {
			TestFrameworkAssemblies: []string{
				"NUnit3.TestAdapter",
				"nunit.framework",
				"xunit",
				"Microsoft.VisualStudio.TestPlatform",
			},
			Filters: []string{},
		},
		FrameworkNUnit: {
			TestFrameworkAssemblies: []string{
				"NUnit3.TestAdapter",
				"nunit.framework",
				"nunit.engine",
			},
			Filters: []string{"-[*.Tests]*"},
		},
		FrameworkXUnit: {
			TestFrameworkAssemblies: []string{
				"xunit",
				"xunit.runner.visualstudio",
			},
			Filters: []string{"-[*.Tests]*"},
		},
		FrameworkMSTest: {
			TestFrameworkAssemblies: []string{
				"Microsoft.VisualStudio.TestPlatform",
				"MSTest.TestAdapter",
				"MSTest.TestFramework",
			},
			Filters: []string{"-[*.UnitTests]*"},
		},
	}
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			FailUnderLine:   0,
			FailUnderBranch: 0,
		},
		StrictnessStandard: {
			FailUnderLine:   70,
			FailUnderBranch: 50,
		},
		StrictnessStrict: {
			FailUnderLine:   85,
			FailUnderBranch: 75,
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(framework Framework, strictness Strictness) string {
	preset, ok := GetFrameworkPresets()[framework]
	if !ok {
		preset = GetFrameworkPresets()[FrameworkGeneric]
	}
	strict, ok := GetStrictnessPresets()[strictness]
	if !ok {
		strict = GetStrictnessPresets()[StrictnessStandard]
	}

	return `# ucover configuration
# Framework: ` + string(framework) + `, strictness: ` + string(strictness) + `

# ============================================================================
# MODEL
# ============================================================================
# Controls which assemblies get a coverage model
model:
  # Skip framework assemblies listed in default_disabled_assemblies
  disable_default_filters: false
  default_disabled_assemblies:
    - mscorlib
    - netstandard
    - System
    - System.*
    - Microsoft.*

  # Assemblies whose name starts with one of these are test assemblies
  test_framework_assemblies:` + formatYAMLList(preset.TestFrameworkAssemblies, 4) + `

  # +[assembly]type includes, -[assembly]type excludes, * matches anything
  filters:` + formatYAMLList(preset.Filters, 4) + `

  # What to do when one method cannot be modelled: fail or skip
  on_method_error: fail

  # Skip assemblies without debug symbols
  symbols_required: true

# ============================================================================
# REPORT
# ============================================================================
report:
  # Report format: text, json, yaml, xml (OpenCover)
  format: text

  # Fail with exit code 2 below these percentages (0 disables)
  fail_under_line: ` + formatPercent(strict.FailUnderLine) + `
  fail_under_branch: ` + formatPercent(strict.FailUnderBranch) + `

  # SQLite database accumulating hits across runs (empty disables)
  store: ""

  # Fail on trace events that do not match the model
  strict: false

# ============================================================================
# OUTPUT
# ============================================================================
output:
  show_details: false
  # Sort entries by: name, coverage
  sort_by: name

# ============================================================================
# PERFORMANCE
# ============================================================================
performance:
  # Number of parallel workers (0 = one per CPU)
  max_goroutines: 0
  timeout_seconds: 300

logging:
  level: warn
  json: false

# ============================================================================
# INPUT
# ============================================================================
input:
  recursive: true
  include_patterns:
    - "*.yaml"
    - "*.yml"
    - "*.json"
    - "*.ucovertrace"
  exclude_patterns:
    - obj
    - .git
  ignore_file: .ucoverignore
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# ucover configuration (minimal)

model:
  on_method_error: fail

report:
  format: text
  fail_under_line: 0
  fail_under_branch: 0
`
}

// formatYAMLList formats items as an indented YAML block list
func formatYAMLList(items []string, indent int) string {
	if len(items) == 0 {
		return " []"
	}

	pad := strings.Repeat(" ", indent)
	var b strings.Builder
	for _, item := range items {
		b.WriteString("\n" + pad + "- " + strconv.Quote(item))
	}
	return b.String()
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
