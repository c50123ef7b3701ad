package domain

import "fmt"

// Coverage metrics a threshold can apply to
const (
	MetricSequenceCoverage = "sequence"
	MetricBranchCoverage   = "branch"
)

// CheckResult represents the result of a coverage threshold check
type CheckResult struct {
	Passed     bool             `json:"passed" yaml:"passed"`
	ExitCode   int              `json:"exit_code" yaml:"exit_code"`
	Violations []CheckViolation `json:"violations" yaml:"violations"`
}

// CheckViolation represents a single threshold violation
type CheckViolation struct {
	Metric    string  `json:"metric" yaml:"metric"` // sequence, branch
	Rule      string  `json:"rule" yaml:"rule"`     // fail-under-line, fail-under-branch
	Message   string  `json:"message" yaml:"message"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// CheckThresholds compares project coverage with fail-under percentages.
// A threshold of 0 is not checked. Violations set exitCode on the result.
func CheckThresholds(summary Summary, failUnderLine, failUnderBranch float64, exitCode int) *CheckResult {
	result := &CheckResult{Passed: true, Violations: []CheckViolation{}}

	if failUnderLine > 0 && summary.SequenceCoverage < failUnderLine {
		result.Violations = append(result.Violations, CheckViolation{
			Metric:    MetricSequenceCoverage,
			Rule:      "fail-under-line",
			Message:   fmt.Sprintf("sequence coverage %.2f%% is below %.2f%%", summary.SequenceCoverage, failUnderLine),
			Actual:    summary.SequenceCoverage,
			Threshold: failUnderLine,
		})
	}
	if failUnderBranch > 0 && summary.BranchCoverage < failUnderBranch {
		result.Violations = append(result.Violations, CheckViolation{
			Metric:    MetricBranchCoverage,
			Rule:      "fail-under-branch",
			Message:   fmt.Sprintf("branch coverage %.2f%% is below %.2f%%", summary.BranchCoverage, failUnderBranch),
			Actual:    summary.BranchCoverage,
			Threshold: failUnderBranch,
		})
	}

	if len(result.Violations) > 0 {
		result.Passed = false
		result.ExitCode = exitCode
	}
	return result
}
