package analyzer

import (
	"errors"

	"github.com/ludo-technologies/ucover/domain"
)

// ErrComplexityNotImplemented is returned until a complexity metric is chosen
var ErrComplexityNotImplemented = errors.New("cyclomatic complexity is not implemented")

// ComplexityFloor is the smallest complexity a report may show for a method
const ComplexityFloor = 1

// CyclomaticComplexity is a placeholder for a per-method complexity metric.
// No formula has been settled on, so it always fails.
func CyclomaticComplexity(method *domain.Method) (int, error) {
	return 0, ErrComplexityNotImplemented
}

// ReportedComplexity returns the complexity to print for a method and
// whether it was computed or clamped to ComplexityFloor
func ReportedComplexity(method *domain.Method) (int, bool) {
	cc, err := CyclomaticComplexity(method)
	if err != nil {
		return ComplexityFloor, false
	}
	if cc < ComplexityFloor {
		return ComplexityFloor, true
	}
	return cc, true
}
