package service

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/ucover/domain"
)

// OutputFormatterImpl writes reports and model summaries
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as indented JSON
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML with two-space indentation
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Write writes the coverage report in the given format
func (f *OutputFormatterImpl) Write(response *domain.ReportResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatXML:
		return WriteOpenCoverXML(writer, response)
	case domain.OutputFormatText, "":
		return f.writeReportText(response, writer, false)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// WriteDetailed is Write with per-class and per-method text output
func (f *OutputFormatterImpl) WriteDetailed(response *domain.ReportResponse, format domain.OutputFormat, writer io.Writer) error {
	if format == domain.OutputFormatText || format == "" {
		return f.writeReportText(response, writer, true)
	}
	return f.Write(response, format, writer)
}

// WriteModel writes the outcome of a model build. Manifests themselves go
// through ProjectStore.
func (f *OutputFormatterImpl) WriteModel(response *domain.ModelResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatText, "":
		return f.writeModelText(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *OutputFormatterImpl) writeReportText(response *domain.ReportResponse, writer io.Writer, details bool) error {
	s := response.Summary

	fmt.Fprintf(writer, "\n=== Coverage Report ===\n\n")
	fmt.Fprintf(writer, "Project: %s\n", response.ProjectID)
	fmt.Fprintf(writer, "Generated: %s\n", response.GeneratedAt)
	fmt.Fprintf(writer, "Version: %s\n\n", response.Version)

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Sequence coverage: %6.2f%% (%d/%d)\n", s.SequenceCoverage, s.VisitedSequencePoints, s.NumSequencePoints)
	fmt.Fprintf(writer, "  Branch coverage:   %6.2f%% (%d/%d)\n", s.BranchCoverage, s.VisitedBranchPoints, s.NumBranchPoints)
	fmt.Fprintf(writer, "  Classes visited:   %d/%d\n", s.VisitedClasses, s.NumClasses)
	fmt.Fprintf(writer, "  Methods visited:   %d/%d\n", s.VisitedMethods, s.NumMethods)
	fmt.Fprintf(writer, "\n")

	r := response.Replay
	fmt.Fprintf(writer, "Replay:\n")
	fmt.Fprintf(writer, "  Trace files: %d\n", r.TraceFiles)
	fmt.Fprintf(writer, "  Test cases: %d\n", r.TestCases)
	fmt.Fprintf(writer, "  Events: %d\n", r.Events)
	if r.UnmatchedEvents > 0 {
		fmt.Fprintf(writer, "  Unmatched events: %d\n", r.UnmatchedEvents)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "Modules:\n")
	for _, m := range response.Modules {
		if m.IsSkipped() || m.Summary == nil {
			fmt.Fprintf(writer, "  %-40s skipped (%s)\n", m.ModuleName, m.SkipReason)
			continue
		}
		fmt.Fprintf(writer, "  %-40s %6.2f%% lines  %6.2f%% branches\n",
			m.ModuleName, m.Summary.SequenceCoverage, m.Summary.BranchCoverage)

		if !details {
			continue
		}
		for _, c := range m.Classes {
			fmt.Fprintf(writer, "    %s: %.2f%% (%d/%d)\n",
				c.Name, c.Summary.SequenceCoverage, c.Summary.VisitedSequencePoints, c.Summary.NumSequencePoints)
			for _, method := range c.Methods {
				marker := ""
				if method.VisitCount == 0 {
					marker = " [NOT VISITED]"
				}
				fmt.Fprintf(writer, "      %s: %.2f%% lines, %.2f%% branches%s\n",
					method.Name, method.Summary.SequenceCoverage, method.Summary.BranchCoverage, marker)
			}
		}
	}

	writeNotes(writer, response.Warnings, response.Errors)
	return nil
}

func (f *OutputFormatterImpl) writeModelText(response *domain.ModelResponse, writer io.Writer) error {
	s := response.Stats

	fmt.Fprintf(writer, "\n=== Coverage Model ===\n\n")
	if response.Project != nil {
		fmt.Fprintf(writer, "Project: %s\n", response.Project.ProjectID)
		if response.Project.ProjectPath != "" {
			fmt.Fprintf(writer, "Manifest: %s\n", response.Project.ProjectPath)
		}
	}
	fmt.Fprintf(writer, "Generated: %s\n\n", response.GeneratedAt)

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Assemblies: %d (%d skipped)\n", s.Assemblies, s.SkippedAssemblies)
	fmt.Fprintf(writer, "  Classes: %d\n", s.Classes)
	fmt.Fprintf(writer, "  Methods: %d (%d failed)\n", s.Methods, s.FailedMethods)
	fmt.Fprintf(writer, "  Sections: %d\n", s.Sections)
	fmt.Fprintf(writer, "  Conditions: %d\n", s.Conditions)
	fmt.Fprintf(writer, "  Sequence points: %d\n", s.SequencePoints)

	if response.Project != nil {
		fmt.Fprintf(writer, "\nAssemblies:\n")
		for _, asm := range response.Project.Assemblies {
			status := "instrumented"
			if asm.IsSkipped() {
				status = "skipped (" + string(asm.SkipReason) + ")"
			}
			fmt.Fprintf(writer, "  [%d] %s: %s\n", asm.AssemblyID, asm.ShortName(), status)
		}
	}

	writeNotes(writer, response.Warnings, response.Errors)
	return nil
}

func writeNotes(writer io.Writer, warnings, errors []string) {
	if len(warnings) > 0 {
		fmt.Fprintf(writer, "\nWarnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
	}
	if len(errors) > 0 {
		fmt.Fprintf(writer, "\nErrors:\n")
		for _, e := range errors {
			fmt.Fprintf(writer, "  - %s\n", e)
		}
	}
}

var _ domain.ReportFormatter = (*OutputFormatterImpl)(nil)
