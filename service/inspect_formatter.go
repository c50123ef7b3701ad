package service

import (
	"fmt"
	"io"
	"sort"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
)

// WriteInspect writes method debug views as text, JSON, YAML or DOT
func (f *OutputFormatterImpl) WriteInspect(response *domain.InspectResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatDOT:
		return NewDOTFormatter(nil).WriteMethods(response, writer)
	case domain.OutputFormatText, "":
		return f.writeInspectText(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *OutputFormatterImpl) writeInspectText(response *domain.InspectResponse, writer io.Writer) error {
	fmt.Fprintf(writer, "Assembly: %s\n", response.Assembly)

	for i := range response.Methods {
		mi := &response.Methods[i]
		m := mi.Model
		fmt.Fprintf(writer, "\n=== %s (token %d) ===\n", m.Name, m.MethodID)
		if mi.Error != "" {
			fmt.Fprintf(writer, "  build failed: %s\n", mi.Error)
			continue
		}

		fmt.Fprintf(writer, "Sections:\n")
		for _, s := range m.Sections {
			fmt.Fprintf(writer, "  S%d %s..%s\n", s.ID, analyzer.FormatOffset(s.StartOffset), analyzer.FormatOffset(s.EndOffset))
		}

		fmt.Fprintf(writer, "Instructions:\n")
		current := -1
		for _, instr := range mi.Instructions {
			mark := "  "
			if instr.SectionID != current {
				mark = fmt.Sprintf("S%d", instr.SectionID)
				current = instr.SectionID
			}
			fmt.Fprintf(writer, "  %-4s %s: %s\n", mark, analyzer.FormatOffset(instr.Offset), instr.OpCode)
		}

		branching := make(map[domain.ConditionKey]bool, len(mi.BranchingPoints))
		for _, k := range mi.BranchingPoints {
			branching[k] = true
		}
		fmt.Fprintf(writer, "Conditions:\n")
		for _, c := range m.Conditions {
			kind := "join"
			if branching[c.Key()] {
				kind = "branching"
			}
			fmt.Fprintf(writer, "  %s -> %s  S%d -> S%d  %s\n",
				analyzer.FormatOffset(c.StartOffset), analyzer.FormatOffset(c.EndOffset),
				c.StartSection, c.TargetSection, kind)
		}

		fmt.Fprintf(writer, "Sequence points:\n")
		for _, sp := range m.SequencePoints {
			if sp.IsHidden() {
				fmt.Fprintf(writer, "  #%d %s..%s hidden\n", sp.ID,
					analyzer.FormatOffset(sp.StartOffset), analyzer.FormatOffset(sp.EndOffset))
				continue
			}
			fmt.Fprintf(writer, "  #%d %s..%s (%d,%d)-(%d,%d)\n", sp.ID,
				analyzer.FormatOffset(sp.StartOffset), analyzer.FormatOffset(sp.EndOffset),
				sp.StartLine, sp.StartColumn, sp.EndLine, sp.EndColumn)
			if text, ok := mi.SourceText[sp.ID]; ok {
				fmt.Fprintf(writer, "      %s\n", text)
			}
		}

		if len(mi.GeneratedRegions) > 0 {
			fmt.Fprintf(writer, "Generated regions:\n")
			for _, r := range mi.GeneratedRegions {
				fmt.Fprintf(writer, "  %s..%s\n", analyzer.FormatOffset(r.Start), analyzer.FormatOffset(r.End))
			}
		}

		if len(mi.UnreachableOffsets) > 0 {
			offsets := append([]int(nil), mi.UnreachableOffsets...)
			sort.Ints(offsets)
			fmt.Fprintf(writer, "Unreachable from entry: %d instructions, first at %s\n",
				len(offsets), analyzer.FormatOffset(offsets[0]))
		}

		switch {
		case mi.LegacyError != "":
			fmt.Fprintf(writer, "Legacy sections: MISMATCH: %s\n", mi.LegacyError)
		case mi.LegacySections != nil:
			fmt.Fprintf(writer, "Legacy sections: agree (%d)\n", len(mi.LegacySections))
		}
	}

	writeNotes(writer, response.Warnings, nil)
	return nil
}
