package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
)

// DOTFormatterConfig configures the DOT formatter behavior
type DOTFormatterConfig struct {
	// ShowLegend includes a legend subgraph
	ShowLegend bool

	// ShowOffsets labels edges with their instruction offsets
	ShowOffsets bool

	// RankDir is the layout direction: TB, LR, BT, RL
	RankDir string
}

// DefaultDOTFormatterConfig returns a DOTFormatterConfig with sensible defaults
func DefaultDOTFormatterConfig() *DOTFormatterConfig {
	return &DOTFormatterConfig{
		ShowLegend:  true,
		ShowOffsets: true,
		RankDir:     "TB",
	}
}

// DOTFormatter draws method section graphs for Graphviz: sections are
// nodes, conditions are edges, branching points are highlighted
type DOTFormatter struct {
	config *DOTFormatterConfig
}

// NewDOTFormatter creates a new DOT formatter with the given configuration
func NewDOTFormatter(config *DOTFormatterConfig) *DOTFormatter {
	if config == nil {
		config = DefaultDOTFormatterConfig()
	}
	return &DOTFormatter{config: config}
}

var validRankDirs = map[string]bool{
	"TB": true,
	"LR": true,
	"BT": true,
	"RL": true,
}

const (
	branchEdgeColor = "#DC143C"
	joinEdgeColor   = "#808080"
	generatedFill   = "#E0E0E0"
	sectionFill     = "#E8F4FD"
	sectionBorder   = "#4682B4"
)

// FormatMethods renders the graphs and returns the DOT source
func (f *DOTFormatter) FormatMethods(response *domain.InspectResponse) (string, error) {
	var sb strings.Builder
	if err := f.WriteMethods(response, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WriteMethods writes one cluster per inspected method
func (f *DOTFormatter) WriteMethods(response *domain.InspectResponse, writer io.Writer) error {
	if response == nil {
		return fmt.Errorf("nil inspect response")
	}

	rankDir := f.config.RankDir
	if !validRankDirs[rankDir] {
		rankDir = "TB"
	}

	fmt.Fprintf(writer, "digraph %s {\n", escapeDOTID("sections_"+response.Assembly))
	fmt.Fprintf(writer, "    rankdir=%s;\n", rankDir)
	fmt.Fprintln(writer, "    node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(writer, "    edge [fontname=\"Helvetica\", fontsize=9];")
	fmt.Fprintln(writer)

	for i := range response.Methods {
		if response.Methods[i].Model == nil {
			continue
		}
		f.writeMethod(writer, i, &response.Methods[i])
	}

	if f.config.ShowLegend {
		f.writeLegend(writer)
	}
	fmt.Fprintln(writer, "}")
	return nil
}

func (f *DOTFormatter) writeMethod(writer io.Writer, index int, mi *domain.MethodInspection) {
	m := mi.Model
	prefix := fmt.Sprintf("m%d_", index)

	fmt.Fprintf(writer, "    subgraph cluster_%d {\n", index)
	fmt.Fprintf(writer, "        label=\"%s\";\n", escapeDOTLabel(m.Name))
	fmt.Fprintln(writer, "        color=\"#CCCCCC\";")

	for _, s := range m.Sections {
		fill := sectionFill
		if sectionIsGenerated(s, mi.GeneratedRegions) {
			fill = generatedFill
		}
		fmt.Fprintf(writer, "        %ss%d [label=\"S%d\\n%s..%s\", fillcolor=\"%s\", color=\"%s\"];\n",
			prefix, s.ID, s.ID, analyzer.FormatOffset(s.StartOffset), analyzer.FormatOffset(s.EndOffset),
			fill, sectionBorder)
	}

	branching := make(map[domain.ConditionKey]bool, len(mi.BranchingPoints))
	for _, k := range mi.BranchingPoints {
		branching[k] = true
	}

	for _, c := range m.Conditions {
		attrs := []string{}
		if branching[c.Key()] {
			attrs = append(attrs, "penwidth=2", fmt.Sprintf("color=\"%s\"", branchEdgeColor))
		} else {
			attrs = append(attrs, "style=dashed", fmt.Sprintf("color=\"%s\"", joinEdgeColor))
		}
		if f.config.ShowOffsets {
			attrs = append(attrs, fmt.Sprintf("label=\"%s->%s\"",
				analyzer.FormatOffset(c.StartOffset), analyzer.FormatOffset(c.EndOffset)))
		}
		fmt.Fprintf(writer, "        %ss%d -> %ss%d [%s];\n",
			prefix, c.StartSection, prefix, c.TargetSection, strings.Join(attrs, ", "))
	}

	fmt.Fprintln(writer, "    }")
	fmt.Fprintln(writer)
}

func sectionIsGenerated(s domain.CodeSection, regions []domain.OffsetRange) bool {
	for _, r := range regions {
		if s.StartOffset <= r.End && r.Start <= s.EndOffset {
			return true
		}
	}
	return false
}

// writeLegend writes the legend subgraph
func (f *DOTFormatter) writeLegend(writer io.Writer) {
	fmt.Fprintln(writer, "    subgraph cluster_legend {")
	fmt.Fprintln(writer, "        label=\"Legend\";")
	fmt.Fprintln(writer, "        style=filled;")
	fmt.Fprintln(writer, "        fillcolor=\"#F5F5F5\";")
	fmt.Fprintln(writer, "        color=\"#CCCCCC\";")
	fmt.Fprintln(writer, "        fontsize=10;")
	fmt.Fprintf(writer, "        legend_section [label=\"section\", fillcolor=\"%s\", color=\"%s\"];\n", sectionFill, sectionBorder)
	fmt.Fprintf(writer, "        legend_generated [label=\"generated finally\", fillcolor=\"%s\", color=\"%s\"];\n", generatedFill, sectionBorder)
	fmt.Fprintf(writer, "        legend_section -> legend_generated [penwidth=2, color=\"%s\", label=\"branching\"];\n", branchEdgeColor)
	fmt.Fprintf(writer, "        legend_generated -> legend_section [style=dashed, color=\"%s\", label=\"join\"];\n", joinEdgeColor)
	fmt.Fprintln(writer, "    }")
}

// escapeDOTID escapes a string for use as a DOT node ID
func escapeDOTID(id string) string {
	replacer := strings.NewReplacer(
		"/", "__",
		".", "_",
		"-", "_",
		",", "_",
		"=", "_",
		" ", "_",
		":", "_",
		"(", "_",
		")", "_",
		"[", "_",
		"]", "_",
		"`", "_",
	)
	escaped := replacer.Replace(id)

	if len(escaped) == 0 || !isValidDOTIDStart(escaped[0]) {
		escaped = "_" + escaped
	}
	return escaped
}

// escapeDOTLabel escapes a string for use as a DOT label.
// Backslash goes first to avoid double-escaping.
func escapeDOTLabel(label string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
		"\r", "",
		"\t", "\\t",
	)
	return replacer.Replace(label)
}

func isValidDOTIDStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
