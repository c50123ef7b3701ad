package domain

import (
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/ucover/internal/constants"
)

// HiddenLine is the line number debug symbols use for compiler-generated code
const HiddenLine = constants.HiddenLine

// BackupMarker is inserted before the extension of a backed-up binary
const BackupMarker = constants.BackupMarker

// CodeSection is a contiguous run of instructions treated as one coverage unit.
// IDs are unique within a method and ascend with StartOffset from 0.
type CodeSection struct {
	ID          int `json:"id" yaml:"id"`
	StartOffset int `json:"start_offset" yaml:"start_offset"`
	EndOffset   int `json:"end_offset" yaml:"end_offset"`
}

// Contains reports whether offset lies within the section (inclusive on both ends)
func (s CodeSection) Contains(offset int) bool {
	return offset >= s.StartOffset && offset <= s.EndOffset
}

// Condition is a directed edge between two code sections.
// Two conditions are the same condition iff their offsets match.
type Condition struct {
	StartOffset   int `json:"start_offset" yaml:"start_offset"`
	EndOffset     int `json:"end_offset" yaml:"end_offset"`
	StartSection  int `json:"start_section" yaml:"start_section"`
	TargetSection int `json:"target_section" yaml:"target_section"`
}

// Key returns the identity of the condition
func (c Condition) Key() ConditionKey {
	return ConditionKey{Start: c.StartOffset, End: c.EndOffset}
}

// ConditionKey identifies a condition by its offset pair
type ConditionKey struct {
	Start int
	End   int
}

// SequencePoint maps an instruction span to a source span
type SequencePoint struct {
	ID          int  `json:"id" yaml:"id"`
	FileID      *int `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	StartOffset int  `json:"start_offset" yaml:"start_offset"`
	EndOffset   int  `json:"end_offset" yaml:"end_offset"`
	StartLine   int  `json:"start_line" yaml:"start_line"`
	StartColumn int  `json:"start_column" yaml:"start_column"`
	EndLine     int  `json:"end_line" yaml:"end_line"`
	EndColumn   int  `json:"end_column" yaml:"end_column"`
}

// IsHidden reports whether the point marks compiler-generated code
func (sp SequencePoint) IsHidden() bool {
	return sp.StartLine == HiddenLine && sp.EndLine == HiddenLine
}

// Contains reports whether offset lies within the point's instruction span
func (sp SequencePoint) Contains(offset int) bool {
	return offset >= sp.StartOffset && offset <= sp.EndOffset
}

// SkipReason explains why an entity is excluded from instrumentation
type SkipReason string

const (
	SkipReasonNone         SkipReason = "NoSkip"
	SkipReasonTestAssembly SkipReason = "TestAssembly"
	SkipReasonBackupFile   SkipReason = "BackupFile"
	SkipReasonNoPdb        SkipReason = "NoPdb"
	SkipReasonFilter       SkipReason = "Filter"
	SkipReasonBuildError   SkipReason = "BuildError"
)

// IsSkipped reports whether the reason excludes the entity.
// The zero value means not skipped.
func (r SkipReason) IsSkipped() bool {
	return r != "" && r != SkipReasonNone
}

// Method is the immutable coverage model of one method
type Method struct {
	Name           string          `json:"name" yaml:"name"`
	MethodID       int             `json:"method_id" yaml:"method_id"`
	Sections       []CodeSection   `json:"sections" yaml:"sections"`
	Conditions     []Condition     `json:"conditions" yaml:"conditions"`
	SequencePoints []SequencePoint `json:"sequence_points" yaml:"sequence_points"`
	SkipReason     SkipReason      `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
}

// IsSkipped reports whether the method is excluded
func (m *Method) IsSkipped() bool {
	return m.SkipReason.IsSkipped()
}

// HasVisibleSequencePoint reports whether any point maps to user source
func (m *Method) HasVisibleSequencePoint() bool {
	for _, sp := range m.SequencePoints {
		if !sp.IsHidden() {
			return true
		}
	}
	return false
}

// VisibleSequencePoints returns the non-hidden points in offset order
func (m *Method) VisibleSequencePoints() []SequencePoint {
	visible := make([]SequencePoint, 0, len(m.SequencePoints))
	for _, sp := range m.SequencePoints {
		if !sp.IsHidden() {
			visible = append(visible, sp)
		}
	}
	return visible
}

// IsConstructor reports whether the method is an instance or type initializer
func (m *Method) IsConstructor() bool {
	return strings.HasSuffix(m.Name, "::.ctor()") || strings.HasSuffix(m.Name, "::.cctor()")
}

// Class groups the methods declared by one type
type Class struct {
	Name       string     `json:"name" yaml:"name"`
	Methods    []*Method  `json:"methods" yaml:"methods"`
	SkipReason SkipReason `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
}

// IsSkipped reports whether the class is excluded
func (c *Class) IsSkipped() bool {
	return c.SkipReason.IsSkipped()
}

// SourceFile is a document referenced by sequence points
type SourceFile struct {
	ID   int    `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"`
}

// AssemblyPaths locates an assembly, its symbols and their backups
type AssemblyPaths struct {
	OriginalAssemblyPath string `json:"original_assembly_path" yaml:"original_assembly_path"`
	OriginalPdbPath      string `json:"original_pdb_path,omitempty" yaml:"original_pdb_path,omitempty"`
	TempAssemblyPath     string `json:"temp_assembly_path" yaml:"temp_assembly_path"`
	TempPdbPath          string `json:"temp_pdb_path,omitempty" yaml:"temp_pdb_path,omitempty"`
}

// NewAssemblyPaths derives backup paths for assemblyPath.
// Symbol paths are left empty when hasSymbols is false.
func NewAssemblyPaths(assemblyPath string, hasSymbols bool) AssemblyPaths {
	ext := filepath.Ext(assemblyPath)
	stem := strings.TrimSuffix(filepath.Base(assemblyPath), ext)
	temp := filepath.Join(filepath.Dir(assemblyPath), stem+BackupMarker+ext)

	paths := AssemblyPaths{
		OriginalAssemblyPath: assemblyPath,
		TempAssemblyPath:     temp,
	}
	if hasSymbols {
		paths.OriginalPdbPath = strings.TrimSuffix(assemblyPath, ext) + ".pdb"
		paths.TempPdbPath = strings.TrimSuffix(temp, ext) + ".pdb"
	}
	return paths
}

// IsBackupPath reports whether path names a backup made before rewriting
func IsBackupPath(path string) bool {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return strings.HasSuffix(stem, BackupMarker)
}

// Assembly is the coverage model of one binary module
type Assembly struct {
	AssemblyID int           `json:"assembly_id" yaml:"assembly_id"`
	FullName   string        `json:"full_name" yaml:"full_name"`
	Paths      AssemblyPaths `json:"paths" yaml:"paths"`
	Hash       string        `json:"hash" yaml:"hash"`
	Files      []SourceFile  `json:"files" yaml:"files"`
	Classes    []*Class      `json:"classes" yaml:"classes"`
	SkipReason SkipReason    `json:"skip_reason" yaml:"skip_reason"`
}

// IsSkipped reports whether the assembly is excluded
func (a *Assembly) IsSkipped() bool {
	return a.SkipReason.IsSkipped()
}

// ShortName returns the simple name (before the first comma of the full name)
func (a *Assembly) ShortName() string {
	name, _, _ := strings.Cut(a.FullName, ",")
	return strings.TrimSpace(name)
}

// Project is the persisted manifest tying a set of assemblies together
type Project struct {
	ProjectID   string      `json:"project_id" yaml:"project_id"`
	ProjectPath string      `json:"project_path" yaml:"project_path"`
	Assemblies  []*Assembly `json:"assemblies" yaml:"assemblies"`
}

// FindAssembly returns the assembly with the given id
func (p *Project) FindAssembly(assemblyID int) (*Assembly, bool) {
	for _, a := range p.Assemblies {
		if a.AssemblyID == assemblyID {
			return a, true
		}
	}
	return nil, false
}

// FindMethod returns the method with the given id inside an assembly
func (a *Assembly) FindMethod(methodID int) (*Method, bool) {
	for _, c := range a.Classes {
		for _, m := range c.Methods {
			if m.MethodID == methodID {
				return m, true
			}
		}
	}
	return nil, false
}
