package service

import (
	"encoding/xml"
	"io"

	"github.com/ludo-technologies/ucover/domain"
)

// The element and attribute names follow the OpenCover report schema so the
// output can be fed to existing coverage viewers.

type xmlCoverageSession struct {
	XMLName xml.Name    `xml:"CoverageSession"`
	Summary xmlSummary  `xml:"Summary"`
	Modules []xmlModule `xml:"Modules>Module"`
}

type xmlSummary struct {
	NumSequencePoints       int     `xml:"numSequencePoints,attr"`
	VisitedSequencePoints   int     `xml:"visitedSequencePoints,attr"`
	NumBranchPoints         int     `xml:"numBranchPoints,attr"`
	VisitedBranchPoints     int     `xml:"visitedBranchPoints,attr"`
	SequenceCoverage        float64 `xml:"sequenceCoverage,attr"`
	BranchCoverage          float64 `xml:"branchCoverage,attr"`
	MaxCyclomaticComplexity int     `xml:"maxCyclomaticComplexity,attr"`
	MinCyclomaticComplexity int     `xml:"minCyclomaticComplexity,attr"`
	VisitedClasses          int     `xml:"visitedClasses,attr"`
	NumClasses              int     `xml:"numClasses,attr"`
	VisitedMethods          int     `xml:"visitedMethods,attr"`
	NumMethods              int     `xml:"numMethods,attr"`
}

type xmlModule struct {
	Hash       string      `xml:"hash,attr"`
	SkippedDue string      `xml:"skippedDueTo,attr,omitempty"`
	ModulePath string      `xml:"ModulePath"`
	ModuleTime string      `xml:"ModuleTime"`
	ModuleName string      `xml:"ModuleName"`
	Summary    *xmlSummary `xml:"Summary,omitempty"`
	Files      *xmlFiles   `xml:"Files,omitempty"`
	Classes    []xmlClass  `xml:"Classes>Class"`
}

type xmlFiles struct {
	Files []xmlFile `xml:"File"`
}

type xmlFile struct {
	UID      int    `xml:"uid,attr"`
	FullPath string `xml:"fullPath,attr"`
}

type xmlClass struct {
	Summary  xmlSummary  `xml:"Summary"`
	FullName string      `xml:"FullName"`
	Methods  []xmlMethod `xml:"Methods>Method"`
}

type xmlMethod struct {
	Visited              bool    `xml:"visited,attr"`
	CyclomaticComplexity int     `xml:"cyclomaticComplexity,attr"`
	NPathComplexity      int     `xml:"nPathComplexity,attr"`
	SequenceCoverage     float64 `xml:"sequenceCoverage,attr"`
	BranchCoverage       float64 `xml:"branchCoverage,attr"`
	IsConstructor        bool    `xml:"isConstructor,attr"`
	IsStatic             bool    `xml:"isStatic,attr"`
	IsGetter             bool    `xml:"isGetter,attr"`
	IsSetter             bool    `xml:"isSetter,attr"`

	Summary        xmlSummary   `xml:"Summary"`
	MetadataToken  int          `xml:"MetadataToken"`
	Name           string       `xml:"Name"`
	FileRef        *xmlFileRef  `xml:"FileRef,omitempty"`
	SequencePoints xmlSeqPoints `xml:"SequencePoints"`
	BranchPoints   xmlBrPoints  `xml:"BranchPoints"`
	MethodPoint    xmlPoint     `xml:"MethodPoint"`
}

type xmlFileRef struct {
	UID int `xml:"uid,attr"`
}

type xmlSeqPoints struct {
	Points []xmlPoint `xml:"SequencePoint"`
}

type xmlBrPoints struct {
	Points []xmlBranchPoint `xml:"BranchPoint"`
}

// xmlPoint is a SequencePoint or MethodPoint element. A MethodPoint
// without a visible source location carries only the first four fields.
type xmlPoint struct {
	VC      int64 `xml:"vc,attr"`
	UspID   int   `xml:"uspid,attr"`
	Ordinal int   `xml:"ordinal,attr"`
	Offset  int   `xml:"offset,attr"`
	SL      *int  `xml:"sl,attr,omitempty"`
	SC      *int  `xml:"sc,attr,omitempty"`
	EL      *int  `xml:"el,attr,omitempty"`
	EC      *int  `xml:"ec,attr,omitempty"`
	BEC     *int  `xml:"bec,attr,omitempty"`
	BEV     *int  `xml:"bev,attr,omitempty"`
	FileID  *int  `xml:"fileid,attr,omitempty"`
}

type xmlBranchPoint struct {
	VC        int64 `xml:"vc,attr"`
	UspID     int   `xml:"uspid,attr"`
	Ordinal   int   `xml:"ordinal,attr"`
	Offset    int   `xml:"offset,attr"`
	SL        int   `xml:"sl,attr"`
	Path      int   `xml:"path,attr"`
	OffsetEnd int   `xml:"offsetend,attr"`
	FileID    *int  `xml:"fileid,attr,omitempty"`
}

// WriteOpenCoverXML writes the report as an OpenCover CoverageSession document
func WriteOpenCoverXML(w io.Writer, response *domain.ReportResponse) error {
	session := xmlCoverageSession{
		Summary: toXMLSummary(response.Summary),
		Modules: make([]xmlModule, 0, len(response.Modules)),
	}
	for i := range response.Modules {
		session.Modules = append(session.Modules, toXMLModule(&response.Modules[i]))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return domain.NewOutputError("failed to write XML header", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(session); err != nil {
		return domain.NewOutputError("failed to encode OpenCover report", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return domain.NewOutputError("failed to write XML", err)
	}
	return nil
}

func toXMLSummary(s domain.Summary) xmlSummary {
	return xmlSummary{
		NumSequencePoints:       s.NumSequencePoints,
		VisitedSequencePoints:   s.VisitedSequencePoints,
		NumBranchPoints:         s.NumBranchPoints,
		VisitedBranchPoints:     s.VisitedBranchPoints,
		SequenceCoverage:        s.SequenceCoverage,
		BranchCoverage:          s.BranchCoverage,
		MaxCyclomaticComplexity: s.MaxCyclomaticComplexity,
		MinCyclomaticComplexity: s.MinCyclomaticComplexity,
		VisitedClasses:          s.VisitedClasses,
		NumClasses:              s.NumClasses,
		VisitedMethods:          s.VisitedMethods,
		NumMethods:              s.NumMethods,
	}
}

// toXMLModule numbers points with a module-wide uspid counter
func toXMLModule(m *domain.ModuleReport) xmlModule {
	out := xmlModule{
		Hash:       m.Hash,
		ModulePath: m.ModulePath,
		ModuleTime: m.ModuleTime,
		ModuleName: m.ModuleName,
		Classes:    []xmlClass{},
	}
	if m.IsSkipped() || m.Summary == nil {
		out.SkippedDue = string(m.SkipReason)
		return out
	}

	summary := toXMLSummary(*m.Summary)
	out.Summary = &summary
	out.Files = &xmlFiles{Files: make([]xmlFile, 0, len(m.Files))}
	for _, f := range m.Files {
		out.Files.Files = append(out.Files.Files, xmlFile{UID: f.ID, FullPath: f.Path})
	}

	counter := 0
	for _, c := range m.Classes {
		class := xmlClass{
			Summary:  toXMLSummary(c.Summary),
			FullName: c.Name,
			Methods:  make([]xmlMethod, 0, len(c.Methods)),
		}
		for i := range c.Methods {
			class.Methods = append(class.Methods, toXMLMethod(&c.Methods[i], &counter))
		}
		out.Classes = append(out.Classes, class)
	}
	return out
}

func toXMLMethod(m *domain.MethodReport, counter *int) xmlMethod {
	out := xmlMethod{
		Visited:              m.Summary.VisitedMethods == 1,
		CyclomaticComplexity: m.Summary.MinCyclomaticComplexity,
		NPathComplexity:      m.NPathComplexity,
		SequenceCoverage:     m.Summary.SequenceCoverage,
		BranchCoverage:       m.Summary.BranchCoverage,
		IsConstructor:        m.IsConstructor,
		Summary:              toXMLSummary(m.Summary),
		MetadataToken:        m.MethodID,
		Name:                 m.Name,
	}

	for _, sp := range m.SequencePoints {
		if sp.FileID != nil {
			out.FileRef = &xmlFileRef{UID: *sp.FileID}
			break
		}
	}

	methodPointID := -1
	for ordinal, sp := range m.SequencePoints {
		*counter++
		if ordinal == 0 {
			methodPointID = *counter
		}
		out.SequencePoints.Points = append(out.SequencePoints.Points, sourcePoint(sp, *counter, ordinal))
	}

	for ordinal, bp := range m.BranchPoints {
		out.BranchPoints.Points = append(out.BranchPoints.Points, xmlBranchPoint{
			VC:        bp.VisitCount,
			UspID:     *counter,
			Ordinal:   ordinal,
			Offset:    bp.StartOffset,
			SL:        bp.StartLine,
			Path:      bp.Path,
			OffsetEnd: bp.EndOffset,
			FileID:    bp.FileID,
		})
		*counter++
	}

	if mp := m.MethodPoint; mp != nil && !mp.IsHidden() {
		out.MethodPoint = sourcePoint(*mp, methodPointID, 0)
	} else {
		vc := m.VisitCount
		if mp != nil {
			vc = mp.VisitCount
		}
		*counter++
		out.MethodPoint = xmlPoint{VC: vc, UspID: *counter}
	}
	return out
}

func sourcePoint(sp domain.SequencePointReport, uspid, ordinal int) xmlPoint {
	return xmlPoint{
		VC:      sp.VisitCount,
		UspID:   uspid,
		Ordinal: ordinal,
		Offset:  sp.StartOffset,
		SL:      intPtr(sp.StartLine),
		SC:      intPtr(sp.StartColumn),
		EL:      intPtr(sp.EndLine),
		EC:      intPtr(sp.EndColumn),
		BEC:     intPtr(sp.BranchExitCount),
		BEV:     intPtr(sp.BranchExitVisited),
		FileID:  sp.FileID,
	}
}

func intPtr(v int) *int {
	return &v
}
