package analyzer

import (
	"sort"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/parser"
)

// FileResolver maps a source document to its file id
type FileResolver interface {
	FileID(document string) (int, bool)
}

// FileTable assigns file ids to source documents for one assembly.
// Register every document before building methods concurrently; lookups
// are read-only afterwards.
type FileTable struct {
	ids   *Sequence
	byDoc map[string]int
	files []domain.SourceFile
}

// NewFileTable creates a table drawing ids from ids
func NewFileTable(ids *Sequence) *FileTable {
	if ids == nil {
		ids = NewSequence(1)
	}
	return &FileTable{
		ids:   ids,
		byDoc: make(map[string]int),
	}
}

// Register returns the id of document, assigning one on first use
func (t *FileTable) Register(document string) int {
	if id, ok := t.byDoc[document]; ok {
		return id
	}
	id := t.ids.Next()
	t.byDoc[document] = id
	t.files = append(t.files, domain.SourceFile{ID: id, Path: document})
	return id
}

// RegisterMethod registers every document referenced by a method body
func (t *FileTable) RegisterMethod(body *parser.MethodBody) {
	for _, r := range body.SequencePoints {
		if r.Document != "" {
			t.Register(r.Document)
		}
	}
}

// FileID implements FileResolver
func (t *FileTable) FileID(document string) (int, bool) {
	id, ok := t.byDoc[document]
	return id, ok
}

// Files returns the registered files in registration order
func (t *FileTable) Files() []domain.SourceFile {
	return append([]domain.SourceFile(nil), t.files...)
}

// MapSequencePoints turns debug line records into sequence points spanning
// the instructions up to the next record. offsets must be ascending.
func MapSequencePoints(records []parser.SequencePointRecord, offsets []int, files FileResolver) []domain.SequencePoint {
	sorted := append([]parser.SequencePointRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	points := make([]domain.SequencePoint, len(sorted))
	for i, r := range sorted {
		upper := -1
		if i+1 < len(sorted) {
			upper = sorted[i+1].Offset
		}

		points[i] = domain.SequencePoint{
			ID:          i,
			FileID:      resolveFile(files, r.Document),
			StartOffset: r.Offset,
			EndOffset:   lastOffsetBefore(offsets, r.Offset, upper),
			StartLine:   r.StartLine,
			StartColumn: r.StartColumn,
			EndLine:     r.EndLine,
			EndColumn:   r.EndColumn,
		}
	}
	return points
}

// lastOffsetBefore returns the greatest offset in [start, upper), where a
// negative upper means no bound. It falls back to start for an empty window.
func lastOffsetBefore(offsets []int, start, upper int) int {
	idx := len(offsets) - 1
	if upper >= 0 {
		idx = sort.SearchInts(offsets, upper) - 1
	}
	if idx >= 0 && offsets[idx] >= start {
		return offsets[idx]
	}
	return start
}

func resolveFile(files FileResolver, document string) *int {
	if files == nil || document == "" {
		return nil
	}
	id, ok := files.FileID(document)
	if !ok {
		return nil
	}
	return &id
}
