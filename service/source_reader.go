package service

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ludo-technologies/ucover/domain"
)

// SourceReader returns the source text covered by sequence points.
// Files are read once and cached.
type SourceReader struct {
	mu    sync.Mutex
	files map[string][]string
}

// NewSourceReader creates an empty reader
func NewSourceReader() *SourceReader {
	return &SourceReader{files: make(map[string][]string)}
}

// Text returns the text from (StartLine, StartColumn) up to but excluding
// (EndLine, EndColumn). Lines and columns start at 1.
func (r *SourceReader) Text(path string, sp domain.SequencePoint) (string, error) {
	if sp.IsHidden() {
		return "", nil
	}
	lines, err := r.lines(path)
	if err != nil {
		return "", err
	}
	if sp.StartLine < 1 || sp.EndLine > len(lines) || sp.EndLine < sp.StartLine {
		return "", fmt.Errorf("%s: lines %d-%d out of range", path, sp.StartLine, sp.EndLine)
	}

	if sp.StartLine == sp.EndLine {
		return columns(lines[sp.StartLine-1], sp.StartColumn, sp.EndColumn), nil
	}

	parts := make([]string, 0, sp.EndLine-sp.StartLine+1)
	parts = append(parts, columns(lines[sp.StartLine-1], sp.StartColumn, 0))
	for l := sp.StartLine + 1; l < sp.EndLine; l++ {
		parts = append(parts, lines[l-1])
	}
	parts = append(parts, columns(lines[sp.EndLine-1], 1, sp.EndColumn))
	return strings.Join(parts, "\n"), nil
}

func (r *SourceReader) lines(path string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lines, ok := r.files[path]; ok {
		return lines, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	r.files[path] = lines
	return lines, nil
}

// columns slices a line by 1-based columns, end exclusive; end <= 0 means
// to the end of the line
func columns(line string, start, end int) string {
	runes := []rune(line)
	from := clamp(start-1, 0, len(runes))
	to := len(runes)
	if end > 0 {
		to = clamp(end-1, from, len(runes))
	}
	return string(runes[from:to])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
