package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ludo-technologies/ucover/internal/constants"
)

// FileExtension is the extension of trace files
const FileExtension = constants.TraceFileExtension

// Magic opens every trace file
const Magic = "UCOVERTRACE"

// FormatVersion is the version of the trace layout written by Writer
const FormatVersion = 1

// Header describes a trace file
type Header struct {
	Magic       string `msgpack:"magic"`
	Version     int    `msgpack:"version"`
	ProjectPath string `msgpack:"project_path"`
	CreatedAt   int64  `msgpack:"created_at"`
}

// IsTraceFile reports whether path has the trace file extension
func IsTraceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), FileExtension)
}

// Writer streams test execution summaries after a header
type Writer struct {
	enc *msgpack.Encoder
}

// NewWriter writes the header for projectPath and returns a writer
func NewWriter(w io.Writer, projectPath string) (*Writer, error) {
	enc := msgpack.NewEncoder(w)
	header := Header{
		Magic:       Magic,
		Version:     FormatVersion,
		ProjectPath: projectPath,
		CreatedAt:   time.Now().Unix(),
	}
	if err := enc.Encode(&header); err != nil {
		return nil, fmt.Errorf("failed to encode trace header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one summary
func (w *Writer) Write(summary *TestExecutionSummary) error {
	if err := w.enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode test summary %s: %w", summary.TestCaseID, err)
	}
	return nil
}

// Reader reads the summaries of one trace stream
type Reader struct {
	dec    *msgpack.Decoder
	header Header
}

// NewReader reads and checks the header
func NewReader(r io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(r)

	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode trace header: %w", err)
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("not a trace file: unexpected magic %q", header.Magic)
	}
	if header.Version > FormatVersion {
		return nil, fmt.Errorf("unsupported trace version %d", header.Version)
	}
	return &Reader{dec: dec, header: header}, nil
}

// Header returns the stream header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next summary, or io.EOF after the last one. A stream
// that ends inside a summary fails with io.ErrUnexpectedEOF.
func (r *Reader) Next() (*TestExecutionSummary, error) {
	if _, err := r.dec.PeekCode(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read test summary: %w", err)
	}

	var summary TestExecutionSummary
	if err := r.dec.Decode(&summary); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to decode test summary: %w", err)
	}
	return &summary, nil
}

// ReadAll returns every remaining summary
func (r *Reader) ReadAll() ([]*TestExecutionSummary, error) {
	var summaries []*TestExecutionSummary
	for {
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			return summaries, nil
		}
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, s)
	}
}

// ReadFile reads a trace file and stamps each summary with its file name
func ReadFile(path string) (Header, []*TestExecutionSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	r, err := NewReader(file)
	if err != nil {
		return Header{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	summaries, err := r.ReadAll()
	if err != nil {
		return r.Header(), nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range summaries {
		s.FileName = path
	}
	return r.Header(), summaries, nil
}

// WriteFile writes summaries to a new trace file at path
func WriteFile(path, projectPath string, summaries ...*TestExecutionSummary) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := NewWriter(file, projectPath)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		if err := w.Write(s); err != nil {
			return err
		}
	}
	return nil
}
