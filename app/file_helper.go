package app

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ludo-technologies/ucover/internal/parser"
	"github.com/ludo-technologies/ucover/internal/trace"
)

// FileKind selects which input files a collection accepts
type FileKind int

const (
	// KindDump accepts disassembly dumps (.yaml, .yml, .json)
	KindDump FileKind = iota
	// KindTrace accepts trace files (.ucovertrace)
	KindTrace
)

// Accepts reports whether path has the extension of the kind
func (k FileKind) Accepts(path string) bool {
	switch k {
	case KindDump:
		return parser.IsDumpFile(path)
	case KindTrace:
		return trace.IsTraceFile(path)
	}
	return false
}

func (k FileKind) String() string {
	if k == KindTrace {
		return "trace"
	}
	return "dump"
}

// FileHelper collects input files from paths
type FileHelper struct {
	// IgnoreFile is a gitignore-style file looked up in each directory
	// argument; empty disables it
	IgnoreFile string
}

// NewFileHelper creates a new FileHelper
func NewFileHelper(ignoreFile string) *FileHelper {
	return &FileHelper{IgnoreFile: ignoreFile}
}

// CollectFiles collects files of kind from paths. Files given directly are
// kept if they have the right extension. Directories are walked and their
// files must also match an include pattern, miss every exclude pattern and
// not be ignored by the directory's ignore file. The result is sorted.
func (h *FileHelper) CollectFiles(paths []string, kind FileKind, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if kind.Accepts(path) {
				add(path)
			}
			continue
		}

		ignored := h.loadIgnore(path)
		accept := func(filePath string) bool {
			if !kind.Accepts(filePath) || !h.isIncluded(filePath, includePatterns) || h.isExcluded(filePath, excludePatterns) {
				return false
			}
			return !isIgnored(ignored, path, filePath)
		}

		if recursive {
			err = filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}

				if info.IsDir() {
					if filePath == path {
						return nil
					}
					dirName := filepath.Base(filePath)
					for _, pattern := range excludePatterns {
						if pattern == dirName {
							return filepath.SkipDir
						}
						if matched, _ := filepath.Match(pattern, dirName); matched {
							return filepath.SkipDir
						}
					}
					if isIgnored(ignored, path, filePath) {
						return filepath.SkipDir
					}
					return nil
				}

				if accept(filePath) {
					add(filePath)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			filePath := filepath.Join(path, entry.Name())
			if accept(filePath) {
				add(filePath)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// loadIgnore compiles the ignore file in dir, if there is one
func (h *FileHelper) loadIgnore(dir string) *ignore.GitIgnore {
	if h.IgnoreFile == "" {
		return nil
	}
	path := h.IgnoreFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if exists, _ := h.FileExists(path); !exists {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

func isIgnored(gi *ignore.GitIgnore, root, path string) bool {
	if gi == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return gi.MatchesPath(filepath.ToSlash(rel))
}

// isIncluded reports whether the base name matches an include pattern.
// No patterns includes everything.
func (h *FileHelper) isIncluded(path string, includePatterns []string) bool {
	if len(includePatterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range includePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// isExcluded checks if a path matches any exclude pattern
func (h *FileHelper) isExcluded(path string, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}
		if strings.Contains(filepath.ToSlash(path), "/"+pattern+"/") {
			return true
		}
	}
	return false
}

// ResolveFilePaths returns paths unchanged when they are all existing files
// and collects files from them otherwise
func ResolveFilePaths(
	fileHelper *FileHelper,
	paths []string,
	kind FileKind,
	recursive bool,
	includePatterns []string,
	excludePatterns []string,
) ([]string, error) {
	allFiles := true
	for _, path := range paths {
		exists, err := fileHelper.FileExists(path)
		if err != nil || !exists {
			allFiles = false
			break
		}
	}
	if allFiles {
		return paths, nil
	}

	return fileHelper.CollectFiles(paths, kind, recursive, includePatterns, excludePatterns)
}
