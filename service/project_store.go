package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/ucover/domain"
)

// ProjectStoreImpl reads and writes project manifests as JSON or YAML
type ProjectStoreImpl struct{}

// NewProjectStore creates a manifest store
func NewProjectStore() *ProjectStoreImpl {
	return &ProjectStoreImpl{}
}

// ManifestFormat picks the manifest encoding from the file extension.
// Anything that is not .yaml or .yml is JSON.
func ManifestFormat(path string) domain.OutputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return domain.OutputFormatYAML
	}
	return domain.OutputFormatJSON
}

// Save writes project to path, creating parent directories
func (s *ProjectStoreImpl) Save(project *domain.Project, path string) error {
	if project == nil {
		return domain.NewInvalidInputError("project is nil", nil)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.NewOutputError("failed to create manifest directory", err)
		}
	}

	var buf bytes.Buffer
	if err := s.Encode(project, ManifestFormat(path), &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write manifest %s", path), err)
	}
	return nil
}

// Encode writes the manifest to w in the given format
func (s *ProjectStoreImpl) Encode(project *domain.Project, format domain.OutputFormat, w io.Writer) error {
	switch format {
	case domain.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(project); err != nil {
			return domain.NewOutputError("failed to encode manifest as YAML", err)
		}
		return enc.Close()
	case domain.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(project); err != nil {
			return domain.NewOutputError("failed to encode manifest as JSON", err)
		}
		return nil
	}
	return domain.NewUnsupportedFormatError(string(format))
}

// Load reads a manifest and sets ProjectPath when the file does not
func (s *ProjectStoreImpl) Load(path string) (*domain.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, domain.NewInvalidInputError(fmt.Sprintf("failed to read manifest %s", path), err)
	}

	var project domain.Project
	switch ManifestFormat(path) {
	case domain.OutputFormatYAML:
		err = yaml.Unmarshal(data, &project)
	default:
		err = json.Unmarshal(data, &project)
	}
	if err != nil {
		return nil, domain.NewParseError(path, err)
	}
	if project.ProjectID == "" {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("manifest %s has no project id", path), nil)
	}
	if project.ProjectPath == "" {
		project.ProjectPath = path
	}
	return &project, nil
}

var _ domain.ProjectStore = (*ProjectStoreImpl)(nil)
