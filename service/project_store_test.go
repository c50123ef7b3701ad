package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
)

func TestProjectStore_RoundTrip(t *testing.T) {
	req := defaultModelRequest()
	req.OnMethodError = domain.MethodErrorSkip
	resp, err := buildSample(t, req, sampleDump, systemDump)
	if err != nil {
		t.Fatalf("BuildProject failed: %v", err)
	}

	store := NewProjectStore()
	for _, name := range []string{"project.json", "nested/project.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := store.Save(resp.Project, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := store.Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.ProjectID != resp.Project.ProjectID {
				t.Errorf("project id changed: %s != %s", loaded.ProjectID, resp.Project.ProjectID)
			}
			if len(loaded.Assemblies) != 2 || loaded.Assemblies[1].SkipReason != resp.Project.Assemblies[1].SkipReason {
				t.Fatalf("assemblies not restored: %+v", loaded.Assemblies)
			}

			pick, ok := loaded.Assemblies[0].FindMethod(100663297)
			if !ok {
				t.Fatal("Pick not found after load")
			}
			orig, _ := resp.Project.Assemblies[0].FindMethod(100663297)
			if len(pick.Sections) != len(orig.Sections) || len(pick.Conditions) != len(orig.Conditions) {
				t.Errorf("method graph not restored: %+v", pick)
			}
			if pick.SequencePoints[0].FileID == nil || *pick.SequencePoints[0].FileID != *orig.SequencePoints[0].FileID {
				t.Error("sequence point file ids not restored")
			}
		})
	}
}

func TestProjectStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	store := NewProjectStore()

	if _, err := store.Load(filepath.Join(dir, "missing.json")); !domain.HasCode(err, domain.ErrCodeFileNotFound) {
		t.Errorf("expected file not found, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(bad); !domain.HasCode(err, domain.ErrCodeParseError) {
		t.Errorf("expected parse error, got %v", err)
	}

	noID := filepath.Join(dir, "noid.yaml")
	if err := os.WriteFile(noID, []byte("assemblies: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(noID); !domain.HasCode(err, domain.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input for a manifest without id, got %v", err)
	}
}

func TestProjectStore_LoadSetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yml")
	if err := os.WriteFile(path, []byte("project_id: abc\nassemblies: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	project, err := NewProjectStore().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if project.ProjectPath != path {
		t.Errorf("expected project path %s, got %s", path, project.ProjectPath)
	}
}

func TestManifestFormat(t *testing.T) {
	for path, want := range map[string]domain.OutputFormat{
		"p.json":   domain.OutputFormatJSON,
		"p.YAML":   domain.OutputFormatYAML,
		"p.yml":    domain.OutputFormatYAML,
		"manifest": domain.OutputFormatJSON,
	} {
		if got := ManifestFormat(path); got != want {
			t.Errorf("ManifestFormat(%q) = %s, want %s", path, got, want)
		}
	}
}
