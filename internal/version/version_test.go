package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet_Stamped(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = "v1.2.3"

	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("expected stamped version, got %s", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("unexpected go version %s", info.GoVersion)
	}
	if !strings.HasPrefix(GetFullVersion(), "v1.2.3 (commit: ") {
		t.Errorf("unexpected full version %q", GetFullVersion())
	}
}

func TestGet_Unstamped(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = ""

	if GetVersion() == "" {
		t.Error("an unstamped build still reports a version")
	}
}
