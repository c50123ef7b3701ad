package service

import (
	"bytes"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
)

func TestNewProgressManager_Disabled(t *testing.T) {
	pm := NewProgressManager(false)
	if pm.IsInteractive() {
		t.Error("expected non-interactive progress manager when disabled")
	}
}

func TestNewProgressManager_CI(t *testing.T) {
	t.Setenv("CI", "true")
	if IsInteractiveEnvironment() {
		t.Error("CI environments are never interactive")
	}
	if NewProgressManager(true).IsInteractive() {
		t.Error("expected no bars in CI")
	}
}

func TestNoOpProgressManager(t *testing.T) {
	pm := &NoOpProgressManager{}
	task := pm.StartTask("test", 100)
	if task == nil {
		t.Fatal("expected non-nil task from StartTask")
	}
	task.Increment(10)
	task.Describe("testing")
	task.Complete()
	pm.Close()
}

func TestProgressManagerImpl_WritesBars(t *testing.T) {
	var buf bytes.Buffer
	pm := newProgressManager(&buf)

	task := pm.StartTask("Building methods", 4)
	task.Increment(2)
	task.Describe("Replaying traces")
	task.Increment(2)
	task.Complete()
	pm.Close()

	if !pm.IsInteractive() {
		t.Error("bar manager is interactive")
	}
	if buf.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestProgressManagerImpl_Interface(t *testing.T) {
	var _ domain.ProgressManager = &ProgressManagerImpl{}
	var _ domain.TaskProgress = &TaskProgressImpl{}
	var _ domain.ProgressManager = &NoOpProgressManager{}
	var _ domain.TaskProgress = &NoOpTaskProgress{}
}
