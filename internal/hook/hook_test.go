package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/formcheck/internal/exercise"
)

var _ exercise.Sink = (*Sink)(nil)

// writeHook creates a hook directory with a manifest and a shell script.
func writeHook(t *testing.T, dir string, manifest Manifest, script string) *Hook {
	t.Helper()

	hookDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}

	if manifest.Executable == "" {
		manifest.Executable = "run.sh"
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	scriptPath := filepath.Join(hookDir, manifest.Executable)
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Hook{Manifest: manifest, Path: hookDir, Executable: scriptPath}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

func shallowRep() exercise.RepEvent {
	return exercise.RepEvent{
		Exercise:      exercise.Squat,
		RepIndex:      2,
		PrimaryMetric: 108,
		ErrorTag:      exercise.TagShallowSquat,
		Feedback:      "Slightly Shallow",
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`
	h := writeHook(t, t.TempDir(), Manifest{Name: "echo"}, script)

	req := &Request{Event: RepEvent, RunID: "run-1", Rep: shallowRep(), Config: json.RawMessage(`{"voice":"alex"}`)}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success=true, got false")
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data.Received.RunID != "run-1" || data.Received.Event != RepEvent {
		t.Errorf("unexpected request echoed back: %+v", data.Received)
	}
	if data.Received.Rep.ErrorTag != exercise.TagShallowSquat || data.Received.Rep.RepIndex != 2 {
		t.Errorf("rep not passed to hook: %+v", data.Received.Rep)
	}
	if string(data.Received.Config) != `{"voice":"alex"}` {
		t.Errorf("config not passed to hook: %s", data.Received.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/sh
sleep 10
echo '{"success":true}'
`
	h := writeHook(t, t.TempDir(), Manifest{Name: "slow"}, script)

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), h, &Request{Event: RepEvent})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/sh
echo '{"success":false,"error":"speaker busy"}'
`
	h := writeHook(t, t.TempDir(), Manifest{Name: "error"}, script)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{Event: RepEvent})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.Success {
		t.Errorf("expected success=false, got true")
	}
	if resp.Error != "speaker busy" {
		t.Errorf("expected error 'speaker busy', got %q", resp.Error)
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	skipOnWindows(t)

	h := writeHook(t, t.TempDir(), Manifest{Name: "bad"}, "#!/bin/sh\necho 'not valid json'\n")

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{}); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/sh
echo "Error: something failed" >&2
exit 1
`
	h := writeHook(t, t.TempDir(), Manifest{Name: "exit"}, script)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{})
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "something failed") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestHook_Wants(t *testing.T) {
	good := exercise.RepEvent{Exercise: exercise.Squat, ErrorTag: exercise.TagNone}
	bad := shallowRep()
	curl := exercise.RepEvent{Exercise: exercise.BicepCurl, ErrorTag: exercise.TagElbowSwinging}

	tests := []struct {
		name     string
		manifest Manifest
		ev       exercise.RepEvent
		want     bool
	}{
		{"all reps", Manifest{}, good, true},
		{"faulty only skips good reps", Manifest{FaultyOnly: true}, good, false},
		{"faulty only keeps faulty reps", Manifest{FaultyOnly: true}, bad, true},
		{"exercise filter matches", Manifest{Exercises: []exercise.Exercise{exercise.Squat}}, bad, true},
		{"exercise filter rejects", Manifest{Exercises: []exercise.Exercise{exercise.Squat}}, curl, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Hook{Manifest: tt.manifest}
			if got := h.Wants(tt.ev); got != tt.want {
				t.Errorf("Wants() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_Discover(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, Manifest{Name: "b-hook", Version: "1.0.0", Description: "second"}, "#!/bin/sh\n")
	writeHook(t, dir, Manifest{Name: "a-hook", Version: "2.0.0", FaultyOnly: true}, "#!/bin/sh\n")

	// a directory without a manifest is ignored
	if err := os.MkdirAll(filepath.Join(dir, "not-a-hook"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := manager.List()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Manifest.Name != "a-hook" || hooks[1].Manifest.Name != "b-hook" {
		t.Errorf("hooks should be sorted by name, got %s, %s", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}
	if !hooks[0].Manifest.FaultyOnly {
		t.Error("expected a-hook to be faulty only")
	}
	if hooks[0].Executable != filepath.Join(dir, "a-hook", "run.sh") {
		t.Errorf("unexpected executable path %q", hooks[0].Executable)
	}

	h, err := manager.Get("b-hook")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if h.Manifest.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", h.Manifest.Version)
	}
}

func TestManager_Discover_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	hookDir := filepath.Join(dir, "bad-hook")
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Fatalf("invalid manifests should be skipped, got %d hooks", len(manager.List()))
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Fatalf("expected 0 hooks, got %d", len(manager.List()))
	}
	if manager.Dir() != "/path/that/does/not/exist" {
		t.Errorf("unexpected dir %q", manager.Dir())
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())

	if _, err := manager.Get("nonexistent"); err != ErrHookNotFound {
		t.Errorf("expected ErrHookNotFound, got %v", err)
	}
}

func TestSink_Record(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "calls.log")

	// each hook appends its name and the rep index to a shared file
	script := func(name string) string {
		return "#!/bin/sh\nINPUT=$(cat)\necho \"" + name + " $INPUT\" >> " + out + "\necho '{\"success\":true}'\n"
	}
	writeHook(t, dir, Manifest{Name: "all"}, script("all"))
	writeHook(t, dir, Manifest{Name: "faults", FaultyOnly: true}, script("faults"))

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	sink := NewSink(manager, NewExecutor(5*time.Second), "run-7")
	sink.Strict = true

	ctx := context.Background()
	if err := sink.Record(ctx, exercise.RepEvent{Exercise: exercise.Squat, RepIndex: 1, ErrorTag: exercise.TagNone}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := sink.Record(ctx, shallowRep()); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read calls: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 hook calls, got %d: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "all ") || !strings.HasPrefix(lines[1], "all ") || !strings.HasPrefix(lines[2], "faults ") {
		t.Errorf("unexpected call order %q", lines)
	}
	if !strings.Contains(lines[2], `"run-7"`) {
		t.Errorf("run id not passed to hook: %s", lines[2])
	}
}

func TestSink_Failures(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, Manifest{Name: "refuses"}, "#!/bin/sh\necho '{\"success\":false,\"error\":\"no\"}'\n")
	writeHook(t, dir, Manifest{Name: "crashes"}, "#!/bin/sh\nexit 3\n")

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	sink := NewSink(manager, NewExecutor(5*time.Second), "")
	if err := sink.Record(context.Background(), shallowRep()); err != nil {
		t.Errorf("failures should only be logged by default, got %v", err)
	}

	sink.Strict = true
	err := sink.Record(context.Background(), shallowRep())
	if err == nil {
		t.Fatal("expected an error in strict mode")
	}
	if !strings.Contains(err.Error(), "refuses") || !strings.Contains(err.Error(), "crashes") {
		t.Errorf("expected both failures to be reported, got %v", err)
	}
}
