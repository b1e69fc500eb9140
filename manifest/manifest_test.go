package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"
entry = "src/app.plc"

[generator]
class = "Demo"
indent = 2
output = "out/Demo.java"

[log]
verbosity = 2
file = "plc.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "src", "app.plc") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.OutputPath() != filepath.Join(m.Dir, "out", "Demo.java") {
		t.Errorf("output path = %q", m.OutputPath())
	}
	if m.Log.Verbosity != 2 || m.Log.File != "plc.log" {
		t.Errorf("log = %+v", m.Log)
	}

	opts := m.GeneratorOptions()
	if opts.ClassName != "Demo" || opts.Indent != 2 {
		t.Errorf("generator options = %+v", opts)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Entry != "main.plc" {
		t.Errorf("default entry = %q, want main.plc", m.Project.Entry)
	}
	if opts := m.GeneratorOptions(); opts.ClassName != "Main" || opts.Indent != 4 {
		t.Errorf("default generator options = %+v", opts)
	}
	if m.OutputPath() != "" {
		t.Errorf("default output = %q, want stdout", m.OutputPath())
	}
	if m.Log.Verbosity != 0 {
		t.Errorf("default verbosity = %d", m.Log.Verbosity)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"wrong type", "[generator]\nindent = \"four\"", "parse error"},
		{"unknown key", "[project]\nname = \"x\"\nentyr = \"main.plc\"", "unknown key project.entyr"},
	}
	for _, tc := range tests {
		dir := t.TempDir()
		writeManifest(t, dir, tc.content)
		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error = %v, want it to mention %q", tc.name, err, tc.want)
		}
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load succeeded without a manifest")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "main.plc") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no plc.toml exists")
	}
}

func TestAbsolutePaths(t *testing.T) {
	m := &Manifest{
		Dir:       "/app",
		Project:   Project{Entry: "/srv/prog.plc"},
		Generator: Generator{Output: "/tmp/Main.java"},
	}
	if m.EntryPath() != "/srv/prog.plc" {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.OutputPath() != "/tmp/Main.java" {
		t.Errorf("output path = %q", m.OutputPath())
	}
}
