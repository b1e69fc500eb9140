// Package manifest handles plc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/plc/compiler"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "plc.toml"

// Manifest represents a plc.toml project configuration.
type Manifest struct {
	Project   Project   `toml:"project"`
	Generator Generator `toml:"generator"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the plc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"` // program file, relative to Dir
}

// Generator configures Java output.
type Generator struct {
	Class  string `toml:"class"`
	Indent int    `toml:"indent"`
	Output string `toml:"output"` // "" means stdout
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"` // "" means stderr
}

// Load parses a plc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return parse(dir, path, data)
}

func parse(dir, path string, data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Entry == "" {
		m.Project.Entry = "main.plc"
	}
	defaults := compiler.DefaultGeneratorOptions()
	if m.Generator.Class == "" {
		m.Generator.Class = defaults.ClassName
	}
	if m.Generator.Indent <= 0 {
		m.Generator.Indent = defaults.Indent
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a plc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the program file.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// OutputPath returns the absolute path generated Java is written to, or ""
// for stdout.
func (m *Manifest) OutputPath() string {
	if m.Generator.Output == "" || filepath.IsAbs(m.Generator.Output) {
		return m.Generator.Output
	}
	return filepath.Join(m.Dir, m.Generator.Output)
}

// GeneratorOptions converts the [generator] table for compiler.NewGenerator.
func (m *Manifest) GeneratorOptions() compiler.GeneratorOptions {
	return compiler.GeneratorOptions{
		ClassName: m.Generator.Class,
		Indent:    m.Generator.Indent,
	}
}
