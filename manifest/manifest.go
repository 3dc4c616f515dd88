// Package manifest handles ilgen.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "ilgen.toml"

// Defaults applied to fields left unset.
const (
	DefaultImage    = "out.ilimg"
	DefaultMaxSteps = 10_000_000
)

// Manifest represents an ilgen.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Output  Output  `toml:"output"`
	Log     Log     `toml:"log"`
	VM      VM      `toml:"vm"`

	// Dir is the directory containing the ilgen.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata. Name becomes the module name.
type Project struct {
	Name string `toml:"name"`
}

// Output configures where built images go.
type Output struct {
	Image string `toml:"image"`
}

// Log configures the commonlog backend. Verbosity is passed to
// commonlog.Configure; higher values log more. An empty File logs to
// stderr.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// VM configures the interpreter used by "ilgen run".
type VM struct {
	MaxSteps int64 `toml:"max-steps"`
	Trace    bool  `toml:"trace"`
}

// Default returns the manifest used when no ilgen.toml is found.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses an ilgen.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

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
	if m.VM.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: vm.max-steps must not be negative", path)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Output.Image == "" {
		m.Output.Image = DefaultImage
	}
	if m.VM.MaxSteps == 0 {
		m.VM.MaxSteps = DefaultMaxSteps
	}
}

// FindAndLoad walks up from startDir to find an ilgen.toml file,
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

// ImagePath returns the absolute path of the output image.
func (m *Manifest) ImagePath() string {
	if filepath.IsAbs(m.Output.Image) {
		return m.Output.Image
	}
	return filepath.Join(m.Dir, m.Output.Image)
}

// LogPath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	if m.Log.File == "" || filepath.IsAbs(m.Log.File) {
		return m.Log.File
	}
	return filepath.Join(m.Dir, m.Log.File)
}
