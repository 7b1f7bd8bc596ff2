// Package scenarios runs scene tests that are described in TOML files instead of Go code. Each
// file names a scene resource and lists tests; each test is a sequence of steps that drive a
// scene.Session.
package scenarios

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// File is one scenario file.
type File struct {
	// Name defaults to the file's base name.
	Name  string `toml:"name"`
	Scene string `toml:"scene"`
	// AutoFree frees the scene after every test unless it is set to false.
	AutoFree *bool `toml:"auto_free"`
	Verbose  bool  `toml:"verbose"`
	// Requires lists service capabilities without which every test is skipped.
	Requires []string `toml:"requires"`
	// TimeoutMS is the default step timeout of the tests in the file.
	TimeoutMS int    `toml:"timeout_ms"`
	Tests     []Test `toml:"test"`
}

type Test struct {
	Name      string   `toml:"name"`
	Requires  []string `toml:"requires"`
	TimeoutMS int      `toml:"timeout_ms"`
	Steps     []Step   `toml:"step"`
}

// Step is one action of a test. Which of the other fields are used depends on Action.
type Step struct {
	Action      string    `toml:"action"`
	Key         string    `toml:"key"`
	Mods        []string  `toml:"mods"`
	Button      string    `toml:"button"`
	DoubleClick bool      `toml:"double_click"`
	X           float64   `toml:"x"`
	Y           float64   `toml:"y"`
	Speed       []float64 `toml:"speed"`
	Count       int       `toml:"count"`
	IntervalMS  int       `toml:"interval_ms"`
	MS          int       `toml:"ms"`
	Factor      float64   `toml:"factor"`
	Signal      string    `toml:"signal"`
	Method      string    `toml:"method"`
	Property    string    `toml:"property"`
	Args        []any     `toml:"args"`
	Value       any       `toml:"value"`
	TimeoutMS   int       `toml:"timeout_ms"`
}

// Parse decodes and validates a scenario file. Unknown fields are errors.
func Parse(name string, data []byte) (*File, error) {
	var f File
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &f, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// LoadAll loads every path; a directory contributes all of its *.toml files.
func LoadAll(paths []string) ([]*File, error) {
	var files []*File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		matches := []string{p}
		if info.IsDir() {
			if matches, err = filepath.Glob(filepath.Join(p, "*.toml")); err != nil {
				return nil, err
			}
		}
		for _, m := range matches {
			f, err := Load(m)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

func (f *File) autoFree() bool {
	return f.AutoFree == nil || *f.AutoFree
}

func (f *File) validate() error {
	if f.Scene == "" {
		return errors.New("scene is required")
	}
	if len(f.Tests) == 0 {
		return errors.New("no tests")
	}
	seen := make(map[string]bool)
	for i, t := range f.Tests {
		if t.Name == "" {
			return fmt.Errorf("test %d has no name", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate test name %q", t.Name)
		}
		seen[t.Name] = true
		for j, s := range t.Steps {
			if _, err := s.compile(0); err != nil {
				return fmt.Errorf("test %q, step %d: %w", t.Name, j+1, err)
			}
		}
	}
	return nil
}
