package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/absfs/stagefs"
)

// ErrInvalidManifest is returned for manifests that cannot be staged
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest lists the files one apply run should stage.
type Manifest struct {
	Files []FileSpec `yaml:"files"`

	// dir is where Source paths are resolved from.
	dir string
}

// FileSpec describes the target state of one file.
type FileSpec struct {
	Path string `yaml:"path"`
	// Contents is the literal file body.
	Contents *string `yaml:"contents,omitempty"`
	// Source names a local file whose bytes become the contents.
	Source string `yaml:"source,omitempty"`
	// Executable, when set, stages the executable flag.
	Executable *bool `yaml:"executable,omitempty"`
	// Delete stages removal of the file.
	Delete bool `yaml:"delete,omitempty"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes and validates a manifest. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.dir = "."
	return &m, nil
}

// Validate checks that every entry describes exactly one kind of change.
func (m *Manifest) Validate() error {
	seen := make(map[string]int)
	for i, f := range m.Files {
		if f.Path == "" {
			return fmt.Errorf("%w: files[%d]: path is required", ErrInvalidManifest, i)
		}
		key := filepath.Clean(f.Path)
		if j, ok := seen[key]; ok {
			return fmt.Errorf("%w: files[%d]: %s already listed at files[%d]", ErrInvalidManifest, i, f.Path, j)
		}
		seen[key] = i

		switch {
		case f.Contents != nil && f.Source != "":
			return fmt.Errorf("%w: %s: contents and source are mutually exclusive", ErrInvalidManifest, f.Path)
		case f.Delete && (f.Contents != nil || f.Source != "" || f.Executable != nil):
			return fmt.Errorf("%w: %s: delete cannot be combined with other fields", ErrInvalidManifest, f.Path)
		case !f.Delete && f.Contents == nil && f.Source == "" && f.Executable == nil:
			return fmt.Errorf("%w: %s: nothing to stage", ErrInvalidManifest, f.Path)
		}
	}
	return nil
}

// Stage records every entry of m in sfs.
func (m *Manifest) Stage(sfs *stagefs.FS) error {
	for _, f := range m.Files {
		if err := m.stageFile(sfs, f); err != nil {
			return fmt.Errorf("stage %s: %w", f.Path, err)
		}
	}
	return nil
}

func (m *Manifest) stageFile(sfs *stagefs.FS, f FileSpec) error {
	if f.Delete {
		return sfs.Delete(f.Path)
	}

	switch {
	case f.Contents != nil:
		if err := sfs.Write(f.Path, []byte(*f.Contents)); err != nil {
			return err
		}
	case f.Source != "":
		src := f.Source
		if !filepath.IsAbs(src) {
			src = filepath.Join(m.dir, src)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		if err := sfs.Write(f.Path, data); err != nil {
			return err
		}
	}

	if f.Executable != nil {
		return sfs.SetExecutable(f.Path, *f.Executable)
	}
	return nil
}
