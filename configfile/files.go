package configfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// LoadYAMLFile reads an override mapping from a YAML file.
func LoadYAMLFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("configfile: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadTOMLFile reads an override mapping from a TOML file.
func LoadTOMLFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("configfile: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadTOML(f)
}

// SaveYAMLFile atomically writes the tree to a YAML file.
func SaveYAMLFile(path string, tree Exporter, withDefaults bool) error {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, tree, withDefaults); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// SaveTOMLFile atomically writes the tree to a TOML file.
func SaveTOMLFile(path string, tree Exporter, withDefaults bool) error {
	var buf bytes.Buffer
	if err := WriteTOML(&buf, tree, withDefaults); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes through a synced temp file renamed into place, so a
// crash mid-save never leaves a truncated config behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("configfile: create directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("configfile: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("configfile: write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("configfile: sync %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("configfile: close %q: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("configfile: rename to %q: %w", path, err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("configfile: chmod %q: %w", path, err)
	}
	return nil
}
