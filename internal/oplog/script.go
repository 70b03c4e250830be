// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oplog

import (
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// Script is a list of operations read from a YAML file.
type Script struct {
	Operations []Operation `yaml:"operations"`
}

// ReadScript decodes a Script from r. Validation against a page count
// happens when the operations are appended to a log.
func ReadScript(r io.Reader) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return Script{}, nil
		}
		return Script{}, fmt.Errorf("parsing operation script: %w", err)
	}
	return s, nil
}

// LoadScript reads a Script from the file at path.
func LoadScript(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("opening operation script %s: %w", path, err)
	}
	defer f.Close()
	return ReadScript(f)
}
