package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError reports a malformed flow file.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// document is the top-level flow file shape: {"flows":[...]}.
type document struct {
	Flows []Flow `json:"flows" yaml:"flows"`
}

// Load reads a flow file. JSON is the canonical store format; files ending
// in .yaml or .yml are accepted as an authoring convenience. A missing file
// is not an error and yields no flows.
func Load(path string) ([]Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided flow file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes flow file content. The format is chosen by the path's
// extension, defaulting to JSON.
func Parse(data []byte, path string) ([]Flow, error) {
	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("invalid yaml: %v", err)}
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("invalid json: %v", err)}
		}
	}
	return doc.Flows, nil
}

// Save writes flows to path as canonical JSON, creating parent directories
// as needed. Saving always produces JSON regardless of the load format.
func Save(path string, flows []Flow) error {
	if flows == nil {
		flows = []Flow{}
	}
	data, err := json.MarshalIndent(document{Flows: flows}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode flows: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
