package resultfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"doc-analyzer/internal/analysis"
)

// Format selects the on-disk encoding of a result file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension; JSON unless .yaml/.yml.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode renders res as pretty-printed text in the given format.
func Encode(res analysis.Result, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
}

// Decode parses data produced by Encode.
func Decode(data []byte, format Format) (analysis.Result, error) {
	var res analysis.Result
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &res); err != nil {
			return analysis.Result{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &res); err != nil {
			return analysis.Result{}, fmt.Errorf("decode json: %w", err)
		}
	}
	return res, nil
}

// Write replaces the file at path with the encoded result.
func Write(path string, res analysis.Result) error {
	data, err := Encode(res, FormatFor(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create result dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}

// Read loads a result file written by Write.
func Read(path string) (analysis.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("read result file: %w", err)
	}
	return Decode(data, FormatFor(path))
}
