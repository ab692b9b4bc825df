// Package parser reads and writes exported view-state files.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imishinist/mlflow-runs/internal/models"
)

// ViewStateFile is the document `view export` writes and `view import` reads.
type ViewStateFile struct {
	Version    string           `json:"version" yaml:"version"`
	Experiment string           `json:"experiment,omitempty" yaml:"experiment,omitempty"`
	View       models.ViewState `json:"view" yaml:"view"`
	Page       models.PageState `json:"page" yaml:"page"`
}

// newViewStateFile returns a document whose view is prefilled with defaults
// so that a partial file only overrides what it names.
func newViewStateFile() ViewStateFile {
	return ViewStateFile{View: models.DefaultViewState()}
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format: %s (supported: json, yaml)", s)
}
