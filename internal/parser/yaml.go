package parser

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func ParseYAMLViewState(reader io.Reader) (*ViewStateFile, error) {
	data := newViewStateFile()
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML view state: %w", err)
	}

	return &data, nil
}

func WriteYAMLViewState(writer io.Writer, file *ViewStateFile) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("failed to write YAML view state: %w", err)
	}

	return encoder.Close()
}

// ParseViewState reads a document in the given format.
func ParseViewState(reader io.Reader, format Format) (*ViewStateFile, error) {
	if format == FormatYAML {
		return ParseYAMLViewState(reader)
	}
	return ParseJSONViewState(reader)
}

// WriteViewState writes a document in the given format.
func WriteViewState(writer io.Writer, file *ViewStateFile, format Format) error {
	if format == FormatYAML {
		return WriteYAMLViewState(writer, file)
	}
	return WriteJSONViewState(writer, file)
}
