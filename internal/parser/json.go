package parser

import (
	"encoding/json"
	"fmt"
	"io"
)

func ParseJSONViewState(reader io.Reader) (*ViewStateFile, error) {
	data := newViewStateFile()
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON view state: %w", err)
	}

	return &data, nil
}

func WriteJSONViewState(writer io.Writer, file *ViewStateFile) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("failed to write JSON view state: %w", err)
	}

	return nil
}
