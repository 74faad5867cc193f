package common

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseFormat accepts the --format values shared by the commands.
func ParseFormat(s string) (string, error) {
	switch s {
	case "", "text":
		return "text", nil
	case "json", "yaml":
		return s, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// WriteStructured marshals v as JSON or YAML to w.
func WriteStructured(w io.Writer, format string, v any) error {
	var (
		outputData []byte
		err        error
	)
	if format == "yaml" {
		outputData, err = yaml.Marshal(v)
	} else {
		outputData, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(outputData)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
