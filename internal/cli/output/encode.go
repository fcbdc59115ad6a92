package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// EncodeJSON writes data as indented JSON.
func EncodeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// EncodeYAML writes data as YAML with two-space indentation.
func EncodeYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
