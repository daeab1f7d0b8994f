package chem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the serialisation of a pathway document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath guesses the document format from a file extension. Anything
// that is not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodePathway reads a pathway document in the given format.
func DecodePathway(r io.Reader, format Format) (*PathwayDTO, error) {
	var doc PathwayDTO
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml pathway: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json pathway: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported pathway format %q", format)
	}
	return &doc, nil
}

// EncodePathway writes a pathway document in the given format.
func EncodePathway(w io.Writer, doc *PathwayDTO, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml pathway: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported pathway format %q", format)
	}
}

// MarshalPathway is EncodePathway into a byte slice.
func MarshalPathway(doc *PathwayDTO, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePathway(&buf, doc, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
