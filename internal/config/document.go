package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/validate"
)

// ErrEmptyDocument is returned for a document with no content.
var ErrEmptyDocument = errors.New("empty configuration document")

// LoadDocument reads a pipeline configuration file into a raw mapping.
func LoadDocument(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := DecodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// DecodeDocument decodes the first YAML document in r. The top level must be
// a mapping.
func DecodeDocument(r io.Reader) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, err
	}
	if doc == nil {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// WriteDocument encodes doc as YAML with two-space indentation.
func WriteDocument(w io.Writer, doc map[string]any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Load reads, validates and completes the configuration at path.
func Load(ctx context.Context, path string, c *complete.Completer) (complete.Completed, error) {
	raw, err := LoadDocument(path)
	if err != nil {
		return complete.Completed{}, err
	}
	v, err := validate.Validate(raw)
	if err != nil {
		return complete.Completed{}, err
	}
	return c.Complete(ctx, v)
}
