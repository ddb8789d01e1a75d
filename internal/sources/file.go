package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a settings file syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported settings file format")

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// File reads a settings document from disk and flattens it.
type File struct {
	name      string
	priority  int
	path      string
	format    Format
	optional  bool
	sensitive bool
}

// FileOption configures a File provider.
type FileOption func(*File)

// Optional makes a missing file load as an empty entry set.
func Optional() FileOption {
	return func(f *File) {
		f.optional = true
	}
}

// Sensitive marks the file as holding secrets.
func Sensitive() FileOption {
	return func(f *File) {
		f.sensitive = true
	}
}

// NewFile creates a file provider. The format is inferred from the extension.
func NewFile(name string, priority int, path string, opts ...FileOption) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f := &File{
		name:     name,
		priority: priority,
		path:     path,
		format:   format,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *File) Name() string     { return f.name }
func (f *File) Priority() int    { return f.priority }
func (f *File) Path() string     { return f.path }
func (f *File) Sensitive() bool  { return f.sensitive }
func (f *File) IsOptional() bool { return f.optional }

// Load reads and flattens the file. A missing optional file yields no entries.
func (f *File) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if f.optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	doc, err := decode(f.format, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", f.format, f.path, err)
	}

	entries, err := Flatten(doc)
	if err != nil {
		return nil, fmt.Errorf("flatten %q: %w", f.path, err)
	}
	return entries, nil
}

func decode(format Format, data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	doc := make(map[string]any)
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnsupportedFormat
	}
	return doc, nil
}
