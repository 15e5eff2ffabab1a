package fsbackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Codec converts between file content and a Resource. key is the resource
// being read; codecs that do not depend on it ignore it.
type Codec interface {
	Parse(key ResourceKey, data []byte) (Resource, error)
	Stringify(res Resource) ([]byte, error)
}

// JSONCodec is the default codec. Output is indented with Indent spaces and
// has no trailing newline.
type JSONCodec struct {
	Indent int
}

func (c JSONCodec) Parse(_ ResourceKey, data []byte) (Resource, error) {
	res := Resource{}
	if len(bytes.TrimSpace(data)) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if res == nil {
		// a literal null document
		res = Resource{}
	}
	return res, nil
}

func (c JSONCodec) Stringify(res Resource) ([]byte, error) {
	if res == nil {
		res = Resource{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if c.Indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", c.Indent))
	}
	if err := enc.Encode(res); err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// YAMLCodec reads and writes plain YAML mappings.
type YAMLCodec struct{}

func (YAMLCodec) Parse(_ ResourceKey, data []byte) (Resource, error) {
	res := Resource{}
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return res, nil
}

func (YAMLCodec) Stringify(res Resource) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(res)); err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// TOMLCodec reads and writes TOML documents; nested objects become tables.
type TOMLCodec struct{}

func (TOMLCodec) Parse(_ ResourceKey, data []byte) (Resource, error) {
	res := Resource{}
	if err := toml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("toml unmarshal: %w", err)
	}
	return res, nil
}

func (TOMLCodec) Stringify(res Resource) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any(res)); err != nil {
		return nil, fmt.Errorf("toml marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// DefaultCodecs returns the codecs registered for every new backend, keyed by
// lower-case file extension.
func DefaultCodecs(jsonIndent int) map[string]Codec {
	return map[string]Codec{
		".json": JSONCodec{Indent: jsonIndent},
		".yaml": YAMLCodec{},
		".yml":  YAMLCodec{},
		".toml": TOMLCodec{},
		".cel":  NewExprCodec(),
	}
}

func codecFor(codecs map[string]Codec, path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	c, ok := codecs[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return c, nil
}
