package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects the text representation used when writing a configuration
// value to disk and parsing it back. The zero value is TOML.
type Format int

const (
	// TOML format (".toml" extension). The default for new registrations.
	TOML Format = iota
	// JSON format (".json" extension). Written indented.
	JSON
	// YAML format (".yaml" extension).
	YAML
)

// Exported error categories returned by this package. These are used with wrapping
// so callers can detect error classes using errors.Is/As.
//   - ErrUnsupportedFormat: format name is not one of "toml", "json", "yaml".
//   - ErrFormat: failure to marshal a value to bytes (e.g., unsupported type).
//   - ErrParse: failure to parse file contents into the target value.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFormat            = errors.New("format value")
	ErrParse             = errors.New("parse file")
)

// ParseFormat converts a format name to a Format. Recognized names are
// "toml", "json", "yaml" and the common alias "yml".
func ParseFormat(name string) (Format, error) {
	switch name {
	case "toml":
		return TOML, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Ext returns the file extension associated with the format, without the dot.
func (f Format) Ext() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return "toml"
	}
}

func (f Format) String() string { return f.Ext() }

// marshal converts value to text in the receiver format.
// Guards against panics from encoders (e.g., yaml on unsupported kinds like func).
func (f Format) marshal(value any) (data []byte, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			retErr = fmt.Errorf("%w as %s: %v", ErrFormat, f, r)
		}
	}()

	var err error
	switch f {
	case JSON:
		data, err = json.MarshalIndent(value, "", "  ")
	case YAML:
		data, err = yaml.Marshal(value)
	default:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(value)
		data = buf.Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("%w as %s: %w", ErrFormat, f, err)
	}
	return data, nil
}

// unmarshal parses text in the receiver format into value, which must be a
// non-nil pointer.
func (f Format) unmarshal(data []byte, value any) error {
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, value)
	case YAML:
		err = yaml.Unmarshal(data, value)
	default:
		_, err = toml.Decode(string(data), value)
	}
	if err != nil {
		return fmt.Errorf("%w as %s: %w", ErrParse, f, err)
	}
	return nil
}
