package persist

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const envTagName = "env"

// applyEnv walks a struct value and overrides its fields from environment
// variables named PREFIX_SEGMENT[_SEGMENT...]. Segments come from `env` tags,
// falling back to the field name in SCREAMING_SNAKE_CASE. A tag of "-" skips
// the field. Nested structs recurse with their segment appended; pointer
// fields are allocated on demand, and only when a relevant variable is set.
func applyEnv(v reflect.Value, prefix string, segments []string) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		tag := sf.Tag.Get(envTagName)
		if tag == "-" {
			continue
		}
		seg := tag
		if seg == "" {
			seg = toScreamingSnake(sf.Name)
		}
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		name := buildEnvName(prefix, append(segments, seg))

		switch field.Kind() {
		case reflect.Struct:
			applyEnv(field, prefix, append(segments, seg))
		case reflect.Pointer:
			elem := field.Type().Elem()
			if elem.Kind() == reflect.Struct {
				// Allocate *struct only when at least one nested variable for
				// this segment is present (e.g. APP_PINNER_*).
				if hasAnyEnvWithPrefix(name + "_") {
					if field.IsNil() {
						field.Set(reflect.New(elem))
					}
					applyEnv(field, prefix, append(segments, seg))
				}
				continue
			}
			raw, ok := os.LookupEnv(name)
			if !ok {
				continue
			}
			// Parse into a scratch value first; a failed parse must not leave
			// an allocated zero pointer behind.
			scratch := reflect.New(elem).Elem()
			if setScalar(scratch, raw) {
				if field.IsNil() {
					field.Set(reflect.New(elem))
				}
				field.Elem().Set(scratch)
			}
		default:
			if raw, ok := os.LookupEnv(name); ok {
				setScalar(field, raw)
			}
		}
	}
}

// setScalar sets a string/bool/int/uint/duration value from its textual env
// representation. Returns false, leaving v untouched, when raw does not parse
// or the kind is unsupported.
func setScalar(v reflect.Value, raw string) bool {
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
		return true
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return false
		}
		v.SetBool(b)
		return true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(strings.TrimSpace(raw))
			if err != nil {
				return false
			}
			v.SetInt(int64(d))
			return true
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return false
		}
		v.SetInt(n)
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || n < 0 {
			return false
		}
		v.SetUint(uint64(n))
		return true
	}
	return false
}

func buildEnvName(prefix string, segments []string) string {
	switch {
	case prefix == "" && len(segments) == 0:
		return ""
	case prefix == "":
		return strings.Join(segments, "_")
	case len(segments) == 0:
		return prefix
	default:
		return prefix + "_" + strings.Join(segments, "_")
	}
}

func hasAnyEnvWithPrefix(prefix string) bool {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func toScreamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && isBoundary(rune(s[i-1]), r) {
			b.WriteByte('_')
		}
		b.WriteRune(toUpper(r))
	}
	return b.String()
}

func isBoundary(prev, curr rune) bool {
	// Split words only on lower→upper case transitions (e.g., ApiKey → API_KEY).
	// Do NOT split between letters and digits so that ApiKey2FA → API_KEY2FA.
	return (prev >= 'a' && prev <= 'z') && (curr >= 'A' && curr <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
