package design

import (
	"strconv"
	"strings"
	"time"
)

// Params wraps a node's data block for type-safe value extraction.
// Keys are dotted paths into nested maps ("node.template.temperature.value").
// All accessors return the default if the path is missing or the value
// cannot be converted.
type Params struct {
	data map[string]any
}

// NewParams creates Params over data. A nil map behaves as empty.
func NewParams(data map[string]any) Params {
	if data == nil {
		data = make(map[string]any)
	}
	return Params{data: data}
}

// Lookup returns the raw value at path.
func (p Params) Lookup(path string) (any, bool) {
	var cur any = p.data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Field returns the path of a flow-builder template field's value.
// Exported nodes carry their editable fields under node.template.<name>.value.
func Field(name string) string {
	return "node.template." + name + ".value"
}

// String returns the string at path, or defaultVal.
func (p Params) String(path, defaultVal string) string {
	v, ok := p.Lookup(path)
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Float returns the number at path, or defaultVal.
// Numeric strings are accepted since exports often quote numbers.
func (p Params) Float(path string, defaultVal float64) float64 {
	v, ok := p.Lookup(path)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// Int returns the integer at path, or defaultVal.
// Floats with a fractional part are rejected.
func (p Params) Int(path string, defaultVal int) int {
	v, ok := p.Lookup(path)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return defaultVal
}

// Bool returns the boolean at path, or defaultVal.
func (p Params) Bool(path string, defaultVal bool) bool {
	v, ok := p.Lookup(path)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

// Duration returns the duration at path, or defaultVal.
// Strings are parsed with time.ParseDuration; numbers are seconds.
func (p Params) Duration(path string, defaultVal time.Duration) time.Duration {
	v, ok := p.Lookup(path)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	}
	return defaultVal
}
