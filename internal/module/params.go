package module

import "strconv"

// Params carries module parameters as loosely typed values, typically decoded
// from a JSON request body or CLI flags. The getters coerce common encodings
// and fall back to the provided default when the key is absent or the value
// does not convert.
type Params map[string]any

// Has reports whether a key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value at key as a string.
func (p Params) String(key, fallback string) string {
	if value, ok := p[key].(string); ok {
		return value
	}
	return fallback
}

// Float returns the value at key as a float64. JSON numbers, integers, and
// numeric strings are accepted.
func (p Params) Float(key string, fallback float64) float64 {
	switch value := p[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// Int returns the value at key as an int. JSON numbers are truncated.
func (p Params) Int(key string, fallback int) int {
	switch value := p[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// Bool returns the value at key as a bool. The strings accepted by
// strconv.ParseBool convert too.
func (p Params) Bool(key string, fallback bool) bool {
	switch value := p[key].(type) {
	case bool:
		return value
	case string:
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
