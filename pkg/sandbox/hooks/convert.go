package hooks

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// typeName returns the gettype() label of a value. Sandboxed strings report
// as strings.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "NULL"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "double"
	case string, *SandboxedString:
		return "string"
	case []any, map[string]any:
		return "array"
	}
	return "object"
}

func isScalar(v any) bool {
	switch typeName(v) {
	case "boolean", "integer", "double", "string":
		return true
	}
	return false
}

func isNumeric(v any) bool {
	switch typeName(v) {
	case "integer", "double":
		return true
	}
	return false
}

func toInt(v any) int64 {
	switch n := Unwrap(v).(type) {
	case nil:
		return 0
	case bool:
		if n {
			return 1
		}
		return 0
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return truncate(float64(n))
	case float64:
		return truncate(n)
	case string:
		return truncate(leadingNumber(n))
	case []any:
		return boolInt(len(n) > 0)
	case map[string]any:
		return boolInt(len(n) > 0)
	}
	return 1
}

func toFloat(v any) float64 {
	switch n := Unwrap(v).(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case string:
		return leadingNumber(n)
	}
	return float64(toInt(v))
}

func toBool(v any) bool {
	switch n := Unwrap(v).(type) {
	case nil:
		return false
	case bool:
		return n
	case string:
		return n != "" && n != "0"
	case float32, float64:
		return toFloat(n) != 0
	}
	return toInt(v) != 0
}

func toString(v any) string {
	switch n := Unwrap(v).(type) {
	case nil:
		return ""
	case bool:
		if n {
			return "1"
		}
		return ""
	case string:
		return n
	case float32:
		return strconv.FormatFloat(float64(n), 'G', 14, 32)
	case float64:
		return strconv.FormatFloat(n, 'G', 14, 64)
	case []any, map[string]any:
		return "Array"
	}
	if isNumeric(v) {
		return strconv.FormatInt(toInt(v), 10)
	}
	return fmt.Sprint(v)
}

func toArray(v any) any {
	switch n := Unwrap(v).(type) {
	case nil:
		return []any{}
	case []any, map[string]any:
		return n
	default:
		return []any{n}
	}
}

func toObject(v any) any {
	switch n := Unwrap(v).(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return n
	case []any:
		out := make(map[string]any, len(n))
		for i, item := range n {
			out[strconv.Itoa(i)] = item
		}
		return out
	default:
		if typeName(n) == "object" {
			return n
		}
		return map[string]any{"scalar": n}
	}
}

// leadingNumber parses the numeric prefix of s, ignoring leading whitespace.
func leadingNumber(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			break scan
		}
		end++
	}
	for end > 0 {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
		end--
	}
	return 0
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
