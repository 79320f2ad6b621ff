package stage

import (
	"strconv"
	"strings"
)

// raw is the permissive shape every reply is decoded into before repair.
type raw = map[string]any

// str returns v as a trimmed string when it is a non-empty JSON string.
func str(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// strOr returns the string at key, or def when absent, empty or not a string.
func strOr(m raw, key, def string) string {
	if s, ok := str(m[key]); ok {
		return s
	}
	return def
}

// num accepts JSON numbers and numeric strings.
func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// objects returns the JSON objects in v when v is a list; anything else
// yields nil. Non-object entries are dropped.
func objects(v any) []raw {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]raw, 0, len(list))
	for _, e := range list {
		if m, ok := e.(raw); ok {
			out = append(out, m)
		}
	}
	return out
}

// stringList returns the string entries of a JSON list, skipping the rest.
func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := str(e); ok {
			out = append(out, s)
		}
	}
	return out
}
