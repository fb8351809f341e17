package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/emo/internal/models"
)

// str reads the first of keys present in args as a trimmed string.
func str(args models.Args, keys ...string) string {
	for _, k := range keys {
		if v, ok := args[k]; ok && v != nil {
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

// integer reads key as an int. JSON numbers and numeric strings are accepted;
// anything else yields def.
func integer(args models.Args, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func required(args models.Args, keys ...string) (string, error) {
	if v := str(args, keys...); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("missing argument '%s'", keys[0])
}

// clip shortens s to n runes and marks the cut.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
