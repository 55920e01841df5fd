package memvfs

import (
	"io/fs"
	"time"
)

// Coercion from accepted alternate input types to the canonical
// stored forms. Each returns ok=false when the input matches none of
// the accepted types; the caller turns that into ErrInvalidType.

func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case int64:
		return time.UnixMilli(t), true
	case int:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func coerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func coerceBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		cloned := make([]byte, len(b))
		copy(cloned, b)
		return cloned, true
	case string:
		return []byte(b), true
	}
	return nil, false
}

func coerceMode(v any) (fs.FileMode, bool) {
	switch m := v.(type) {
	case fs.FileMode:
		return m & fs.ModePerm, true
	case uint32:
		return fs.FileMode(m) & fs.ModePerm, true
	case int:
		return fs.FileMode(m) & fs.ModePerm, true
	case string:
		return parseModeString(m)
	}
	return 0, false
}

// parseModeString parses the nine-character "rwxr-x---" form.
func parseModeString(s string) (fs.FileMode, bool) {
	if len(s) != 9 {
		return 0, false
	}
	var mode fs.FileMode
	for i, want := range "rwxrwxrwx" {
		switch s[i] {
		case byte(want):
			mode |= 1 << (8 - i)
		case '-':
		default:
			return 0, false
		}
	}
	return mode, true
}
