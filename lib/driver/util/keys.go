package util

import (
	"net/url"
	"strings"
)

// --------------------------------------------------------------------------
// Key Normalization
// --------------------------------------------------------------------------

// NormalizeKey URL-unescapes a key and strips leading and trailing slashes.
// Keys that are not valid escapes are used as they are.
func NormalizeKey(key string) string {
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	return strings.Trim(key, "/")
}

// JoinKey joins key parts with "/" and skips empty parts
func JoinKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "/")
}

// HasTraversal reports whether any segment of the path is ".."
func HasTraversal(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Prefix Matching
// --------------------------------------------------------------------------

// HasPathPrefix reports whether key equals prefix or lies below it.
// Matching works on whole segments, "foo" matches "foo/bar" but not "foobar".
// An empty prefix matches every key.
func HasPathPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}

// TrimPathPrefix returns key relative to prefix.
// The boolean is false if the key does not lie below the prefix.
func TrimPathPrefix(key, prefix string) (string, bool) {
	if prefix == "" {
		return key, true
	}
	if rest, ok := strings.CutPrefix(key, prefix+"/"); ok && rest != "" {
		return rest, true
	}
	return "", false
}

// EscapeGlob escapes the glob meta characters of s (as used by redis MATCH)
func EscapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
