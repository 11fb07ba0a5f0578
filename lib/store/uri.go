package store

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var schemeRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*)://`)

// splitScheme returns the lowercased scheme and the rest of the uri.
// Plain paths have an empty scheme.
func splitScheme(uri string) (string, string) {
	m := schemeRe.FindStringSubmatch(uri)
	if m == nil {
		return "", uri
	}
	return strings.ToLower(m[1]), uri[len(m[0]):]
}

// NormalizeURI turns plain (relative) paths and file:// uris into absolute file:// uris.
// Other uris get a lowercase scheme and lose trailing slashes.
func NormalizeURI(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", NewError(RetCInvalidValue, "", "empty store uri")
	}

	scheme, rest := splitScheme(uri)
	switch scheme {
	case "":
		return fileURI(uri)
	case "file":
		if unescaped, err := url.PathUnescape(rest); err == nil {
			rest = unescaped
		}
		return fileURI(rest)
	default:
		return scheme + "://" + strings.TrimRight(rest, "/"), nil
	}
}

func fileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", NewError(RetCInvalidValue, path, fmt.Sprintf("invalid path: %v", err))
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// joinURI appends a key path to a store uri
func joinURI(uri, path string) string {
	if path == "" {
		return uri
	}
	if strings.HasSuffix(uri, "://") {
		return uri + path
	}
	return strings.TrimRight(uri, "/") + "/" + path
}
