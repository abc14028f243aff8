package util

import (
	"errors"
	"strings"
)

var errInvalidSegment = errors.New("invalid path segment")

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// SafePathSegment makes an identifier usable as a single object-key segment.
// Separators and colons become underscores; traversal is rejected.
func SafePathSegment(id string) (string, error) {
	s := strings.TrimSpace(id)
	if s == "" || s == "." || strings.Contains(s, "..") {
		return "", errInvalidSegment
	}
	s = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(s)
	return s, nil
}
