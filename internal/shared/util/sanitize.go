package util

import (
	"errors"
	"path/filepath"
	"strings"
)

const maxJobTagLen = 64

// SanitizeFileName replaces path separators so name is a single key segment.
// Empty names and the relative names "." and ".." are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	switch strings.Trim(s, "/\\") {
	case "", ".", "..":
		return "", errors.New("invalid file name")
	}
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s, nil
}

// ObjectKeyForPath derives a storage key from the base name of a local path.
func ObjectKeyForPath(path string) (string, error) {
	return SanitizeFileName(filepath.Base(strings.TrimSpace(path)))
}

// JobTag converts name into a value accepted as an analysis job tag:
// at most 64 characters from [a-zA-Z0-9_.\-:]. Other characters become '_'.
func JobTag(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() >= maxJobTagLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '.' || r == '-' || r == ':':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
