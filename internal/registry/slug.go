package registry

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Slug derives the stable project identifier for a directory.
//
// The readable part is the sanitized directory basename; the 8-hex
// sha1 suffix of the full path keeps slugs unique across directories
// that share a basename. The result is filesystem-safe and stable for
// the lifetime of the directory path.
func Slug(dir string) string {
	sum := sha1.Sum([]byte(dir))
	suffix := hex.EncodeToString(sum[:])[:8]

	base := strings.ToLower(lastPathElement(dir))
	var b strings.Builder
	for _, c := range base {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteByte('-')
		}
	}

	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "project"
	}

	return name + "-" + suffix
}

// lastPathElement returns the final non-empty path element, tolerating
// trailing separators and both separator styles.
func lastPathElement(dir string) string {
	dir = strings.TrimRight(strings.ReplaceAll(dir, "\\", "/"), "/")
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[i+1:]
	}
	return dir
}
