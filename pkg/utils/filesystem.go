package utils

import (
	"crypto/md5" //nolint:gosec // content identity hash, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryExists checks if a directory exists at the given path
func DirectoryExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// ResolveCodebaseHint joins a candidate module's directory with a
// reference's codebase hint, the way the binder's attempt_bind check does
// (spec §4.5: expected = join(dir(candidate.file), codebaseHint)). It
// rejects hints that escape the candidate's directory tree.
func ResolveCodebaseHint(candidateFile, hint string) (string, error) {
	joined := filepath.Join(filepath.Dir(candidateFile), hint)
	cleanHint := filepath.Clean(hint)
	if strings.Contains(cleanHint, "..") {
		return "", fmt.Errorf("codebase hint escapes candidate directory: %s", hint)
	}
	return joined, nil
}

// HashFileMD5 computes the lower-case hex MD5 digest of a file's contents.
// Both the inspector pipeline's content-hash field and the package index's
// resolve-by-hash query (spec §4.2, §4.6) use this digest, so the two stay
// comparable without either side reasoning about the other's algorithm.
func HashFileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // content identity hash, not a security boundary
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
