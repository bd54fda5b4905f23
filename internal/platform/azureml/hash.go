package azureml

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AnonymousEnvironmentName is the container name used for environments
// registered from an inline image and conda file.
const AnonymousEnvironmentName = "CliV2AnonymousEnvironment"

// AnonymousAssetVersion is the version given to content-addressed code assets.
const AnonymousAssetVersion = "1"

// ListFiles returns the regular files under dir as sorted slash-separated
// paths relative to dir. Hidden directories and __pycache__ are skipped.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// HashDirectory returns a content hash of dir covering file names and
// contents. Identical trees hash identically regardless of location.
func HashDirectory(dir string) (string, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("directory %s contains no files", dir)
	}

	h := sha256.New()
	for _, rel := range files {
		_, _ = io.WriteString(h, rel)
		h.Write([]byte{0})
		if err := hashFile(h, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32], nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	_, err = io.Copy(w, f)
	return err
}

// HashEnvironment returns the version used for an anonymous environment.
func HashEnvironment(image, condaFile string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, image)
	h.Write([]byte{0})
	_, _ = io.WriteString(h, condaFile)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
