// Package utils provides small file helpers shared by the pipeline tasks.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot, lowercased.
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension.
func IsImageFile(filename string) bool {
	switch GetFileExtension(filename) {
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp":
		return true
	}
	return false
}

// CheckInputFile verifies that the input file exists, is a regular file
// and, when extensions are given, carries one of them.
func CheckInputFile(path string, extensions ...string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("could not find file %s", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if len(extensions) == 0 {
		return nil
	}
	ext := GetFileExtension(path)
	for _, allowed := range extensions {
		if ext == strings.ToLower(strings.TrimPrefix(allowed, ".")) {
			return nil
		}
	}
	return fmt.Errorf("unexpected file extension .%s for %s", ext, path)
}

// OutputFilename derives the output path for a processed input file: the
// input stem, plus an optional suffix, with the given format, placed in
// the output directory. It refuses to point back at the input file, which
// would silently overwrite the source during batch runs.
func OutputFilename(inputFile, outputDir, suffix, format string) (string, error) {
	base := filepath.Base(inputFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if suffix != "" {
		stem = stem + "_" + suffix
	}
	out := filepath.Join(outputDir, stem+"."+strings.TrimPrefix(format, "."))
	if abs, err := filepath.Abs(out); err == nil {
		if inAbs, err := filepath.Abs(inputFile); err == nil && abs == inAbs {
			return "", fmt.Errorf("output file %s would overwrite the input", out)
		}
	}
	return out, nil
}

// ListImageFiles recursively lists all image files in a directory.
func ListImageFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}
