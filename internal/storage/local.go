package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage areas
const (
	DirStatements = "statements"
	DirBankFiles  = "bank-files"
)

// ErrInvalidPath is returned for paths escaping the storage root
var ErrInvalidPath = errors.New("invalid storage path")

// LocalStorage handles file storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure the base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes data under subDir/yyyy/mm and returns the relative path.
// The stored name keeps a sanitized copy of filename after a random prefix.
func (s *LocalStorage) Save(data []byte, filename string, subDir string) (string, error) {
	dir := filepath.Join(s.basePath, subDir, time.Now().Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s", generateID(), sanitizeName(filename))
	filePath := filepath.Join(dir, name)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	relPath, _ := filepath.Rel(s.basePath, filePath)
	return relPath, nil
}

// Read returns the content of a stored file
func (s *LocalStorage) Read(relativePath string) ([]byte, error) {
	full, err := s.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Delete removes a file
func (s *LocalStorage) Delete(relativePath string) error {
	full, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(relativePath string) bool {
	full, err := s.resolve(relativePath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// GetFullPath returns the absolute path for serving files
func (s *LocalStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.basePath, relativePath)
}

func (s *LocalStorage) resolve(relativePath string) (string, error) {
	clean := filepath.Clean(relativePath)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, relativePath)
	}
	return filepath.Join(s.basePath, clean), nil
}

// generateID creates a unique identifier for filenames
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if out == "" || out == "." {
		return "file"
	}
	return out
}

// ValidContentTypes returns allowed MIME types for statement uploads
func ValidContentTypes() map[string]bool {
	return map[string]bool{
		"application/pdf":          true,
		"text/csv":                 true,
		"text/plain":               true,
		"application/vnd.ms-excel": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
		"application/octet-stream": true,
	}
}

// ValidExtensions returns the file extensions a statement may have
func ValidExtensions() map[string]bool {
	return map[string]bool{".pdf": true, ".xlsx": true, ".xls": true, ".csv": true, ".txt": true}
}

// IsValidStatement checks the extension and, when present, the declared content type
func IsValidStatement(filename, contentType string) bool {
	if !ValidExtensions()[strings.ToLower(filepath.Ext(filename))] {
		return false
	}
	if contentType == "" {
		return true
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return ValidContentTypes()[strings.TrimSpace(contentType)]
}
