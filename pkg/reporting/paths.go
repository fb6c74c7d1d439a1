package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns the default directory a trade report for one
// coin (or "ALL") and a free-form label (typically a date) is written under.
func (p *DefaultPathManager) GetDefaultOutputDir(coin, label string) string {
	c := strings.ToUpper(strings.TrimSpace(coin))
	l := strings.ToLower(strings.TrimSpace(label))
	if c == "" {
		c = "ALL"
	}
	if l == "" {
		l = "latest"
	}

	return filepath.Join("reports", fmt.Sprintf("%s_%s", c, l))
}

// EnsureDirectoryExists creates directory if it doesn't exist
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// Package-level convenience function
func DefaultOutputDir(coin, label string) string {
	manager := NewDefaultPathManager()
	return manager.GetDefaultOutputDir(coin, label)
}
