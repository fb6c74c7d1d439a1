package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultJSONFormatter formats a StatusSnapshot for console or file output.
type DefaultJSONFormatter struct{}

func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{}
}

// FormatStatus marshals a StatusSnapshot as indented JSON bytes.
func (f *DefaultJSONFormatter) FormatStatus(status StatusSnapshot) ([]byte, error) {
	return json.MarshalIndent(status, "", "  ")
}

// PrintStatusJSON prints a StatusSnapshot as JSON to the console.
func (f *DefaultJSONFormatter) PrintStatusJSON(status StatusSnapshot) {
	data, _ := f.FormatStatus(status)
	fmt.Println(string(data))
}

// WriteStatusJSON writes a StatusSnapshot as JSON to path.
func WriteStatusJSON(status StatusSnapshot, path string) error {
	formatter := NewDefaultJSONFormatter()
	data, err := formatter.FormatStatus(status)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// PrintStatusJSON is a convenience function using the default formatter.
func PrintStatusJSON(status StatusSnapshot) {
	NewDefaultJSONFormatter().PrintStatusJSON(status)
}
