package tokens

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the token file
type Loader struct {
	filePath string
}

// NewLoader creates a new token file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the token file
func (l *Loader) Load() (FileConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read token file: %w", err)
	}

	// Expand ${VAR} references so secrets can stay out of the file
	data = []byte(os.ExpandEnv(string(data)))

	var config FileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse token yaml: %w", err)
	}

	return config, nil
}
