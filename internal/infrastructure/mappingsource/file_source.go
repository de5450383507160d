package mappingsource

import (
	"context"
	"fmt"
	"os"

	"github.com/channelsync/backend/internal/domain/integration"
)

// FileSource loads the attribute mapping table from a local JSON file.
// The file is read on every Load call, so edits to the table take effect
// on the next sync run without a restart.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed mapping source. The file does not
// have to exist yet; a missing file surfaces as a ConfigError on Load.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("mapping file path is required")
	}
	return &FileSource{path: path}, nil
}

// Load implements integration.MappingSource
func (s *FileSource) Load(_ context.Context) ([]integration.AttributeMapping, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &integration.ConfigError{
			Reason: fmt.Sprintf("cannot read mapping file %s", s.path),
			Err:    err,
		}
	}
	return integration.ParseMappingConfig(raw)
}

// Path returns the configured file path
func (s *FileSource) Path() string {
	return s.path
}

var _ integration.MappingSource = (*FileSource)(nil)
