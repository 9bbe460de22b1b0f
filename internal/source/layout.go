package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/attendance/internal/core"
)

// LoadLayout returns the built-in layout for mode, overridden by the YAML
// file at path when path is set. Keys left out of the file keep their
// built-in labels.
func LoadLayout(path string, mode core.Mode) (core.Layout, error) {
	layout := core.DefaultLayout(mode)
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Layout{}, fmt.Errorf("%w: read %s: %w", core.ErrInvalidLayout, path, err)
	}
	if err := ParseLayout(data, &layout); err != nil {
		return core.Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := layout.Validate(mode); err != nil {
		return core.Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return layout, nil
}

// ParseLayout decodes YAML onto layout. Unknown keys are rejected. A
// children list replaces the built-in slots as a whole.
func ParseLayout(data []byte, layout *core.Layout) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(layout); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", core.ErrInvalidLayout, err)
	}
	return nil
}
