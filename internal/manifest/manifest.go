// Package manifest describes the assets a program preloads into its
// resource caches.
//
//	textures:
//	  - name: hero
//	    path: sprites/hero.png
//	fonts:
//	  - name: body
//	    path: fonts/go.ttf
//	    size: 16
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists the assets to preload.
type Manifest struct {
	Textures []Texture `yaml:"textures"`
	Fonts    []Font    `yaml:"fonts"`
}

// Texture is a named image file.
type Texture struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Font is a named font file at a point size.
type Font struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a manifest. Unknown fields are rejected.
func Decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	m := &Manifest{}
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate requires non-empty names and paths, names unique per kind and
// positive font sizes. All problems are reported together.
func (m *Manifest) Validate() error {
	var errs []error

	seen := make(map[string]struct{}, len(m.Textures))
	for i, t := range m.Textures {
		errs = append(errs, checkEntry("textures", i, t.Name, t.Path, seen)...)
	}
	seen = make(map[string]struct{}, len(m.Fonts))
	for i, f := range m.Fonts {
		errs = append(errs, checkEntry("fonts", i, f.Name, f.Path, seen)...)
		if f.Size <= 0 {
			errs = append(errs, fmt.Errorf("manifest: fonts[%d] %q: size must be positive, got %d", i, f.Name, f.Size))
		}
	}
	return errors.Join(errs...)
}

func checkEntry(kind string, i int, name, path string, seen map[string]struct{}) []error {
	var errs []error
	if name == "" {
		errs = append(errs, fmt.Errorf("manifest: %s[%d]: empty name", kind, i))
	} else if _, dup := seen[name]; dup {
		errs = append(errs, fmt.Errorf("manifest: %s[%d]: duplicate name %q", kind, i, name))
	} else {
		seen[name] = struct{}{}
	}
	if path == "" {
		errs = append(errs, fmt.Errorf("manifest: %s[%d] %q: empty path", kind, i, name))
	}
	return errs
}
