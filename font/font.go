// Package font is the font backend for the resource cache: it parses
// TrueType/OpenType files from an fs.FS and builds faces at a requested
// size. Parsing and rasterization are golang.org/x/image's job.
package font

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/IvanBrykalov/rescache/cache"
	"github.com/dgraph-io/ristretto"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Details is everything needed to build a font face. It is comparable,
// so it can key a map directly.
type Details struct {
	Path string
	Size int // points
}

// Key renders d as a cache name, for callers that key fonts by their
// details instead of a separate name.
func (d Details) Key() string { return d.Path + "@" + strconv.Itoa(d.Size) }

func (d Details) String() string { return d.Key() }

// Font is a face of one font file at one size.
type Font struct {
	Details
	Face xfont.Face
}

// Close releases the face. The cache calls it when the last handle goes.
func (f *Font) Close() error { return f.Face.Close() }

var (
	// ErrInvalidSize is returned for a non-positive Details.Size.
	ErrInvalidSize = errors.New("font: size must be positive")
	// ErrInvalidPath is returned for paths without a .ttf/.otf extension.
	ErrInvalidPath = errors.New("font: invalid font path")
)

// Option configures a Loader.
type Option func(*Loader)

// WithDPI sets the face resolution. Default 72, where 1pt == 1px.
func WithDPI(dpi float64) Option { return func(l *Loader) { l.dpi = dpi } }

// WithHinting sets the face hinting. Default xfont.HintingNone.
func WithHinting(h xfont.Hinting) Option { return func(l *Loader) { l.hinting = h } }

// WithParsedCacheBytes bounds the memory used to keep parsed font files
// around between sizes. Default 32 MiB.
func WithParsedCacheBytes(n int64) Option { return func(l *Loader) { l.parsedMax = n } }

// Loader builds faces from font files. It implements
// cache.Loader[Details, *Font].
//
// Parsed files are kept in a bounded ristretto cache, so loading several
// sizes of one file parses it once. That cache may drop entries at will;
// it only saves work.
type Loader struct {
	fsys      fs.FS
	dpi       float64
	hinting   xfont.Hinting
	parsedMax int64
	parsed    *ristretto.Cache
	parses    atomic.Int64
}

// NewLoader returns a Loader reading from fsys.
func NewLoader(fsys fs.FS, opts ...Option) (*Loader, error) {
	l := &Loader{
		fsys:      fsys,
		dpi:       72,
		hinting:   xfont.HintingNone,
		parsedMax: 32 << 20,
	}
	for _, opt := range opts {
		opt(l)
	}
	pc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     l.parsedMax,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("font: parsed cache: %w", err)
	}
	l.parsed = pc
	return l, nil
}

// Load parses d.Path (or reuses a recent parse) and builds a face at d.Size.
func (l *Loader) Load(ctx context.Context, d Details) (*Font, error) {
	if d.Size <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, d)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := l.parse(d.Path)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(d.Size),
		DPI:     l.dpi,
		Hinting: l.hinting,
	})
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", d, err)
	}
	return &Font{Details: d, Face: face}, nil
}

// Parses returns how many font files were actually parsed.
func (l *Loader) Parses() int64 { return l.parses.Load() }

// Close stops the parsed-file cache.
func (l *Loader) Close() { l.parsed.Close() }

func (l *Loader) parse(path string) (*opentype.Font, error) {
	if v, ok := l.parsed.Get(path); ok {
		return v.(*opentype.Font), nil
	}
	if !hasValidFontExtension(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	// sfnt keeps referencing the bytes; they are never modified after this.
	b, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", path, err)
	}
	l.parses.Add(1)
	if l.parsed.Set(path, f, int64(len(b))) {
		l.parsed.Wait()
	}
	return f, nil
}

func hasValidFontExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".ttf" || ext == ".otf"
}

// Cache is a resource cache of fonts keyed by name, loaded by Details.
type Cache = cache.Cache[Details, *Font]

// NewCache builds a font cache over l.
func NewCache(l *Loader, opt cache.Options[*Font]) Cache {
	return cache.New[Details, *Font](l, opt)
}

// Load loads d into c under d.Key(), for callers without their own names.
func Load(ctx context.Context, c Cache, d Details) (*cache.Handle[*Font], error) {
	return c.Load(ctx, d.Key(), d)
}

var _ cache.Loader[Details, *Font] = (*Loader)(nil)
