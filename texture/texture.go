// Package texture is the image backend for the resource cache: it loads
// images from an fs.FS into RGBA textures addressable by name.
//
// Decoding is delegated to the standard codecs (png, jpeg, gif) and to
// golang.org/x/image (bmp, tiff, webp); this package only wires them up.
package texture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io/fs"

	"github.com/IvanBrykalov/rescache/cache"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Texture is a decoded image in RGBA layout.
type Texture struct {
	// Path the texture was loaded from; empty for procedural textures.
	Path string
	// Format is the decoder name ("png", "webp", ...) or "rgba".
	Format string
	Image  *image.RGBA
}

// Bounds returns the pixel bounds of the image.
func (t *Texture) Bounds() image.Rectangle { return t.Image.Bounds() }

// Width returns the image width in pixels.
func (t *Texture) Width() int { return t.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (t *Texture) Height() int { return t.Image.Bounds().Dy() }

// New wraps an externally built image, e.g. a procedurally generated one
// destined for Cache.Add.
func New(img image.Image) *Texture {
	return &Texture{Format: "rgba", Image: toRGBA(img)}
}

// Loader decodes textures from a filesystem. It implements
// cache.Loader[string, *Texture], taking the file path as argument.
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a Loader reading from fsys (os.DirFS, embed.FS, ...).
func NewLoader(fsys fs.FS) *Loader { return &Loader{fsys: fsys} }

// Load opens path and decodes it.
func (l *Loader) Load(ctx context.Context, path string) (*Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := l.fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", path, err)
	}
	return &Texture{Path: path, Format: format, Image: toRGBA(img)}, nil
}

// Cache is a resource cache of textures keyed by name, loaded by path.
type Cache = cache.Cache[string, *Texture]

// NewCache builds a texture cache over fsys.
func NewCache(fsys fs.FS, opt cache.Options[*Texture]) Cache {
	return cache.New[string, *Texture](NewLoader(fsys), opt)
}

var _ cache.Loader[string, *Texture] = (*Loader)(nil)

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
