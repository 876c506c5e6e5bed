// Package preload fills resource caches from a manifest.
package preload

import (
	"context"
	"errors"

	"github.com/IvanBrykalov/rescache/font"
	"github.com/IvanBrykalov/rescache/internal/manifest"
	"github.com/IvanBrykalov/rescache/texture"
	"github.com/rs/zerolog"
)

// Report summarizes one preload run.
type Report struct {
	Textures int
	Fonts    int
	Failed   int
	Err      error // every failure, joined
}

// Run loads every manifest entry into its cache. A failing entry is logged
// and skipped; the rest still load. Run keeps no handles: the caches hold
// the only reference to what was loaded.
func Run(ctx context.Context, m *manifest.Manifest, textures texture.Cache, fonts font.Cache, logger zerolog.Logger) Report {
	var r Report
	var errs []error

	for _, t := range m.Textures {
		if ctx.Err() != nil {
			break
		}
		h, err := textures.Load(ctx, t.Name, t.Path)
		if err != nil {
			r.Failed++
			errs = append(errs, err)
			logger.Error().Err(err).Str("name", t.Name).Str("path", t.Path).Msg("[preload] texture failed")
			continue
		}
		tex := h.Value()
		logger.Info().Str("name", t.Name).Str("format", tex.Format).
			Int("width", tex.Width()).Int("height", tex.Height()).Msg("[preload] texture ready")
		h.Release()
		r.Textures++
	}

	for _, f := range m.Fonts {
		if ctx.Err() != nil {
			break
		}
		d := font.Details{Path: f.Path, Size: f.Size}
		h, err := fonts.Load(ctx, f.Name, d)
		if err != nil {
			r.Failed++
			errs = append(errs, err)
			logger.Error().Err(err).Str("name", f.Name).Stringer("font", d).Msg("[preload] font failed")
			continue
		}
		logger.Info().Str("name", f.Name).Stringer("font", d).
			Int("line_height", h.Value().Face.Metrics().Height.Ceil()).Msg("[preload] font ready")
		h.Release()
		r.Fonts++
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	r.Err = errors.Join(errs...)
	return r
}
