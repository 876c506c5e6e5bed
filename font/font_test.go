package font

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/IvanBrykalov/rescache/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"fonts/go.ttf":  {Data: goregular.TTF},
		"fonts/bad.ttf": {Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		"fonts/go.txt":  {Data: goregular.TTF},
	}
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(testFS(), WithDPI(72))
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestDetails_Comparable(t *testing.T) {
	t.Parallel()

	a := Details{Path: "fonts/go.ttf", Size: 16}
	b := a // copy
	assert.Equal(t, a, b)
	assert.Equal(t, "fonts/go.ttf@16", a.Key())

	m := map[Details]int{a: 1}
	assert.Equal(t, 1, m[b])
	assert.NotContains(t, m, Details{Path: "fonts/go.ttf", Size: 17})
}

func TestLoader_BuildsFace(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t)
	f, err := l.Load(context.Background(), Details{Path: "fonts/go.ttf", Size: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, 16, f.Size)
	assert.Positive(t, f.Face.Metrics().Height.Ceil())
	_, ok := f.Face.GlyphAdvance('A')
	assert.True(t, ok)
}

func TestLoader_SizesShareParse(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t)
	small, err := l.Load(context.Background(), Details{Path: "fonts/go.ttf", Size: 12})
	require.NoError(t, err)
	large, err := l.Load(context.Background(), Details{Path: "fonts/go.ttf", Size: 48})
	require.NoError(t, err)

	assert.Less(t, small.Face.Metrics().Height.Ceil(), large.Face.Metrics().Height.Ceil())
	assert.EqualValues(t, 1, l.Parses())
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t)
	ctx := context.Background()

	_, err := l.Load(ctx, Details{Path: "fonts/go.ttf", Size: 0})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = l.Load(ctx, Details{Path: "fonts/go.txt", Size: 12})
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = l.Load(ctx, Details{Path: "fonts/missing.ttf", Size: 12})
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = l.Load(ctx, Details{Path: "fonts/bad.ttf", Size: 12})
	assert.Error(t, err)
}

func TestCache_NamedAndKeyed(t *testing.T) {
	t.Parallel()

	c := NewCache(newTestLoader(t), cache.Options[*Font]{})
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	body := Details{Path: "fonts/go.ttf", Size: 14}
	h1, err := c.Load(ctx, "body", body)
	require.NoError(t, err)
	h2, err := c.Load(ctx, "body", Details{Path: "fonts/go.ttf", Size: 99})
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, body, h2.Value().Details, "params only matter on first load")

	hk, err := Load(ctx, c, body)
	require.NoError(t, err)
	assert.NotSame(t, h1, hk, "keyed load lives under its own name")
	assert.True(t, c.Contains("fonts/go.ttf@14"))

	_, err = c.Load(ctx, "broken", Details{Path: "fonts/bad.ttf", Size: 12})
	var le *cache.LoadError
	require.True(t, errors.As(err, &le))
	assert.False(t, c.Contains("broken"))
}
