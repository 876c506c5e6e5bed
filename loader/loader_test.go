package loader

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IvanBrykalov/rescache/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	boom := errors.New("boom")
	base := cache.LoaderFunc[string, int](func(_ context.Context, p string) (int, error) {
		if p == "bad.png" {
			return 0, boom
		}
		return len(p), nil
	})
	l := WithLogging[string, int](base, logger, "texture")

	v, err := l.Load(context.Background(), "ok.png")
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"args":"ok.png"`)
	assert.Contains(t, buf.String(), `"kind":"texture"`)

	buf.Reset()
	_, err = l.Load(context.Background(), "bad.png")
	assert.ErrorIs(t, err, boom, "error must pass through unchanged")
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	slow := cache.LoaderFunc[string, int](func(ctx context.Context, _ string) (int, error) {
		select {
		case <-time.After(time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	_, err := WithTimeout[string, int](slow, 10*time.Millisecond).Load(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A non-positive duration leaves the loader untouched.
	fast := cache.LoaderFunc[string, int](func(context.Context, string) (int, error) { return 2, nil })
	v, err := WithTimeout[string, int](fast, 0).Load(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
