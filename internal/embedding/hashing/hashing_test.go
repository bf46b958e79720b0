package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestNewEmbedder_InvalidDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	require.Error(t, err)
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)
	assert.Equal(t, "hashing-64", e.ModelID())

	vecs, err := e.Embed(context.Background(), []string{"Python coding test", "Python coding test"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 64)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-6)
}

func TestEmbed_StopwordsOnlyIsZero(t *testing.T) {
	e, err := NewEmbedder(16)
	require.NoError(t, err)
	vecs, err := e.Embed(context.Background(), []string{"the and of"})
	require.NoError(t, err)
	assert.Zero(t, norm(vecs[0]))
}

func TestEmbed_SharedTokensAreCloser(t *testing.T) {
	e, err := NewEmbedder(DefaultDimension)
	require.NoError(t, err)
	vecs, err := e.Embed(context.Background(), []string{
		"coding test for developers",
		"a coding test measuring developers skills",
		"personality questionnaire for managers",
	})
	require.NoError(t, err)
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestEmbed_CanceledContext(t *testing.T) {
	e, err := NewEmbedder(8)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, []string{"x"})
	require.ErrorIs(t, err, context.Canceled)
}
