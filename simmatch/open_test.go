package simmatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownComponents(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "scorer", cfg: Config{Scorer: "cosine"}},
		{name: "ngrammer", cfg: Config{Ngrammer: "words"}},
		{name: "normalizer", cfg: Config{Normalizer: "ascii"}},
		{name: "cache", cfg: Config{Cache: CacheConfig{Kind: "redis"}}},
		{name: "candidates", cfg: Config{Candidates: "nearest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, release, err := Open(tt.cfg, nil, nil)
			assert.Error(t, err)
			assert.Nil(t, m)
			assert.Nil(t, release)
		})
	}
}

func TestOpenWithFileCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	m, release, err := Open(Config{
		Candidates: "simhash",
		Cache:      CacheConfig{Kind: CacheFile, Path: dir},
	}, nil, nil)
	require.NoError(t, err)
	defer release()

	results, err := m.Matches(context.Background(), []any{"black sabath"}, []any{"Black Sabbath", "Neil Young"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenNFKCNormalizer(t *testing.T) {
	plain, release, err := Open(Config{}, nil, nil)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, "", plain.Normalize("ＡＢＣ１２３"))

	folded, release2, err := Open(Config{Normalizer: NormalizerNFKC}, nil, nil)
	require.NoError(t, err)
	defer release2()
	assert.Equal(t, "abc123", folded.Normalize("ＡＢＣ１２３"))
}
