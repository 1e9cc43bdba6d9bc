package simmatch

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cacheCorpus = []any{
	"Black Sabbath", "Led Zeppelin", "The Doors", "The Beatles", "Neil Young",
	"Deep Purple", "Pink Floyd", "Rolling Stones", "The Who", "Iron Maiden",
}

func builtGeneration(t *testing.T, haystack []any) (*Matcher, *generation) {
	t.Helper()
	m := newTestMatcher(t, Config{Candidates: "simhash"})
	require.NoError(t, m.SetCorpus(haystack))
	gen := m.current()
	_, err := m.bkTree(context.Background(), gen)
	require.NoError(t, err)
	return m, gen
}

func queryIndices(tree *Tree[*Item], it *Item, threshold int) []int {
	var out []int
	for _, h := range tree.Query(it, threshold) {
		out = append(out, h.Value.Index())
	}
	sort.Ints(out)
	return out
}

func TestEncodeDecodeTree(t *testing.T) {
	_, gen := builtGeneration(t, cacheCorpus)
	payload, err := encodeTree(gen.tree)
	require.NoError(t, err)

	decoded, err := decodeTree(payload, gen.haystack)
	require.NoError(t, err)
	assert.Equal(t, gen.tree.Len(), decoded.Len())

	type node struct{ index, slot, depth int }
	walk := func(tree *Tree[*Item]) []node {
		var out []node
		tree.Walk(func(it *Item, slot, depth int) {
			out = append(out, node{it.Index(), slot, depth})
		})
		return out
	}
	assert.Equal(t, walk(gen.tree), walk(decoded))
	for _, it := range gen.haystack {
		assert.Equal(t, queryIndices(gen.tree, it, 7), queryIndices(decoded, it, 7))
	}
}

func TestDecodeTreeRejectsBrokenPayloads(t *testing.T) {
	_, gen := builtGeneration(t, cacheCorpus)
	payload, err := encodeTree(gen.tree)
	require.NoError(t, err)

	_, err = decodeTree(payload[:len(payload)-3], gen.haystack)
	assert.ErrorIs(t, err, errBrokenIndex)

	_, err = decodeTree(append(append([]byte(nil), payload...), 0), gen.haystack)
	assert.ErrorIs(t, err, errBrokenIndex)

	_, err = decodeTree(payload, gen.haystack[:5])
	assert.ErrorIs(t, err, errBrokenIndex)

	_, err = decodeTree(nil, gen.haystack)
	assert.ErrorIs(t, err, errBrokenIndex)

	// point the second node at the root's item
	dup := append([]byte(nil), payload...)
	copy(dup[4+12:4+16], dup[4:8])
	_, err = decodeTree(dup, gen.haystack)
	assert.ErrorIs(t, err, errBrokenIndex)

	// a wrong slot for the second node
	wrongSlot := append([]byte(nil), payload...)
	slot := int32(binary.LittleEndian.Uint32(wrongSlot[4+16 : 4+20]))
	binary.LittleEndian.PutUint32(wrongSlot[4+16:4+20], uint32((slot+1)%MaxDistance))
	_, err = decodeTree(wrongSlot, gen.haystack)
	assert.ErrorIs(t, err, errBrokenIndex)
}

func TestIndexChecksum(t *testing.T) {
	items := testItems("a", "b")
	other := testItems("a", "c")
	assert.Equal(t, indexChecksum(items, nil), indexChecksum(testItems("a", "b"), nil))
	assert.NotEqual(t, indexChecksum(items, nil), indexChecksum(other, nil))
	assert.NotEqual(t, indexChecksum(items, nil), indexChecksum(items, testItems("x")))
	assert.Len(t, indexChecksum(items, nil), 40)
}

func TestFileIndexCache(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileIndexCache(dir)
	require.NoError(t, err)

	_, ok := c.Load("missing")
	assert.False(t, ok)

	require.NoError(t, c.Store("abc", []byte{1, 2, 3}))
	got, ok := c.Load("abc")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.bk"), []byte("0\nold\n\x01"), 0o644))
	_, ok = c.Load("old")
	assert.False(t, ok, "version mismatch")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "moved.bk"), []byte("1\nother\n\x01"), 0o644))
	_, ok = c.Load("moved")
	assert.False(t, ok, "checksum mismatch")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.bk"), []byte("1\n"), 0o644))
	_, ok = c.Load("short")
	assert.False(t, ok, "truncated header")

	_, err = NewFileIndexCache("")
	assert.Error(t, err)
}

func TestSQLiteIndexCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	c, err := OpenSQLiteIndexCache(path)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Load("abc")
	assert.False(t, ok)

	require.NoError(t, c.Store("abc", []byte{9, 8}))
	got, ok := c.Load("abc")
	require.True(t, ok)
	assert.Equal(t, []byte{9, 8}, got)

	require.NoError(t, c.Store("abc", []byte{7}))
	got, ok = c.Load("abc")
	require.True(t, ok)
	assert.Equal(t, []byte{7}, got)

	_, err = c.db.Exec(`UPDATE bk_index SET version = ? WHERE checksum = ?`, IndexVersion+1, "abc")
	require.NoError(t, err)
	_, ok = c.Load("abc")
	assert.False(t, ok, "version mismatch")
}

type countingCache struct {
	mu     sync.Mutex
	inner  IndexCache
	loads  int
	hits   int
	stores int
}

func (c *countingCache) Load(checksum string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	payload, ok := c.inner.Load(checksum)
	if ok {
		c.hits++
	}
	return payload, ok
}

func (c *countingCache) Store(checksum string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	return c.inner.Store(checksum, payload)
}

func TestMatcherUsesIndexCache(t *testing.T) {
	for name, open := range map[string]func(t *testing.T) IndexCache{
		"file": func(t *testing.T) IndexCache {
			c, err := NewIndexCache(CacheConfig{Kind: CacheFile, Path: t.TempDir()})
			require.NoError(t, err)
			return c
		},
		"sqlite": func(t *testing.T) IndexCache {
			c, err := NewIndexCache(CacheConfig{Kind: CacheSQLite, Path: filepath.Join(t.TempDir(), "i.db")})
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.(*SQLiteIndexCache).Close() })
			return c
		},
	} {
		t.Run(name, func(t *testing.T) {
			cache := &countingCache{inner: open(t)}
			needles := []any{"THE DOORS", "neil young"}
			var want []Result
			for run := 0; run < 2; run++ {
				m, err := New(Options{Config: Config{Candidates: "simhash"}, IndexCache: cache})
				require.NoError(t, err)
				require.NoError(t, m.SetCorpus(cacheCorpus))
				results, err := m.Match(context.Background(), needles)
				require.NoError(t, err)
				if run == 0 {
					want = results
					continue
				}
				assert.Equal(t, want, results)
			}
			assert.Equal(t, 2, cache.loads)
			assert.Equal(t, 1, cache.hits)
			assert.Equal(t, 1, cache.stores)
		})
	}
}

func TestNewIndexCacheKinds(t *testing.T) {
	c, err := NewIndexCache(CacheConfig{Kind: CacheNone})
	require.NoError(t, err)
	assert.Nil(t, c)
	_, err = NewIndexCache(CacheConfig{Kind: "redis"})
	assert.Error(t, err)
}
