package simmatch

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IndexVersion is bumped whenever the encoded tree layout changes.
const IndexVersion = 1

// IndexCache persists encoded BK-trees keyed by the checksum of the corpus
// they were built from. Load reports a miss for anything it cannot serve.
type IndexCache interface {
	Load(checksum string) ([]byte, bool)
	Store(checksum string, payload []byte) error
}

// NewIndexCache opens the cache described by cfg. CacheNone returns nil.
func NewIndexCache(cfg CacheConfig) (IndexCache, error) {
	switch cfg.Kind {
	case "", CacheNone:
		return nil, nil
	case CacheFile:
		c, err := NewFileIndexCache(cfg.Path)
		if err != nil {
			return nil, err
		}
		return c, nil
	case CacheSQLite:
		c, err := OpenSQLiteIndexCache(cfg.Path)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported cache kind %q", cfg.Kind)
}

// indexChecksum fingerprints the normalized haystack and, when n-grams were
// weighted over more than the haystack, the extra corpus records.
func indexChecksum(haystack, extra []*Item) string {
	h := sha1.New()
	for _, it := range haystack {
		_, _ = io.WriteString(h, it.String())
		_, _ = io.WriteString(h, "\n")
	}
	if len(extra) > 0 {
		_, _ = io.WriteString(h, "\x00corpus\n")
		for _, it := range extra {
			_, _ = io.WriteString(h, it.String())
			_, _ = io.WriteString(h, "\n")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

var errBrokenIndex = errors.New("broken index payload")

type nodeRecord struct {
	Index uint32
	Slot  int32
	Depth uint32
}

// encodeTree writes the tree in pre-order as (haystack index, slot, depth)
// records preceded by the node count, little endian.
func encodeTree(tree *Tree[*Item]) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, uint32(tree.Len())); err != nil {
		return nil, err
	}
	var werr error
	tree.Walk(func(it *Item, slot, depth int) {
		if werr != nil {
			return
		}
		werr = binary.Write(buf, binary.LittleEndian, nodeRecord{
			Index: uint32(it.Index()),
			Slot:  int32(slot),
			Depth: uint32(depth),
		})
	})
	if werr != nil {
		return nil, werr
	}
	return buf.Bytes(), nil
}

// decodeTree rebuilds a tree over haystack. Every child must sit in the
// slot matching its distance to the parent and every item must appear
// exactly once, otherwise errBrokenIndex is returned.
func decodeTree(payload []byte, haystack []*Item) (*Tree[*Item], error) {
	r := bytes.NewReader(payload)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", errBrokenIndex, err)
	}
	if int(count) != len(haystack) {
		return nil, fmt.Errorf("%w: %d nodes for %d items", errBrokenIndex, count, len(haystack))
	}
	tree := NewTree(itemDistance)
	used := make([]bool, len(haystack))
	var path []*bkNode[*Item]
	for i := uint32(0); i < count; i++ {
		var rec nodeRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", errBrokenIndex, i, err)
		}
		if int(rec.Index) >= len(haystack) || used[rec.Index] {
			return nil, fmt.Errorf("%w: node %d: bad item index %d", errBrokenIndex, i, rec.Index)
		}
		used[rec.Index] = true
		node := &bkNode[*Item]{value: haystack[rec.Index]}
		depth := int(rec.Depth)
		switch {
		case i == 0:
			if depth != 0 || rec.Slot != -1 {
				return nil, fmt.Errorf("%w: root at depth %d slot %d", errBrokenIndex, depth, rec.Slot)
			}
			tree.root = node
		case depth == 0 || depth > len(path):
			return nil, fmt.Errorf("%w: node %d: bad depth %d", errBrokenIndex, i, depth)
		default:
			parent := path[depth-1]
			slot := int(rec.Slot)
			if slot < 0 || slot > MaxDistance || itemDistance(node.value, parent.value) != slot || parent.child(slot) != nil {
				return nil, fmt.Errorf("%w: node %d: bad slot %d", errBrokenIndex, i, slot)
			}
			parent.setChild(slot, node)
		}
		path = append(path[:depth], node)
		tree.size++
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errBrokenIndex, r.Len())
	}
	return tree, nil
}

// FileIndexCache stores one index per checksum as a file in a directory.
// Each file starts with a version line and a checksum line.
type FileIndexCache struct {
	dir string
}

// NewFileIndexCache creates dir if needed.
func NewFileIndexCache(dir string) (*FileIndexCache, error) {
	if dir == "" {
		return nil, errors.New("file index cache requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index cache dir: %w", err)
	}
	return &FileIndexCache{dir: dir}, nil
}

func (c *FileIndexCache) path(checksum string) string {
	return filepath.Join(c.dir, checksum+".bk")
}

// Load returns the payload stored for checksum.
func (c *FileIndexCache) Load(checksum string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(checksum))
	if err != nil {
		return nil, false
	}
	br := bufio.NewReader(bytes.NewReader(data))
	version, err := br.ReadString('\n')
	if err != nil {
		return nil, false
	}
	if v, err := strconv.Atoi(strings.TrimSpace(version)); err != nil || v != IndexVersion {
		return nil, false
	}
	sum, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(sum) != checksum {
		return nil, false
	}
	payload, err := io.ReadAll(br)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Store writes payload via a temp file and rename.
func (c *FileIndexCache) Store(checksum string, payload []byte) error {
	path := c.path(checksum)
	tmp := path + ".tmp"
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%d\n%s\n", IndexVersion, checksum)
	buf.Write(payload)
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}
