package simmatch

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"yashubustudio/simmatch/emb"
)

// Embedder turns text into a sentence vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Close() error
	ModelID() string
}

// OrtEmbedder is a thin wrapper over emb.Encoder with memory and disk caching.
type OrtEmbedder struct {
	enc      *emb.Encoder
	cfg      EmbedderConfig
	memCache map[string][]float32
	mu       sync.RWMutex
}

// NewOrtEmbedder initializes the encoder and prepares the cache directory.
func NewOrtEmbedder(cfg EmbedderConfig) (*OrtEmbedder, error) {
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(cfg.ModelPath)
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	encoder := &emb.Encoder{}
	if err := encoder.Init(emb.Config{
		OrtDLL:        cfg.OrtDLL,
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		MaxSeqLen:     cfg.MaxSeqLen,
		HiddenSize:    cfg.HiddenSize,
	}); err != nil {
		return nil, err
	}
	return &OrtEmbedder{
		enc:      encoder,
		cfg:      cfg,
		memCache: make(map[string][]float32),
	}, nil
}

// Close releases ORT resources.
func (o *OrtEmbedder) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enc != nil {
		o.enc.Close()
		o.enc = nil
	}
	o.memCache = nil
	return nil
}

// ModelID returns the identifier used for cache keys.
func (o *OrtEmbedder) ModelID() string { return o.cfg.ModelID }

// EmbedText embeds a single string with caching.
func (o *OrtEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if o == nil || o.enc == nil {
		return nil, errors.New("embedder is not initialized")
	}
	key := vectorKey(o.cfg.ModelID, text)
	if vec := o.getFromCache(key); vec != nil {
		return vec, nil
	}
	if vec, err := loadVector(o.cfg.CacheDir, key); err == nil {
		o.storeInMemory(key, vec)
		return cloneVector(vec), nil
	}
	vec, err := o.enc.Encode(text)
	if err != nil {
		return nil, err
	}
	o.storeInMemory(key, vec)
	_ = saveVector(o.cfg.CacheDir, key, vec)
	return cloneVector(vec), nil
}

func (o *OrtEmbedder) getFromCache(key string) []float32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if vec, ok := o.memCache[key]; ok {
		return cloneVector(vec)
	}
	return nil
}

func (o *OrtEmbedder) storeInMemory(key string, vec []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.memCache != nil {
		o.memCache[key] = cloneVector(vec)
	}
}

func vectorKey(model, text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, model)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

func loadVector(dir, key string) ([]float32, error) {
	if dir == "" {
		return nil, os.ErrNotExist
	}
	path := filepath.Join(dir, key+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("cache file too small: %s", path)
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	if len(data)-4 != length*4 {
		return nil, fmt.Errorf("cache length mismatch: %s", path)
	}
	vec := make([]float32, length)
	if err := binary.Read(bytes.NewReader(data[4:]), binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func saveVector(dir, key string, vec []float32) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, key+".bin")
	tmp := path + ".tmp"
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(vec)))
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EmbeddingScorer scores pairs by cosine similarity of the embeddings of
// their normalized text, clamped to [0, 1]. When embedding fails the pair
// is scored with DiceScore and the error is logged.
func EmbeddingScorer(e Embedder, logger *log.Logger) ScoreFunc {
	return func(needle, haystack *Item) float64 {
		ctx := context.Background()
		a, err := e.EmbedText(ctx, needle.String())
		if err == nil {
			var b []float32
			if b, err = e.EmbedText(ctx, haystack.String()); err == nil {
				return clamp01(cosineSimilarity(a, b))
			}
		}
		if logger != nil {
			logger.Warn("embedding failed, using dice", "err", err)
		}
		return DiceScore(needle, haystack)
	}
}

// SubwordNgrams extracts the tokenizer's subword pieces plus runs of
// digits instead of character bigrams. Text the tokenizer rejects falls
// back to DefaultNgrams.
func SubwordNgrams(tok *emb.Tokenizer) NgramFunc {
	return func(s string) []string {
		pieces, err := tok.Subwords(s)
		if err != nil {
			return DefaultNgrams(s)
		}
		seen := make(map[string]struct{}, len(pieces))
		out := make([]string, 0, len(pieces))
		add := func(ngram string) {
			if _, ok := seen[ngram]; ok {
				return
			}
			seen[ngram] = struct{}{}
			out = append(out, ngram)
		}
		for _, p := range pieces {
			add(p)
		}
		for _, run := range digitRuns([]rune(s)) {
			add(run)
		}
		return out
	}
}
