package simmatch

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"yashubustudio/simmatch/emb"
)

// Open builds a matcher with the index cache, scorer and ngrammer named by
// cfg. The returned func releases what Open acquired and must be called
// once the matcher is no longer used.
func Open(cfg Config, logger *log.Logger, progress io.Writer) (*Matcher, func(), error) {
	cfg.ApplyDefaults()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	opts := Options{
		Config:   cfg,
		Logger:   logger,
		Progress: progress,
	}

	cache, err := NewIndexCache(cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("open index cache: %w", err)
	}
	if cache != nil {
		opts.IndexCache = cache
		if c, ok := cache.(io.Closer); ok {
			closers = append(closers, func() { _ = c.Close() })
		}
	}

	switch cfg.Scorer {
	case ScorerDice:
	case ScorerEmbedding:
		embedder, err := NewOrtEmbedder(cfg.Embedder)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init embedder: %w", err)
		}
		closers = append(closers, func() { _ = embedder.Close() })
		opts.Score = EmbeddingScorer(embedder, logger)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unsupported scorer %q", cfg.Scorer)
	}

	switch cfg.Normalizer {
	case NormalizerDefault:
	case NormalizerNFKC:
		opts.Normalize = NFKCNormalize
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unsupported normalizer %q", cfg.Normalizer)
	}

	switch cfg.Ngrammer {
	case NgrammerDefault:
	case NgrammerSubword:
		tok, err := emb.LoadTokenizer(cfg.Embedder.TokenizerPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init subword ngrammer: %w", err)
		}
		opts.Ngrams = SubwordNgrams(tok)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unsupported ngrammer %q", cfg.Ngrammer)
	}

	m, err := New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if logger != nil {
		logger.Debug("matcher ready", "candidates", cfg.Candidates, "assign", cfg.Assign, "corpus", cfg.Corpus, "cache", cfg.Cache.Kind)
	}
	return m, cleanup, nil
}
