package simmatch

import (
	"encoding/json"
	"errors"
)

var (
	// ErrUnreadableItem is returned when no reader is configured and an
	// opaque record is not a string.
	ErrUnreadableItem = errors.New("unreadable item")
	// ErrNoCorpus is returned by Match before SetCorpus has been called.
	ErrNoCorpus = errors.New("no corpus set")
	// ErrUnsupportedCandidates is returned for an unknown candidates strategy.
	ErrUnsupportedCandidates = errors.New("unsupported candidates")
)

// ReadFunc turns an opaque record into text.
type ReadFunc func(opaque any) (string, error)

// NormalizeFunc canonicalizes text before n-grams are extracted.
type NormalizeFunc func(s string) string

// NgramFunc extracts unique n-grams from normalized text.
type NgramFunc func(s string) []string

// ScoreFunc scores a needle against a haystack item. Results must lie in
// [0, 1]. It may be called concurrently.
type ScoreFunc func(needle, haystack *Item) float64

// CorpusScope selects which records Matches uses to weight n-grams.
type CorpusScope string

const (
	// CorpusCombined weights n-grams over needles and haystack together.
	CorpusCombined CorpusScope = "combined"
	// CorpusHaystack weights n-grams over the haystack only.
	CorpusHaystack CorpusScope = "haystack"
)

// AssignMode selects how winners are picked from scored candidates.
type AssignMode string

const (
	// AssignOneToOne greedily claims needles and haystack items so that no
	// haystack item wins for two needles.
	AssignOneToOne AssignMode = "one-to-one"
	// AssignBest lets every needle take its best candidate independently.
	AssignBest AssignMode = "best"
)

// Result is the outcome for one needle. Match, MatchIndex and Score are only
// meaningful when Matched is true; MatchIndex is the position of Match in
// the haystack and -1 otherwise.
type Result struct {
	Needle     any     `json:"needle"`
	Match      any     `json:"match,omitempty"`
	MatchIndex int     `json:"matchIndex"`
	Score      float64 `json:"score,omitempty"`
	Matched    bool    `json:"matched"`
}

// CacheConfig selects where built BK-tree indexes are persisted.
type CacheConfig struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

// Cache kinds.
const (
	CacheNone   = "none"
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// EmbedderConfig wraps the configuration for the ORT embedder and its cache.
type EmbedderConfig struct {
	OrtDLL        string `json:"ortDll" yaml:"ortDll"`
	ModelPath     string `json:"modelPath" yaml:"modelPath"`
	TokenizerPath string `json:"tokenizerPath" yaml:"tokenizerPath"`
	MaxSeqLen     int    `json:"maxSeqLen" yaml:"maxSeqLen"`
	HiddenSize    int    `json:"hiddenSize" yaml:"hiddenSize"`
	CacheDir      string `json:"cacheDir" yaml:"cacheDir"`
	ModelID       string `json:"modelId" yaml:"modelId"`
}

// Scorer names accepted in Config.
const (
	ScorerDice      = "dice"
	ScorerEmbedding = "embedding"
)

// Normalizer names accepted in Config.
const (
	NormalizerDefault = "default"
	NormalizerNFKC    = "nfkc"
)

// Ngrammer names accepted in Config.
const (
	NgrammerDefault = "default"
	NgrammerSubword = "subword"
)

// Config aggregates matcher settings persisted to config.json.
type Config struct {
	Candidates string         `json:"candidates" yaml:"candidates"`
	Corpus     CorpusScope    `json:"corpus" yaml:"corpus"`
	Assign     AssignMode     `json:"assign" yaml:"assign"`
	MinScore   float64        `json:"minScore" yaml:"minScore"`
	Workers    int            `json:"workers" yaml:"workers"`
	Verbose    bool           `json:"verbose" yaml:"verbose"`
	Scorer     string         `json:"scorer" yaml:"scorer"`
	Normalizer string         `json:"normalizer" yaml:"normalizer"`
	Ngrammer   string         `json:"ngrammer" yaml:"ngrammer"`
	Cache      CacheConfig    `json:"cache" yaml:"cache"`
	Embedder   EmbedderConfig `json:"embedder" yaml:"embedder"`
	// Columns overrides the header names tried when reading CSV/TSV input.
	Columns ColumnCandidates `json:"columns" yaml:"columns"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Corpus == "" {
		c.Corpus = CorpusCombined
	}
	if c.Assign == "" {
		c.Assign = AssignOneToOne
	}
	if c.Scorer == "" {
		c.Scorer = ScorerDice
	}
	if c.Normalizer == "" {
		c.Normalizer = NormalizerDefault
	}
	if c.Ngrammer == "" {
		c.Ngrammer = NgrammerDefault
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = CacheNone
	}
	if c.Embedder.MaxSeqLen == 0 {
		c.Embedder.MaxSeqLen = 512
	}
	if c.Embedder.HiddenSize == 0 {
		c.Embedder.HiddenSize = 1024
	}
}
