package simmatch

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures a Matcher. Nil stage functions fall back to the
// defaults; a nil Logger silences output.
type Options struct {
	Config     Config
	Read       ReadFunc
	Normalize  NormalizeFunc
	Ngrams     NgramFunc
	Score      ScoreFunc
	IndexCache IndexCache
	Logger     *log.Logger
	// Progress receives per-stage progress bars when Config.Verbose is set.
	Progress io.Writer
}

type stages struct {
	read      ReadFunc
	normalize NormalizeFunc
	ngram     NgramFunc
	score     ScoreFunc
}

// generation is one corpus assignment. Items, weights and the BK-tree all
// belong to exactly one generation.
type generation struct {
	stages   stages
	freq     *FrequencyTable
	haystack []*Item
	checksum string

	treeMu sync.Mutex
	tree   *Tree[*Item]
}

func (g *generation) importList(list []any) ([]*Item, error) {
	items := make([]*Item, len(list))
	for i, opaque := range list {
		it, err := newItem(g, opaque, i)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = it
	}
	return items, nil
}

// Matcher finds the best haystack record for each needle record.
type Matcher struct {
	cfg      Config
	strategy Strategy
	stages   stages
	cache    IndexCache
	logger   *log.Logger
	progOut  io.Writer

	mu  sync.RWMutex
	gen *generation
}

// New validates the options and constructs a Matcher without a corpus.
func New(opts Options) (*Matcher, error) {
	cfg := opts.Config.Clone()
	cfg.ApplyDefaults()
	strategy, err := ParseStrategy(cfg.Candidates)
	if err != nil {
		return nil, err
	}
	switch cfg.Assign {
	case AssignOneToOne, AssignBest:
	default:
		return nil, fmt.Errorf("unsupported assign mode %q", cfg.Assign)
	}
	switch cfg.Corpus {
	case CorpusCombined, CorpusHaystack:
	default:
		return nil, fmt.Errorf("unsupported corpus scope %q", cfg.Corpus)
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, fmt.Errorf("min score %v out of range [0, 1]", cfg.MinScore)
	}
	st := stages{
		read:      opts.Read,
		normalize: opts.Normalize,
		ngram:     opts.Ngrams,
		score:     opts.Score,
	}
	if st.read == nil {
		st.read = DefaultRead
	}
	if st.normalize == nil {
		st.normalize = DefaultNormalize
	}
	if st.ngram == nil {
		st.ngram = DefaultNgrams
	}
	if st.score == nil {
		st.score = DiceScore
	}
	return &Matcher{
		cfg:      cfg,
		strategy: strategy,
		stages:   st,
		cache:    opts.IndexCache,
		logger:   opts.Logger,
		progOut:  opts.Progress,
	}, nil
}

// Config returns a copy of the effective configuration.
func (m *Matcher) Config() Config { return m.cfg.Clone() }

// Read runs the configured reader.
func (m *Matcher) Read(opaque any) (string, error) { return m.stages.read(opaque) }

// Normalize runs the configured normalizer.
func (m *Matcher) Normalize(s string) string { return m.stages.normalize(s) }

// Ngrams runs the configured ngrammer.
func (m *Matcher) Ngrams(s string) []string { return m.stages.ngram(s) }

// SetCorpus imports haystack and weights n-grams over it. Any previous
// corpus, its weights and its BK-tree are discarded.
func (m *Matcher) SetCorpus(haystack []any) error {
	gen, _, err := m.load(haystack, nil)
	if err != nil {
		return err
	}
	m.swap(gen)
	return nil
}

// HasCorpus reports whether SetCorpus or Matches has been called.
func (m *Matcher) HasCorpus() bool { return m.current() != nil }

// Match matches needles against the current corpus.
func (m *Matcher) Match(ctx context.Context, needles []any) ([]Result, error) {
	gen := m.current()
	if gen == nil {
		return nil, ErrNoCorpus
	}
	if sameRecords(needles, gen.haystack) {
		return m.run(ctx, gen, gen.haystack, true)
	}
	items, err := gen.importList(needles)
	if err != nil {
		return nil, fmt.Errorf("import needles: %w", err)
	}
	return m.run(ctx, gen, items, false)
}

// Matches sets the corpus to haystack and matches needles against it. With
// CorpusCombined the n-gram weights are computed over needles and haystack.
func (m *Matcher) Matches(ctx context.Context, needles, haystack []any) ([]Result, error) {
	var extra []any
	if m.cfg.Corpus == CorpusCombined {
		extra = needles
	}
	gen, extraItems, err := m.load(haystack, extra)
	if err != nil {
		return nil, err
	}
	m.swap(gen)
	if sameRecords(needles, gen.haystack) {
		return m.run(ctx, gen, gen.haystack, true)
	}
	items := extraItems
	if items == nil {
		if items, err = gen.importList(needles); err != nil {
			return nil, fmt.Errorf("import needles: %w", err)
		}
	}
	return m.run(ctx, gen, items, false)
}

// Dedupe matches the current corpus against itself. An item never matches
// itself.
func (m *Matcher) Dedupe(ctx context.Context) ([]Result, error) {
	gen := m.current()
	if gen == nil {
		return nil, ErrNoCorpus
	}
	return m.run(ctx, gen, gen.haystack, true)
}

// ScoreOne scores a single pair using the current weights, or default
// weights when no corpus is set.
func (m *Matcher) ScoreOne(a, b any) (float64, error) {
	gen := m.current()
	if gen == nil {
		gen = &generation{stages: m.stages}
	}
	items, err := gen.importList([]any{a, b})
	if err != nil {
		return 0, err
	}
	c := &Candidate{Needle: items[0], Haystack: items[1]}
	return c.Score(gen.stages.score), nil
}

func (m *Matcher) current() *generation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

func (m *Matcher) swap(gen *generation) {
	m.mu.Lock()
	m.gen = gen
	m.mu.Unlock()
}

// load builds a generation over haystack. Items in extra count towards the
// weights but are not part of the haystack; they are returned imported.
func (m *Matcher) load(haystack, extra []any) (*generation, []*Item, error) {
	start := time.Now()
	gen := &generation{stages: m.stages}
	items, err := gen.importList(haystack)
	if err != nil {
		return nil, nil, fmt.Errorf("import haystack: %w", err)
	}
	gen.haystack = items
	corpus := items
	var extraItems []*Item
	if extra != nil {
		if extraItems, err = gen.importList(extra); err != nil {
			return nil, nil, fmt.Errorf("import needles: %w", err)
		}
		corpus = append(append([]*Item(nil), items...), extraItems...)
	}
	lists := make([][]string, len(corpus))
	for i, it := range corpus {
		lists[i] = it.Ngrams()
	}
	gen.freq = NewFrequencyTable(lists)
	gen.checksum = indexChecksum(items, extraItems)
	m.debug("corpus set",
		"haystack", len(items),
		"corpus", len(corpus),
		"ngrams", gen.freq.Len(),
		"elapsed", time.Since(start))
	return gen, extraItems, nil
}

func (m *Matcher) run(ctx context.Context, gen *generation, needles []*Item, self bool) ([]Result, error) {
	strategy := m.strategy.resolve(len(needles), len(gen.haystack))
	m.debug("matching",
		"needles", len(needles),
		"haystack", len(gen.haystack),
		"candidates", strategy.String(),
		"self", self)

	start := time.Now()
	cands, err := m.candidates(ctx, gen, needles, strategy, self)
	if err != nil {
		return nil, err
	}
	m.debug("candidates generated", "count", len(cands), "elapsed", time.Since(start))

	start = time.Now()
	if err := m.scoreAll(ctx, gen, cands); err != nil {
		return nil, err
	}
	m.debug("candidates scored", "elapsed", time.Since(start))

	return pickWinners(needles, cands, m.cfg.Assign, m.cfg.MinScore), nil
}

// bkTree returns the generation's BK-tree, loading it from the index cache
// or building it on first use. A failed build is not kept, so a cancelled
// call leaves the next one free to build.
func (m *Matcher) bkTree(ctx context.Context, gen *generation) (*Tree[*Item], error) {
	gen.treeMu.Lock()
	defer gen.treeMu.Unlock()
	if gen.tree != nil {
		return gen.tree, nil
	}
	if tree, ok := m.loadTree(gen); ok {
		gen.tree = tree
		return tree, nil
	}
	tree, err := m.buildTree(ctx, gen)
	if err != nil {
		return nil, err
	}
	gen.tree = tree
	m.storeTree(gen)
	return tree, nil
}

func (m *Matcher) buildTree(ctx context.Context, gen *generation) (*Tree[*Item], error) {
	start := time.Now()
	if err := m.fingerprints(ctx, gen.haystack); err != nil {
		return nil, err
	}
	tree := NewTree(itemDistance)
	bar := m.progress(" bktree", len(gen.haystack))
	for _, it := range gen.haystack {
		tree.Insert(it)
		bar.add()
	}
	bar.finish()
	m.debug("bk-tree built", "nodes", tree.Len(), "elapsed", time.Since(start))
	return tree, nil
}

func (m *Matcher) loadTree(gen *generation) (*Tree[*Item], bool) {
	if m.cache == nil {
		return nil, false
	}
	payload, ok := m.cache.Load(gen.checksum)
	if !ok {
		m.debug("index cache miss", "checksum", gen.checksum)
		return nil, false
	}
	tree, err := decodeTree(payload, gen.haystack)
	if err != nil {
		m.warn("discarding cached index", "checksum", gen.checksum, "err", err)
		return nil, false
	}
	m.debug("index cache hit", "checksum", gen.checksum, "nodes", tree.Len())
	return tree, true
}

func (m *Matcher) storeTree(gen *generation) {
	if m.cache == nil {
		return
	}
	payload, err := encodeTree(gen.tree)
	if err == nil {
		err = m.cache.Store(gen.checksum, payload)
	}
	if err != nil {
		m.warn("storing index failed", "checksum", gen.checksum, "err", err)
	}
}

func (m *Matcher) workers() int {
	if m.cfg.Workers > 0 {
		return m.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (m *Matcher) debug(msg string, keyvals ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, keyvals...)
	}
}

func (m *Matcher) warn(msg string, keyvals ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keyvals...)
	}
}

// sameRecords reports whether needles is the haystack the items were
// imported from.
func sameRecords(needles []any, haystack []*Item) bool {
	if len(needles) != len(haystack) || len(needles) == 0 {
		return false
	}
	for i, n := range needles {
		if !reflect.DeepEqual(n, haystack[i].Opaque()) {
			return false
		}
	}
	return true
}
