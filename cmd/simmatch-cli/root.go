package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"yashubustudio/simmatch/simmatch"
)

// matchFlags are shared by every command that builds a matcher. Flags the
// user sets override the config file.
type matchFlags struct {
	configPath string
	candidates string
	corpus     string
	assign     string
	minScore   float64
	workers    int
	cache      string
	cachePath  string
	scorer     string
	normalizer string
	ngrammer   string
	verbose    bool
	columns    simmatch.RecordParseOptions
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simmatch-cli",
		Short:         "Fuzzy record matching by weighted n-grams",
		Long:          `simmatch-cli links records without exact keys: it matches needles against a haystack, finds duplicates in a list, or scores one pair.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMatchCmd(), newDedupeCmd(), newScoreCmd())
	return root
}

func (f *matchFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "Path to config.json or config.yaml (default: ./config.json)")
	fs.StringVar(&f.candidates, "candidates", "", "Candidate strategy: all, ngrams[=K], simhash[=H] (default: automatic)")
	fs.StringVar(&f.corpus, "corpus", "", "Records weighting n-grams: combined or haystack")
	fs.StringVar(&f.assign, "assign", "", "Winner selection: one-to-one or best")
	fs.Float64Var(&f.minScore, "min-score", 0, "Drop candidates scoring below this value")
	fs.IntVar(&f.workers, "workers", 0, "Parallel workers (default: GOMAXPROCS)")
	fs.StringVar(&f.cache, "cache", "", "BK-tree index cache: none, file or sqlite")
	fs.StringVar(&f.cachePath, "cache-path", "", "Directory (file cache) or database (sqlite cache)")
	fs.StringVar(&f.scorer, "scorer", "", "Pair scorer: dice or embedding")
	fs.StringVar(&f.normalizer, "normalizer", "", "Text normalizer: default or nfkc")
	fs.StringVar(&f.ngrammer, "ngrammer", "", "N-gram extractor: default or subword")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log stage timings and draw progress bars")
	fs.StringVar(&f.columns.TextColumn, "text-column", "", "Column name or #index holding the text in CSV/TSV input")
	fs.StringVar(&f.columns.IDColumn, "id-column", "", "Column name or #index holding the record id in CSV/TSV input")
}

// config loads the config file and applies the flags the user set.
func (f *matchFlags) config(cmd *cobra.Command) (simmatch.Config, error) {
	cfg, err := simmatch.LoadConfig(strings.TrimSpace(f.configPath))
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	changed := cmd.Flags().Changed
	if changed("candidates") {
		cfg.Candidates = f.candidates
	}
	if changed("corpus") {
		cfg.Corpus = simmatch.CorpusScope(f.corpus)
	}
	if changed("assign") {
		cfg.Assign = simmatch.AssignMode(f.assign)
	}
	if changed("min-score") {
		cfg.MinScore = f.minScore
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("cache") {
		cfg.Cache.Kind = f.cache
	}
	if changed("cache-path") {
		cfg.Cache.Path = f.cachePath
	}
	if changed("scorer") {
		cfg.Scorer = f.scorer
	}
	if changed("normalizer") {
		cfg.Normalizer = f.normalizer
	}
	if changed("ngrammer") {
		cfg.Ngrammer = f.ngrammer
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
		Prefix:          "simmatch",
	})
}

// buildMatcher wires the config into a matcher. The returned func releases
// the embedder and index cache.
func (f *matchFlags) buildMatcher(cmd *cobra.Command) (*simmatch.Matcher, func(), error) {
	cfg, err := f.config(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	return simmatch.Open(cfg, logger, cmd.ErrOrStderr())
}

// readRecords reads an input file, detecting CSV/TSV columns by the names
// in columns unless a column flag is set.
func (f *matchFlags) readRecords(path string, columns simmatch.ColumnCandidates) ([]simmatch.Record, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing input file")
	}
	opts := f.columns
	opts.Columns = columns
	records, err := simmatch.ReadRecordsFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
