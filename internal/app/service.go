package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"yashubustudio/simmatch/simmatch"
)

// Service owns the matcher and its configuration for the UI.
type Service struct {
	mu      sync.RWMutex
	cfg     simmatch.Config
	cfgPath string
	matcher *simmatch.Matcher
	release func()
	logger  *log.Logger
}

// NewService builds a matcher from cfg. The logger may be nil.
func NewService(cfg simmatch.Config, cfgPath string, logger *log.Logger) (*Service, error) {
	s := &Service{cfgPath: cfgPath, logger: logger}
	if err := s.rebuild(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) rebuild(cfg simmatch.Config) error {
	cfg.ApplyDefaults()
	m, release, err := simmatch.Open(cfg, s.logger, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		s.release()
	}
	s.cfg = cfg
	s.matcher = m
	s.release = release
	setVerbose(s.logger, cfg.Verbose)
	return nil
}

// Close releases the index cache and embedder.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// Config returns a copy of the active configuration.
func (s *Service) Config() simmatch.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig validates cfg by building a new matcher, then persists it.
// On error the previous configuration stays active.
func (s *Service) UpdateConfig(cfg simmatch.Config) (simmatch.Config, error) {
	if err := s.rebuild(cfg); err != nil {
		return s.Config(), err
	}
	active := s.Config()
	if err := simmatch.SaveConfig(s.cfgPath, active); err != nil {
		return active, fmt.Errorf("save config: %w", err)
	}
	return active, nil
}

func (s *Service) current() *simmatch.Matcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher
}

// Match matches needles against haystack. progress receives completed
// steps out of a fixed total.
func (s *Service) Match(ctx context.Context, needles, haystack []simmatch.Record, progress func(done, total int)) ([]ResultRow, error) {
	if len(haystack) == 0 {
		return nil, errors.New("haystack is empty")
	}
	report(progress, 1)
	results, err := s.current().Matches(ctx, simmatch.Opaques(needles), simmatch.Opaques(haystack))
	if err != nil {
		return nil, err
	}
	report(progress, 2)
	rows := rowsFromResults(results)
	report(progress, 3)
	return rows, nil
}

// Dedupe groups likely duplicates in records. Rows list each duplicate with
// its group number; records without a duplicate are left out.
func (s *Service) Dedupe(ctx context.Context, records []simmatch.Record, progress func(done, total int)) ([]ResultRow, error) {
	if len(records) == 0 {
		return nil, errors.New("input is empty")
	}
	m := s.current()
	if err := m.SetCorpus(simmatch.Opaques(records)); err != nil {
		return nil, err
	}
	report(progress, 1)
	results, err := m.Dedupe(ctx)
	if err != nil {
		return nil, err
	}
	report(progress, 2)
	rows := rowsFromGroups(results, simmatch.Groups(results))
	report(progress, 3)
	return rows, nil
}

// progressSteps is the total passed to progress callbacks.
const progressSteps = 3

func report(progress func(done, total int), done int) {
	if progress != nil {
		progress(done, progressSteps)
	}
}
