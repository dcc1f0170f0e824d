// Package engine executes logical plans over Arrow record batches with
// registered scalar and aggregate functions.
package engine

import (
	"context"
	"sort"
	"strings"
	"sync"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Option func(*Session)

// WithPartitions sets how many batches are processed concurrently.
func WithPartitions(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.partitions = n
		}
	}
}

// WithBatchSize splits scanned batches larger than n rows.
func WithBatchSize(n int64) Option {
	return func(s *Session) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithAllocator(mem memory.Allocator) Option {
	return func(s *Session) {
		if mem != nil {
			s.mem = mem
		}
	}
}

// Session holds the function registry, the analyzer pipeline and the
// registered tables. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	scalars map[string]ScalarUDF
	aggs    map[string]AggregateUDF
	rules   []AnalyzerRule
	tables  map[string]TableProvider

	partitions int
	batchSize  int64
	mem        memory.Allocator
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		scalars:    make(map[string]ScalarUDF),
		aggs:       make(map[string]AggregateUDF),
		tables:     make(map[string]TableProvider),
		partitions: 4,
		batchSize:  10000,
		mem:        memory.NewGoAllocator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Allocator() memory.Allocator { return s.mem }
func (s *Session) Partitions() int             { return s.partitions }

func (s *Session) checkFree(names []string) error {
	for _, n := range names {
		if _, ok := s.scalars[n]; ok {
			return errkind.New(errkind.Plan, "function %s is already registered", n)
		}
		if _, ok := s.aggs[n]; ok {
			return errkind.New(errkind.Plan, "function %s is already registered", n)
		}
	}
	return nil
}

// RegisterUDF registers f under its name and aliases.
func (s *Session) RegisterUDF(f ScalarUDF) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := append([]string{f.Name()}, f.Aliases()...)
	if err := s.checkFree(names); err != nil {
		return err
	}
	for _, n := range names {
		s.scalars[n] = f
	}
	return nil
}

// RegisterUDAF registers f under its name and aliases.
func (s *Session) RegisterUDAF(f AggregateUDF) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := append([]string{f.Name()}, f.Aliases()...)
	if err := s.checkFree(names); err != nil {
		return err
	}
	for _, n := range names {
		s.aggs[n] = f
	}
	return nil
}

// AddAnalyzerRule appends r to the analyzer pipeline.
func (s *Session) AddAnalyzerRule(r AnalyzerRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
}

func (s *Session) AnalyzerRules() []AnalyzerRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AnalyzerRule(nil), s.rules...)
}

// ScalarFunction resolves name exactly, then lower-cased.
func (s *Session) ScalarFunction(name string) (ScalarUDF, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.scalars[name]; ok {
		return f, true
	}
	f, ok := s.scalars[strings.ToLower(name)]
	return f, ok
}

// AggregateFunction resolves name exactly, then lower-cased.
func (s *Session) AggregateFunction(name string) (AggregateUDF, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.aggs[name]; ok {
		return f, true
	}
	f, ok := s.aggs[strings.ToLower(name)]
	return f, ok
}

// Functions lists the registered functions by canonical name.
func (s *Session) Functions() []FunctionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []FunctionInfo
	for name, f := range s.scalars {
		if name == f.Name() {
			out = append(out, FunctionInfo{Name: name, Aliases: f.Aliases(), Kind: "scalar", Signature: f.Signature().String()})
		}
	}
	for name, f := range s.aggs {
		if name == f.Name() {
			out = append(out, FunctionInfo{Name: name, Aliases: f.Aliases(), Kind: "aggregate", Signature: f.Signature().String()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Session) RegisterTable(name string, t TableProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return errkind.New(errkind.Plan, "table %s is already registered", name)
	}
	s.tables[name] = t
	return nil
}

// DeregisterTable removes name and returns its provider, if any.
func (s *Session) DeregisterTable(name string) TableProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[name]
	delete(s.tables, name)
	return t
}

func (s *Session) Table(name string) (TableProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, errkind.New(errkind.NotFound, "table %s not found", name)
	}
	return t, nil
}

// Analyze runs the analyzer rules in registration order.
func (s *Session) Analyze(ctx context.Context, n plan.Node) (plan.Node, error) {
	log := logging.FromContext(ctx)
	for _, r := range s.AnalyzerRules() {
		out, err := r.Analyze(ctx, n)
		if err != nil {
			return nil, errors.Wrapf(err, "analyzer rule %s", r.Name())
		}
		log.Debug("analyzer rule applied", zap.String("rule", r.Name()))
		n = out
	}
	return n, nil
}
