package quest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fablesmith/questforge/questforge/interfaces"
)

const (
	compiledCacheSize  = 1024 // Limit cache size
	preloadConcurrency = 8    // Concurrent compiles during preload
)

// Store serves compiled quest graphs. Definitions are loaded through the
// repository contract, validated wholesale and cached; a rejected
// definition is never cached and never served.
type Store struct {
	defs  interfaces.DefinitionRepository
	cache *lru.Cache
	sem   *semaphore.Weighted
	mu    sync.Mutex
}

func NewStore(defs interfaces.DefinitionRepository) *Store {
	cache, _ := lru.New(compiledCacheSize)
	return &Store{
		defs:  defs,
		cache: cache,
		sem:   semaphore.NewWeighted(preloadConcurrency),
	}
}

// Load returns the compiled graph for a quest id, compiling and caching on
// first use. Unknown ids map to ErrQuestNotFound; invalid documents to a
// DefinitionError.
func (s *Store) Load(ctx context.Context, questID string) (*CompiledQuest, error) {
	if cached, ok := s.cache.Get(questID); ok {
		return cached.(*CompiledQuest), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache.Get(questID); ok {
		return cached.(*CompiledQuest), nil
	}

	def, err := s.defs.GetByID(ctx, questID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("quest %s: %w", questID, ErrQuestNotFound)
		}
		return nil, fmt.Errorf("failed to load quest %s: %w", questID, err)
	}

	compiled, err := Compile(&def.Document)
	if err != nil {
		return nil, err
	}

	s.cache.Add(questID, compiled)
	return compiled, nil
}

// Preload compiles every stored definition up front. One broken document
// never fails the rest: failures come back keyed by quest id alongside the
// count that compiled clean.
func (s *Store) Preload(ctx context.Context) (int, map[string]error, error) {
	defs, err := s.defs.GetAll(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load quest definitions: %w", err)
	}

	var (
		mu       sync.Mutex
		loaded   int
		failures = make(map[string]error)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, def := range defs {
		def := def
		g.Go(func() error {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)

			compiled, err := Compile(&def.Document)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[def.ID] = err
				return nil
			}
			s.cache.Add(def.ID, compiled)
			loaded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loaded, failures, err
	}

	for questID, err := range failures {
		slog.Warn("Skipping invalid quest definition",
			slog.String("type", "sys"),
			slog.String("quest_id", questID),
			slog.Any("error", err),
		)
	}
	return loaded, failures, nil
}

// All returns every definition that compiles, sorted by quest id. Broken
// definitions are skipped; the catalog never offers them.
func (s *Store) All(ctx context.Context) ([]*CompiledQuest, error) {
	defs, err := s.defs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load quest definitions: %w", err)
	}

	out := make([]*CompiledQuest, 0, len(defs))
	for _, def := range defs {
		if cached, ok := s.cache.Get(def.ID); ok {
			out = append(out, cached.(*CompiledQuest))
			continue
		}
		compiled, err := Compile(&def.Document)
		if err != nil {
			slog.Warn("Skipping invalid quest definition",
				slog.String("type", "sys"),
				slog.String("quest_id", def.ID),
				slog.Any("error", err),
			)
			continue
		}
		s.cache.Add(def.ID, compiled)
		out = append(out, compiled)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Invalidate drops a cached graph; the next Load recompiles from storage.
// The sync service calls this after upserting a changed document.
func (s *Store) Invalidate(questID string) {
	s.cache.Remove(questID)
}

func (s *Store) InvalidateAll() {
	s.cache.Purge()
}
