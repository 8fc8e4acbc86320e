package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/fablesmith/questforge/questforge/interfaces"
	"github.com/fablesmith/questforge/questforge/logger"
	"github.com/fablesmith/questforge/questforge/quest"
)

const syncConcurrency = 4

// DefinitionSource enumerates and fetches authored quest documents.
type DefinitionSource interface {
	Name() string
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// DirSource reads .toml quest documents from a local directory.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Name() string {
	return "dir:" + s.dir
}

func (s *DirSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions dir %s: %w", s.dir, err)
	}

	var refs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		refs = append(refs, entry.Name())
	}
	sort.Strings(refs)
	return refs, nil
}

func (s *DirSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, ref))
}

// SpacesSource reads .toml quest documents from an S3-compatible bucket.
type SpacesSource struct {
	client *s3.Client
	bucket string
	root   string
}

func NewSpacesSource(spacesKey, spacesSecret, region, bucket, root string) *SpacesSource {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	return &SpacesSource{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		root:   strings.TrimPrefix(root, "/"),
	}
}

func (s *SpacesSource) Name() string {
	return "spaces:" + s.bucket
}

func (s *SpacesSource) List(ctx context.Context) ([]string, error) {
	prefix := s.root
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  &s.bucket,
		Prefix:  &prefix,
		MaxKeys: aws.Int32(1000),
	}

	var refs []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range output.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ".toml") {
				continue
			}
			refs = append(refs, *obj.Key)
		}
	}
	sort.Strings(refs)
	return refs, nil
}

func (s *SpacesSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &ref,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	defer output.Body.Close()
	return io.ReadAll(output.Body)
}

// SyncStats summarizes one sweep over all sources.
type SyncStats struct {
	Scanned  int
	Upserted int
	Skipped  int
	Failed   int
	Took     time.Duration
}

// DefinitionSyncService ingests authored quest documents into the
// definition repository. Each file is decoded, compiled (invalid documents
// are rejected wholesale and logged) and upserted when its stored form
// changed; the store entry is invalidated so the next load recompiles. One
// bad document never aborts the sweep.
type DefinitionSyncService struct {
	sources []DefinitionSource
	defs    interfaces.DefinitionRepository
	store   *quest.Store
	sem     *semaphore.Weighted
}

func NewDefinitionSyncService(defs interfaces.DefinitionRepository, store *quest.Store, sources ...DefinitionSource) *DefinitionSyncService {
	return &DefinitionSyncService{
		sources: sources,
		defs:    defs,
		store:   store,
		sem:     semaphore.NewWeighted(syncConcurrency),
	}
}

// SyncOnce sweeps every source once and returns the combined stats.
func (s *DefinitionSyncService) SyncOnce(ctx context.Context) (*SyncStats, error) {
	start := time.Now()
	stats := &SyncStats{}
	var mu sync.Mutex

	for _, src := range s.sources {
		refs, err := src.List(ctx)
		if err != nil {
			logger.LogError("Definition source listing failed", err,
				slog.String("source", src.Name()))
			mu.Lock()
			stats.Failed++
			mu.Unlock()
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, ref := range refs {
			ref := ref
			g.Go(func() error {
				if err := s.sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer s.sem.Release(1)

				upserted, err := s.syncOne(gctx, src, ref)

				mu.Lock()
				defer mu.Unlock()
				stats.Scanned++
				switch {
				case err != nil:
					stats.Failed++
				case upserted:
					stats.Upserted++
				default:
					stats.Skipped++
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			stats.Took = time.Since(start)
			return stats, err
		}
	}

	stats.Took = time.Since(start)
	logger.LogSystem("Definition sync complete",
		slog.Int("scanned", stats.Scanned),
		slog.Int("upserted", stats.Upserted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", stats.Took),
	)
	return stats, nil
}

func (s *DefinitionSyncService) syncOne(ctx context.Context, src DefinitionSource, ref string) (bool, error) {
	raw, err := src.Fetch(ctx, ref)
	if err != nil {
		logger.LogError("Failed to fetch quest document", err,
			slog.String("source", src.Name()),
			slog.String("ref", ref))
		return false, err
	}

	var doc models.QuestDocument
	if err := toml.Unmarshal(raw, &doc); err != nil {
		logger.LogError("Failed to decode quest document", err,
			slog.String("source", src.Name()),
			slog.String("ref", ref))
		return false, err
	}

	if _, err := quest.Compile(&doc); err != nil {
		logger.LogError("Rejected invalid quest document", err,
			slog.String("source", src.Name()),
			slog.String("ref", ref))
		return false, err
	}

	changed, err := s.documentChanged(ctx, &doc)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	def := &models.QuestDefinition{
		ID:       doc.ID,
		Title:    doc.Title,
		Summary:  doc.Description,
		Document: doc,
		Source:   src.Name() + "/" + ref,
	}
	if err := s.defs.Upsert(ctx, def); err != nil {
		logger.LogError("Failed to upsert quest definition", err,
			slog.String("quest_id", doc.ID))
		return false, err
	}

	s.store.Invalidate(doc.ID)
	slog.Info("Quest definition synced",
		slog.String("type", "sys"),
		slog.String("quest_id", doc.ID),
		slog.String("source", src.Name()))
	return true, nil
}

// documentChanged compares through a JSON round, which normalizes the
// numeric and key-order differences between TOML decoding and stored
// jsonb.
func (s *DefinitionSyncService) documentChanged(ctx context.Context, doc *models.QuestDocument) (bool, error) {
	existing, err := s.defs.GetByID(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	stored, err := json.Marshal(existing.Document)
	if err != nil {
		return true, nil
	}
	incoming, err := json.Marshal(doc)
	if err != nil {
		return true, nil
	}
	return !bytes.Equal(stored, incoming), nil
}

// Start runs periodic resyncs until the context is cancelled.
func (s *DefinitionSyncService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SyncOnce(ctx); err != nil {
					logger.LogError("Definition sync failed", err)
				}
			}
		}
	}()
}
