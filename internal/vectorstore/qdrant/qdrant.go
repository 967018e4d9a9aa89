// Package qdrant is the Qdrant vector backend. Points use the payload layout
// text/source/timestamp so collections written by earlier tools stay searchable.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
)

const (
	backendName       = "qdrant"
	DefaultCollection = "book_knowledge"

	payloadText      = "text"
	payloadSource    = "source"
	payloadTimestamp = "timestamp"

	statsScrollLimit   = 10000
	compensateTimeout  = 10 * time.Second
	legacyTimestampFmt = "2006-01-02T15:04:05.999999"
)

// API is the subset of *qdrant.Client the store uses.
type API interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
}

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Store keeps chunks as points of one cosine-distance collection.
type Store struct {
	api        API
	closer     func() error
	collection string
	logger     *slog.Logger
}

// Dial connects to Qdrant over gRPC.
func Dial(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	s := New(client, cfg.Collection)
	s.closer = client.Close
	return s, nil
}

// New wraps an existing API client.
func New(api API, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		api:        api,
		collection: collection,
		logger:     logging.NewModuleLogger("qdrant").With("collection", collection),
	}
}

func (s *Store) Name() string { return backendName }

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Prepare creates the collection when missing. An existing empty collection
// with a different vector size is recreated; a non-empty one is left alone so
// the dimension check can reject it.
func (s *Store) Prepare(ctx context.Context, dimension int) error {
	exists, err := s.api.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return s.create(ctx, dimension)
	}

	size, err := s.vectorSize(ctx)
	if err != nil {
		return err
	}
	if size == dimension {
		return nil
	}
	count, err := s.count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	s.logger.Info("recreating empty collection with new vector size", "from", size, "to", dimension)
	if err := s.api.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to drop empty collection: %w", err)
	}
	return s.create(ctx, dimension)
}

func (s *Store) create(ctx context.Context, dimension int) error {
	err := s.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	s.logger.Info("collection created", "dimension", dimension)
	return nil
}

// Upsert writes the batch in one request and waits for it to be applied. If
// the request fails, ids that were new to the collection are deleted so no
// part of the batch stays visible. Ids that existed before the call are left
// in place; a failed rewrite of them may leave either version.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	ids := make([]*qdrant.PointId, len(chunks))
	for i, c := range chunks {
		ids[i] = qdrant.NewID(c.ID)
		points[i] = &qdrant.PointStruct{
			Id:      ids[i],
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadText:      c.Text,
				payloadSource:    c.SourceTag,
				payloadTimestamp: c.CreatedAt.UTC().Format(time.RFC3339Nano),
			}),
		}
	}

	existing, err := s.existingIDs(ctx, ids)
	if err != nil {
		return err
	}

	wait := true
	_, err = s.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err == nil {
		return nil
	}

	fresh := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		if !existing[pointKey(id)] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if _, delErr := s.api.Delete(cctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: fresh},
			},
		},
	}); delErr != nil {
		s.logger.Error("failed to roll back partial upsert", "points", len(fresh), "error", delErr)
	}
	return fmt.Errorf("failed to upsert points: %w", err)
}

// existingIDs returns the keys of ids already stored in the collection.
func (s *Store) existingIDs(ctx context.Context, ids []*qdrant.PointId) (map[string]bool, error) {
	points, err := s.api.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing points: %w", err)
	}
	existing := make(map[string]bool, len(points))
	for _, p := range points {
		existing[pointKey(p.GetId())] = true
	}
	return existing, nil
}

func pointKey(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return strings.ToLower(u)
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return []domain.RetrievalResult{}, nil
	}
	limit := uint64(k)
	hits, err := s.api.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		chunk := chunkFromPayload(hit.GetId(), hit.GetPayload())
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		results = append(results, domain.RetrievalResult{Chunk: chunk, Score: float64(hit.GetScore())})
	}
	domain.SortResults(results)
	return results, nil
}

// Stats counts points exactly. Source and capture-time aggregates are computed
// from at most statsScrollLimit points.
func (s *Store) Stats(ctx context.Context) (*domain.StoreStats, error) {
	info, err := s.api.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}
	count, err := s.count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.StoreStats{
		TotalChunks: int64(count),
		Dimension:   int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()),
		Collection:  s.collection,
		Status:      strings.ToLower(info.GetStatus().String()),
	}
	if count == 0 {
		return stats, nil
	}

	limit := uint32(statsScrollLimit)
	points, err := s.api.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayloadInclude(payloadSource, payloadTimestamp),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}

	sources := make(map[string]struct{})
	var oldest, newest time.Time
	for _, p := range points {
		payload := p.GetPayload()
		sources[stringValue(payload[payloadSource])] = struct{}{}
		ts := parseTimestamp(stringValue(payload[payloadTimestamp]))
		if ts.IsZero() {
			continue
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if ts.After(newest) {
			newest = ts
		}
	}
	stats.TotalSources = int64(len(sources))
	if !oldest.IsZero() {
		stats.OldestCapture = &oldest
		stats.NewestCapture = &newest
	}
	return stats, nil
}

// Clear drops the collection and creates it again empty.
func (s *Store) Clear(ctx context.Context, dimension int) error {
	exists, err := s.api.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := s.api.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	return s.create(ctx, dimension)
}

// Dimension returns the configured vector size of a non-empty collection, 0 otherwise.
func (s *Store) Dimension(ctx context.Context) (int, error) {
	exists, err := s.api.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return 0, nil
	}
	count, err := s.count(ctx)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return s.vectorSize(ctx)
}

func (s *Store) vectorSize(ctx context.Context) (int, error) {
	info, err := s.api.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	return int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()), nil
}

func (s *Store) count(ctx context.Context) (uint64, error) {
	exact := true
	n, err := s.api.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

func chunkFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) domain.Chunk {
	chunk := domain.Chunk{
		Text:      stringValue(payload[payloadText]),
		SourceTag: stringValue(payload[payloadSource]),
		CreatedAt: parseTimestamp(stringValue(payload[payloadTimestamp])),
	}
	if uuid := id.GetUuid(); uuid != "" {
		chunk.ID = uuid
	} else {
		chunk.ID = fmt.Sprintf("%d", id.GetNum())
	}
	return chunk
}

func stringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC()
	}
	if ts, err := time.Parse(legacyTimestampFmt, raw); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}
