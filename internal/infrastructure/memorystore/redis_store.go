// Package memorystore provides a Redis-backed implementation of the
// domain MemoryStore interface, storing each record as a JSON string value
// keyed by user and record ID, and a deterministic embeddings stub used to rank recall
// candidates.
package memorystore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/rssnews/orchestrator/internal/domain/services"
)

// RedisStore implements services.MemoryStore using Redis string keys. Each
// record is a JSON blob under key pattern "{prefix}:mem:{user_id}:{id}",
// with the per-user ID set tracked in "{prefix}:idx:{user_id}".
type RedisStore struct {
	client     *redis.Client
	config     RedisStoreConfig
	embeddings services.EmbeddingsService
}

// RedisStoreConfig configures the Redis memory store.
type RedisStoreConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// DefaultRedisStoreConfig returns default configuration.
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		KeyPrefix: "orchestrator:memory",
		TTL:       90 * 24 * time.Hour,
	}
}

// NewRedisStore creates a new Redis-backed memory store. The client
// should already be connected.
func NewRedisStore(client *redis.Client, config *RedisStoreConfig, embeddings services.EmbeddingsService) services.MemoryStore {
	if config == nil {
		defaultConfig := DefaultRedisStoreConfig()
		config = &defaultConfig
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "orchestrator:memory"
	}
	if config.TTL <= 0 {
		config.TTL = 90 * 24 * time.Hour
	}

	return &RedisStore{client: client, config: *config, embeddings: embeddings}
}

func (s *RedisStore) recordKey(userID, id string) string {
	return fmt.Sprintf("%s:mem:%s:%s", s.config.KeyPrefix, userID, id)
}

func (s *RedisStore) indexKey(userID string) string {
	return fmt.Sprintf("%s:idx:%s", s.config.KeyPrefix, userID)
}

// Store persists a new memory record and returns its generated ID.
func (s *RedisStore) Store(ctx context.Context, content, kind string, importance float64, ttlDays int, refs []models.EvidenceRef, userID string) (string, error) {
	id := uuid.NewString()

	refIDs := make([]string, 0, len(refs))
	for _, r := range refs {
		refIDs = append(refIDs, r.ArticleID)
	}

	record := models.MemoryRecord{
		ID:         id,
		UserID:     userID,
		Content:    content,
		Kind:       kind,
		Importance: importance,
		TTLDays:    ttlDays,
		Refs:       refIDs,
		CreatedAt:  time.Now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal memory record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(userID, id), data, s.config.TTL)
	pipe.SAdd(ctx, s.indexKey(userID), id)
	pipe.Expire(ctx, s.indexKey(userID), s.config.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to persist memory record: %w", err)
	}

	return id, nil
}

// Recall returns up to limit records for userID ranked by embedding
// similarity to query, filtered by minSimilarity and TTL expiry.
func (s *RedisStore) Recall(ctx context.Context, query, userID string, limit int, minSimilarity float64) ([]models.MemoryRecord, error) {
	records, err := s.loadAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	queryVec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	type scored struct {
		record models.MemoryRecord
		sim    float64
	}
	now := time.Now()
	var candidates []scored
	for _, r := range records {
		if r.Expired(now) {
			continue
		}
		vec, err := s.embed(ctx, r.Content)
		if err != nil {
			return nil, err
		}
		sim := cosineSimilarity(queryVec, vec)
		if sim < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{record: r, sim: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]models.MemoryRecord, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, candidates[i].record)
	}
	return out, nil
}

// Suggest returns up to max records from the shared "_global" bucket,
// newest first. The documents are only checked for being non-empty;
// their titles and contents play no part in the selection.
func (s *RedisStore) Suggest(ctx context.Context, docs []*models.Document, max int) ([]models.MemoryRecord, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	// Find the userID of any caller-independent global suggestion pool is
	// out of scope here; suggestions are scoped per-document entity overlap
	// against the most recently stored records across all callers is not
	// tracked by this reference store, so Suggest degrades to a no-similarity
	// recency scan keyed on the special "_global" bucket.
	records, err := s.loadAll(ctx, "_global")
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })

	if max <= 0 || max > len(records) {
		max = len(records)
	}
	return records[:max], nil
}

func (s *RedisStore) loadAll(ctx context.Context, userID string) ([]models.MemoryRecord, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list memory index: %w", err)
	}

	var out []models.MemoryRecord
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.recordKey(userID, id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load memory record %s: %w", id, err)
		}
		var record models.MemoryRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal memory record %s: %w", id, err)
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *RedisStore) embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := s.embeddings.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embeddings service returned no vectors")
	}
	return vecs[0], nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DeterministicEmbeddings is a hash-based stand-in for a real embeddings
// backend: it maps text to a fixed-size vector whose entries are the
// characters of the hex-encoded MD5 digest of the whole text, each
// divided by 255, giving stable, reproducible similarity
// scores without any external dependency (§4.2 graceful absence of
// clients).
type DeterministicEmbeddings struct {
	Dims int
}

// NewDeterministicEmbeddings creates a stub embeddings service.
func NewDeterministicEmbeddings() services.EmbeddingsService {
	return &DeterministicEmbeddings{Dims: 32}
}

// Embed returns one deterministic vector per input text.
func (e *DeterministicEmbeddings) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	dims := e.Dims
	if dims <= 0 {
		dims = 32
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, dims)
	}
	return out, nil
}

func hashVector(text string, dims int) []float64 {
	vec := make([]float64, dims)
	sum := md5.Sum([]byte(text))
	digest := hex.EncodeToString(sum[:])

	for i := 0; i < dims; i++ {
		b := digest[i%len(digest)]
		vec[i] = float64(b) / 255.0
	}
	return vec
}
