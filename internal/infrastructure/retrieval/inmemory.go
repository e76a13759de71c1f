package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/rssnews/orchestrator/internal/domain/services"
)

// InMemoryClient is a deterministic reference implementation of
// RetrievalClient (§4.2). It holds an in-process corpus, scores documents
// by keyword overlap with the query and recency, and optionally reranks
// by score before truncating to k_final. A production deployment would
// swap this for a vector/full-text search backend behind the same
// interface.
type InMemoryClient struct {
	mu    sync.RWMutex
	docs  []*models.Document
	clock func() time.Time
}

// NewInMemoryClient creates a client seeded with the given corpus. An
// empty corpus is valid; documents can be added later with Index.
func NewInMemoryClient(seed []*models.Document) services.RetrievalClient {
	return &InMemoryClient{
		docs:  append([]*models.Document{}, seed...),
		clock: time.Now,
	}
}

// Index adds documents to the corpus, replacing any existing entry with
// the same ArticleID.
func (c *InMemoryClient) Index(docs []*models.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID := make(map[string]*models.Document, len(c.docs))
	for _, d := range c.docs {
		byID[d.ArticleID] = d
	}
	for _, d := range docs {
		byID[d.ArticleID] = d
	}

	c.docs = c.docs[:0]
	for _, d := range byID {
		c.docs = append(c.docs, d)
	}
}

// Retrieve scores the indexed corpus against the query and returns the
// top k_final candidates within the requested recency window and source
// filter, optionally reranked.
func (c *InMemoryClient) Retrieve(ctx context.Context, query string, windowDays int, lang string, kFinal int, useRerank bool, sources []string) ([]*models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock()
	cutoff := now.AddDate(0, 0, -windowDays)
	queryTerms := tokenize(query)

	sourceSet := make(map[string]bool, len(sources))
	for _, s := range sources {
		sourceSet[strings.ToLower(s)] = true
	}

	type scored struct {
		doc   *models.Document
		score float64
	}
	var candidates []scored

	for _, d := range c.docs {
		if windowDays > 0 && d.Date.Before(cutoff) {
			continue
		}
		if len(sourceSet) > 0 && !sourceSet[hostOf(d.URL)] {
			continue
		}

		score := keywordOverlap(queryTerms, d)
		score += recencyBoost(d.Date, now)
		candidates = append(candidates, scored{doc: d, score: score})
	}

	if useRerank {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	} else {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].doc.Date.After(candidates[j].doc.Date) })
	}

	if kFinal <= 0 || kFinal > len(candidates) {
		kFinal = len(candidates)
	}

	out := make([]*models.Document, 0, kFinal)
	for i := 0; i < kFinal; i++ {
		d := *candidates[i].doc
		d.Score = clamp01(candidates[i].score)
		out = append(out, &d)
	}
	return out, nil
}

func tokenize(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,!?;:\"'()")] = true
	}
	return set
}

func keywordOverlap(terms map[string]bool, d *models.Document) float64 {
	if len(terms) == 0 {
		return 0.5
	}
	hay := tokenize(d.Title + " " + d.Snippet)
	var hits int
	for t := range terms {
		if hay[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func recencyBoost(date, now time.Time) float64 {
	days := now.Sub(date).Hours() / 24
	if days < 0 {
		days = 0
	}
	boost := 1.0 - days/30.0
	if boost < 0 {
		boost = 0
	}
	return boost * 0.2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func hostOf(url string) string {
	s := strings.ToLower(url)
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	for i, c := range s {
		if c == '/' || c == ':' || c == '?' {
			return s[:i]
		}
	}
	return s
}
